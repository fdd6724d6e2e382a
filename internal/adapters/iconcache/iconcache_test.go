package iconcache_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/trophycase/internal/adapters/iconcache"
	"github.com/okian/trophycase/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func wait(t *testing.T, done <-chan struct{}) bool {
	t.Helper()
	select {
	case <-done:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func TestPrefetch(t *testing.T) {
	Convey("Given an icon server", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if r.URL.Path == "/missing.png" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte("png:" + r.URL.Path))
		}))
		defer srv.Close()

		dir := t.TempDir()
		cache := iconcache.New(iconcache.WithDir(dir), iconcache.WithConcurrency(2))
		achs := []model.Achievement{
			{ID: "1", IconURL: srv.URL + "/a.png"},
			{ID: "2", IconURL: srv.URL + "/b.png"},
			{ID: "3", IconURL: srv.URL + "/a.png"},
			{ID: "4"},
			{ID: "5", IconURL: srv.URL + "/missing.png"},
		}

		Convey("When the icons are prefetched", func() {
			done := make(chan struct{})
			cache.Prefetch(context.Background(), achs, func() { close(done) })
			So(wait(t, done), ShouldBeTrue)

			Convey("Then each distinct icon is stored once", func() {
				So(hits.Load(), ShouldEqual, 3)
				body, err := os.ReadFile(cache.Path(srv.URL + "/a.png"))
				So(err, ShouldBeNil)
				So(string(body), ShouldEqual, "png:/a.png")
				_, err = os.Stat(cache.Path(srv.URL + "/missing.png"))
				So(os.IsNotExist(err), ShouldBeTrue)
			})

			Convey("Then a second prefetch reuses the files", func() {
				again := make(chan struct{})
				cache.Prefetch(context.Background(), achs[:2], func() { close(again) })
				So(wait(t, again), ShouldBeTrue)
				So(hits.Load(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a cache without a directory", t, func() {
		cache := iconcache.New()

		Convey("Then done is still called", func() {
			So(cache.Enabled(), ShouldBeFalse)
			done := make(chan struct{})
			cache.Prefetch(context.Background(), []model.Achievement{{IconURL: "http://x/y.png"}}, func() { close(done) })
			So(wait(t, done), ShouldBeTrue)
		})
	})
}

func TestPath(t *testing.T) {
	Convey("Given a cache directory", t, func() {
		cache := iconcache.New(iconcache.WithDir("/tmp/icons"))

		Convey("Then names are stable and keep short extensions", func() {
			p := cache.Path("http://host/icon.png?size=64")
			So(p, ShouldEqual, cache.Path("http://host/icon.png?size=64"))
			So(p, ShouldStartWith, "/tmp/icons/")
			So(p, ShouldEndWith, ".png")
			So(cache.Path("http://host/icon"), ShouldNotEndWith, ".png")
		})
	})
}
