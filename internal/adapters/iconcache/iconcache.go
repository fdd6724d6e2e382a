// Package iconcache downloads achievement icons to local disk so overlays
// can render them without reaching the game service.
package iconcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/trophycase/internal/domain/model"
	"github.com/okian/trophycase/pkg/logger"
	"github.com/okian/trophycase/pkg/metrics"
)

// ErrUnexpectedStatus is returned when an icon request does not answer 200.
var ErrUnexpectedStatus = errors.New("unexpected icon response status")

// Cache stores icons under a directory, one file per URL.
type Cache struct {
	dir         string
	concurrency int
	timeout     time.Duration
	client      *http.Client
	log         logger.Logger
}

// New creates a Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		client:      http.DefaultClient,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a cache directory is configured.
func (c *Cache) Enabled() bool {
	return c.dir != ""
}

// Path returns the file an icon URL is cached at. The name is the sha256 of
// the URL plus the URL's extension.
func (c *Cache) Path(url string) string {
	sum := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(sum[:])
	ext := path.Ext(strings.SplitN(url, "?", 2)[0])
	if len(ext) > 1 && len(ext) <= 5 {
		name += ext
	}
	return filepath.Join(c.dir, name)
}

// Prefetch downloads the icons of achievements in the background and calls
// done once every download has finished or failed. done is always called,
// from a goroutine other than the caller's.
func (c *Cache) Prefetch(ctx context.Context, achievements []model.Achievement, done func()) {
	urls := iconURLs(achievements)
	go func() {
		defer func() {
			if done != nil {
				done()
			}
		}()
		if !c.Enabled() || len(urls) == 0 {
			return
		}
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			c.log.Error(ctx, "creating icon cache dir", logger.String("dir", c.dir), logger.Error(err))
			return
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for _, url := range urls {
			g.Go(func() error {
				result, err := c.fetch(gctx, url)
				metrics.RecordIconFetch(result)
				if err != nil {
					c.log.Warn(gctx, "icon fetch failed", logger.String("url", url), logger.Error(err))
				}
				return nil
			})
		}
		_ = g.Wait()
		c.log.Debug(ctx, "icon prefetch finished", logger.Int("icons", len(urls)))
	}()
}

func (c *Cache) fetch(ctx context.Context, url string) (string, error) {
	target := c.Path(url)
	if _, err := os.Stat(target); err == nil {
		return "cached", nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "failed", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "failed", fmt.Errorf("building request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "failed", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "failed", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.dir, ".icon-*")
	if err != nil {
		return "failed", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "failed", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "failed", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "failed", err
	}
	return "fetched", nil
}

// iconURLs returns the distinct non-empty icon URLs in catalogue order.
func iconURLs(achievements []model.Achievement) []string {
	seen := make(map[string]struct{}, len(achievements))
	var urls []string
	for i := range achievements {
		url := achievements[i].IconURL
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	return urls
}
