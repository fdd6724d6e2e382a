package display_test

import (
	"bytes"
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/okian/trophycase/internal/domain/display"
	"github.com/okian/trophycase/internal/domain/model"
	"github.com/okian/trophycase/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type staticSource struct {
	mu   sync.Mutex
	list []model.Achievement
}

func (s *staticSource) Achievements(context.Context) []model.Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneAchievements(s.list)
}

func (s *staticSource) set(list []model.Achievement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = list
}

type recorder struct {
	mu   sync.Mutex
	seen []*model.Achievement
}

func (r *recorder) OnDisplay(_ context.Context, a *model.Achievement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, a)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func (r *recorder) last() *model.Achievement {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return nil
	}
	return r.seen[len(r.seen)-1]
}

func newCycle(src display.Source, opts ...display.Option) *display.Cycle {
	opts = append([]display.Option{display.WithRand(rand.New(rand.NewSource(3)))}, opts...) //nolint:gosec // deterministic test seed
	return display.New(src, opts...)
}

func TestCycleScenario(t *testing.T) {
	Convey("Given a ready cycle with one locked achievement", t, func() {
		ctx := context.Background()
		src := &staticSource{list: []model.Achievement{
			{ID: "unlocked", ServiceConfigID: "s", UnlockedTimestamp: 100},
			{ID: "locked", ServiceConfigID: "s"},
		}}
		c := newCycle(src)
		defer c.Close()
		rec := &recorder{}
		So(c.Subscribe(rec), ShouldBeTrue)
		c.SessionReady(ctx)

		Convey("Then session ready publishes the last unlocked achievement", func() {
			So(rec.count(), ShouldEqual, 1)
			So(rec.last().ID, ShouldEqual, "unlocked")
			So(c.Phase(), ShouldEqual, display.PhaseLastUnlocked)
			So(c.LastUnlocked().ID, ShouldEqual, "unlocked")
		})

		Convey("When 45 seconds pass", func() {
			before := rec.count()
			c.Tick(ctx, 45*time.Second)

			Convey("Then the rotation starts with exactly one publish of the locked achievement", func() {
				So(c.Phase(), ShouldEqual, display.PhaseLockedRotation)
				So(rec.count()-before, ShouldEqual, 1)
				So(rec.last().ID, ShouldEqual, "locked")
				So(c.Current().ID, ShouldEqual, "locked")
			})

			Convey("When 30 more seconds pass", func() {
				mid := rec.count()
				c.Tick(ctx, 30*time.Second)

				Convey("Then exactly one more publish happens without a phase change", func() {
					So(rec.count()-mid, ShouldEqual, 1)
					So(rec.last().ID, ShouldEqual, "locked")
					So(c.Phase(), ShouldEqual, display.PhaseLockedRotation)
				})
			})

			Convey("When the whole rotation elapses", func() {
				for range 4 {
					c.Tick(ctx, 30*time.Second)
				}

				Convey("Then the last unlocked achievement is republished", func() {
					So(c.Phase(), ShouldEqual, display.PhaseLastUnlocked)
					So(rec.last().ID, ShouldEqual, "unlocked")
					So(c.Current().ID, ShouldEqual, "unlocked")
				})
			})
		})

		Convey("When less than the phase length passes", func() {
			before := rec.count()
			c.Tick(ctx, 44*time.Second)

			Convey("Then nothing is published", func() {
				So(rec.count(), ShouldEqual, before)
				So(c.Phase(), ShouldEqual, display.PhaseLastUnlocked)
			})
		})
	})
}

func TestCycleWithoutLockedAchievements(t *testing.T) {
	Convey("Given a ready cycle where everything is unlocked", t, func() {
		ctx := context.Background()
		src := &staticSource{list: []model.Achievement{{ID: "a", UnlockedTimestamp: 5}}}
		c := newCycle(src)
		rec := &recorder{}
		c.Subscribe(rec)
		c.SessionReady(ctx)
		before := rec.count()

		Convey("When the phase timer expires", func() {
			c.Tick(ctx, 45*time.Second)

			Convey("Then the phase is kept and nothing is published", func() {
				So(c.Phase(), ShouldEqual, display.PhaseLastUnlocked)
				So(rec.count(), ShouldEqual, before)
			})

			Convey("Then the timer was reset to the full phase length", func() {
				src.set([]model.Achievement{{ID: "a", UnlockedTimestamp: 5}, {ID: "b"}})
				c.Tick(ctx, 44*time.Second)
				So(c.Phase(), ShouldEqual, display.PhaseLastUnlocked)
				c.Tick(ctx, time.Second)
				So(c.Phase(), ShouldEqual, display.PhaseLockedRotation)
			})
		})
	})
}

func TestCycleEvents(t *testing.T) {
	Convey("Given a cycle that is not ready", t, func() {
		ctx := context.Background()
		src := &staticSource{list: []model.Achievement{{ID: "a", UnlockedTimestamp: 5}, {ID: "b"}}}
		c := newCycle(src)
		rec := &recorder{}
		c.Subscribe(rec)

		Convey("Then ticks and refresh events are ignored", func() {
			c.Tick(ctx, time.Hour)
			c.ConnectionChanged(ctx)
			c.AchievementsProgressed(ctx)
			So(rec.count(), ShouldEqual, 0)
			So(c.Current(), ShouldBeNil)
			So(c.Ready(), ShouldBeFalse)
		})

		Convey("When the session becomes ready", func() {
			c.SessionReady(ctx)

			Convey("Then the cycle runs", func() {
				So(c.Ready(), ShouldBeTrue)
				So(rec.count(), ShouldEqual, 1)
			})

			Convey("When a new game is played", func() {
				c.GamePlayed(ctx)

				Convey("Then the display is blanked once and stays idle", func() {
					So(rec.count(), ShouldEqual, 2)
					So(rec.last(), ShouldBeNil)
					So(c.Current(), ShouldBeNil)
					So(c.Ready(), ShouldBeFalse)
					So(c.LastUnlocked(), ShouldBeNil)
					c.Tick(ctx, time.Hour)
					c.GamePlayed(ctx)
					So(rec.count(), ShouldEqual, 2)
				})

				Convey("Then the next session shows the new title", func() {
					src.set([]model.Achievement{{ID: "c", UnlockedTimestamp: 7}})
					c.SessionReady(ctx)
					So(rec.count(), ShouldEqual, 3)
					So(rec.last().ID, ShouldEqual, "c")
				})
			})

			Convey("When achievements progress", func() {
				c.Tick(ctx, 45*time.Second)
				So(c.Phase(), ShouldEqual, display.PhaseLockedRotation)
				src.set([]model.Achievement{{ID: "a", UnlockedTimestamp: 5}, {ID: "b", UnlockedTimestamp: 9}})
				c.AchievementsProgressed(ctx)

				Convey("Then the newest unlock is shown from the start of the phase", func() {
					So(c.Phase(), ShouldEqual, display.PhaseLastUnlocked)
					So(rec.last().ID, ShouldEqual, "b")
					So(c.LastUnlocked().ID, ShouldEqual, "b")
				})
			})

			Convey("When the connection changes with nothing unlocked", func() {
				src.set([]model.Achievement{{ID: "b"}})
				c.ConnectionChanged(ctx)

				Convey("Then nothing is published as the current achievement", func() {
					So(rec.count(), ShouldEqual, 2)
					So(rec.last(), ShouldBeNil)
					So(c.Current(), ShouldBeNil)
				})
			})
		})

		Convey("When the cycle is closed", func() {
			c.Close()
			c.SessionReady(ctx)

			Convey("Then it stays idle", func() {
				So(rec.count(), ShouldEqual, 0)
				So(c.Subscribers(), ShouldEqual, 0)
				So(c.Subscribe(&recorder{}), ShouldBeFalse)
				So(func() { c.Close() }, ShouldNotPanic)
			})
		})
	})
}

func TestCycleCopies(t *testing.T) {
	Convey("Given a published achievement", t, func() {
		ctx := context.Background()
		src := &staticSource{list: []model.Achievement{{
			ID: "a", UnlockedTimestamp: 5, MediaAssets: []model.MediaAsset{{URL: "u"}},
		}}}
		c := newCycle(src)
		rec1, rec2 := &recorder{}, &recorder{}
		c.Subscribe(rec1)
		c.Subscribe(rec2)
		c.SessionReady(ctx)

		Convey("Then every subscriber and query gets its own copy", func() {
			rec1.last().MediaAssets[0].URL = "changed"
			So(rec2.last().MediaAssets[0].URL, ShouldEqual, "u")
			So(c.Current().MediaAssets[0].URL, ShouldEqual, "u")
			So(c.LastUnlocked().MediaAssets[0].URL, ShouldEqual, "u")
		})

		Convey("Then the cache survives the catalogue being replaced", func() {
			src.set(nil)
			So(c.LastUnlocked().ID, ShouldEqual, "a")
		})
	})
}

func TestPublishHook(t *testing.T) {
	Convey("Given a cycle with a publish hook", t, func() {
		ctx := context.Background()
		src := &staticSource{list: []model.Achievement{{ID: "a", UnlockedTimestamp: 5}, {ID: "b"}}}
		var phases []display.Phase
		c := newCycle(src,
			display.WithMaxSubscribers(1),
			display.WithPublishHook(func(p display.Phase) { phases = append(phases, p) }),
		)
		rec := &recorder{}

		Convey("When the cycle publishes through its phases", func() {
			So(c.Subscribe(rec), ShouldBeTrue)
			c.SessionReady(ctx)
			c.Tick(ctx, 45*time.Second)
			c.GamePlayed(ctx)

			Convey("Then the hook sees every publication without taking a subscriber slot", func() {
				So(phases, ShouldResemble, []display.Phase{
					display.PhaseLastUnlocked,
					display.PhaseLockedRotation,
					display.PhaseLockedRotation,
				})
				So(rec.count(), ShouldEqual, 3)
				So(c.Subscribers(), ShouldEqual, 1)
			})
		})
	})
}

func TestSubscribers(t *testing.T) {
	Convey("Given a cycle", t, func() {
		var logs bytes.Buffer
		c := newCycle(&staticSource{}, display.WithLogger(testLogger(&logs)))

		Convey("When 17 distinct subscribers register", func() {
			recs := make([]*recorder, 17)
			results := make([]bool, 17)
			for i := range recs {
				recs[i] = &recorder{}
				results[i] = c.Subscribe(recs[i])
			}

			Convey("Then only the first 16 are kept and the refusal is logged", func() {
				So(c.Subscribers(), ShouldEqual, display.DefaultMaxSubscribers)
				for i := range 16 {
					So(results[i], ShouldBeTrue)
				}
				So(results[16], ShouldBeFalse)
				So(logs.String(), ShouldContainSubstring, "display subscriber limit reached")
			})
		})

		Convey("When the same subscriber registers twice", func() {
			r := &recorder{}
			So(c.Subscribe(r), ShouldBeTrue)
			So(c.Subscribe(r), ShouldBeFalse)

			Convey("Then it is registered once", func() {
				So(c.Subscribers(), ShouldEqual, 1)
				So(logs.String(), ShouldContainSubstring, "already registered")
			})
		})

		Convey("When a middle subscriber unsubscribes", func() {
			order := &orderLog{}
			a, b, d := &named{"a", order}, &named{"b", order}, &named{"c", order}
			c.Subscribe(a)
			c.Subscribe(b)
			c.Subscribe(d)
			So(c.Unsubscribe(b), ShouldBeTrue)
			So(c.Unsubscribe(b), ShouldBeFalse)
			c.SessionReady(context.Background())

			Convey("Then the others are notified in subscription order", func() {
				So(order.names, ShouldResemble, []string{"a", "c"})
			})
		})

		Convey("When a nil subscriber is passed", func() {
			So(c.Subscribe(nil), ShouldBeFalse)
			So(c.Unsubscribe(nil), ShouldBeFalse)
		})
	})
}

type orderLog struct{ names []string }

type named struct {
	name string
	log  *orderLog
}

func (n *named) OnDisplay(context.Context, *model.Achievement) {
	n.log.names = append(n.log.names, n.name)
}

// reentrant queries and ticks the cycle from inside its callback.
type reentrant struct {
	c       *display.Cycle
	current []*model.Achievement
	calls   int
}

func (r *reentrant) OnDisplay(ctx context.Context, _ *model.Achievement) {
	r.calls++
	r.current = append(r.current, r.c.Current())
	if r.calls == 1 {
		r.c.ConnectionChanged(ctx)
	}
}

func TestReentrantSubscriber(t *testing.T) {
	Convey("Given a subscriber that calls back into the cycle", t, func() {
		src := &staticSource{list: []model.Achievement{{ID: "a", UnlockedTimestamp: 5}}}
		c := newCycle(src)
		r := &reentrant{c: c}
		c.Subscribe(r)

		Convey("When the session becomes ready", func() {
			c.SessionReady(context.Background())

			Convey("Then the nested publication is delivered after the first", func() {
				So(r.calls, ShouldEqual, 2)
				So(r.current[0].ID, ShouldEqual, "a")
				So(r.current[1].ID, ShouldEqual, "a")
			})
		})
	})
}

func TestCycleConcurrency(t *testing.T) {
	Convey("Given ticks racing session readiness from another goroutine", t, func() {
		ctx := context.Background()
		src := &staticSource{list: []model.Achievement{{ID: "a", UnlockedTimestamp: 5}, {ID: "b"}, {ID: "c"}}}
		c := display.New(src,
			display.WithLastUnlockedDuration(time.Millisecond),
			display.WithLockedDuration(time.Millisecond),
			display.WithRotationDuration(3*time.Millisecond))
		rec := &recorder{}
		c.Subscribe(rec)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for range 500 {
				c.Tick(ctx, time.Millisecond)
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				c.SessionReady(ctx)
				c.GamePlayed(ctx)
			}
			c.SessionReady(ctx)
		}()
		go func() {
			defer wg.Done()
			for range 200 {
				_ = c.Current()
				_ = c.Phase()
			}
		}()
		wg.Wait()

		Convey("Then the cycle ends ready and every publication was delivered", func() {
			So(c.Ready(), ShouldBeTrue)
			So(rec.count(), ShouldBeGreaterThanOrEqualTo, 51)
		})
	})
}

func testLogger(w *bytes.Buffer) logger.Logger {
	l, err := logger.New(logger.WithWriter(w))
	if err != nil {
		panic(err)
	}
	return l
}
