package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/trophycase/internal/adapters/http/api"
	"github.com/okian/trophycase/internal/adapters/mq/queue"
	"github.com/okian/trophycase/internal/adapters/repository"
	service "github.com/okian/trophycase/internal/app"
	"github.com/okian/trophycase/internal/domain/display"
	"github.com/okian/trophycase/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps records submitted messages and serves a real store and cycle.
type mockDeps struct {
	mu         sync.Mutex
	messages   []model.Message
	seen       map[string]bool
	enqueueErr error
	connected  bool
	toggles    int

	store *repository.MemoryStore
	cycle *display.Cycle
}

func newMockDeps() *mockDeps {
	store := repository.NewMemoryStore(repository.WithBaseGamerscore(100))
	return &mockDeps{
		seen:  map[string]bool{},
		store: store,
		cycle: display.New(store),
	}
}

func (m *mockDeps) Enqueue(_ context.Context, msg model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	if m.seen[msg.ID] {
		return service.ErrDuplicate
	}
	m.seen[msg.ID] = true
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockDeps) SetConnected(ctx context.Context, connected bool) {
	m.connected = connected
	m.toggles++
	m.cycle.ConnectionChanged(ctx)
}

func (m *mockDeps) Connected() bool             { return m.connected }
func (m *mockDeps) Catalogue() repository.Store { return m.store }
func (m *mockDeps) Display() *display.Cycle     { return m.cycle }

func (m *mockDeps) GetStats(context.Context) map[string]any {
	return map[string]any{"started": true, "queueLength": 3}
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(mux)
	return mux
}

func do(mux http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func seedCatalogue(ctx context.Context, store *repository.MemoryStore) {
	store.SetGame(ctx, &model.Game{ID: "42", Title: "Halo"})
	store.MergeAchievements(ctx, []model.Achievement{
		{ID: "1", ServiceConfigID: "s", Name: "Old", UnlockedTimestamp: 10, Rewards: []model.Reward{{Value: "5"}}},
		{ID: "2", ServiceConfigID: "s", Name: "Locked"},
		{ID: "3", ServiceConfigID: "s", Name: "New", UnlockedTimestamp: 20, Rewards: []model.Reward{{Value: "15"}}},
	})
}

func TestMessagesEndpoint(t *testing.T) {
	Convey("Given the messages endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)
		body := `{"presenceDetails":[{"isGame":true,"titleId":"1"}]}`

		Convey("When a message arrives with an id header", func() {
			rec := do(mux, http.MethodPost, "/messages", body, api.MessageIDHeader, "abc")

			Convey("Then it is accepted unchanged", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(decode(rec)["status"], ShouldEqual, "accepted")
				So(decode(rec)["messageId"], ShouldEqual, "abc")
				So(len(deps.messages), ShouldEqual, 1)
				So(string(deps.messages[0].Payload), ShouldEqual, body)
				So(deps.messages[0].ReceivedAt.IsZero(), ShouldBeFalse)
			})

			Convey("And it arrives again", func() {
				again := do(mux, http.MethodPost, "/messages", body, api.MessageIDHeader, "abc")

				Convey("Then it is acknowledged as a duplicate", func() {
					So(again.Code, ShouldEqual, http.StatusOK)
					So(decode(again)["duplicate"], ShouldEqual, true)
					So(len(deps.messages), ShouldEqual, 1)
				})
			})
		})

		Convey("When the body names its own id", func() {
			rec := do(mux, http.MethodPost, "/messages", `{"messageId":"from-body","serviceConfigId":"s"}`)

			Convey("Then that id is used", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.messages[0].ID, ShouldEqual, "from-body")
			})
		})

		Convey("When no id is available", func() {
			do(mux, http.MethodPost, "/messages", body)
			do(mux, http.MethodPost, "/messages", body)

			Convey("Then each delivery gets a fresh id", func() {
				So(len(deps.messages), ShouldEqual, 2)
				So(deps.messages[0].ID, ShouldNotEqual, deps.messages[1].ID)
				So(len(deps.messages[0].ID), ShouldEqual, 36)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueErr = fmt.Errorf("enqueueing: %w", queue.ErrQueueFull)
			rec := do(mux, http.MethodPost, "/messages", body)

			Convey("Then backpressure is reported", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode(rec)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When the service is not running", func() {
			deps.enqueueErr = service.ErrNotStarted
			rec := do(mux, http.MethodPost, "/messages", body)

			Convey("Then the endpoint is unavailable", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the body is empty or the method is wrong", func() {
			empty := do(mux, http.MethodPost, "/messages", "  ")
			get := do(mux, http.MethodGet, "/messages", "")

			Convey("Then the request is rejected", func() {
				So(empty.Code, ShouldEqual, http.StatusBadRequest)
				So(get.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestConnectionEndpoint(t *testing.T) {
	Convey("Given the connection endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When the connection state is posted", func() {
			rec := do(mux, http.MethodPost, "/connection", `{"connected":true}`)

			Convey("Then the state is recorded", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.connected, ShouldBeTrue)
				So(deps.toggles, ShouldEqual, 1)
				So(decode(do(mux, http.MethodGet, "/connection", ""))["connected"], ShouldEqual, true)
			})
		})

		Convey("When the body is invalid", func() {
			bad := do(mux, http.MethodPost, "/connection", `{"connected":`)
			missing := do(mux, http.MethodPost, "/connection", `{}`)

			Convey("Then nothing changes", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(missing.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.toggles, ShouldEqual, 0)
			})
		})
	})
}

func TestCatalogueEndpoints(t *testing.T) {
	Convey("Given the catalogue endpoints", t, func() {
		ctx := context.Background()
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When no game is played", func() {
			game := do(mux, http.MethodGet, "/game", "")
			list := do(mux, http.MethodGet, "/achievements", "")
			score := do(mux, http.MethodGet, "/gamerscore", "")

			Convey("Then the game is missing and the lists are empty", func() {
				So(game.Code, ShouldEqual, http.StatusNotFound)
				So(list.Code, ShouldEqual, http.StatusOK)
				So(decode(list)["total"], ShouldEqual, 0.0)
				So(decode(list)["achievements"], ShouldResemble, []any{})
				So(decode(score)["total"], ShouldEqual, 100.0)
			})
		})

		Convey("When a catalogue is loaded", func() {
			seedCatalogue(ctx, deps.store)

			Convey("Then the game is served", func() {
				rec := do(mux, http.MethodGet, "/game", "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(decode(rec)["title"], ShouldEqual, "Halo")
			})

			Convey("Then achievements are listed newest unlock first", func() {
				rec := do(mux, http.MethodGet, "/achievements", "")
				var resp struct {
					Total        int                 `json:"total"`
					Locked       int                 `json:"locked"`
					Achievements []model.Achievement `json:"achievements"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Total, ShouldEqual, 3)
				So(resp.Locked, ShouldEqual, 1)
				So(resp.Achievements[0].ID, ShouldEqual, "3")
				So(resp.Achievements[1].ID, ShouldEqual, "1")
				So(resp.Achievements[2].ID, ShouldEqual, "2")
			})

			Convey("Then the gamerscore adds the rewards", func() {
				rec := do(mux, http.MethodGet, "/gamerscore", "")
				So(decode(rec)["total"], ShouldEqual, 120.0)
				So(decode(rec)["baseValue"], ShouldEqual, 100.0)
			})
		})
	})
}

func TestDisplayEndpoint(t *testing.T) {
	Convey("Given the display endpoint", t, func() {
		ctx := context.Background()
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When the session is not ready", func() {
			rec := do(mux, http.MethodGet, "/display", "")

			Convey("Then nothing is shown", func() {
				body := decode(rec)
				So(body["ready"], ShouldEqual, false)
				So(body["phase"], ShouldEqual, "last_unlocked")
				So(body["current"], ShouldBeNil)
			})
		})

		Convey("When the session becomes ready", func() {
			seedCatalogue(ctx, deps.store)
			deps.cycle.SessionReady(ctx)
			rec := do(mux, http.MethodGet, "/display", "")

			Convey("Then the latest unlock is shown", func() {
				body := decode(rec)
				So(body["ready"], ShouldEqual, true)
				So(body["current"].(map[string]any)["id"], ShouldEqual, "3")
				So(body["lastUnlocked"].(map[string]any)["name"], ShouldEqual, "New")
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("Then health, stats and metrics answer", func() {
			health := do(mux, http.MethodGet, "/healthz", "")
			So(health.Code, ShouldEqual, http.StatusOK)
			So(decode(health)["status"], ShouldEqual, "ok")

			stats := decode(do(mux, http.MethodGet, "/stats", ""))
			So(stats["queueLength"], ShouldEqual, 3.0)
			So(stats["gamerscore"], ShouldEqual, 100.0)
			So(stats["generatedAt"], ShouldNotBeEmpty)
			So(stats, ShouldNotContainKey, "currentAchievementId")

			metrics := do(mux, http.MethodGet, "/metrics", "")
			So(metrics.Code, ShouldEqual, http.StatusOK)
			So(metrics.Body.String(), ShouldContainSubstring, "trophycase_feed_http_requests_total")
		})

		Convey("Then stats name the achievement on screen", func() {
			ctx := context.Background()
			deps.store.SetGame(ctx, &model.Game{ID: "42"})
			deps.store.MergeAchievements(ctx, []model.Achievement{{
				ID: "9", ServiceConfigID: "s", UnlockedTimestamp: 5, Rewards: []model.Reward{{Value: "15"}},
			}})
			deps.cycle.SessionReady(ctx)

			stats := decode(do(mux, http.MethodGet, "/stats", ""))
			So(stats["currentAchievementId"], ShouldEqual, "9")
			So(stats["gamerscore"], ShouldEqual, 115.0)
		})

		Convey("Then failures are counted by kind", func() {
			deps.enqueueErr = queue.ErrQueueFull
			So(do(mux, http.MethodPost, "/messages", `{"serviceConfigId":"s"}`).Code, ShouldEqual, http.StatusTooManyRequests)
			So(do(mux, http.MethodPost, "/messages", "").Code, ShouldEqual, http.StatusBadRequest)

			body := do(mux, http.MethodGet, "/metrics", "").Body.String()
			So(body, ShouldContainSubstring, `component="http_messages",error_type="backpressure"`)
			So(body, ShouldContainSubstring, `component="http_messages",error_type="bad_request"`)
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, http.MethodPost, "/healthz", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodDelete, "/display", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPut, "/connection", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
