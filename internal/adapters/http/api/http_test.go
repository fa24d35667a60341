package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/randommarket/internal/adapters/http/api"
	"github.com/okian/randommarket/internal/adapters/mq/broadcast"
	"github.com/okian/randommarket/internal/adapters/repository"
	"github.com/okian/randommarket/internal/domain/catalog"
	"github.com/okian/randommarket/internal/domain/engine"
	"github.com/okian/randommarket/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies implements api.Dependencies.
type mockDependencies struct {
	events     []model.Event
	eventsErr  error
	refreshErr error
	refreshes  int

	spin      engine.Spin
	spinErr   error
	cancelled int
	snapshot  engine.Snapshot

	winners    []repository.WinnerEntry
	winnersErr error
	lastLimit  int
	rank       repository.WinnerEntry
	rankErr    error
	recent     []repository.SpinRecord

	hub   *broadcast.Hub
	stats map[string]interface{}
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		hub:      broadcast.NewHub(),
		snapshot: engine.Snapshot{State: "idle", HighlightIndex: -1},
		stats:    map[string]interface{}{"started": true},
	}
}

func (m *mockDependencies) Events(context.Context) ([]model.Event, error) {
	return m.events, m.eventsErr
}

func (m *mockDependencies) RefreshEvents(context.Context) error {
	m.refreshes++
	return m.refreshErr
}

func (m *mockDependencies) StartSpin(context.Context) (engine.Spin, error) {
	return m.spin, m.spinErr
}

func (m *mockDependencies) CancelSpin(context.Context) bool {
	m.cancelled++
	return true
}

func (m *mockDependencies) Current(context.Context) (engine.Snapshot, error) {
	return m.snapshot, nil
}

func (m *mockDependencies) Recent(_ context.Context, n int) ([]repository.SpinRecord, error) {
	m.lastLimit = n
	return m.recent, nil
}

func (m *mockDependencies) TopWinners(_ context.Context, n int) ([]repository.WinnerEntry, error) {
	m.lastLimit = n
	return m.winners, m.winnersErr
}

func (m *mockDependencies) Rank(context.Context, string) (repository.WinnerEntry, error) {
	return m.rank, m.rankErr
}

func (m *mockDependencies) Subscribe(kinds ...model.NotificationKind) (*broadcast.Subscriber, error) {
	return m.hub.Subscribe(kinds...), nil
}

func (m *mockDependencies) Unsubscribe(id string) { m.hub.Unsubscribe(id) }

func (m *mockDependencies) GetStats() map[string]interface{} { return m.stats }

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, 50).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("Health reports ok", func() {
			w := do(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Metrics are exposed", func() {
			w := do(mux, http.MethodGet, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "randommarket_")
		})

		Convey("Stats are returned as JSON", func() {
			w := do(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Wrong methods are not found", func() {
			So(do(mux, http.MethodPost, "/healthz").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/spins").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPut, "/spins/current").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEventsHandler(t *testing.T) {
	Convey("Given a catalog with one event", t, func() {
		deps := newMockDependencies()
		deps.events = []model.Event{{ID: "e1", Title: "One", Markets: []model.Market{{ID: "m1"}}}}
		mux := newMux(deps)

		w := do(mux, http.MethodGet, "/events")
		So(w.Code, ShouldEqual, http.StatusOK)

		var body struct {
			Count  int           `json:"count"`
			Events []model.Event `json:"events"`
		}
		So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
		So(body.Count, ShouldEqual, 1)
		So(body.Events[0].ID, ShouldEqual, "e1")

		Convey("An empty catalog is an empty array", func() {
			deps.events = nil
			w := do(mux, http.MethodGet, "/events")
			So(w.Body.String(), ShouldContainSubstring, `"events":[]`)
		})

		Convey("A refresh reloads and returns the catalog", func() {
			w := do(mux, http.MethodPost, "/events/refresh")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.refreshes, ShouldEqual, 1)
			So(w.Body.String(), ShouldContainSubstring, `"count":1`)
		})

		Convey("A refresh without usable events is unprocessable", func() {
			deps.refreshErr = catalog.ErrNoEvents
			w := do(mux, http.MethodPost, "/events/refresh")
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeError(w)["code"], ShouldEqual, "no_events")
		})

		Convey("A failing source is a bad gateway", func() {
			deps.refreshErr = errors.New("source down")
			w := do(mux, http.MethodPost, "/events/refresh")
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(decodeError(w)["code"], ShouldEqual, "refresh_failed")
		})

		Convey("Refresh only accepts POST", func() {
			So(do(mux, http.MethodGet, "/events/refresh").Code, ShouldEqual, http.StatusNotFound)
			So(deps.refreshes, ShouldEqual, 0)
		})
	})
}

func TestSpinsHandler(t *testing.T) {
	Convey("Given a spins endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("A started spin is accepted", func() {
			deps.spin = engine.Spin{ID: "spin-1", MinSteps: 10, TotalTicks: 14, WorkingList: []model.Event{{ID: "a"}}}
			w := do(mux, http.MethodPost, "/spins")
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Header().Get("Location"), ShouldEqual, "/spins/current")

			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["spin_id"], ShouldEqual, "spin-1")
			So(body["min_steps"], ShouldEqual, float64(10))
			So(body["total_ticks"], ShouldEqual, float64(14))
		})

		Convey("A spin in flight is a conflict", func() {
			deps.spinErr = engine.ErrAlreadySpinning
			w := do(mux, http.MethodPost, "/spins")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decodeError(w)["code"], ShouldEqual, "already_spinning")
		})

		Convey("An empty catalog is unprocessable", func() {
			deps.spinErr = catalog.ErrNoEvents
			w := do(mux, http.MethodPost, "/spins")
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeError(w)["code"], ShouldEqual, "no_events")
		})

		Convey("Other failures are internal errors", func() {
			deps.spinErr = errors.New("boom")
			w := do(mux, http.MethodPost, "/spins")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(w)["message"], ShouldContainSubstring, "boom")
		})

		Convey("The current snapshot is returned", func() {
			deps.snapshot = engine.Snapshot{State: "spinning", SpinID: "spin-1", HighlightIndex: 2, Step: 7}
			w := do(mux, http.MethodGet, "/spins/current")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"highlight_index":2`)
		})

		Convey("Deleting the current spin cancels it", func() {
			w := do(mux, http.MethodDelete, "/spins/current")
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(deps.cancelled, ShouldEqual, 1)
		})

		Convey("Recent spins honour the limit", func() {
			deps.recent = []repository.SpinRecord{{SpinID: "s1", EventID: "e1"}}
			w := do(mux, http.MethodGet, "/spins/recent?limit=5")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 5)
			So(w.Body.String(), ShouldContainSubstring, `"spin_id":"s1"`)

			So(do(mux, http.MethodGet, "/spins/recent?limit=0").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/spins/recent?limit=x").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestWinnersHandler(t *testing.T) {
	Convey("Given a winners board", t, func() {
		deps := newMockDependencies()
		deps.winners = []repository.WinnerEntry{{Rank: 1, EventID: "e1", Wins: 3}}
		mux := newMux(deps)

		Convey("A missing limit uses the default", func() {
			w := do(mux, http.MethodGet, "/winners")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 10)
			So(w.Body.String(), ShouldContainSubstring, `"event_id":"e1"`)
		})

		Convey("A limit over the maximum is refused", func() {
			w := do(mux, http.MethodGet, "/winners?limit=51")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("An empty board is an empty array", func() {
			deps.winners = nil
			w := do(mux, http.MethodGet, "/winners?limit=3")
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("Store failures are internal errors", func() {
			deps.winnersErr = errors.New("store down")
			So(do(mux, http.MethodGet, "/winners").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("One event's row is looked up by id", func() {
			deps.rank = repository.WinnerEntry{Rank: 2, EventID: "e2", Wins: 1}
			w := do(mux, http.MethodGet, "/winners/e2")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"rank":2`)

			deps.rankErr = repository.ErrNotFound
			So(do(mux, http.MethodGet, "/winners/zzz").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/winners/a/b").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStreamHandler(t *testing.T) {
	Convey("Given a stream client", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		ctx, cancel := context.WithCancel(context.Background())
		req := httptest.NewRequest(http.MethodGet, "/spins/stream?kinds=tick,completed", http.NoBody).WithContext(ctx)
		w := httptest.NewRecorder()
		done := make(chan struct{})
		go func() {
			mux.ServeHTTP(w, req)
			close(done)
		}()

		deadline := time.Now().Add(2 * time.Second)
		for deps.hub.Count() == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		So(deps.hub.Count(), ShouldEqual, 1)

		deps.hub.Publish(model.Notification{Kind: model.KindStarted, SpinID: "s1"})
		deps.hub.Publish(model.Notification{Kind: model.KindTick, SpinID: "s1", Tick: &model.Tick{Step: 0, Index: 0}})
		deps.hub.Publish(model.Notification{Kind: model.KindCompleted, SpinID: "s1"})
		time.Sleep(50 * time.Millisecond)
		cancel()
		<-done

		body := w.Body.String()
		So(w.Header().Get("Content-Type"), ShouldEqual, "text/event-stream")
		So(body, ShouldStartWith, "id: ")
		So(body, ShouldContainSubstring, "event: snapshot\n")
		So(body, ShouldContainSubstring, "id: s1-1\nevent: tick\n")
		So(body, ShouldContainSubstring, "id: s1-2\nevent: completed\n")
		So(body, ShouldNotContainSubstring, "event: started")
		So(deps.hub.Count(), ShouldEqual, 0)
	})

	Convey("A closed hub ends the stream", t, func() {
		deps := newMockDependencies()
		deps.hub.Close()
		w := do(newMux(deps), http.MethodGet, "/spins/stream")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Body.String(), ShouldContainSubstring, "event: snapshot")
	})
}
