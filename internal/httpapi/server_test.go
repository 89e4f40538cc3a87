package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mhtoin/discobot/internal/playback"
	"github.com/rs/zerolog"
)

type fakeSessions map[string]playback.Snapshot

func (f fakeSessions) Sessions() []string {
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	return ids
}

func (f fakeSessions) Inspect(id string) (playback.Snapshot, bool) {
	snap, ok := f[id]
	return snap, ok
}

func newTestServer() http.Handler {
	sessions := fakeSessions{
		"g1": {
			SessionID: "g1",
			State:     playback.StatePlaying,
			Connected: true,
			Current:   &playback.Track{Title: "A", Source: "https://a", Duration: 90 * time.Second},
			Queue:     []playback.Track{{Title: "B", Source: "https://b"}},
		},
	}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("discobot_active_sessions 1\n"))
	})
	return New(sessions, metrics, zerolog.Nop()).Router()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["sessions"] != float64(1) {
		t.Fatalf("body = %v", body)
	}
}

func TestGetSession(t *testing.T) {
	rec := get(t, newTestServer(), "/v1/sessions/g1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "g1" || got.State != "playing" || !got.Connected {
		t.Fatalf("session = %+v", got)
	}
	if got.Current == nil || got.Current.Title != "A" || got.Current.DurationSeconds != 90 {
		t.Fatalf("current = %+v", got.Current)
	}
	if len(got.Queue) != 1 || got.Queue[0].Title != "B" {
		t.Fatalf("queue = %+v", got.Queue)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	rec := get(t, newTestServer(), "/v1/sessions/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var got errorResponse
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Code != "session_not_found" {
		t.Fatalf("error = %+v", got)
	}
}

func TestListSessions(t *testing.T) {
	rec := get(t, newTestServer(), "/v1/sessions")
	var body struct {
		Sessions []sessionResponse `json:"sessions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sessions) != 1 || body.Sessions[0].ID != "g1" {
		t.Fatalf("sessions = %+v", body.Sessions)
	}
}

func TestMetricsMounted(t *testing.T) {
	rec := get(t, newTestServer(), "/metrics")
	if rec.Code != http.StatusOK || rec.Body.String() != "discobot_active_sessions 1\n" {
		t.Fatalf("metrics = %d %q", rec.Code, rec.Body.String())
	}
}
