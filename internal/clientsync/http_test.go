package clientsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/realtime"
)

func waitSignal(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case _, ok := <-sub.Signals():
		if !ok {
			t.Fatalf("subscription closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for signal")
	}
}

func TestReadEventsParsesFrames(t *testing.T) {
	raw := ": connected\n\nevent: ready\ndata: {\"a\":1}\n\n: ping\n\ndata: line1\ndata: line2\n\nevent: ready\ndata: {}"
	var got []string
	err := readEvents(strings.NewReader(raw), func(event, data string) error {
		got = append(got, event+"|"+data)
		return nil
	})
	if err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	want := []string{`ready|{"a":1}`, "message|line1\nline2", "ready|{}"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events: want=%q got=%q", want, got)
	}
}

func TestFetchStatusDecodesAndDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer missing":
			http.NotFound(w, r)
		case "Bearer broken":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"db down","code":"storage_failure","retryable":true}}`))
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"quest_id":"first_flame","current_day_target":3,"is_quest_complete":false,"imprints":[]}`))
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	st, err := (&HTTPClient{BaseURL: srv.URL, Token: "ok"}).FetchStatus(ctx, uuid.New())
	if err != nil || st.CurrentDayTarget != 3 || st.QuestID != "first_flame" {
		t.Fatalf("status: err=%v st=%+v", err, st)
	}
	st, err = (&HTTPClient{BaseURL: srv.URL, Token: "missing"}).FetchStatus(ctx, uuid.New())
	if err != nil || st.CurrentDayTarget != 1 || st.IsQuestComplete {
		t.Fatalf("missing projection: want day 1 got err=%v st=%+v", err, st)
	}
	_, err = (&HTTPClient{BaseURL: srv.URL, Token: "broken"}).FetchStatus(ctx, uuid.New())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 503 || apiErr.Code != "storage_failure" || !apiErr.Retryable {
		t.Fatalf("api error: got %#v", err)
	}
}

func TestHTTPSubscriberReconnects(t *testing.T) {
	var conns atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conns.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, ": connected\n\n")
		_ = realtime.WriteEvent(w, realtime.SSEMessage{Event: realtime.SSEEventReady})
		w.(http.Flusher).Flush()
		// Drop the connection right away.
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL, Token: "t", ReconnectBase: 5 * time.Millisecond, ReconnectMax: 20 * time.Millisecond}
	sub, err := c.Subscribe(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitSignal(t, sub)
	waitSignal(t, sub)
	if conns.Load() < 2 {
		t.Fatalf("connections: want>=2 got=%d", conns.Load())
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-sub.Signals(); ok {
		// A buffered signal may remain; the channel must still close.
		if _, ok := <-sub.Signals(); ok {
			t.Fatalf("signals still open after close")
		}
	}
}

func TestHTTPSubscriberStopsOnUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"no token","code":"unauthorized"}}`))
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL, ReconnectBase: time.Millisecond}
	sub, err := c.Subscribe(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	select {
	case _, ok := <-sub.Signals():
		if ok {
			t.Fatalf("unexpected signal")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription did not end")
	}
}
