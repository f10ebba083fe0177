package clientsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/realtime"
	"github.com/yungbote/firstflame-backend/internal/services"
)

type targetFetcher struct {
	target atomic.Int64
	calls  atomic.Int64

	mu  sync.Mutex
	err error
}

func (f *targetFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newTargetFetcher(day int) *targetFetcher {
	f := &targetFetcher{}
	f.target.Store(int64(day))
	return f
}

func (f *targetFetcher) FetchStatus(context.Context, uuid.UUID) (*Status, error) {
	f.calls.Add(1)
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &Status{CurrentDayTarget: int(f.target.Load())}, nil
}

type refreshes chan *Status

func (r refreshes) hook(st *Status, _ error) { r <- st }

func (r refreshes) wait(t *testing.T) *Status {
	t.Helper()
	select {
	case st := <-r:
		return st
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for refresh")
		return nil
	}
}

func mount(t *testing.T, hub *realtime.SSEHub, userID uuid.UUID, f StatusFetcher, nav Navigator, r refreshes) *Session {
	t.Helper()
	s, err := Mount(context.Background(), Config{
		UserID:     userID,
		Subscriber: HubSubscriber{Hub: hub},
		Fetcher:    f,
		Navigator:  nav,
		OnRefresh:  r.hook,
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	t.Cleanup(s.Unmount)
	return s
}

func ready(hub *realtime.SSEHub, userID uuid.UUID) int {
	return hub.Broadcast(realtime.SSEMessage{Channel: realtime.UserChannel(userID), Event: realtime.SSEEventReady})
}

func TestSessionRedirectsOncePerChange(t *testing.T) {
	hub := realtime.NewSSEHub(nil)
	userID := uuid.New()
	f := newTargetFetcher(2)
	nav := NewMemoryNavigator(2)
	r := make(refreshes, 8)
	s := mount(t, hub, userID, f, nav, r)

	if st := r.wait(t); st.CurrentDayTarget != 2 {
		t.Fatalf("mount target: want=2 got=%d", st.CurrentDayTarget)
	}
	if s.Redirects() != 0 {
		t.Fatalf("user on their current day must not redirect: got=%d", s.Redirects())
	}

	f.target.Store(3)
	ready(hub, userID)
	r.wait(t)
	ready(hub, userID)
	r.wait(t)

	if got := nav.Redirects(); len(got) != 1 || got[0] != 3 {
		t.Fatalf("redirects: want=[3] got=%v", got)
	}
	if s.Redirects() != 1 {
		t.Fatalf("session redirects: want=1 got=%d", s.Redirects())
	}
	if s.State() != StateListening {
		t.Fatalf("state: want=listening got=%s", s.State())
	}
}

func TestSessionRedirectsStaleURLOnMount(t *testing.T) {
	hub := realtime.NewSSEHub(nil)
	nav := NewMemoryNavigator(4)
	r := make(refreshes, 4)
	mount(t, hub, uuid.New(), newTargetFetcher(2), nav, r)
	r.wait(t)
	if nav.Path() != "/ritual/2" {
		t.Fatalf("path: want=/ritual/2 got=%s", nav.Path())
	}
}

func TestTwoTabsRedirectFromDayOneToDayTwo(t *testing.T) {
	hub := realtime.NewSSEHub(nil)
	userID := uuid.New()
	f := newTargetFetcher(1)
	notifier := services.NewReadyNotifier(&services.HubEmitter{Hub: hub}, nil, nil, time.Second)

	tabs := []*MemoryNavigator{NewMemoryNavigator(1), NewMemoryNavigator(1)}
	waits := []refreshes{make(refreshes, 4), make(refreshes, 4)}
	for i := range tabs {
		mount(t, hub, userID, f, tabs[i], waits[i])
		waits[i].wait(t)
	}
	for i, nav := range tabs {
		if nav.Path() != "/ritual/1" {
			t.Fatalf("tab %d before: want=/ritual/1 got=%s", i, nav.Path())
		}
	}

	// The advancement commits, then the notifier fires.
	f.target.Store(2)
	notifier.NotifyReady(context.Background(), userID)
	notifier.Wait()

	for i, nav := range tabs {
		waits[i].wait(t)
		if nav.Path() != "/ritual/2" {
			t.Fatalf("tab %d after: want=/ritual/2 got=%s", i, nav.Path())
		}
		if got := nav.Redirects(); len(got) != 1 {
			t.Fatalf("tab %d redirects: want=1 got=%v", i, got)
		}
	}
}

func TestSessionInvalidatesBeforeRefetch(t *testing.T) {
	hub := realtime.NewSSEHub(nil)
	userID := uuid.New()
	cache := NewMemoryCache()
	cache.Put(StatusKey, &Status{CurrentDayTarget: 5})
	r := make(refreshes, 4)
	s, err := Mount(context.Background(), Config{
		UserID:     userID,
		Subscriber: HubSubscriber{Hub: hub},
		Fetcher:    newTargetFetcher(1),
		Navigator:  NewMemoryNavigator(1),
		Cache:      cache,
		OnRefresh:  r.hook,
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer s.Unmount()
	r.wait(t)

	v, ok := cache.Get(StatusKey)
	if !ok || v.(*Status).CurrentDayTarget != 1 {
		t.Fatalf("cached status: want target 1 got=%v", v)
	}
	if cache.Invalidations() != 1 {
		t.Fatalf("invalidations: want=1 got=%d", cache.Invalidations())
	}
}

func TestSessionStaleTimerRefetches(t *testing.T) {
	hub := realtime.NewSSEHub(nil)
	f := newTargetFetcher(1)
	r := make(refreshes, 16)
	s, err := Mount(context.Background(), Config{
		UserID:     uuid.New(),
		Subscriber: HubSubscriber{Hub: hub},
		Fetcher:    f,
		Navigator:  NewMemoryNavigator(1),
		StaleAfter: 10 * time.Millisecond,
		OnRefresh:  r.hook,
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer s.Unmount()
	for i := 0; i < 3; i++ {
		r.wait(t)
	}
	if f.calls.Load() < 3 {
		t.Fatalf("calls: want>=3 got=%d", f.calls.Load())
	}
}

func TestSessionFetchErrorKeepsListening(t *testing.T) {
	hub := realtime.NewSSEHub(nil)
	userID := uuid.New()
	f := newTargetFetcher(1)
	f.fail(errors.New("network down"))
	nav := NewMemoryNavigator(1)
	errs := make(chan error, 4)
	s, err := Mount(context.Background(), Config{
		UserID:     userID,
		Subscriber: HubSubscriber{Hub: hub},
		Fetcher:    f,
		Navigator:  nav,
		OnRefresh:  func(_ *Status, err error) { errs <- err },
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer s.Unmount()

	if err := <-errs; err == nil {
		t.Fatalf("expected fetch error")
	}
	f.fail(nil)
	f.target.Store(2)
	ready(hub, userID)
	if err := <-errs; err != nil {
		t.Fatalf("refetch after recovery: %v", err)
	}
	if nav.DisplayedDay() != 2 {
		t.Fatalf("displayed: want=2 got=%d", nav.DisplayedDay())
	}
}

type blockingFetcher struct {
	started chan struct{}
	once    sync.Once
}

func (f *blockingFetcher) FetchStatus(ctx context.Context, _ uuid.UUID) (*Status, error) {
	f.once.Do(func() { close(f.started) })
	<-ctx.Done()
	// The response lands after the view is gone.
	return &Status{CurrentDayTarget: 3}, nil
}

func TestUnmountMidRefetchDiscardsResult(t *testing.T) {
	hub := realtime.NewSSEHub(nil)
	userID := uuid.New()
	f := &blockingFetcher{started: make(chan struct{})}
	nav := NewMemoryNavigator(1)
	cache := NewMemoryCache()
	var observed atomic.Int64
	s, err := Mount(context.Background(), Config{
		UserID:     userID,
		Subscriber: HubSubscriber{Hub: hub},
		Fetcher:    f,
		Navigator:  nav,
		Cache:      cache,
		OnRefresh:  func(*Status, error) { observed.Add(1) },
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	<-f.started
	if s.State() != StateRefreshing {
		t.Fatalf("state: want=refreshing got=%s", s.State())
	}
	s.Unmount()

	if len(nav.Redirects()) != 0 {
		t.Fatalf("redirects after unmount: %v", nav.Redirects())
	}
	if _, ok := cache.Get(StatusKey); ok {
		t.Fatalf("cache updated after unmount")
	}
	if observed.Load() != 0 {
		t.Fatalf("refresh observed after unmount")
	}
	if s.State() != StateClosed {
		t.Fatalf("state: want=closed got=%s", s.State())
	}
	if n := hub.Subscribers(realtime.UserChannel(userID)); n != 0 {
		t.Fatalf("subscribers: want=0 got=%d", n)
	}
}

func TestUnmountReleasesSubscription(t *testing.T) {
	hub := realtime.NewSSEHub(nil)
	userID := uuid.New()
	r := make(refreshes, 4)
	s := mount(t, hub, userID, newTargetFetcher(1), NewMemoryNavigator(1), r)
	r.wait(t)
	if n := hub.Subscribers(realtime.UserChannel(userID)); n != 1 {
		t.Fatalf("subscribers: want=1 got=%d", n)
	}
	s.Unmount()
	s.Unmount()
	if n := hub.Subscribers(realtime.UserChannel(userID)); n != 0 {
		t.Fatalf("subscribers after unmount: want=0 got=%d", n)
	}
	if ready(hub, userID) != 0 {
		t.Fatalf("ready delivered to an unmounted session")
	}
}

func TestSessionEndsWhenHubCloses(t *testing.T) {
	hub := realtime.NewSSEHub(nil)
	r := make(refreshes, 4)
	s := mount(t, hub, uuid.New(), newTargetFetcher(1), NewMemoryNavigator(1), r)
	r.wait(t)
	hub.CloseAll()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not tear down")
	}
}

type failingSubscriber struct{}

func (failingSubscriber) Subscribe(context.Context, uuid.UUID) (Subscription, error) {
	return nil, errors.New("channel unavailable")
}

func TestMountFailsWhenSubscribeFails(t *testing.T) {
	f := newTargetFetcher(1)
	s, err := Mount(context.Background(), Config{
		UserID:     uuid.New(),
		Subscriber: failingSubscriber{},
		Fetcher:    f,
		Navigator:  NewMemoryNavigator(1),
	})
	if err == nil || s != nil {
		t.Fatalf("expected mount failure")
	}
	if f.calls.Load() != 0 {
		t.Fatalf("fetch without subscription: calls=%d", f.calls.Load())
	}
}
