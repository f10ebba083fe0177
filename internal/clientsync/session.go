package clientsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

type Config struct {
	UserID     uuid.UUID
	Subscriber Subscriber
	Fetcher    StatusFetcher
	Navigator  Navigator
	Cache      QueryCache
	// StaleAfter refetches on a timer when no signal arrives. Zero disables the timer.
	StaleAfter time.Duration
	Log        *logger.Logger
	// OnRefresh observes every refresh whose result was applied or failed.
	OnRefresh func(st *Status, err error)
}

// Session is one mounted client view.
type Session struct {
	cfg Config
	log *logger.Logger

	state     atomic.Int32
	redirects atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	sub    Subscription
	once   sync.Once
	done   chan struct{}
}

// Mount subscribes to the user's channel and starts listening. The first refresh runs
// immediately; a failed subscribe leaves nothing behind.
func Mount(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.UserID == uuid.Nil {
		return nil, errors.New("clientsync: user id required")
	}
	if cfg.Subscriber == nil || cfg.Fetcher == nil || cfg.Navigator == nil {
		return nil, errors.New("clientsync: subscriber, fetcher and navigator are required")
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache()
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}
	s := &Session{
		cfg:  cfg,
		log:  cfg.Log.With("component", "clientsync.Session", "user_id", cfg.UserID),
		done: make(chan struct{}),
	}
	s.state.Store(int32(StateIdle))

	sctx, cancel := context.WithCancel(ctx)
	sub, err := cfg.Subscriber.Subscribe(sctx, cfg.UserID)
	if err != nil {
		cancel()
		s.state.Store(int32(StateClosed))
		close(s.done)
		return nil, err
	}
	s.ctx, s.cancel, s.sub = sctx, cancel, sub
	s.state.Store(int32(StateListening))
	go s.run()
	return s, nil
}

func (s *Session) State() State { return State(s.state.Load()) }

// Redirects counts navigations issued by this session.
func (s *Session) Redirects() int64 { return s.redirects.Load() }

// Done is closed once the session has torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Unmount cancels any in-flight refetch, releases the subscription and waits for teardown.
func (s *Session) Unmount() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	<-s.done
}

func (s *Session) run() {
	defer close(s.done)
	defer func() {
		if err := s.sub.Close(); err != nil {
			s.log.Warn("close subscription failed", "error", err)
		}
		s.cancel()
		s.state.Store(int32(StateClosed))
	}()

	var stale <-chan time.Time
	if s.cfg.StaleAfter > 0 {
		t := time.NewTicker(s.cfg.StaleAfter)
		defer t.Stop()
		stale = t.C
	}

	s.refresh("mount")
	signals := s.sub.Signals()
	for {
		select {
		case <-s.ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				s.log.Info("subscription ended")
				return
			}
			s.refresh("signal")
		case <-stale:
			s.refresh("stale")
		}
	}
}

func (s *Session) refresh(reason string) {
	s.state.Store(int32(StateRefreshing))
	s.cfg.Cache.Invalidate(StatusKey, ImprintsKey)

	st, err := s.cfg.Fetcher.FetchStatus(s.ctx, s.cfg.UserID)
	if s.ctx.Err() != nil {
		s.log.Debug("discarding refetch result after unmount", "reason", reason)
		return
	}
	if err != nil {
		s.log.Warn("refetch failed", "reason", reason, "error", err)
		s.state.Store(int32(StateListening))
		s.observe(nil, err)
		return
	}
	if st == nil {
		st = DefaultStatus()
	}
	s.cfg.Cache.Put(StatusKey, st)
	s.cfg.Cache.Put(ImprintsKey, st.Imprints)
	if s.redirect(st.CurrentDayTarget) {
		s.log.Debug("redirected to current day", "reason", reason, "day", st.CurrentDayTarget)
	}
	s.state.Store(int32(StateListening))
	s.observe(st, nil)
}

// redirect moves the view to target unless it is already there.
func (s *Session) redirect(target int) bool {
	if target < 1 || s.cfg.Navigator.DisplayedDay() == target {
		return false
	}
	s.cfg.Navigator.Redirect(target)
	s.redirects.Add(1)
	return true
}

func (s *Session) observe(st *Status, err error) {
	if s.cfg.OnRefresh != nil {
		s.cfg.OnRefresh(st, err)
	}
}
