package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"sales-dashboard/internal/dataset"
)

// Session holds the dataset a visitor is currently working with. The dataset value is
// immutable; replacing it is the only mutation.
type Session struct {
	ID string

	mu       sync.RWMutex
	dataset  *dataset.Dataset
	lastSeen time.Time
}

func (s *Session) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// SetDataset replaces the current dataset. A nil dataset returns the session to the
// idle state.
func (s *Session) SetDataset(ds *dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = ds
}

// SwapDataset replaces the dataset with next only while the session still holds old.
// It reports whether the swap happened.
func (s *Session) SwapDataset(old, next *dataset.Dataset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset != old {
		return false
	}
	s.dataset = next
	return true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen)
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Get returns a live session and marks it as seen.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := st.now()
	if st.ttl > 0 && s.idleSince(now) > st.ttl {
		st.Delete(id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

func (st *Store) Create() *Session {
	s := &Session{ID: uuid.NewString(), lastSeen: st.now()}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.logger.Debug("session created", "session_id", s.ID)
	return s
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle longer than the TTL and returns how many were removed.
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}

	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Start runs the expiry sweeper until ctx is cancelled or Close is called.
func (st *Store) Start(ctx context.Context) {
	interval := st.ttl / 2
	if interval <= 0 || !st.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer close(st.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-st.stop:
				return
			case <-ticker.C:
				if n := st.Sweep(); n > 0 {
					st.logger.Info("expired idle sessions", "removed", n, "active", st.Len())
				}
			}
		}
	}()
}

// Close stops the sweeper. It has the shape of a shutdown hook.
func (st *Store) Close(ctx context.Context) error {
	st.stopOnce.Do(func() { close(st.stop) })
	if !st.started.Load() {
		return nil
	}

	select {
	case <-st.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
