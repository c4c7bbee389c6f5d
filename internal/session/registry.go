package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammadalshikh/orbit/internal/log"
)

var (
	// ErrNotFound is returned for unknown or evicted session ids.
	ErrNotFound = errors.New("session: not found")
	// ErrFull is returned by Create when every live session is in edit mode.
	ErrFull = errors.New("session: no room, all sessions are editing")
)

// Registry owns every live Session, keyed by an opaque id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	base Options

	ttl      time.Duration
	editTTL  time.Duration
	capacity int
	logger   log.Logger
	now      func() time.Time
	newID    func() string

	// OnCount is called with the number of live sessions after every change.
	OnCount func(n int)

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

type RegistryOption func(*Registry)

// WithTTL sets how long an idle session lives before the sweeper closes it.
func WithTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.ttl = d }
}

// WithEditTTL sets the idle lifetime of sessions in edit mode. It is never
// shorter than the plain TTL.
func WithEditTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.editTTL = d }
}

// WithCapacity bounds the number of live sessions. When full, the least
// recently used session that is not in edit mode is closed to make room.
func WithCapacity(n int) RegistryOption {
	return func(r *Registry) { r.capacity = n }
}

func WithLogger(l log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithOnCount sets a callback for the live session count, used for the
// active sessions gauge.
func WithOnCount(fn func(n int)) RegistryOption {
	return func(r *Registry) { r.OnCount = fn }
}

func withClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a Registry whose sessions are built from base and
// starts the idle sweeper. The sweeper stops when ctx ends or Close is
// called.
func NewRegistry(ctx context.Context, base Options, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		base:     base,
		ttl:      30 * time.Minute,
		editTTL:  12 * time.Hour,
		capacity: 1000,
		logger:   log.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	if r.ttl <= 0 {
		r.ttl = 30 * time.Minute
	}
	if r.editTTL < r.ttl {
		r.editTTL = r.ttl
	}
	if r.base.Now == nil {
		r.base.Now = r.now
	}
	if r.base.Logger == nil {
		r.base.Logger = r.logger
	}
	r.ctx, r.stop = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.sweeper()
	return r
}

// Create builds a new session, loads its document and registers it.
func (r *Registry) Create(ctx context.Context) (string, *Session, error) {
	s := New(r.ctx, r.base)
	if err := s.Load(ctx); err != nil {
		s.Close()
		return "", nil, err
	}

	id := r.newID()
	var evicted *Session

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		s.Close()
		return "", nil, ErrClosed
	}
	if r.capacity > 0 && len(r.sessions) >= r.capacity {
		evicted = r.evictOldestLocked()
		if evicted == nil {
			r.mu.Unlock()
			s.Close()
			r.logger.Warn(ctx, "session capacity reached and every session is editing", "capacity", r.capacity)
			return "", nil, ErrFull
		}
	}
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	if evicted != nil {
		evicted.Close()
		r.logger.Debug(ctx, "session capacity reached, closed least recently used session")
	}
	r.count(n)
	return id, s, nil
}

// evictOldestLocked removes the least recently used session that is not in
// edit mode. It returns nil when there is none.
func (r *Registry) evictOldestLocked() *Session {
	var (
		oldestID string
		oldest   *Session
		oldestAt time.Time
	)
	for id, s := range r.sessions {
		at, editing := s.activity()
		if editing {
			continue
		}
		if oldest == nil || at.Before(oldestAt) {
			oldestID, oldest, oldestAt = id, s, at
		}
	}
	if oldest != nil {
		delete(r.sessions, oldestID)
	}
	return oldest
}

// Get returns the session for id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove closes and forgets the session for id.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	r.count(n)
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than their TTL and returns how many
// it removed. Sessions in edit mode use the edit TTL.
func (r *Registry) Sweep(now time.Time) int {
	var expired []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		at, editing := s.activity()
		ttl := r.ttl
		if editing {
			ttl = r.editTTL
		}
		if now.Sub(at) > ttl {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		r.count(n)
	}
	return len(expired)
}

func (r *Registry) sweeper() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(r.now()); n > 0 {
				r.logger.Debug(r.ctx, "evicted idle sessions", "count", n)
			}
		}
	}
}

// Close stops the sweeper and closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	r.stop()
	r.wg.Wait()
	for _, s := range all {
		s.Close()
	}
	r.count(0)
}

func (r *Registry) count(n int) {
	if r.OnCount != nil {
		r.OnCount(n)
	}
}
