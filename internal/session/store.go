package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/proshot/internal/imagegen"
)

// DefaultTTL is how long an untouched session is kept.
const DefaultTTL = time.Hour

// Store keeps live sessions in memory. Nothing is persisted; a restart loses
// every session.
type Store struct {
	gen  imagegen.Generator
	opts Options
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Machine
}

// NewStore returns an empty store whose machines generate with gen.
func NewStore(gen imagegen.Generator, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Store{
		gen:      gen,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Machine),
	}
}

// Create starts a new session in LANDING under a random UUID.
func (st *Store) Create() *Machine {
	m := NewMachine(uuid.NewString(), st.gen, st.opts)

	st.mu.Lock()
	st.sessions[m.ID()] = m
	count := len(st.sessions)
	st.mu.Unlock()

	log.Info().Str("session", m.ID()).Int("active", count).Msg("Session created")
	return m
}

// Get returns the session with the given id.
func (st *Store) Get(id string) (*Machine, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	m, ok := st.sessions[id]
	return m, ok
}

// Delete removes a session. In-flight generation results for it are dropped.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	m, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		go m.Close()
		log.Info().Str("session", id).Msg("Session deleted")
	}
	return ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.opts.TTL)

	st.mu.Lock()
	var expired []*Machine
	for id, m := range st.sessions {
		if m.LastActive().Before(cutoff) {
			expired = append(expired, m)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, m := range expired {
		go m.Close()
	}
	if len(expired) > 0 {
		log.Info().Int("expired", len(expired)).Msg("Swept idle sessions")
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done.
func (st *Store) Run(ctx context.Context) {
	interval := st.opts.TTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Close stops every session and waits for in-flight generations.
func (st *Store) Close() {
	st.mu.Lock()
	machines := make([]*Machine, 0, len(st.sessions))
	for _, m := range st.sessions {
		machines = append(machines, m)
	}
	st.sessions = make(map[string]*Machine)
	st.mu.Unlock()

	var wg sync.WaitGroup
	for _, m := range machines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Close()
		}()
	}
	wg.Wait()
}
