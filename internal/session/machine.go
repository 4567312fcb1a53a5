package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/proshot/internal/imagegen"
)

// DefaultUploadDelay is the pause between accepting an image and showing the
// editor.
const DefaultUploadDelay = 500 * time.Millisecond

// Options configures every Machine created by a Store.
type Options struct {
	// UploadDelay is how long a session stays in UPLOADING.
	UploadDelay time.Duration
	// TTL is how long an idle session survives before Store.Sweep drops it.
	TTL time.Duration
}

// Machine owns one Session and serializes every transition on it.
type Machine struct {
	id          string
	gen         imagegen.Generator
	uploadDelay time.Duration

	mu         sync.Mutex
	s          Session
	changed    chan struct{}
	lastActive time.Time
	timer      *time.Timer
	closed     bool

	inflight sync.WaitGroup
}

// NewMachine returns a Machine in LANDING that generates with gen.
func NewMachine(id string, gen imagegen.Generator, opts Options) *Machine {
	return &Machine{
		id:          id,
		gen:         gen,
		uploadDelay: opts.UploadDelay,
		s:           Session{View: Landing},
		changed:     make(chan struct{}),
		lastActive:  time.Now(),
	}
}

// ID returns the session id.
func (m *Machine) ID() string {
	return m.id
}

// Snapshot returns a copy of the current session.
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}

// Changed returns a channel that is closed on the next applied change.
func (m *Machine) Changed() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed
}

// LastActive returns the time of the last dispatched event.
func (m *Machine) LastActive() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActive
}

// Dispatch applies ev and starts any resulting effect. It returns the session
// as of this transition together with the transition error, if any.
func (m *Machine) Dispatch(ev Event) (Session, error) {
	m.mu.Lock()
	m.lastActive = time.Now()
	next, effect, err := Transition(m.s, ev)
	if err != nil && !IsValidation(err) {
		current := m.s
		m.mu.Unlock()
		if errors.Is(err, ErrStale) {
			log.Debug().Str("session", m.id).Err(err).Msg("Discarding stale event")
		}
		return current, err
	}

	from := m.s.View
	next.Version = m.s.Version + 1
	m.s = next
	close(m.changed)
	m.changed = make(chan struct{})
	if _, ok := ev.(Reset); ok && m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	closed := m.closed
	if _, ok := effect.(StartGeneration); ok && !closed {
		m.inflight.Add(1)
	}
	m.mu.Unlock()

	log.Debug().
		Str("session", m.id).
		Str("event", EventName(ev)).
		Str("from", from.String()).
		Str("to", next.View.String()).
		Uint64("epoch", next.Epoch).
		Msg("Session transition")

	if effect != nil && !closed {
		m.run(effect)
	}
	return next, err
}

func (m *Machine) run(effect Effect) {
	switch eff := effect.(type) {
	case SettleUpload:
		t := time.AfterFunc(m.uploadDelay, func() {
			m.Dispatch(UploadSettled{Epoch: eff.Epoch})
		})
		m.mu.Lock()
		if m.timer != nil {
			m.timer.Stop()
		}
		m.timer = t
		m.mu.Unlock()

	case StartGeneration:
		go func() {
			defer m.inflight.Done()
			m.generate(eff)
		}()
	}
}

// generate runs outside the request that triggered it, so a finished HTTP
// response does not cancel it. The generator applies its own timeout.
func (m *Machine) generate(eff StartGeneration) {
	start := time.Now()
	img, err := m.gen.Generate(context.Background(), eff.Source, eff.Instruction)
	if err == nil && img.IsZero() {
		err = imagegen.ErrNoImageInResponse
	}

	var ev Event
	if err != nil {
		log.Warn().
			Err(err).
			Str("session", m.id).
			Uint64("epoch", eff.Epoch).
			Dur("duration", time.Since(start)).
			Msg("Headshot generation failed")
		ev = GenerationFailed{Epoch: eff.Epoch, Message: imagegen.UserMessage(err)}
	} else {
		log.Info().
			Str("session", m.id).
			Uint64("epoch", eff.Epoch).
			Dur("duration", time.Since(start)).
			Msg("Headshot generated")
		ev = GenerationSucceeded{Epoch: eff.Epoch, Image: img}
	}

	if _, err := m.Dispatch(ev); err != nil && !errors.Is(err, ErrStale) {
		log.Error().Err(err).Str("session", m.id).Msg("Failed to apply generation outcome")
	}
}

// WaitFor blocks until pred holds for the session or ctx is done. It returns
// the last observed session either way.
func (m *Machine) WaitFor(ctx context.Context, pred func(Session) bool) (Session, error) {
	for {
		m.mu.Lock()
		s, ch := m.s, m.changed
		m.mu.Unlock()

		if pred(s) {
			return s, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

// Close stops the pending upload timer and waits for in-flight generations
// to report back. Later effects are not started.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	m.inflight.Wait()
}
