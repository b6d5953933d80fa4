// CLAUDE:SUMMARY Per-visit capture session: first-writer-wins slots per channel, completion signal, timeout and abort.
// Package capture correlates the asynchronous network responses of one page
// visit into a complete set of channel bodies.
//
// A Session is created per visit. The network listener pushes every observed
// response into Offer; the caller blocks in Await until every channel is
// filled, the session deadline passes, or its context ends.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultTimeout bounds a visit when no WithTimeout option is given.
const DefaultTimeout = 10 * time.Second

// State is the lifecycle position of a Session.
type State int

const (
	StateWaiting State = iota
	StatePartial
	StateComplete
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StatePartial:
		return "partial"
	case StateComplete:
		return "complete"
	case StateTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Response is one network response observed during a visit.
type Response struct {
	URL    string
	Status int
	Body   []byte
}

// Capture maps each channel to its decoded body.
type Capture map[Channel]json.RawMessage

// Detail returns the detail-data body.
func (c Capture) Detail() json.RawMessage { return c[ChannelDetail] }

// Description returns the description-data body.
func (c Capture) Description() json.RawMessage { return c[ChannelDescription] }

// Option configures a Session.
type Option func(*Session)

// WithTimeout sets the deadline measured from session creation.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session collects one body per channel. Offer may be called from any
// goroutine; Await is meant for a single caller.
type Session struct {
	matcher  *Matcher
	channels []Channel
	timeout  time.Duration
	started  time.Time
	logger   *slog.Logger

	mu    sync.Mutex
	slots Capture
	state State
	done  chan struct{}
}

// NewSession starts a session over m's channels. The timeout clock starts now.
func NewSession(m *Matcher, opts ...Option) *Session {
	s := &Session{
		matcher:  m,
		channels: m.Channels(),
		timeout:  DefaultTimeout,
		started:  time.Now(),
		logger:   slog.Default(),
		slots:    make(Capture, len(m.rules)),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Offer submits a response. It reports whether the response filled a slot.
// Non-200 responses, unclassifiable bodies, already-filled channels and
// offers after a terminal state are ignored.
func (s *Session) Offer(r Response) bool {
	if r.Status != http.StatusOK {
		return false
	}
	ch, body, err := s.matcher.Classify(r.URL, r.Body)
	if err != nil {
		if s.matcher.Wants(r.URL) {
			s.logger.Debug("capture: response rejected", "url", r.URL, "error", err)
		}
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete || s.state == StateTimedOut {
		return false
	}
	if _, filled := s.slots[ch]; filled {
		return false
	}
	s.slots[ch] = body
	s.logger.Debug("capture: channel filled", "channel", ch, "url", r.URL)

	if len(s.slots) == len(s.channels) {
		s.state = StateComplete
		close(s.done)
	} else {
		s.state = StatePartial
	}
	return true
}

// Await blocks until every channel is filled and returns the bodies. It
// returns a *TimeoutError once the session deadline passes, and an error
// matching both ErrAborted and ctx.Err() if ctx ends first.
func (s *Session) Await(ctx context.Context) (Capture, error) {
	remaining := time.Until(s.started.Add(s.timeout))
	timer := time.NewTimer(max(remaining, 0))
	defer timer.Stop()

	select {
	case <-s.done:
		return s.snapshot(), nil
	case <-ctx.Done():
		select {
		case <-s.done:
			return s.snapshot(), nil
		default:
		}
		return nil, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
	case <-timer.C:
		if err := s.expire(); err != nil {
			return nil, err
		}
		return s.snapshot(), nil
	}
}

func (s *Session) expire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete {
		return nil
	}
	s.state = StateTimedOut
	return &TimeoutError{Missing: s.missingLocked(), After: s.timeout}
}

func (s *Session) missingLocked() []Channel {
	var missing []Channel
	for _, c := range s.channels {
		if _, ok := s.slots[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

func (s *Session) snapshot() Capture {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Capture, len(s.slots))
	for k, v := range s.slots {
		out[k] = v
	}
	return out
}
