package browser

import (
	"time"

	"github.com/tormodhaugland/mtg/internal/source"
)

// State is the lifecycle position of a browse session.
type State int

const (
	StateIdle       State = iota // created, or rejected synchronously
	StateRequesting              // browse issued, nothing received yet
	StateStreaming               // at least one result received
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRequesting:
		return "Requesting"
	case StateStreaming:
		return "Streaming"
	case StateCompleted:
		return "Completed"
	case StateCancelled:
		return "Cancelled"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Session is one browse of one container. The session pointer doubles as
// the browse token kept on the container stack.
type Session struct {
	source      source.Source
	containerID string
	browseID    source.BrowseID
	state       State
	events      int
	rows        int
	started     time.Time
	finished    time.Time
	deadline    time.Time
	err         error
}

func newSession(src source.Source, containerID string, now time.Time, timeout time.Duration) *Session {
	s := &Session{
		source:      src,
		containerID: containerID,
		started:     now,
	}
	if timeout > 0 {
		s.deadline = now.Add(timeout)
	}
	return s
}

func (s *Session) Source() source.Source     { return s.source }
func (s *Session) ContainerID() string       { return s.containerID }
func (s *Session) BrowseID() source.BrowseID { return s.browseID }
func (s *Session) State() State              { return s.state }
func (s *Session) Rows() int                 { return s.rows }
func (s *Session) Events() int               { return s.events }
func (s *Session) Err() error                { return s.err }
func (s *Session) Started() time.Time        { return s.started }

// Elapsed is the time from the request to the terminal state, or to now
// while the session is live.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.Terminal() {
		return s.finished.Sub(s.started)
	}
	return now.Sub(s.started)
}

// Terminal reports whether the session has completed, failed or been
// cancelled.
func (s *Session) Terminal() bool {
	return s.state == StateCompleted || s.state == StateCancelled || s.state == StateFailed
}

// Live reports whether results may still be applied for this session.
func (s *Session) Live() bool {
	return s.state == StateRequesting || s.state == StateStreaming
}

func (s *Session) requested(id source.BrowseID) {
	if s.state == StateIdle {
		s.browseID = id
		s.state = StateRequesting
	}
}

// rejected records a synchronous failure; the session stays Idle.
func (s *Session) rejected(err error) {
	s.err = err
}

func (s *Session) received(appended bool) {
	if !s.Live() {
		return
	}
	s.state = StateStreaming
	s.events++
	if appended {
		s.rows++
	}
}

func (s *Session) finish(state State, err error, now time.Time) bool {
	if s.Terminal() {
		return false
	}
	s.state = state
	s.err = err
	s.finished = now
	return true
}

func (s *Session) expired(now time.Time) bool {
	return s.Live() && !s.deadline.IsZero() && now.After(s.deadline)
}
