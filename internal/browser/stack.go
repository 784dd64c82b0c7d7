package browser

type stackEntry struct {
	containerID string
	token       *Session
}

// Stack records the containers entered from the top level, root first.
// Each entry carries the session of its latest browse; a nil token means no
// browse is outstanding for that container.
type Stack struct {
	entries []stackEntry
}

// Push records descending into containerID.
func (s *Stack) Push(containerID string) {
	s.entries = append(s.entries, stackEntry{containerID: containerID})
}

// Pop removes the current container. ok is false on an empty stack.
func (s *Stack) Pop() (containerID string, token *Session, ok bool) {
	if len(s.entries) == 0 {
		return "", nil, false
	}
	top := s.entries[len(s.entries)-1]
	s.entries[len(s.entries)-1] = stackEntry{}
	s.entries = s.entries[:len(s.entries)-1]
	return top.containerID, top.token, true
}

// PeekID returns the current container.
func (s *Stack) PeekID() (string, bool) {
	if len(s.entries) == 0 {
		return "", false
	}
	return s.entries[len(s.entries)-1].containerID, true
}

// PeekToken returns the current container's live session, which may be nil.
func (s *Stack) PeekToken() (*Session, bool) {
	if len(s.entries) == 0 {
		return nil, false
	}
	return s.entries[len(s.entries)-1].token, true
}

// SetToken replaces the current container's session. It does nothing on an
// empty stack.
func (s *Stack) SetToken(token *Session) {
	if len(s.entries) == 0 {
		return
	}
	s.entries[len(s.entries)-1].token = token
}

func (s *Stack) Len() int {
	return len(s.entries)
}

// Path returns the container ids from the root to the current container.
func (s *Stack) Path() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.containerID
	}
	return out
}
