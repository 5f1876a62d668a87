package conversation

import (
	"strings"
	"sync"
	"time"
)

// session holds one call's turn history. Its mutex serializes turns for the
// call, so overlapping webhooks for the same CallSid are processed one at a
// time while other calls proceed independently.
type session struct {
	mu    sync.Mutex
	turns []Turn
	state State
}

// historyStore keeps per-call sessions in memory, keyed by Twilio CallSid.
// Sessions are purged a fixed delay after a call closes so the final
// transcript sync and any trailing status webhook still see them.
type historyStore struct {
	mu         sync.Mutex
	purgeDelay time.Duration
	sessions   map[string]*session
}

func newHistoryStore(purgeDelay time.Duration) *historyStore {
	if purgeDelay <= 0 {
		purgeDelay = time.Minute
	}
	return &historyStore{
		purgeDelay: purgeDelay,
		sessions:   make(map[string]*session),
	}
}

// checkout returns the session for the call, creating it on first use.
func (s *historyStore) checkout(callID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callID]
	if !ok {
		sess = &session{state: StateAwaitingFirstInput}
		s.sessions[callID] = sess
	}
	return sess
}

// peek returns the session without creating one.
func (s *historyStore) peek(callID string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callID]
	return sess, ok
}

// schedulePurge drops the session after the configured delay.
func (s *historyStore) schedulePurge(callID string) {
	time.AfterFunc(s.purgeDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.sessions, callID)
	})
}

// purge drops the session immediately. Used by tests and shutdown.
func (s *historyStore) purge(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callID)
}

func (s *historyStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// snapshot copies the turn list so callers can read it without holding the
// session mutex.
func (sess *session) snapshot() []Turn {
	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

func (sess *session) append(role, content string) {
	sess.turns = append(sess.turns, Turn{Role: role, Content: content})
}

// FormatTranscript renders turns as the transcript stored on the call log.
func FormatTranscript(turns []Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		speaker := "Sarah"
		if t.Role == RoleUser {
			speaker = "Caller"
		}
		parts = append(parts, speaker+": "+t.Content)
	}
	return strings.Join(parts, "\n\n")
}
