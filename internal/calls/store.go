package calls

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrCallNotFound is returned when no call log exists for a call SID.
var ErrCallNotFound = errors.New("call log not found")

// Store defines call-log persistence. Begin is idempotent per call SID
// because the provider may deliver status callbacks more than once.
type Store interface {
	Begin(ctx context.Context, callSID, phone, direction, status string) error
	Finish(ctx context.Context, callSID, status string, duration *int) error
	UpdateTranscript(ctx context.Context, callSID, transcript string) error
	Recent(ctx context.Context, limit int) ([]CallLog, error)
	Counts(ctx context.Context) (*Counts, error)
}

// InMemoryStore keeps call logs in memory for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	bySID  map[string]*CallLog
}

// NewInMemoryStore creates an in-memory call-log store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, bySID: make(map[string]*CallLog)}
}

// Begin inserts a call-log row; repeated Begins for one SID are no-ops.
func (s *InMemoryStore) Begin(ctx context.Context, callSID, phone, direction, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bySID[callSID]; ok {
		return nil
	}
	s.bySID[callSID] = &CallLog{
		ID:          s.nextID,
		CallSID:     callSID,
		PhoneNumber: phone,
		Direction:   direction,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
	s.nextID++
	return nil
}

// Finish records the terminal status and duration for a call.
func (s *InMemoryStore) Finish(ctx context.Context, callSID, status string, duration *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.bySID[callSID]
	if !ok {
		return ErrCallNotFound
	}
	row.Status = status
	row.Duration = duration
	return nil
}

// UpdateTranscript replaces the stored transcript for a call.
func (s *InMemoryStore) UpdateTranscript(ctx context.Context, callSID, transcript string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.bySID[callSID]
	if !ok {
		return ErrCallNotFound
	}
	row.Transcript = transcript
	return nil
}

// Recent returns the newest call logs, most recent first.
func (s *InMemoryStore) Recent(ctx context.Context, limit int) ([]CallLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CallLog, 0, len(s.bySID))
	for _, row := range s.bySID {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Counts aggregates call volume.
func (s *InMemoryStore) Counts(ctx context.Context) (*Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &Counts{}
	for _, row := range s.bySID {
		c.Total++
		switch row.Direction {
		case DirectionInbound:
			c.Inbound++
		case DirectionOutbound:
			c.Outbound++
		}
	}
	return c, nil
}
