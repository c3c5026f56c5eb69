// Package memory holds process-local stores. They are the default for
// development and the fakes for tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type MeetingStore struct {
	mu       sync.Mutex
	meetings map[domain.MeetingID]*domain.Meeting
}

func NewMeetingStore() *MeetingStore {
	return &MeetingStore{meetings: make(map[domain.MeetingID]*domain.Meeting)}
}

var _ core.MeetingStore = (*MeetingStore)(nil)

func (s *MeetingStore) Create(ctx context.Context, m *domain.Meeting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[m.ID]; ok {
		return domain.Errorf(domain.KindConflict, "meeting %s already exists", m.ID)
	}
	c := m.Clone()
	c.Version = 1
	s.meetings[m.ID] = c
	m.Version = 1
	return nil
}

func (s *MeetingStore) Get(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "meeting not found")
	}
	return m.Clone(), nil
}

func (s *MeetingStore) ListByCreator(ctx context.Context, uid domain.UserID) ([]*domain.Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]*domain.Meeting, 0)
	for _, m := range s.meetings {
		if m.CreatedBy == uid {
			out = append(out, m.Clone())
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update holds the store lock across read-modify-write, which is the
// in-process equivalent of a conditional write.
func (s *MeetingStore) Update(ctx context.Context, id domain.MeetingID, mutate func(*domain.Meeting) error) (*domain.Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.meetings[id]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "meeting not found")
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		if errors.Is(err, core.ErrUnchanged) {
			return cur.Clone(), nil
		}
		return nil, err
	}
	next.Version = cur.Version + 1
	s.meetings[id] = next
	return next.Clone(), nil
}
