package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type ChatStore struct {
	mu   sync.RWMutex
	logs map[domain.MeetingID][]domain.ChatMessage
}

func NewChatStore() *ChatStore {
	return &ChatStore{logs: make(map[domain.MeetingID][]domain.ChatMessage)}
}

var _ core.ChatStore = (*ChatStore)(nil)

func (s *ChatStore) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[msg.MeetingID] = append(s.logs[msg.MeetingID], *msg)
	return nil
}

func (s *ChatStore) ListByMeeting(ctx context.Context, id domain.MeetingID, limit int) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	log := append([]domain.ChatMessage(nil), s.logs[id]...)
	s.mu.RUnlock()
	// Appends are already in order; stable sort keeps ties in append order.
	sort.SliceStable(log, func(i, j int) bool { return log[i].Timestamp.Before(log[j].Timestamp) })
	if limit > 0 && len(log) > limit {
		log = log[:limit]
	}
	if log == nil {
		log = []domain.ChatMessage{}
	}
	return log, nil
}

func (s *ChatStore) CountByMeeting(ctx context.Context, id domain.MeetingID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs[id]), nil
}

func (s *ChatStore) DeleteByMeeting(ctx context.Context, id domain.MeetingID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, id)
	return nil
}
