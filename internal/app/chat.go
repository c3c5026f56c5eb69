package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultHistoryLimit = 100

// clampHorizon bounds how long a meeting's last timestamp is remembered. A
// clock step back larger than this is not clamped.
const clampHorizon = 10 * time.Minute

type meetingLock struct {
	mu   sync.Mutex
	refs int
}

// ChatService appends to the chat log and hands the stored message to a
// publisher while still holding the meeting's lock, so the fan-out order of a
// meeting is its persistence order.
type ChatService struct {
	store    core.ChatStore
	maxLimit int
	now      func() time.Time

	mu    sync.Mutex
	locks map[domain.MeetingID]*meetingLock
	last  map[domain.MeetingID]time.Time
	swept time.Time
}

func NewChatService(store core.ChatStore, maxLimit int) *ChatService {
	if maxLimit <= 0 {
		maxLimit = DefaultHistoryLimit
	}
	return &ChatService{
		store:    store,
		maxLimit: maxLimit,
		now:      time.Now,
		locks:    make(map[domain.MeetingID]*meetingLock),
		last:     make(map[domain.MeetingID]time.Time),
	}
}

func (s *ChatService) lock(mid domain.MeetingID) func() {
	s.mu.Lock()
	l, ok := s.locks[mid]
	if !ok {
		l = &meetingLock{}
		s.locks[mid] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, mid)
		}
		s.mu.Unlock()
	}
}

// stamp never lets a meeting's timestamps go backwards.
func (s *ChatService) stamp(mid domain.MeetingID) time.Time {
	ts := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.last[mid]; ok && ts.Before(prev) {
		ts = prev
	}
	return ts
}

func (s *ChatService) commit(mid domain.MeetingID, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[mid] = ts
	if ts.Sub(s.swept) < clampHorizon {
		return
	}
	for id, prev := range s.last {
		if ts.Sub(prev) > clampHorizon {
			delete(s.last, id)
		}
	}
	s.swept = ts
}

// Post persists msg and then calls publish with it. A failed append
// publishes nothing.
func (s *ChatService) Post(ctx context.Context, msg *domain.ChatMessage, publish func(*domain.ChatMessage)) error {
	unlock := s.lock(msg.MeetingID)
	defer unlock()

	msg.Timestamp = s.stamp(msg.MeetingID)
	if err := s.store.Append(ctx, msg); err != nil {
		log.Warn().Str("module", "app.chat").Str("meeting", string(msg.MeetingID)).Str("user", string(msg.UserID)).
			Err(err).Msg("append failed")
		return err
	}
	s.commit(msg.MeetingID, msg.Timestamp)
	if publish != nil {
		publish(msg)
	}
	return nil
}

func (s *ChatService) System(ctx context.Context, mid domain.MeetingID, text string, publish func(*domain.ChatMessage)) error {
	return s.Post(ctx, domain.NewSystemMessage(mid, text), publish)
}

// History clamps limit to (0, maxLimit]; zero means the default.
func (s *ChatService) History(ctx context.Context, mid domain.MeetingID, limit int) ([]domain.ChatMessage, error) {
	if limit < 0 {
		return nil, domain.Errorf(domain.KindInvalidArgument, "limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return s.store.ListByMeeting(ctx, mid, limit)
}

func (s *ChatService) Count(ctx context.Context, mid domain.MeetingID) (int, error) {
	return s.store.CountByMeeting(ctx, mid)
}

func (s *ChatService) Delete(ctx context.Context, mid domain.MeetingID) error {
	unlock := s.lock(mid)
	defer unlock()
	if err := s.store.DeleteByMeeting(ctx, mid); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.last, mid)
	s.mu.Unlock()
	log.Info().Str("module", "app.chat").Str("meeting", string(mid)).Msg("chat history deleted")
	return nil
}
