package app

import (
	"context"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// MeetingService is the only place join/leave/end rules meet the store.
// Every mutation is one atomic store Update.
type MeetingService struct {
	store core.MeetingStore
	now   func() time.Time
}

func NewMeetingService(store core.MeetingStore) *MeetingService {
	return &MeetingService{store: store, now: time.Now}
}

func (s *MeetingService) Create(ctx context.Context, createdBy domain.UserID, maxParticipants int) (domain.MeetingView, error) {
	m, err := domain.NewMeeting(createdBy, maxParticipants, s.now().UTC())
	if err != nil {
		return domain.MeetingView{}, err
	}
	if err := s.store.Create(ctx, m); err != nil {
		return domain.MeetingView{}, err
	}
	log.Info().Str("module", "app.meetings").Str("meeting", string(m.ID)).Str("user", string(createdBy)).
		Int("max", m.MaxParticipants).Msg("meeting created")
	return m.View(), nil
}

func (s *MeetingService) Get(ctx context.Context, id domain.MeetingID) (domain.MeetingView, error) {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.MeetingView{}, err
	}
	return m.View(), nil
}

func (s *MeetingService) ListByCreator(ctx context.Context, uid domain.UserID) ([]domain.MeetingView, error) {
	ms, err := s.store.ListByCreator(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MeetingView, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.View())
	}
	return out, nil
}

// Join admits uid. changed is false when uid was already active and
// nothing was written.
func (s *MeetingService) Join(ctx context.Context, id domain.MeetingID, uid domain.UserID) (view domain.MeetingView, changed bool, err error) {
	m, err := s.store.Update(ctx, id, func(m *domain.Meeting) error {
		// The SQL store may run this more than once; the last run wins.
		ok, err := m.Admit(uid, s.now().UTC())
		changed = ok
		if err != nil {
			return err
		}
		if !ok {
			return core.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		log.Debug().Str("module", "app.meetings").Str("meeting", string(id)).Str("user", string(uid)).
			Err(err).Msg("join refused")
		return domain.MeetingView{}, false, err
	}
	if changed {
		log.Info().Str("module", "app.meetings").Str("meeting", string(id)).Str("user", string(uid)).
			Int("active", m.ActiveCount()).Msg("participant joined")
	}
	return m.View(), changed, nil
}

// Leave is safe to call redundantly. Unknown users are not an error.
func (s *MeetingService) Leave(ctx context.Context, id domain.MeetingID, uid domain.UserID) (domain.MeetingView, error) {
	m, err := s.store.Update(ctx, id, func(m *domain.Meeting) error {
		if !m.Release(uid, s.now().UTC()) {
			return core.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return domain.MeetingView{}, err
	}
	log.Info().Str("module", "app.meetings").Str("meeting", string(id)).Str("user", string(uid)).
		Int("active", m.ActiveCount()).Msg("participant left")
	return m.View(), nil
}

// End is creator-only and does not evict anyone.
func (s *MeetingService) End(ctx context.Context, id domain.MeetingID, requester domain.UserID) (domain.MeetingView, error) {
	m, err := s.store.Update(ctx, id, func(m *domain.Meeting) error {
		changed, err := m.End(requester, s.now().UTC())
		if err != nil {
			return err
		}
		if !changed {
			return core.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return domain.MeetingView{}, err
	}
	log.Info().Str("module", "app.meetings").Str("meeting", string(id)).Str("user", string(requester)).Msg("meeting ended")
	return m.View(), nil
}

// IsCreator reports whether uid created the meeting.
func (s *MeetingService) IsCreator(ctx context.Context, id domain.MeetingID, uid domain.UserID) error {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.CreatedBy != uid {
		return domain.Errorf(domain.KindForbidden, "only the meeting creator can do this")
	}
	return nil
}
