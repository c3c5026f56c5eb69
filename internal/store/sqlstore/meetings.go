package sqlstore

import (
	"context"
	"errors"

	"github.com/jinzhu/gorm"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

const maxUpdateAttempts = 8

type MeetingStore struct {
	s *Store
}

var _ core.MeetingStore = (*MeetingStore)(nil)

func (ms *MeetingStore) Create(ctx context.Context, m *domain.Meeting) error {
	m.Version = 1
	row, err := toMeetingRow(m)
	if err != nil {
		return mapErr(err)
	}
	return ms.s.inTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
}

func (ms *MeetingStore) Get(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	var m *domain.Meeting
	err := ms.s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		m, err = loadMeeting(tx, id)
		return err
	})
	return m, err
}

func (ms *MeetingStore) ListByCreator(ctx context.Context, uid domain.UserID) ([]*domain.Meeting, error) {
	var rows []meetingRow
	err := ms.s.inTx(ctx, func(tx *gorm.DB) error {
		return tx.Where("created_by = ?", string(uid)).Order("created_ns desc").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Meeting, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toDomain()
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Update is optimistic: the write only lands if the version read is still
// current, otherwise the whole read-modify-write is retried.
func (ms *MeetingStore) Update(ctx context.Context, id domain.MeetingID, mutate func(*domain.Meeting) error) (*domain.Meeting, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		var (
			out      *domain.Meeting
			conflict bool
		)
		err := ms.s.inTx(ctx, func(tx *gorm.DB) error {
			cur, err := loadMeeting(tx, id)
			if err != nil {
				return err
			}
			next := cur.Clone()
			if err := mutate(next); err != nil {
				if errors.Is(err, core.ErrUnchanged) {
					out = cur
					return nil
				}
				return err
			}
			next.Version = cur.Version + 1
			row, err := toMeetingRow(next)
			if err != nil {
				return err
			}
			res := tx.Model(&meetingRow{}).
				Where("id = ? AND version = ?", row.ID, cur.Version).
				Updates(map[string]interface{}{
					"updated_ns":       row.UpdatedNS,
					"status":           row.Status,
					"max_participants": row.MaxParticipants,
					"participants":     row.Participants,
					"version":          row.Version,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				conflict = true
				return nil
			}
			out = next
			return nil
		})
		if err != nil {
			return nil, err
		}
		if !conflict {
			return out, nil
		}
		log.Debug().Str("module", "store.sql").Str("meeting", string(id)).Int("attempt", attempt).Msg("version conflict, retrying")
	}
	return nil, domain.Errorf(domain.KindConflict, "meeting %s is being updated concurrently", id)
}

func loadMeeting(tx *gorm.DB, id domain.MeetingID) (*domain.Meeting, error) {
	var row meetingRow
	if err := tx.Where("id = ?", string(id)).First(&row).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, domain.Errorf(domain.KindNotFound, "meeting not found")
		}
		return nil, err
	}
	return row.toDomain()
}
