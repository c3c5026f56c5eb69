package sqlstore

import (
	"context"

	"github.com/jinzhu/gorm"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type ChatStore struct {
	s *Store
}

var _ core.ChatStore = (*ChatStore)(nil)

func (cs *ChatStore) Append(ctx context.Context, msg *domain.ChatMessage) error {
	row := toChatRow(msg)
	return cs.s.inTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
}

func (cs *ChatStore) ListByMeeting(ctx context.Context, id domain.MeetingID, limit int) ([]domain.ChatMessage, error) {
	var rows []chatRow
	err := cs.s.inTx(ctx, func(tx *gorm.DB) error {
		q := tx.Where("meeting_id = ?", string(id)).Order("timestamp_ns asc").Order("seq asc")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChatMessage, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (cs *ChatStore) CountByMeeting(ctx context.Context, id domain.MeetingID) (int, error) {
	var n int
	err := cs.s.inTx(ctx, func(tx *gorm.DB) error {
		return tx.Model(&chatRow{}).Where("meeting_id = ?", string(id)).Count(&n).Error
	})
	return n, err
}

func (cs *ChatStore) DeleteByMeeting(ctx context.Context, id domain.MeetingID) error {
	return cs.s.inTx(ctx, func(tx *gorm.DB) error {
		return tx.Where("meeting_id = ?", string(id)).Delete(&chatRow{}).Error
	})
}
