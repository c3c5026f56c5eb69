package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Meet/internal/domain"
)

// Times are kept as unix nanoseconds so ordering does not depend on how a
// driver formats timestamps.
type meetingRow struct {
	ID              string `gorm:"primary_key;size:64"`
	CreatedBy       string `gorm:"index;size:128"`
	CreatedNS       int64  `gorm:"index"`
	UpdatedNS       int64
	Status          string `gorm:"size:16"`
	MaxParticipants int
	Participants    string `gorm:"type:text"`
	Version         int64
}

func (meetingRow) TableName() string { return "meetings" }

func toMeetingRow(m *domain.Meeting) (*meetingRow, error) {
	parts, err := json.Marshal(m.Participants)
	if err != nil {
		return nil, err
	}
	return &meetingRow{
		ID:              string(m.ID),
		CreatedBy:       string(m.CreatedBy),
		CreatedNS:       m.CreatedAt.UnixNano(),
		UpdatedNS:       m.UpdatedAt.UnixNano(),
		Status:          string(m.Status),
		MaxParticipants: m.MaxParticipants,
		Participants:    string(parts),
		Version:         m.Version,
	}, nil
}

func (r *meetingRow) toDomain() (*domain.Meeting, error) {
	parts := []domain.Participant{}
	if r.Participants != "" {
		if err := json.Unmarshal([]byte(r.Participants), &parts); err != nil {
			return nil, err
		}
	}
	return &domain.Meeting{
		ID:              domain.MeetingID(r.ID),
		CreatedBy:       domain.UserID(r.CreatedBy),
		CreatedAt:       time.Unix(0, r.CreatedNS).UTC(),
		UpdatedAt:       time.Unix(0, r.UpdatedNS).UTC(),
		Status:          domain.MeetingStatus(r.Status),
		Participants:    parts,
		MaxParticipants: r.MaxParticipants,
		Version:         r.Version,
	}, nil
}

// Seq breaks timestamp ties in append order.
type chatRow struct {
	Seq         uint   `gorm:"primary_key;AUTO_INCREMENT"`
	ID          string `gorm:"unique_index;size:64"`
	MeetingID   string `gorm:"index:idx_chat_meeting_ts;size:64"`
	TimestampNS int64  `gorm:"index:idx_chat_meeting_ts"`
	UserID      string `gorm:"size:128"`
	UserName    string
	Message     string `gorm:"type:text"`
	Type        string `gorm:"size:16"`
}

func (chatRow) TableName() string { return "chat_messages" }

func toChatRow(m *domain.ChatMessage) *chatRow {
	return &chatRow{
		ID:          m.ID,
		MeetingID:   string(m.MeetingID),
		TimestampNS: m.Timestamp.UnixNano(),
		UserID:      string(m.UserID),
		UserName:    m.UserName,
		Message:     m.Message,
		Type:        string(m.Type),
	}
}

func (r *chatRow) toDomain() domain.ChatMessage {
	return domain.ChatMessage{
		ID:        r.ID,
		MeetingID: domain.MeetingID(r.MeetingID),
		UserID:    domain.UserID(r.UserID),
		UserName:  r.UserName,
		Message:   r.Message,
		Timestamp: time.Unix(0, r.TimestampNS).UTC(),
		Type:      domain.MessageType(r.Type),
	}
}
