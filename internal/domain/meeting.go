package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinParticipants     = 2
	MaxParticipants     = 10
	DefaultParticipants = 10
)

type (
	MeetingID     string
	MeetingStatus string
)

const (
	MeetingActive MeetingStatus = "active"
	MeetingEnded  MeetingStatus = "ended"
)

type Participant struct {
	UserID   UserID    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
	Active   bool      `json:"active"`
}

// Meeting is the persisted document. Version is the optimistic concurrency
// token; stores bump it on every successful write.
type Meeting struct {
	ID              MeetingID     `json:"id"`
	CreatedBy       UserID        `json:"createdBy"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	Status          MeetingStatus `json:"status"`
	Participants    []Participant `json:"participants"`
	MaxParticipants int           `json:"maxParticipants"`
	Version         int64         `json:"-"`
}

// NewMeeting validates capacity; zero means the default.
func NewMeeting(createdBy UserID, maxParticipants int, now time.Time) (*Meeting, error) {
	if createdBy == "" {
		return nil, Errorf(KindInvalidArgument, "creator is required")
	}
	if maxParticipants == 0 {
		maxParticipants = DefaultParticipants
	}
	if maxParticipants < MinParticipants || maxParticipants > MaxParticipants {
		return nil, Errorf(KindInvalidArgument,
			"maximum participants must be between %d and %d", MinParticipants, MaxParticipants)
	}
	return &Meeting{
		ID:              MeetingID(uuid.NewString()),
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
		Status:          MeetingActive,
		Participants:    []Participant{},
		MaxParticipants: maxParticipants,
	}, nil
}

func (m *Meeting) ActiveCount() int {
	n := 0
	for _, p := range m.Participants {
		if p.Active {
			n++
		}
	}
	return n
}

func (m *Meeting) participantIndex(uid UserID) int {
	for i, p := range m.Participants {
		if p.UserID == uid {
			return i
		}
	}
	return -1
}

// Admit applies the join rules to the document in place. It returns
// false when the user was already active and nothing changed.
func (m *Meeting) Admit(uid UserID, now time.Time) (bool, error) {
	if m.Status != MeetingActive {
		return false, Errorf(KindMeetingEnded, "this meeting has ended")
	}
	if i := m.participantIndex(uid); i >= 0 {
		if m.Participants[i].Active {
			return false, nil
		}
		// Rejoining still occupies a slot.
		if m.ActiveCount() >= m.MaxParticipants {
			return false, Errorf(KindMeetingFull, "meeting is full")
		}
		m.Participants[i].Active = true
		m.UpdatedAt = now
		return true, nil
	}
	if m.ActiveCount() >= m.MaxParticipants {
		return false, Errorf(KindMeetingFull, "meeting is full")
	}
	m.Participants = append(m.Participants, Participant{UserID: uid, JoinedAt: now, Active: true})
	m.UpdatedAt = now
	return true, nil
}

// Release marks the user inactive. Unknown or already inactive users are
// not an error.
func (m *Meeting) Release(uid UserID, now time.Time) bool {
	i := m.participantIndex(uid)
	if i < 0 || !m.Participants[i].Active {
		return false
	}
	m.Participants[i].Active = false
	m.UpdatedAt = now
	return true
}

func (m *Meeting) End(requester UserID, now time.Time) (bool, error) {
	if m.CreatedBy != requester {
		return false, Errorf(KindForbidden, "only the meeting creator can end the meeting")
	}
	if m.Status == MeetingEnded {
		return false, nil
	}
	m.Status = MeetingEnded
	m.UpdatedAt = now
	return true, nil
}

func (m *Meeting) Clone() *Meeting {
	c := *m
	c.Participants = append([]Participant(nil), m.Participants...)
	if c.Participants == nil {
		c.Participants = []Participant{}
	}
	return &c
}

// MeetingView is the read model handed to clients. It is derived on every
// read and never stored.
type MeetingView struct {
	ID               MeetingID     `json:"id"`
	CreatedBy        UserID        `json:"createdBy"`
	CreatedAt        time.Time     `json:"createdAt"`
	Status           MeetingStatus `json:"status"`
	Participants     []Participant `json:"participants"`
	MaxParticipants  int           `json:"maxParticipants"`
	ParticipantCount int           `json:"participantCount"`
	CanJoin          bool          `json:"canJoin"`
}

func (m *Meeting) View() MeetingView {
	count := m.ActiveCount()
	parts := append([]Participant(nil), m.Participants...)
	if parts == nil {
		parts = []Participant{}
	}
	return MeetingView{
		ID:               m.ID,
		CreatedBy:        m.CreatedBy,
		CreatedAt:        m.CreatedAt,
		Status:           m.Status,
		Participants:     parts,
		MaxParticipants:  m.MaxParticipants,
		ParticipantCount: count,
		CanJoin:          m.Status == MeetingActive && count < m.MaxParticipants,
	}
}
