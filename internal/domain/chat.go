package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	SystemUserID   UserID = "system"
	SystemUserName        = "System"

	MaxMessageLen = 4000
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

// ChatMessage is append-only. Timestamp is assigned by the server.
type ChatMessage struct {
	ID        string      `json:"id"`
	MeetingID MeetingID   `json:"meetingId"`
	UserID    UserID      `json:"userId"`
	UserName  string      `json:"userName"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
}

// NormalizeText trims text and reports whether anything is left to send.
func NormalizeText(text string) (string, bool) {
	text = strings.TrimSpace(text)
	return text, text != ""
}

func NewTextMessage(mid MeetingID, from Identity, text string) (*ChatMessage, error) {
	if utf8.RuneCountInString(text) > MaxMessageLen {
		return nil, Errorf(KindInvalidArgument, "message longer than %d characters", MaxMessageLen)
	}
	return &ChatMessage{
		ID:        uuid.NewString(),
		MeetingID: mid,
		UserID:    from.UserID,
		UserName:  from.DisplayName(),
		Message:   text,
		Type:      MessageText,
	}, nil
}

func NewSystemMessage(mid MeetingID, text string) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.NewString(),
		MeetingID: mid,
		UserID:    SystemUserID,
		UserName:  SystemUserName,
		Message:   text,
		Type:      MessageSystem,
	}
}
