package core

import (
	"context"
	"errors"

	"github.com/dkeye/Meet/internal/domain"
)

// ErrUnchanged tells a store that a mutation left the document as it was,
// so nothing needs to be written.
var ErrUnchanged = errors.New("unchanged")

// MeetingStore is the durable home of meetings. Update must be atomic per
// document: concurrent Updates on one meeting never lose each other's writes.
type MeetingStore interface {
	Create(ctx context.Context, m *domain.Meeting) error
	// Get returns a copy; NotFound when absent.
	Get(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error)
	// ListByCreator is ordered newest first.
	ListByCreator(ctx context.Context, uid domain.UserID) ([]*domain.Meeting, error)
	// Update applies mutate to the latest version and writes it back only if
	// nobody else wrote in between. A mutate error aborts without writing;
	// ErrUnchanged aborts and Update returns the current document with no error.
	Update(ctx context.Context, id domain.MeetingID, mutate func(*domain.Meeting) error) (*domain.Meeting, error)
}

// ChatStore is an append-only log per meeting.
type ChatStore interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error
	// ListByMeeting is ascending by timestamp, at most limit entries.
	ListByMeeting(ctx context.Context, id domain.MeetingID, limit int) ([]domain.ChatMessage, error)
	CountByMeeting(ctx context.Context, id domain.MeetingID) (int, error)
	DeleteByMeeting(ctx context.Context, id domain.MeetingID) error
}
