package prepacking

import (
	"time"

	"github.com/google/uuid"
)

// StatusChange is one entry of the audit trail of a prepacking event
type StatusChange struct {
	ID         uuid.UUID
	AuthorID   uuid.UUID
	Status     Status
	OccurredAt time.Time
	// Message is optional free text left by the author
	Message string
}

func newStatusChange(authorID uuid.UUID, status Status, message string) StatusChange {
	return StatusChange{
		ID:         uuid.New(),
		AuthorID:   authorID,
		Status:     status,
		OccurredAt: time.Now(),
		Message:    message,
	}
}
