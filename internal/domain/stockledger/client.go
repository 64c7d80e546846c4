package stockledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SummaryQuery selects stock card summaries as of a date
type SummaryQuery struct {
	ProgramID    uuid.UUID
	FacilityID   uuid.UUID
	OrderableIDs []uuid.UUID
	AsOfDate     time.Time
	LotCode      string
}

// StockCardSummary is the stock on hand of one orderable/lot at a facility
type StockCardSummary struct {
	OrderableID uuid.UUID  `json:"orderableId"`
	LotID       *uuid.UUID `json:"lotId,omitempty"`
	LotCode     string     `json:"lotCode,omitempty"`
	StockOnHand int64      `json:"stockOnHand"`
}

// Client is the port to the stock management service.
// FindReason returns shared.ErrNotFound for unknown reasons; transport and server
// failures are returned as *shared.ExternalServiceError.
type Client interface {
	SearchStockCardSummaries(ctx context.Context, query SummaryQuery) ([]StockCardSummary, error)
	SubmitStockEvent(ctx context.Context, event *Event) (uuid.UUID, error)

	FindReason(ctx context.Context, id uuid.UUID) (*Reason, error)
	FindValidReasons(ctx context.Context, programID, facilityTypeID uuid.UUID) ([]ValidReasonAssignment, error)
	// FindValidSources narrows the result by geo-level affinity when facilityID is set
	FindValidSources(ctx context.Context, programID, facilityTypeID uuid.UUID, facilityID *uuid.UUID) ([]ValidSourceDestination, error)
	// FindValidDestinations narrows the result by geo-level affinity when facilityID is set
	FindValidDestinations(ctx context.Context, programID, facilityTypeID uuid.UUID, facilityID *uuid.UUID) ([]ValidSourceDestination, error)
}
