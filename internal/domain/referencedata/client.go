package referencedata

import (
	"context"

	"github.com/google/uuid"
)

// Client is the port to the reference data service.
// Lookups of a single resource return shared.ErrNotFound when it does not exist;
// transport and server failures are returned as *shared.ExternalServiceError.
type Client interface {
	FindOrderable(ctx context.Context, id uuid.UUID) (*Orderable, error)
	FindOrderablesByCodeAndName(ctx context.Context, code, name string) ([]Orderable, error)
	CreateOrUpdateOrderable(ctx context.Context, orderable *Orderable) (*Orderable, error)

	FindLot(ctx context.Context, id uuid.UUID) (*Lot, error)
	// FindLotMatching returns nil without error when no lot has the code under the trade item
	FindLotMatching(ctx context.Context, tradeItemID uuid.UUID, lotCode string) (*Lot, error)
	CreateLot(ctx context.Context, lot *Lot) (*Lot, error)

	CreateTradeItem(ctx context.Context, tradeItem *TradeItem) (*TradeItem, error)

	FindFacility(ctx context.Context, id uuid.UUID) (*Facility, error)
	FindFacilityType(ctx context.Context, facilityID uuid.UUID) (*FacilityType, error)
	FindProgram(ctx context.Context, id uuid.UUID) (*Program, error)

	FindApprovedProducts(ctx context.Context, facilityTypeCode, programCode string, orderableIDs ...uuid.UUID) ([]ApprovedProduct, error)
	CreateApprovedProduct(ctx context.Context, product *ApprovedProduct) (*ApprovedProduct, error)

	FindUser(ctx context.Context, id uuid.UUID) (*User, error)
}
