package prepacking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LocalManufacturer is the manufacturer recorded on trade items created for prepacks
const LocalManufacturer = "Local Manufacturer"

// PrepackCode derives the prepack product code from the bulk code
func PrepackCode(bulkCode string, prepackSize int64) string {
	return bulkCode + "-" + strconv.FormatInt(prepackSize, 10)
}

// PrepackName derives the prepack product name from the bulk name
func PrepackName(bulkName string, prepackSize int64) string {
	return bulkName + "-" + strconv.FormatInt(prepackSize, 10)
}

// PrepackDescription derives the prepack product description from the bulk description
func PrepackDescription(bulkDescription string, prepackSize int64) string {
	return bulkDescription + "-" + strconv.FormatInt(prepackSize, 10)
}

// PrepackLotCode derives the child lot code from the bulk lot code
func PrepackLotCode(bulkLotCode string, prepackSize int64) string {
	return bulkLotCode + "-" + strconv.FormatInt(prepackSize, 10)
}

// DerivedIdentity is the prepack product and, for lot-tracked bulk stock, its child lot
type DerivedIdentity struct {
	Orderable *referencedata.Orderable
	Lot       *referencedata.Lot
}

// IdentityResolver finds or creates the prepack product/lot for a bulk product/lot and size.
// Lookup and creation of one derived code are serialized through the Locker.
type IdentityResolver struct {
	refData referencedata.Client
	locker  shared.Locker
	logger  *zap.Logger
}

// NewIdentityResolver creates an IdentityResolver
func NewIdentityResolver(refData referencedata.Client, locker shared.Locker, logger *zap.Logger) *IdentityResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityResolver{
		refData: refData,
		locker:  locker,
		logger:  logger,
	}
}

// Resolve returns the derived identity, creating whatever does not exist yet.
// bulkLot may be nil when the bulk stock is not lot-tracked.
func (r *IdentityResolver) Resolve(ctx context.Context, bulk *referencedata.Orderable, bulkLot *referencedata.Lot, prepackSize int64) (DerivedIdentity, error) {
	code := PrepackCode(bulk.ProductCode, prepackSize)

	lock, err := r.locker.Acquire(ctx, "prepack:"+code)
	if err != nil {
		return DerivedIdentity{}, err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("failed to release prepack lock", zap.String("code", code), zap.Error(err))
		}
	}()

	orderable, err := r.resolveOrderable(ctx, bulk, prepackSize)
	if err != nil {
		return DerivedIdentity{}, err
	}
	if bulkLot == nil {
		return DerivedIdentity{Orderable: orderable}, nil
	}

	lot, err := r.resolveLot(ctx, orderable, bulkLot, prepackSize)
	if err != nil {
		return DerivedIdentity{}, err
	}
	return DerivedIdentity{Orderable: orderable, Lot: lot}, nil
}

func (r *IdentityResolver) resolveOrderable(ctx context.Context, bulk *referencedata.Orderable, prepackSize int64) (*referencedata.Orderable, error) {
	code := PrepackCode(bulk.ProductCode, prepackSize)
	name := PrepackName(bulk.FullProductName, prepackSize)

	existing, err := r.findOrderable(ctx, code, name)
	if err != nil || existing != nil {
		return existing, err
	}

	tradeItem, err := r.refData.CreateTradeItem(ctx, &referencedata.TradeItem{ManufacturerOfTradeItem: LocalManufacturer})
	if err != nil {
		return nil, fmt.Errorf("create trade item for %s: %w", code, err)
	}

	created, err := r.refData.CreateOrUpdateOrderable(ctx, derivedOrderable(bulk, prepackSize, tradeItem))
	if isConflict(err) {
		r.logger.Info("prepack orderable created concurrently, looking it up again", zap.String("code", code))
		existing, lookupErr := r.findOrderable(ctx, code, name)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			r.logger.Warn("prepack trade item left unused",
				zap.String("code", code),
				zap.String("trade_item_id", tradeItem.ID.String()),
				zap.String("orderable_id", existing.ID.String()),
			)
			return existing, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create prepack orderable %s: %w", code, err)
	}

	r.logger.Info("created prepack orderable",
		zap.String("code", code),
		zap.String("orderable_id", created.ID.String()),
	)
	return created, nil
}

func (r *IdentityResolver) findOrderable(ctx context.Context, code, name string) (*referencedata.Orderable, error) {
	found, err := r.refData.FindOrderablesByCodeAndName(ctx, code, name)
	if err != nil {
		return nil, fmt.Errorf("find prepack orderable %s: %w", code, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func derivedOrderable(bulk *referencedata.Orderable, prepackSize int64, tradeItem *referencedata.TradeItem) *referencedata.Orderable {
	programs := make([]referencedata.ProgramOrderable, len(bulk.Programs))
	copy(programs, bulk.Programs)

	return &referencedata.Orderable{
		ProductCode:           PrepackCode(bulk.ProductCode, prepackSize),
		FullProductName:       PrepackName(bulk.FullProductName, prepackSize),
		Description:           PrepackDescription(bulk.Description, prepackSize),
		NetContent:            prepackSize,
		PackRoundingThreshold: prepackSize / 2,
		RoundToZero:           bulk.RoundToZero,
		Dispensable:           bulk.Dispensable,
		Programs:              programs,
		Identifiers:           map[string]string{referencedata.TradeItemIdentifier: tradeItem.ID.String()},
		Meta:                  referencedata.Meta{VersionNumber: 1},
	}
}

func (r *IdentityResolver) resolveLot(ctx context.Context, orderable *referencedata.Orderable, bulkLot *referencedata.Lot, prepackSize int64) (*referencedata.Lot, error) {
	tradeItemID, ok := orderable.TradeItemID()
	if !ok {
		return nil, shared.NewDomainError("PREPACK_TRADE_ITEM_MISSING",
			fmt.Sprintf("Prepack orderable %s is not linked to a trade item", orderable.ProductCode))
	}
	lotCode := PrepackLotCode(bulkLot.LotCode, prepackSize)

	existing, err := r.refData.FindLotMatching(ctx, tradeItemID, lotCode)
	if err != nil || existing != nil {
		return existing, wrapLotErr(lotCode, err)
	}

	created, err := r.refData.CreateLot(ctx, &referencedata.Lot{
		LotCode:         lotCode,
		TradeItemID:     tradeItemID,
		ExpirationDate:  bulkLot.ExpirationDate,
		ManufactureDate: bulkLot.ManufactureDate,
		Active:          bulkLot.Active,
	})
	if isConflict(err) {
		r.logger.Info("prepack lot created concurrently, looking it up again", zap.String("lot_code", lotCode))
		existing, lookupErr := r.refData.FindLotMatching(ctx, tradeItemID, lotCode)
		if lookupErr != nil {
			return nil, wrapLotErr(lotCode, lookupErr)
		}
		if existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create prepack lot %s: %w", lotCode, err)
	}
	return created, nil
}

func wrapLotErr(lotCode string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("find prepack lot %s: %w", lotCode, err)
}

// isConflict reports whether a create failed because the resource already exists
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, shared.ErrAlreadyExists) {
		return true
	}
	var ext *shared.ExternalServiceError
	return errors.As(err, &ext) && ext.StatusCode == http.StatusConflict
}
