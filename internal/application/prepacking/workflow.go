package prepacking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/prepacking"
	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/domain/stockledger"
	"github.com/prepacking/backend/internal/infrastructure/logger"
	"github.com/prepacking/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reasons are the stock ledger reasons used for the two halves of a prepack
type Reasons struct {
	Debit  uuid.UUID
	Credit uuid.UUID
}

// AuthorizationWorkflow moves stock from bulk products to prepack products,
// one line item at a time. Stock moved for earlier line items stays moved
// when a later line item fails.
type AuthorizationWorkflow struct {
	refData  referencedata.Client
	ledger   stockledger.Client
	resolver *IdentityResolver
	reasons  Reasons
	now      func() time.Time
	logger   *zap.Logger
}

// NewAuthorizationWorkflow creates an AuthorizationWorkflow
func NewAuthorizationWorkflow(
	refData referencedata.Client,
	ledger stockledger.Client,
	resolver *IdentityResolver,
	reasons Reasons,
	log *zap.Logger,
) *AuthorizationWorkflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthorizationWorkflow{
		refData:  refData,
		ledger:   ledger,
		resolver: resolver,
		reasons:  reasons,
		now:      time.Now,
		logger:   log,
	}
}

// Process annotates every line item of a DRAFT event with its outcome and
// submits the debit/credit pair of each successful one. The event status is
// not changed. Any returned error aborts processing at the failing line item.
// Line items already SUCCESSFUL are skipped and DEBITED ones only get their
// credit, so an aborted run can be retried without moving stock twice.
func (w *AuthorizationWorkflow) Process(ctx context.Context, event *prepacking.PrepackingEvent, pc *ProcessContext) error {
	if !event.IsDraft() {
		return fmt.Errorf("%w: prepacking event %s is %s", shared.ErrInvalidState, event.ID, event.Status)
	}

	log := logger.FromContextOr(ctx, w.logger).With(zap.String("prepacking_event_id", event.ID.String()))
	today := w.today()

	for i := range event.LineItems {
		item := &event.LineItems[i]
		if item.Status == prepacking.LineItemStatusSuccessful {
			continue
		}
		lineCtx, span := telemetry.StartSpan(ctx, "prepacking.line_item",
			"line_item.index", i,
			"line_item.orderable_id", item.OrderableID.String(),
			"line_item.prepack_size", item.PrepackSize,
		)
		err := w.processLineItem(lineCtx, event, item, pc, today)
		telemetry.SetAttributes(span, "line_item.status", string(item.Status))
		telemetry.RecordError(span, err)
		span.End()
		if err != nil {
			log.Warn("prepack authorization aborted",
				zap.Int("line_item", i),
				zap.String("orderable_id", item.OrderableID.String()),
				zap.Error(err),
			)
			return err
		}
		log.Debug("prepack line item processed",
			zap.Int("line_item", i),
			zap.String("status", string(item.Status)),
		)
	}
	return nil
}

func (w *AuthorizationWorkflow) processLineItem(
	ctx context.Context,
	event *prepacking.PrepackingEvent,
	item *prepacking.LineItem,
	pc *ProcessContext,
	today time.Time,
) error {
	// a DEBITED line must reach its credit; a missing product is an error, not a remark
	debited := item.Status == prepacking.LineItemStatusDebited

	var bulkLot *referencedata.Lot
	if item.LotID != nil {
		lot, err := w.refData.FindLot(ctx, *item.LotID)
		if errors.Is(err, shared.ErrNotFound) && !debited {
			item.MarkOrderableNotFound()
			return nil
		}
		if err != nil {
			return fmt.Errorf("find bulk lot %s: %w", *item.LotID, err)
		}
		bulkLot = lot
	}

	quantity := item.QuantityToPrepack()
	var stockOnHand int64
	if debited {
		if item.StockOnHand != nil {
			stockOnHand = *item.StockOnHand
		}
	} else {
		query := stockledger.SummaryQuery{
			ProgramID:    event.ProgramID,
			FacilityID:   event.FacilityID,
			OrderableIDs: []uuid.UUID{item.OrderableID},
			AsOfDate:     today,
		}
		if bulkLot != nil {
			query.LotCode = bulkLot.LotCode
		}
		summaries, err := w.ledger.SearchStockCardSummaries(ctx, query)
		if err != nil {
			return fmt.Errorf("search stock card summaries: %w", err)
		}
		summary, ok := matchSummary(summaries, item)
		if !ok {
			item.MarkOrderableNotFound()
			return nil
		}
		if quantity > summary.StockOnHand {
			item.MarkInadequateStock(summary.StockOnHand)
			return nil
		}
		stockOnHand = summary.StockOnHand
	}

	bulk, err := w.refData.FindOrderable(ctx, item.OrderableID)
	if errors.Is(err, shared.ErrNotFound) && !debited {
		item.MarkOrderableNotFound()
		return nil
	}
	if err != nil {
		return fmt.Errorf("find bulk orderable %s: %w", item.OrderableID, err)
	}

	derived, err := w.resolver.Resolve(ctx, bulk, bulkLot, item.PrepackSize)
	if err != nil {
		return err
	}

	if err := w.ensureApproved(ctx, pc, derived.Orderable.ID); err != nil {
		return err
	}

	if !debited {
		debit := w.adjustment(event, pc, item.OrderableID, item.LotID, quantity, today, w.reasons.Debit)
		if _, err := w.ledger.SubmitStockEvent(ctx, debit); err != nil {
			return fmt.Errorf("submit prepack debit: %w", err)
		}
		item.MarkDebited(stockOnHand)
	}

	var derivedLotID *uuid.UUID
	if derived.Lot != nil {
		id := derived.Lot.ID
		derivedLotID = &id
	}
	credit := w.adjustment(event, pc, derived.Orderable.ID, derivedLotID, quantity, today, w.reasons.Credit)
	if _, err := w.ledger.SubmitStockEvent(ctx, credit); err != nil {
		return fmt.Errorf("submit prepack credit: %w", err)
	}

	item.MarkSuccessful(stockOnHand)
	return nil
}

// ensureApproved creates a facility type approved product for the prepack orderable when none exists
func (w *AuthorizationWorkflow) ensureApproved(ctx context.Context, pc *ProcessContext, orderableID uuid.UUID) error {
	facility, err := pc.Facility()
	if err != nil {
		return err
	}
	program, err := pc.Program()
	if err != nil {
		return err
	}

	approved, err := w.refData.FindApprovedProducts(ctx, facility.Type.Code, program.Code, orderableID)
	if err != nil {
		return fmt.Errorf("find approved products: %w", err)
	}
	if len(approved) > 0 {
		return nil
	}

	one := decimal.NewFromInt(1)
	_, err = w.refData.CreateApprovedProduct(ctx, &referencedata.ApprovedProduct{
		Orderable:           referencedata.ObjectReference{ID: orderableID},
		Program:             referencedata.ObjectReference{ID: program.ID},
		FacilityType:        referencedata.ObjectReference{ID: facility.Type.ID},
		MaxPeriodsOfStock:   one,
		MinPeriodsOfStock:   one,
		EmergencyOrderPoint: one,
		Active:              true,
		Meta:                referencedata.Meta{VersionNumber: 1},
	})
	if err != nil && !isConflict(err) {
		return fmt.Errorf("create approved product: %w", err)
	}
	return nil
}

func (w *AuthorizationWorkflow) adjustment(
	event *prepacking.PrepackingEvent,
	pc *ProcessContext,
	orderableID uuid.UUID,
	lotID *uuid.UUID,
	quantity int64,
	today time.Time,
	reasonID uuid.UUID,
) *stockledger.Event {
	reason := reasonID
	return &stockledger.Event{
		FacilityID: event.FacilityID,
		ProgramID:  event.ProgramID,
		UserID:     pc.UserID(),
		LineItems: []stockledger.LineItem{{
			OrderableID:  orderableID,
			LotID:        lotID,
			Quantity:     quantity,
			OccurredDate: today,
			ReasonID:     &reason,
		}},
	}
}

func (w *AuthorizationWorkflow) today() time.Time {
	y, m, d := w.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// matchSummary picks the stock card of the line item's orderable and lot
func matchSummary(summaries []stockledger.StockCardSummary, item *prepacking.LineItem) (stockledger.StockCardSummary, bool) {
	for _, s := range summaries {
		if s.OrderableID != item.OrderableID {
			continue
		}
		switch {
		case item.LotID == nil:
			if s.LotID == nil {
				return s, true
			}
		case s.LotID != nil && *s.LotID == *item.LotID:
			return s, true
		}
	}
	return stockledger.StockCardSummary{}, false
}
