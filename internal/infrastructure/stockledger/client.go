// Package stockledger is the HTTP adapter of the stock management service.
package stockledger

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/shared"
	ledger "github.com/prepacking/backend/internal/domain/stockledger"
	"github.com/prepacking/backend/internal/infrastructure/httpclient"
)

// ServiceName identifies the stock management service in errors and metrics
const ServiceName = "stockmanagement"

// dateLayout is the ISO date format of asOfDate parameters
const dateLayout = "2006-01-02"

// Client implements ledger.Client over the stock management REST API
type Client struct {
	http *httpclient.Client
}

var _ ledger.Client = (*Client)(nil)

// NewClient creates a Client on top of a configured transport
func NewClient(transport *httpclient.Client) *Client {
	return &Client{http: transport}
}

type reference struct {
	ID      uuid.UUID `json:"id"`
	LotCode string    `json:"lotCode,omitempty"`
}

type canFulfill struct {
	Orderable   reference  `json:"orderable"`
	Lot         *reference `json:"lot"`
	StockOnHand *int64     `json:"stockOnHand"`
}

type summaryPage struct {
	Orderable       reference    `json:"orderable"`
	StockOnHand     *int64       `json:"stockOnHand"`
	CanFulfillForMe []canFulfill `json:"canFulfillForMe"`
}

// SearchStockCardSummaries returns the stock on hand per orderable and lot.
// Entries without a stock card are skipped.
func (c *Client) SearchStockCardSummaries(ctx context.Context, q ledger.SummaryQuery) ([]ledger.StockCardSummary, error) {
	query := url.Values{
		"programId":  {q.ProgramID.String()},
		"facilityId": {q.FacilityID.String()},
	}
	for _, id := range q.OrderableIDs {
		query.Add("orderableId", id.String())
	}
	if !q.AsOfDate.IsZero() {
		query.Set("asOfDate", q.AsOfDate.Format(dateLayout))
	}
	if q.LotCode != "" {
		query.Set("lotCode", q.LotCode)
	}

	var pages httpclient.List[summaryPage]
	err := c.http.Do(ctx, httpclient.Request{
		Operation: "search stock card summaries",
		Method:    http.MethodGet,
		Path:      "/api/v2/stockCardSummaries",
		Query:     query,
	}, &pages)
	if err != nil {
		return nil, err
	}

	var summaries []ledger.StockCardSummary
	for _, page := range pages {
		for _, entry := range page.CanFulfillForMe {
			if entry.StockOnHand == nil {
				continue
			}
			summary := ledger.StockCardSummary{
				OrderableID: entry.Orderable.ID,
				StockOnHand: *entry.StockOnHand,
			}
			if entry.Lot != nil && entry.Lot.ID != uuid.Nil {
				lotID := entry.Lot.ID
				summary.LotID = &lotID
				summary.LotCode = entry.Lot.LotCode
			}
			summaries = append(summaries, summary)
		}
	}
	return summaries, nil
}

// SubmitStockEvent records the event and returns the id the ledger assigned
func (c *Client) SubmitStockEvent(ctx context.Context, event *ledger.Event) (uuid.UUID, error) {
	var id uuid.UUID
	err := c.http.Do(ctx, httpclient.Request{
		Operation: "submit stock event",
		Method:    http.MethodPost,
		Path:      "/api/stockEvents",
		Body:      event,
	}, &id)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, shared.NewExternalServiceError(ServiceName, "submit stock event", http.StatusOK, false, nil)
	}
	return id, nil
}

// FindReason returns the stock card line item reason with the given id
func (c *Client) FindReason(ctx context.Context, id uuid.UUID) (*ledger.Reason, error) {
	var reason ledger.Reason
	err := c.http.Do(ctx, httpclient.Request{
		Operation: "find reason",
		Method:    http.MethodGet,
		Path:      "/api/stockCardLineItemReasons/" + id.String(),
	}, &reason)
	if err != nil {
		return nil, err
	}
	return &reason, nil
}

// FindValidReasons lists the reasons enabled for a program and facility type
func (c *Client) FindValidReasons(ctx context.Context, programID, facilityTypeID uuid.UUID) ([]ledger.ValidReasonAssignment, error) {
	var list httpclient.List[ledger.ValidReasonAssignment]
	err := c.http.Do(ctx, httpclient.Request{
		Operation: "find valid reasons",
		Method:    http.MethodGet,
		Path:      "/api/validReasons",
		Query:     url.Values{"program": {programID.String()}, "facilityType": {facilityTypeID.String()}},
	}, &list)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// FindValidSources lists the nodes stock may be received from
func (c *Client) FindValidSources(ctx context.Context, programID, facilityTypeID uuid.UUID, facilityID *uuid.UUID) ([]ledger.ValidSourceDestination, error) {
	return c.validNodes(ctx, "find valid sources", "/api/validSources", programID, facilityTypeID, facilityID)
}

// FindValidDestinations lists the nodes stock may be issued to
func (c *Client) FindValidDestinations(ctx context.Context, programID, facilityTypeID uuid.UUID, facilityID *uuid.UUID) ([]ledger.ValidSourceDestination, error) {
	return c.validNodes(ctx, "find valid destinations", "/api/validDestinations", programID, facilityTypeID, facilityID)
}

func (c *Client) validNodes(ctx context.Context, op, path string, programID, facilityTypeID uuid.UUID, facilityID *uuid.UUID) ([]ledger.ValidSourceDestination, error) {
	query := url.Values{
		"programId":      {programID.String()},
		"facilityTypeId": {facilityTypeID.String()},
	}
	if facilityID != nil {
		query.Set("facilityId", facilityID.String())
	}
	var list httpclient.List[ledger.ValidSourceDestination]
	err := c.http.Do(ctx, httpclient.Request{Operation: op, Method: http.MethodGet, Path: path, Query: query}, &list)
	if err != nil {
		return nil, err
	}
	return list, nil
}
