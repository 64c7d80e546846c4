// Package referencedata is the HTTP adapter of the reference data service.
package referencedata

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	refdata "github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/infrastructure/httpclient"
	"github.com/shopspring/decimal"
)

// ServiceName identifies the reference data service in errors and metrics
const ServiceName = "referencedata"

func init() {
	// the reference data service reads period and order point values as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Client implements refdata.Client over the reference data REST API
type Client struct {
	http *httpclient.Client
}

var _ refdata.Client = (*Client)(nil)

// NewClient creates a Client on top of a configured transport
func NewClient(transport *httpclient.Client) *Client {
	return &Client{http: transport}
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	return c.http.Do(ctx, httpclient.Request{Operation: op, Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) send(ctx context.Context, op, method, path string, body, out any) error {
	return c.http.Do(ctx, httpclient.Request{Operation: op, Method: method, Path: path, Body: body}, out)
}

// FindOrderable returns the orderable with the given id
func (c *Client) FindOrderable(ctx context.Context, id uuid.UUID) (*refdata.Orderable, error) {
	var o refdata.Orderable
	if err := c.get(ctx, "find orderable", "/api/orderables/"+id.String(), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// FindOrderablesByCodeAndName searches orderables by product code and full name
func (c *Client) FindOrderablesByCodeAndName(ctx context.Context, code, name string) ([]refdata.Orderable, error) {
	var list httpclient.List[refdata.Orderable]
	query := url.Values{"code": {code}, "name": {name}}
	if err := c.get(ctx, "search orderables", "/api/orderables", query, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateOrUpdateOrderable creates the orderable when it has no id yet and
// replaces the stored version otherwise
func (c *Client) CreateOrUpdateOrderable(ctx context.Context, orderable *refdata.Orderable) (*refdata.Orderable, error) {
	var saved refdata.Orderable
	var err error
	if orderable.ID == uuid.Nil {
		err = c.send(ctx, "create orderable", http.MethodPost, "/api/orderables", orderable, &saved)
	} else {
		err = c.send(ctx, "update orderable", http.MethodPut, "/api/orderables/"+orderable.ID.String(), orderable, &saved)
	}
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindLot returns the lot with the given id
func (c *Client) FindLot(ctx context.Context, id uuid.UUID) (*refdata.Lot, error) {
	var lot refdata.Lot
	if err := c.get(ctx, "find lot", "/api/lots/"+id.String(), nil, &lot); err != nil {
		return nil, err
	}
	return &lot, nil
}

// FindLotMatching returns the lot of the trade item with the given code, or nil
func (c *Client) FindLotMatching(ctx context.Context, tradeItemID uuid.UUID, lotCode string) (*refdata.Lot, error) {
	var list httpclient.List[refdata.Lot]
	query := url.Values{"tradeItemId": {tradeItemID.String()}, "lotCode": {lotCode}}
	if err := c.get(ctx, "search lots", "/api/lots", query, &list); err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].LotCode == lotCode {
			return &list[i], nil
		}
	}
	return nil, nil
}

// CreateLot creates a lot
func (c *Client) CreateLot(ctx context.Context, lot *refdata.Lot) (*refdata.Lot, error) {
	var created refdata.Lot
	if err := c.send(ctx, "create lot", http.MethodPost, "/api/lots", lot, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateTradeItem creates a trade item
func (c *Client) CreateTradeItem(ctx context.Context, tradeItem *refdata.TradeItem) (*refdata.TradeItem, error) {
	var created refdata.TradeItem
	if err := c.send(ctx, "create trade item", http.MethodPut, "/api/tradeItems", tradeItem, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// FindFacility returns the facility with the given id
func (c *Client) FindFacility(ctx context.Context, id uuid.UUID) (*refdata.Facility, error) {
	var f refdata.Facility
	if err := c.get(ctx, "find facility", "/api/facilities/"+id.String(), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindFacilityType returns the type of the facility with the given id
func (c *Client) FindFacilityType(ctx context.Context, facilityID uuid.UUID) (*refdata.FacilityType, error) {
	f, err := c.FindFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	return &f.Type, nil
}

// FindProgram returns the program with the given id
func (c *Client) FindProgram(ctx context.Context, id uuid.UUID) (*refdata.Program, error) {
	var p refdata.Program
	if err := c.get(ctx, "find program", "/api/programs/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindApprovedProducts lists the products approved for a facility type in a program,
// narrowed to the given orderables when any are passed
func (c *Client) FindApprovedProducts(ctx context.Context, facilityTypeCode, programCode string, orderableIDs ...uuid.UUID) ([]refdata.ApprovedProduct, error) {
	query := url.Values{"facilityType": {facilityTypeCode}, "program": {programCode}}
	for _, id := range orderableIDs {
		query.Add("orderableId", id.String())
	}
	var list httpclient.List[refdata.ApprovedProduct]
	if err := c.get(ctx, "search approved products", "/api/facilityTypeApprovedProducts", query, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateApprovedProduct approves an orderable for a facility type
func (c *Client) CreateApprovedProduct(ctx context.Context, product *refdata.ApprovedProduct) (*refdata.ApprovedProduct, error) {
	var created refdata.ApprovedProduct
	if err := c.send(ctx, "create approved product", http.MethodPost, "/api/facilityTypeApprovedProducts", product, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// FindUser returns the user with the given id
func (c *Client) FindUser(ctx context.Context, id uuid.UUID) (*refdata.User, error) {
	var u refdata.User
	if err := c.get(ctx, "find user", "/api/users/"+id.String(), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
