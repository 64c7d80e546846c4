package referencedata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	refdata "github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/infrastructure/httpclient"
)

func newClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClient(httpclient.New(httpclient.Config{
		Service: ServiceName,
		BaseURL: server.URL,
		Timeout: time.Second,
	}, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestFindOrderable(t *testing.T) {
	id := uuid.New()
	tradeItemID := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orderables/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, id.String(), r.PathValue("id"))
		_, _ = w.Write([]byte(`{
			"id": "` + id.String() + `",
			"productCode": "C100",
			"fullProductName": "Paracetamol",
			"netContent": 10,
			"identifiers": {"tradeItem": "` + tradeItemID.String() + `"},
			"extraData": {"useVVM": "true"},
			"meta": {"versionNumber": 3}
		}`))
	})
	c := newClient(t, mux)

	o, err := c.FindOrderable(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, "C100", o.ProductCode)
	assert.Equal(t, int64(10), o.NetContent)
	assert.Equal(t, int64(3), o.Meta.VersionNumber)
	assert.True(t, o.UsesVVM())
	got, ok := o.TradeItemID()
	assert.True(t, ok)
	assert.Equal(t, tradeItemID, got)
}

func TestFindOrderable_NotFound(t *testing.T) {
	c := newClient(t, http.NewServeMux())

	_, err := c.FindOrderable(context.Background(), uuid.New())

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFindOrderablesByCodeAndName_ReadsPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orderables", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "C100-10", r.URL.Query().Get("code"))
		assert.Equal(t, "Paracetamol-10", r.URL.Query().Get("name"))
		_, _ = w.Write([]byte(`{"content":[{"productCode":"C100-10"}],"totalElements":1}`))
	})
	c := newClient(t, mux)

	list, err := c.FindOrderablesByCodeAndName(context.Background(), "C100-10", "Paracetamol-10")

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "C100-10", list[0].ProductCode)
}

func TestCreateOrUpdateOrderable(t *testing.T) {
	existing := uuid.New()
	var methods []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orderables", func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, "POST")
		var body refdata.Orderable
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body.ID = uuid.New()
		writeJSON(t, w, body)
	})
	mux.HandleFunc("PUT /api/orderables/{id}", func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, "PUT "+r.PathValue("id"))
		var body refdata.Orderable
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(t, w, body)
	})
	c := newClient(t, mux)

	created, err := c.CreateOrUpdateOrderable(context.Background(), &refdata.Orderable{ProductCode: "C100-10"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	updated, err := c.CreateOrUpdateOrderable(context.Background(), &refdata.Orderable{ID: existing, ProductCode: "C100-10"})
	require.NoError(t, err)
	assert.Equal(t, existing, updated.ID)

	assert.Equal(t, []string{"POST", "PUT " + existing.String()}, methods)
}

func TestFindLotMatching(t *testing.T) {
	tradeItemID := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/lots", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tradeItemID.String(), r.URL.Query().Get("tradeItemId"))
		if r.URL.Query().Get("lotCode") == "L1-10" {
			_, _ = w.Write([]byte(`{"content":[{"lotCode":"L1-9"},{"lotCode":"L1-10","active":true}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"content":[]}`))
	})
	c := newClient(t, mux)

	lot, err := c.FindLotMatching(context.Background(), tradeItemID, "L1-10")
	require.NoError(t, err)
	require.NotNil(t, lot)
	assert.Equal(t, "L1-10", lot.LotCode)

	missing, err := c.FindLotMatching(context.Background(), tradeItemID, "L2-10")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateLotAndTradeItem(t *testing.T) {
	expiry := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/lots", func(w http.ResponseWriter, r *http.Request) {
		var body refdata.Lot
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.ExpirationDate)
		assert.True(t, expiry.Equal(*body.ExpirationDate))
		body.ID = uuid.New()
		writeJSON(t, w, body)
	})
	mux.HandleFunc("PUT /api/tradeItems", func(w http.ResponseWriter, r *http.Request) {
		var body refdata.TradeItem
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "local", body.ManufacturerOfTradeItem)
		body.ID = uuid.New()
		writeJSON(t, w, body)
	})
	c := newClient(t, mux)

	lot, err := c.CreateLot(context.Background(), &refdata.Lot{LotCode: "L1-10", ExpirationDate: &expiry, Active: true})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, lot.ID)

	item, err := c.CreateTradeItem(context.Background(), &refdata.TradeItem{ManufacturerOfTradeItem: "local"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, item.ID)
}

func TestFindFacilityType_UsesFacility(t *testing.T) {
	facilityID := uuid.New()
	typeID := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/facilities/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, refdata.Facility{
			ID:   facilityID,
			Code: "HC01",
			Type: refdata.FacilityType{ID: typeID, Code: "health_center"},
		})
	})
	c := newClient(t, mux)

	ft, err := c.FindFacilityType(context.Background(), facilityID)

	require.NoError(t, err)
	assert.Equal(t, typeID, ft.ID)
	assert.Equal(t, "health_center", ft.Code)
}

func TestApprovedProducts(t *testing.T) {
	orderableID := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/facilityTypeApprovedProducts", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "health_center", q.Get("facilityType"))
		assert.Equal(t, "PRG001", q.Get("program"))
		assert.Equal(t, []string{orderableID.String()}, q["orderableId"])
		_, _ = w.Write([]byte(`{"content":[]}`))
	})
	mux.HandleFunc("POST /api/facilityTypeApprovedProducts", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, float64(1), raw["maxPeriodsOfStock"], "decimals are sent as numbers")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"` + uuid.NewString() + `","active":true,"maxPeriodsOfStock":1}`))
	})
	c := newClient(t, mux)

	found, err := c.FindApprovedProducts(context.Background(), "health_center", "PRG001", orderableID)
	require.NoError(t, err)
	assert.Empty(t, found)

	created, err := c.CreateApprovedProduct(context.Background(), &refdata.ApprovedProduct{
		Orderable:           refdata.ObjectReference{ID: orderableID},
		MaxPeriodsOfStock:   decimal.NewFromInt(1),
		MinPeriodsOfStock:   decimal.NewFromInt(1),
		EmergencyOrderPoint: decimal.NewFromInt(1),
		Active:              true,
	})
	require.NoError(t, err)
	assert.True(t, created.Active)
	assert.True(t, created.MaxPeriodsOfStock.Equal(decimal.NewFromInt(1)))
}

func TestConflictIsExternalServiceError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/lots", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"messageKey":"referenceData.error.lot.lotCode.mustBeUnique","message":"lot code must be unique"}`))
	})
	c := newClient(t, mux)

	_, err := c.CreateLot(context.Background(), &refdata.Lot{LotCode: "L1-10"})

	var ext *shared.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, http.StatusConflict, ext.StatusCode)
	assert.False(t, ext.Retryable)
	assert.Contains(t, err.Error(), "must be unique")
}

func TestFindUser(t *testing.T) {
	id := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, refdata.User{ID: id, Username: "jdoe", FirstName: "Jane", LastName: "Doe"})
	})
	c := newClient(t, mux)

	u, err := c.FindUser(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, "Jane, Doe", u.DisplayName())
}
