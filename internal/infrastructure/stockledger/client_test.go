package stockledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepacking/backend/internal/domain/shared"
	ledger "github.com/prepacking/backend/internal/domain/stockledger"
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

func TestSearchStockCardSummaries_FlattensCanFulfill(t *testing.T) {
	programID, facilityID := uuid.New(), uuid.New()
	orderableID, lotID := uuid.New(), uuid.New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/stockCardSummaries", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, programID.String(), q.Get("programId"))
		assert.Equal(t, facilityID.String(), q.Get("facilityId"))
		assert.Equal(t, []string{orderableID.String()}, q["orderableId"])
		assert.Equal(t, "2026-03-14", q.Get("asOfDate"))
		assert.Equal(t, "L1", q.Get("lotCode"))
		_, _ = w.Write([]byte(`{"content":[{
			"orderable": {"id": "` + orderableID.String() + `"},
			"stockOnHand": 130,
			"canFulfillForMe": [
				{"orderable": {"id": "` + orderableID.String() + `"}, "lot": {"id": "` + lotID.String() + `", "lotCode": "L1"}, "stockOnHand": 100},
				{"orderable": {"id": "` + orderableID.String() + `"}, "lot": null, "stockOnHand": 30},
				{"orderable": {"id": "` + orderableID.String() + `"}, "lot": null, "stockOnHand": null}
			]
		}]}`))
	})
	c := newClient(t, mux)

	summaries, err := c.SearchStockCardSummaries(context.Background(), ledger.SummaryQuery{
		ProgramID:    programID,
		FacilityID:   facilityID,
		OrderableIDs: []uuid.UUID{orderableID},
		AsOfDate:     time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		LotCode:      "L1",
	})

	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.NotNil(t, summaries[0].LotID)
	assert.Equal(t, lotID, *summaries[0].LotID)
	assert.Equal(t, "L1", summaries[0].LotCode)
	assert.Equal(t, int64(100), summaries[0].StockOnHand)
	assert.Nil(t, summaries[1].LotID)
	assert.Equal(t, int64(30), summaries[1].StockOnHand)
}

func TestSubmitStockEvent(t *testing.T) {
	eventID := uuid.New()
	reasonID := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/stockEvents", func(w http.ResponseWriter, r *http.Request) {
		var body ledger.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.LineItems, 1)
		assert.Equal(t, int64(50), body.LineItems[0].Quantity)
		assert.Equal(t, reasonID, *body.LineItems[0].ReasonID)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`"` + eventID.String() + `"`))
	})
	c := newClient(t, mux)

	id, err := c.SubmitStockEvent(context.Background(), &ledger.Event{
		FacilityID: uuid.New(),
		ProgramID:  uuid.New(),
		LineItems: []ledger.LineItem{
			{OrderableID: uuid.New(), Quantity: 50, ReasonID: &reasonID, OccurredDate: time.Now()},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, eventID, id)
}

func TestSubmitStockEvent_BadRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/stockEvents", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"messageKey":"stockmanagement.error.event.debit.quantity.exceed.stockOnHand","message":"quantity exceeds stock on hand"}`))
	})
	c := newClient(t, mux)

	_, err := c.SubmitStockEvent(context.Background(), &ledger.Event{})

	var ext *shared.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, http.StatusBadRequest, ext.StatusCode)
	assert.False(t, shared.IsRetryable(err))
	assert.Contains(t, err.Error(), "exceeds stock on hand")
}

func TestFindReason(t *testing.T) {
	id := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stockCardLineItemReasons/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != id.String() {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":"` + id.String() + `","name":"Transfer In","reasonType":"CREDIT","reasonCategory":"TRANSFER"}`))
	})
	c := newClient(t, mux)

	reason, err := c.FindReason(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, ledger.ReasonTypeCredit, reason.ReasonType)
	assert.Equal(t, ledger.ReasonCategoryTransfer, reason.ReasonCategory)

	_, err = c.FindReason(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFindValidReasons(t *testing.T) {
	programID, typeID, reasonID := uuid.New(), uuid.New(), uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/validReasons", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, programID.String(), r.URL.Query().Get("program"))
		assert.Equal(t, typeID.String(), r.URL.Query().Get("facilityType"))
		_, _ = w.Write([]byte(`[{"reason":{"id":"` + reasonID.String() + `","reasonType":"DEBIT"}}]`))
	})
	c := newClient(t, mux)

	list, err := c.FindValidReasons(context.Background(), programID, typeID)

	require.NoError(t, err)
	assert.True(t, ledger.ContainsReason(list, reasonID))
}

func TestFindValidSourcesAndDestinations(t *testing.T) {
	programID, typeID, facilityID, nodeID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	seen := map[string]string{}
	handler := func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path] = r.URL.Query().Get("facilityId")
		_, _ = w.Write([]byte(`[{"node":{"id":"` + nodeID.String() + `","refDataFacility":true}}]`))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/validSources", handler)
	mux.HandleFunc("GET /api/validDestinations", handler)
	c := newClient(t, mux)

	sources, err := c.FindValidSources(context.Background(), programID, typeID, &facilityID)
	require.NoError(t, err)
	assert.True(t, ledger.ContainsNode(sources, nodeID))

	destinations, err := c.FindValidDestinations(context.Background(), programID, typeID, nil)
	require.NoError(t, err)
	assert.True(t, ledger.ContainsNode(destinations, nodeID))

	assert.Equal(t, facilityID.String(), seen["/api/validSources"])
	assert.Empty(t, seen["/api/validDestinations"])
}
