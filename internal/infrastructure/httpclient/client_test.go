package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepacking/backend/internal/domain/shared"
)

type failureCounter struct {
	mu    sync.Mutex
	calls []string
}

func (f *failureCounter) RecordExternalFailure(_ context.Context, service, operation string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, service+"/"+operation)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *failureCounter) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := New(Config{Service: "referencedata", BaseURL: server.URL + "/", Timeout: 200 * time.Millisecond, Token: "svc-token"}, nil)
	failures := &failureCounter{}
	c.SetFailureRecorder(failures)
	return c, failures
}

func TestDo_SendsJSONWithToken(t *testing.T) {
	c, failures := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/lots", r.URL.Path)
		assert.Equal(t, "x", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "L1", body["lotCode"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"lotCode":"L1","active":true}`))
	})

	var out struct {
		LotCode string `json:"lotCode"`
		Active  bool   `json:"active"`
	}
	err := c.Do(context.Background(), Request{
		Operation: "create lot",
		Method:    http.MethodPost,
		Path:      "/api/lots",
		Query:     url.Values{"q": {"x"}},
		Body:      map[string]string{"lotCode": "L1"},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "L1", out.LotCode)
	assert.True(t, out.Active)
	assert.Empty(t, failures.calls)
}

func TestDo_NotFound(t *testing.T) {
	c, failures := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := c.Do(context.Background(), Request{Operation: "find lot", Method: http.MethodGet, Path: "/api/lots/1"}, nil)

	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, failures.calls, "not found is not a service failure")
}

func TestDo_StatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		retryable bool
		message   string
	}{
		{status: http.StatusBadRequest, body: `{"messageKey":"referenceData.error.lot.lotCode.required","message":"Lot code is required"}`, message: "Lot code is required"},
		{status: http.StatusConflict, body: `{"messageKey":"referenceData.error.orderable.duplicated"}`, message: "referenceData.error.orderable.duplicated"},
		{status: http.StatusTooManyRequests, retryable: true},
		{status: http.StatusInternalServerError, body: "boom", retryable: true, message: "boom"},
		{status: http.StatusBadGateway, retryable: true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, failures := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := c.Do(context.Background(), Request{Operation: "op", Method: http.MethodGet, Path: "/x"}, nil)

			var ext *shared.ExternalServiceError
			require.ErrorAs(t, err, &ext)
			assert.ErrorIs(t, err, shared.ErrExternalService)
			assert.Equal(t, "referencedata", ext.Service)
			assert.Equal(t, tt.status, ext.StatusCode)
			assert.Equal(t, tt.retryable, ext.Retryable)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
			assert.Equal(t, []string{"referencedata/op"}, failures.calls)
		})
	}
}

func TestDo_TimeoutIsRetryable(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	err := c.Do(context.Background(), Request{Operation: "slow", Method: http.MethodGet, Path: "/slow"}, nil)

	var ext *shared.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.True(t, ext.Retryable)
	assert.Zero(t, ext.StatusCode)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDo_CancelledIsNotRetryable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Do(ctx, Request{Operation: "op", Method: http.MethodGet, Path: "/"}, nil)

	var ext *shared.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.False(t, ext.Retryable)
}

func TestDo_UndecodableBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	var out map[string]any
	err := c.Do(context.Background(), Request{Operation: "op", Method: http.MethodGet, Path: "/"}, &out)

	assert.ErrorIs(t, err, shared.ErrExternalService)
}

func TestList_DecodesArrayAndPage(t *testing.T) {
	var fromArray List[int]
	require.NoError(t, json.Unmarshal([]byte(`[1,2,3]`), &fromArray))
	assert.Equal(t, List[int]{1, 2, 3}, fromArray)

	var fromPage List[int]
	require.NoError(t, json.Unmarshal([]byte(`{"content":[4,5],"totalElements":2}`), &fromPage))
	assert.Equal(t, List[int]{4, 5}, fromPage)

	var empty List[int]
	require.NoError(t, json.Unmarshal([]byte(`{"content":[]}`), &empty))
	assert.Empty(t, empty)
}
