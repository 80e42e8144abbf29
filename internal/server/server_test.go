package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emipredict/internal/history"
	"emipredict/internal/predict"
	"emipredict/models"
)

type stubOracle struct {
	delay       float64
	uncertainty float64
	err         error
}

func (o *stubOracle) Predict(_ context.Context, _ models.FeatureVector) (float64, float64, error) {
	if o.err != nil {
		return 0, 0, o.err
	}
	return o.delay, o.uncertainty, nil
}

func (o *stubOracle) Ready(_ context.Context) bool { return true }

func testServer(t *testing.T, oracle models.RegressionOracle) *Server {
	t.Helper()

	store := history.NewMemory()
	paid1 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	paid2 := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	store.Add("CUST_0001",
		models.PaymentRecord{DemandDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), PaymentDate: &paid1, Amount: 15000},
		models.PaymentRecord{DemandDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), PaymentDate: &paid2, Amount: 15000},
	)

	engine := predict.New(store, oracle, nil, predict.Options{})
	return New(engine, store)
}

func postJSON(t *testing.T, srv *Server, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return out
}

func TestHealth(t *testing.T) {
	srv := testServer(t, &stubOracle{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["model_loaded"])
}

func TestPredictEndpoint(t *testing.T) {
	srv := testServer(t, &stubOracle{delay: 7, uncertainty: 0.25})

	resp, body := postJSON(t, srv, "/api/predict", map[string]any{"customer_id": "CUST_0001"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	prediction, ok := body["prediction"].(map[string]any)
	require.True(t, ok, "missing prediction object: %v", body)
	assert.Equal(t, "CUST_0001", prediction["customer_id"])
	assert.Equal(t, "2024-02-10", prediction["last_payment_date"])
	assert.InDelta(t, 6.5, prediction["average_delay_days"], 1e-9)
	assert.InDelta(t, 0.8, prediction["confidence_score"], 1e-9)
	assert.Equal(t, "medium", prediction["confidence_band"])
	assert.NotContains(t, prediction, "explanation")
}

func TestPredictEndpointValidation(t *testing.T) {
	srv := testServer(t, &stubOracle{})

	resp, body := postJSON(t, srv, "/api/predict", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestPredictEndpointNotFound(t *testing.T) {
	srv := testServer(t, &stubOracle{})

	resp, _ := postJSON(t, srv, "/api/predict", map[string]any{"customer_id": "CUST_9999"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPredictEndpointOracleDown(t *testing.T) {
	srv := testServer(t, &stubOracle{err: fmt.Errorf("timeout: %w", models.ErrOracleUnavailable)})

	resp, _ := postJSON(t, srv, "/api/predict", map[string]any{"customer_id": "CUST_0001"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestBatchEndpoint(t *testing.T) {
	srv := testServer(t, &stubOracle{delay: 3, uncertainty: 0.1})

	resp, body := postJSON(t, srv, "/api/predict/batch", map[string]any{
		"customer_ids": []string{"CUST_0001", "CUST_9999"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["count"])

	failed, ok := body["failed"].(map[string]any)
	require.True(t, ok, "missing failed map: %v", body)
	assert.Equal(t, "customer not found", failed["CUST_9999"])
}

func TestCustomersEndpoint(t *testing.T) {
	srv := testServer(t, &stubOracle{})

	req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total"])

	customers, ok := body["customers"].([]any)
	require.True(t, ok)
	first := customers[0].(map[string]any)
	assert.Equal(t, "CUST_0001", first["customer_id"])
	assert.EqualValues(t, 2, first["total_payments"])
	assert.Equal(t, "2024-01-05", first["first_payment_date"])
	assert.Equal(t, "2024-02-10", first["last_payment_date"])
}

func TestCustomerHistoryEndpoint(t *testing.T) {
	srv := testServer(t, &stubOracle{})

	req := httptest.NewRequest(http.MethodGet, "/api/customer/CUST_0001/history", nil)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["total_payments"])

	req = httptest.NewRequest(http.MethodGet, "/api/customer/CUST_9999/history", nil)
	resp, err = srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
