package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestHealthEndpoint(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestZipEndpoint(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodGet, "/v1/fmr/zip/30301", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "safmr", body["source"])
	assert.Equal(t, true, body["safmr_mandated"])
	assert.Equal(t, float64(2025), body["year"])

	// 3BR effective rent is the market figure, which is below the SAFMR.
	effective := body["effective_rent"].(map[string]any)
	assert.Equal(t, float64(1600), effective["bedroom3"])
}

func TestZipEndpoint_NotFound(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodGet, "/v1/fmr/zip/99999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestZipHistoryEndpoint(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodGet, "/v1/fmr/zip/30301/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	history := body["history"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, float64(2025), history[0].(map[string]any)["year"])
}

func TestCountyEndpoint(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodGet, "/v1/fmr/county/13121", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "county", body["source"])
	assert.NotEmpty(t, body["zip_fmr_data"])
}

func TestCityEndpoint(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodGet, "/v1/fmr/city?name=atlanta&state=ga", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "atlanta, GA", body["query"])
	assert.NotEmpty(t, body["zip_fmr_data"])
}

func TestCityEndpoint_NotFound(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodGet, "/v1/fmr/city?name=nowhere&state=zz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCountyByNameEndpoint_MissingParams(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodGet, "/v1/fmr/county?name=fulton", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddressEndpoint_NoGeocoder(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodGet, "/v1/fmr/address?q=123+Main+St", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAddressEndpoint_MissingQuery(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodGet, "/v1/fmr/address", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalcCashFlowEndpoint(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodPost, "/v1/calc/cashflow",
		`{"zip":"30301","bedrooms":3,"purchase_price":150000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "cashflow", body["mode"])
	assert.Equal(t, float64(150000), body["purchase_price"])
	// 20% down from the default assumptions.
	assert.Equal(t, float64(30000), body["down_payment_dollars"])
}

func TestCalcCashFlowEndpoint_StudioBedrooms(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodPost, "/v1/calc/cashflow",
		`{"zip":"30301","bedrooms":0,"purchase_price":150000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// bedrooms:0 resolves the studio rent (1100), not the 3BR default
	// (1600). With 20% down the mortgage and taxes are fixed, so the cash
	// flow gap between the two is visible in the result.
	body := decodeBody(t, rec)
	assert.Equal(t, "cashflow", body["mode"])

	recDefault := doRequest(t, r, http.MethodPost, "/v1/calc/cashflow",
		`{"zip":"30301","purchase_price":150000}`)
	require.Equal(t, http.StatusOK, recDefault.Code)
	defBody := decodeBody(t, recDefault)

	studioCF := body["monthly_cash_flow"].(float64)
	defaultCF := defBody["monthly_cash_flow"].(float64)
	assert.Less(t, studioCF, defaultCF)
}

func TestCalcMaxPriceEndpoint_Infeasible(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodPost, "/v1/calc/maxprice",
		`{"rent_monthly":100,"desired_cash_flow_monthly":5000,"down_payment_pct":20}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["feasible"])
}

func TestCalcEndpoint_BadBody(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodPost, "/v1/calc/cashflow", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalcEndpoint_UnknownZip(t *testing.T) {
	r := newRouter(newTestEnv())
	rec := doRequest(t, r, http.MethodPost, "/v1/calc/cashflow",
		`{"zip":"99999","purchase_price":150000}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
