/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Forecast, upload, simulate and debit-order endpoints end to end
  (CSV files on disk -> service -> JSON)
- Error to status code mapping
- Cache pruning endpoint
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/analytics"
	"github.com/warp/cashflow-engine/cashflow"
	"github.com/warp/cashflow-engine/cashflow/store"
	"github.com/warp/cashflow-engine/ingest"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const header = "Date,Description,Debit,Credit,Balance,Category,Counterparty\n"

var today = cashflow.NewDate(2025, time.June, 28)

type testEnv struct {
	router *chi.Mux
	dir    string
	cache  *store.Memory
}

// salesCSV is 20 days of June income with a 5000 opening balance.
func salesCSV() string {
	var b strings.Builder
	b.WriteString(header)
	for d := 1; d <= 20; d++ {
		balance := ""
		if d == 1 {
			balance = "5000"
		}
		fmt.Fprintf(&b, "2025-06-%02d,Card sales,,\"1,000.00\",%s,Sales,Walk-in\n", d, balance)
	}
	b.WriteString("2025-06-05,Monthly rent,R 3 000,,,Rent,Landlord\n")
	return b.String()
}

func gymCSV() string {
	var b strings.Builder
	b.WriteString(header)
	for m := 1; m <= 6; m++ {
		fmt.Fprintf(&b, "2025-%02d-01,Gym Subscription,1200,,,Fitness,\n", m)
	}
	return b.String()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "statement_CPT02_2025-06.csv", salesCSV())
	writeFile(t, dir, "statement_JHB01_2025.csv", gymCSV())
	writeFile(t, dir, "statement_BAD01_2025.csv", "Date,Description\n2025-06-01,no amounts\n")

	cache := store.NewMemory()
	svc := analytics.New(analytics.Deps{
		Loader: ingest.NewFileLoader(dir, nil, zerolog.Nop()),
		Cache:  cache,
		Clock:  cashflow.FixedClock{Day: today},
		Log:    zerolog.Nop(),
	})
	h := NewHandler(svc, 24*time.Hour)
	return &testEnv{router: NewRouter(h, zerolog.Nop()), dir: dir, cache: cache}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func intPtr(n int) *int { return &n }

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

// =============================================================================
// FORECAST
// =============================================================================

func TestForecast_Success(t *testing.T) {
	// GIVEN: 20 days of statements for CPT02
	env := newTestEnv(t)

	// WHEN: Forecasting with the default horizon
	rec := env.do(t, http.MethodPost, "/api/forecast", ForecastRequest{Branch: "CPT02"})

	// THEN: Full history, 30 forecast days starting the day after, drivers
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ForecastResponse](t, rec)

	assert.Equal(t, "CPT02", resp.Branch)
	require.Len(t, resp.History, 20)
	assert.Equal(t, cashflow.NewDate(2025, time.June, 1), resp.History[0].Date)
	assert.Equal(t, 6000.0, resp.History[0].Cash)
	assert.Equal(t, -2000.0, resp.History[4].DailyChange)
	assert.Equal(t, 22000.0, resp.History[19].Cash)

	require.Len(t, resp.Forecast, 30)
	assert.Equal(t, cashflow.NewDate(2025, time.June, 21), resp.Forecast[0].Date)
	assert.Equal(t, "holt", string(resp.Model))
	assert.NotNil(t, resp.Fallbacks)

	require.NotEmpty(t, resp.Drivers.TopOutflowsByCategory)
	assert.Equal(t, DriverDTO{Label: "Rent", Amount: -3000}, resp.Drivers.TopOutflowsByCategory[0])
	assert.False(t, resp.Cache.Hit)
	assert.NotEmpty(t, resp.Cache.Fingerprint)
}

func TestForecast_SecondRequestHitsCache(t *testing.T) {
	env := newTestEnv(t)

	first := decode[ForecastResponse](t, env.do(t, http.MethodPost, "/api/forecast", ForecastRequest{Branch: "CPT02"}))
	second := decode[ForecastResponse](t, env.do(t, http.MethodPost, "/api/forecast", ForecastRequest{Branch: "CPT02"}))

	assert.False(t, first.Cache.Hit)
	assert.True(t, second.Cache.Hit)
	assert.Equal(t, first.History, second.History)
	assert.Equal(t, first.Forecast, second.Forecast)
	assert.Equal(t, 1, env.cache.Writes())
}

func TestForecast_FilteredByDate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/forecast", ForecastRequest{
		Branch:      "CPT02",
		FromDate:    cashflow.NewDate(2025, time.June, 10),
		ToDate:      cashflow.NewDate(2025, time.June, 15),
		HorizonDays: intPtr(5),
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ForecastResponse](t, rec)
	assert.Len(t, resp.History, 6)
	assert.Len(t, resp.Forecast, 5)
	assert.Empty(t, resp.Cache.Fingerprint)
	assert.Equal(t, 0, env.cache.Writes())
}

func TestForecast_ExplicitFiles(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.dir, "extra.csv", salesCSV())

	rec := env.do(t, http.MethodPost, "/api/forecast", ForecastRequest{
		Branch: "ANY",
		Files:  []string{filepath.Join(env.dir, "extra.csv")},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[ForecastResponse](t, rec).History, 20)
}

func TestForecast_StatusMapping(t *testing.T) {
	env := newTestEnv(t)
	missing := filepath.Join(env.dir, "missing.csv")

	tests := []struct {
		name   string
		req    ForecastRequest
		status int
		detail string
	}{
		{"missing branch", ForecastRequest{}, http.StatusBadRequest, "branch is required"},
		{"horizon too small", ForecastRequest{Branch: "CPT02", HorizonDays: intPtr(0)}, http.StatusBadRequest, "horizon_days"},
		{"horizon too large", ForecastRequest{Branch: "CPT02", HorizonDays: intPtr(121)}, http.StatusBadRequest, "horizon_days"},
		{"unknown model", ForecastRequest{Branch: "CPT02", Model: "prophet"}, http.StatusBadRequest, "prophet"},
		{"no statements", ForecastRequest{Branch: "DBN09"}, http.StatusNotFound, "statement_DBN09_*.csv"},
		{"missing file", ForecastRequest{Branch: "CPT02", Files: []string{missing}}, http.StatusBadRequest, "missing.csv"},
		{"schema", ForecastRequest{Branch: "BAD01"}, http.StatusBadRequest, "credit or debit"},
		{"invalid branch", ForecastRequest{Branch: "CPT*"}, http.StatusBadRequest, "invalid branch"},
		{
			"empty after filter",
			ForecastRequest{Branch: "CPT02", FromDate: cashflow.NewDate(2030, time.January, 1)},
			http.StatusBadRequest, "no rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/forecast", tt.req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.Contains(t, resp.Details, tt.detail)
		})
	}
}

func TestForecast_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/forecast", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// UPLOAD
// =============================================================================

func TestForecastUpload(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("branch", "UPL01"))
	require.NoError(t, mw.WriteField("horizon_days", "7"))
	part, err := mw.CreateFormFile("files", "june.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(salesCSV()))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/forecast/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ForecastResponse](t, rec)
	assert.Equal(t, "UPL01", resp.Branch)
	assert.Len(t, resp.History, 20)
	assert.Len(t, resp.Forecast, 7)
	assert.False(t, resp.Cache.Hit)
	assert.Equal(t, 0, env.cache.Writes(), "uploads are never cached")
}

func TestForecastUpload_RequiresFiles(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("branch", "UPL01"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/forecast/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastUpload_InvalidFields(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  string
	}{
		{"malformed holidays", "holidays", "maybe", "Invalid holidays: maybe"},
		{"malformed horizon", "horizon_days", "ten", "Invalid horizon_days: ten"},
		{"malformed from_date", "from_date", "2025-13-01", "Invalid from_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: An otherwise valid upload with one malformed field
			env := newTestEnv(t)

			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			require.NoError(t, mw.WriteField("branch", "UPL01"))
			require.NoError(t, mw.WriteField(tt.field, tt.value))
			part, err := mw.CreateFormFile("files", "june.csv")
			require.NoError(t, err)
			_, err = part.Write([]byte(salesCSV()))
			require.NoError(t, err)
			require.NoError(t, mw.Close())

			// WHEN: Posted
			req := httptest.NewRequest(http.MethodPost, "/api/forecast/upload", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)

			// THEN: Rejected before any forecast runs
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode[ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// SIMULATE
// =============================================================================

func TestSimulate_Success(t *testing.T) {
	env := newTestEnv(t)
	hireDate := cashflow.NewDate(2025, time.June, 25)

	rec := env.do(t, http.MethodPost, "/api/simulate", SimulateRequest{
		Branch:      "CPT02",
		HorizonDays: intPtr(10),
		Adjustments: []AdjustmentDTO{{Date: hireDate, Delta: decimalOf(t, "-1500"), Label: "new hire"}},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SimulateResponse](t, rec)
	require.Len(t, resp.ForecastBase, 10)
	require.Len(t, resp.ForecastAdjusted, 10)
	require.Len(t, resp.AppliedAdjustments, 1)
	assert.Equal(t, -1500.0, resp.AppliedAdjustments[0].Delta)

	for i := range resp.ForecastBase {
		want := resp.ForecastBase[i].Cash
		if !resp.ForecastBase[i].Date.Before(hireDate) {
			want -= 1500
		}
		assert.InDelta(t, want, resp.ForecastAdjusted[i].Cash, 1e-6)
	}
}

func TestSimulate_NoOverlapIs422(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/simulate", SimulateRequest{
		Branch:      "CPT02",
		HorizonDays: intPtr(10),
		Adjustments: []AdjustmentDTO{{Date: cashflow.NewDate(2026, time.January, 1), Delta: decimalOf(t, "100")}},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	resp := decode[ErrorResponse](t, rec)
	require.NotNil(t, resp.HorizonStart)
	require.NotNil(t, resp.HorizonEnd)
	assert.Equal(t, cashflow.NewDate(2025, time.June, 21), *resp.HorizonStart)
	assert.Equal(t, cashflow.NewDate(2025, time.June, 30), *resp.HorizonEnd)
}

// =============================================================================
// DEBIT ORDERS
// =============================================================================

func TestDebitOrders(t *testing.T) {
	// GIVEN: A gym debit on the 1st of each month, today is 28 June
	env := newTestEnv(t)

	// WHEN: Asking for debits due in the default window
	rec := env.do(t, http.MethodPost, "/api/debit-orders", DebitOrderRequest{Branch: "JHB01"})

	// THEN: One monthly item due 1 July
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[DebitOrderResponse](t, rec)
	assert.Equal(t, today, resp.Today)
	assert.Equal(t, 7, resp.DueWindowDays)
	require.Len(t, resp.Items, 1)

	item := resp.Items[0]
	assert.Equal(t, "Gym Subscription", item.Name)
	assert.Equal(t, "monthly", item.Cadence)
	assert.Equal(t, 1200.0, item.TypicalAmount)
	assert.Equal(t, cashflow.NewDate(2025, time.July, 1), item.NextDue)
	assert.Equal(t, cashflow.NewDate(2025, time.June, 1), item.LastSeen)
	assert.Equal(t, 6, item.Occurrences)
	assert.Equal(t, "Fitness", item.Category)
}

func TestDebitOrders_WindowOverridesAndValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/debit-orders", DebitOrderRequest{Branch: "JHB01", DueWindowDays: intPtr(0)})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[DebitOrderResponse](t, rec)
	assert.Empty(t, resp.Items)
	assert.NotNil(t, resp.Items)

	rec = env.do(t, http.MethodPost, "/api/debit-orders", DebitOrderRequest{Branch: "JHB01", LookbackMonths: intPtr(0)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/debit-orders", DebitOrderRequest{Branch: "JHB01", DueWindowDays: intPtr(-1)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/debit-orders", DebitOrderRequest{Branch: "NONE1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestPruneCache(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/forecast", ForecastRequest{Branch: "CPT02"})

	rec := env.do(t, http.MethodDelete, "/api/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[PruneResponse](t, rec)
	assert.Equal(t, 0, resp.Removed, "newest entry per branch is kept")
	assert.Equal(t, "24h0m0s", resp.Retention)

	rec = env.do(t, http.MethodDelete, "/api/cache?retention=1h", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1h0m0s", decode[PruneResponse](t, rec).Retention)

	rec = env.do(t, http.MethodDelete, "/api/cache?retention=forever", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
