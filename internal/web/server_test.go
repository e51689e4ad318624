package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/ginjaninja78/trial-balance/internal/ledger"
	"github.com/ginjaninja78/trial-balance/internal/logging"
	"github.com/ginjaninja78/trial-balance/internal/report"
	"github.com/ginjaninja78/trial-balance/internal/source"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/ginjaninja78/trial-balance/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeReporter builds reports from an in-memory ledger.
type fakeReporter struct {
	ds       *ledger.Dataset
	err      error
	lastSel  types.Selection
	runCalls int
}

func newFakeReporter() *fakeReporter {
	date := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}
	amount := func(n int64) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: decimal.NewFromInt(n), Valid: true}
	}
	rows := []types.LedgerRow{
		{Date: date("2024-01-15"), Company: "ESGARI", Account: 410000001, AccountValid: true, Credit: amount(1000)},
		{Date: date("2024-02-01"), Company: "ESGARI", Account: 510000001, AccountValid: true, Debit: amount(50)},
		{Date: date("2023-12-01"), Company: "OTRA", Account: 110000001, AccountValid: true, Debit: amount(10)},
	}
	mappings := []types.AccountMapping{
		{Account: 410000001, Name: "Ventas", Category: "Ingresos"},
		{Account: 110000001, Name: "Caja", Category: "Activo"},
	}
	return &fakeReporter{ds: ledger.Prepare(rows, mappings, ledger.NewCalendar(config.DefaultMonthNames))}
}

func (f *fakeReporter) Options(context.Context) (types.Options, error) {
	if f.err != nil {
		return types.Options{}, f.err
	}
	return f.ds.Options(), nil
}

func (f *fakeReporter) Run(_ context.Context, sel types.Selection) (*report.Result, error) {
	f.runCalls++
	f.lastSel = sel
	if f.err != nil {
		return nil, f.err
	}
	rep, err := ledger.Build(f.ds, sel, ledger.Policy{
		Classification: config.Default().Classification,
		OpeningScope:   config.ScopeAll,
	})
	if err != nil {
		return nil, err
	}
	issues := validation.NewResult()
	issues.Add(validation.CheckUnmapped(rep.Unmapped)...)
	issues.Add(validation.InvalidValue(validation.KindInvalidDate, "ledger", 9, "DEFAULT_EFFECTIVE_DATE", "ayer"))
	return &report.Result{
		Report:   rep,
		Issues:   issues,
		Balances: report.File{Name: "saldos.xlsx", Data: []byte("balances")},
		Summary:  report.File{Name: "balance_enero_2024.xlsx", Data: []byte("summary")},
	}, nil
}

type fakeCache struct {
	purged      int
	invalidated []string
}

func (f *fakeCache) Purge()      { f.purged++ }
func (f *fakeCache) Cached() int { return 3 }

func (f *fakeCache) Invalidate(url string) bool {
	f.invalidated = append(f.invalidated, url)
	return url == "http://sheets.test/ledger.xlsx"
}

func newTestServer(t *testing.T, rep Reporter, cache SourceCache) *Server {
	t.Helper()
	s, err := NewServer(rep, cache, config.Server{AllowedOrigins: []string{"*"}}, logging.Discard())
	require.NoError(t, err)
	return s
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestIndex(t *testing.T) {
	rep := newFakeReporter()
	s := newTestServer(t, rep, &fakeCache{})

	w := get(s, "/")
	require.Equal(t, http.StatusOK, w.Code)

	// Defaults are the first option of each list.
	assert.Equal(t, types.Selection{Year: 2024, Month: "enero", Company: "ESGARI"}, rep.lastSel)

	body := w.Body.String()
	assert.Contains(t, body, "Balance de comprobación ESGARI. enero de 2024")
	assert.Contains(t, body, "Ventas")
	assert.Contains(t, body, "-1000.00")
	assert.Contains(t, body, "110000001", "opening-only account is listed")
	assert.Contains(t, body, "invalid_date: 1")
	assert.Contains(t, body, "/download/summary?company=ESGARI&amp;month=enero&amp;year=2024")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestIndexUnmappedWarning(t *testing.T) {
	s := newTestServer(t, newFakeReporter(), nil)

	w := get(s, "/?year=2024&month=febrero&company=ESGARI")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cuentas sin categoría en el mapeo")
	assert.Contains(t, w.Body.String(), "510000001")
}

func TestIndexErrors(t *testing.T) {
	t.Run("unknown month", func(t *testing.T) {
		s := newTestServer(t, newFakeReporter(), nil)
		w := get(s, "/?month=january")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown month")
	})

	t.Run("year out of range", func(t *testing.T) {
		s := newTestServer(t, newFakeReporter(), nil)
		w := get(s, "/?year=12")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing column", func(t *testing.T) {
		rep := newFakeReporter()
		rep.err = fmt.Errorf("failed to decode ledger: %w", fmt.Errorf("ledger: %w: SEGMENT5", ledger.ErrMissingColumn))
		s := newTestServer(t, rep, nil)
		w := get(s, "/")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "missing column: SEGMENT5")
	})

	t.Run("upstream failure", func(t *testing.T) {
		rep := newFakeReporter()
		rep.err = &source.StatusError{URL: "http://x", StatusCode: 500}
		s := newTestServer(t, rep, nil)
		w := get(s, "/")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestDownloads(t *testing.T) {
	s := newTestServer(t, newFakeReporter(), nil)

	w := get(s, "/download/summary?year=2024&month=enero&company=ESGARI")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.MimeXLSX, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="balance_enero_2024.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "summary", w.Body.String())

	w = get(s, "/download/balances")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "balances", w.Body.String())

	w = get(s, "/download/balances?year=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI(t *testing.T) {
	s := newTestServer(t, newFakeReporter(), nil)

	t.Run("options", func(t *testing.T) {
		w := get(s, "/api/options")
		require.Equal(t, http.StatusOK, w.Code)

		var opts types.Options
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opts))
		assert.Equal(t, []int{2024, 2023}, opts.Years)
		assert.Equal(t, []string{"enero", "febrero", "diciembre"}, opts.Months)
		assert.Equal(t, []string{"ESGARI", "OTRA"}, opts.Companies)
	})

	t.Run("report", func(t *testing.T) {
		w := get(s, "/api/report?year=2024&month=enero&company=ESGARI")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Report struct {
				Balances []struct {
					Account        int64  `json:"account"`
					ClosingBalance string `json:"closing_balance"`
				} `json:"balances"`
				Net struct {
					Income string `json:"income"`
				} `json:"net"`
			} `json:"report"`
			Counts []issueCount       `json:"issue_counts"`
			Files  map[string]string `json:"files"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Report.Balances, 2)
		assert.Equal(t, int64(110000001), body.Report.Balances[0].Account)
		assert.Equal(t, "-1000", body.Report.Balances[1].ClosingBalance)
		assert.Equal(t, "1000", body.Report.Net.Income)
		assert.Equal(t, "balance_enero_2024.xlsx", body.Files["summary"])
		assert.NotEmpty(t, body.Counts)
	})

	t.Run("unknown route", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(s, "/api/nope").Code)
	})
}

func TestAPIUpstreamFailure(t *testing.T) {
	rep := newFakeReporter()
	rep.err = errors.New("failed to fetch sources: boom")
	s := newTestServer(t, rep, nil)

	w := get(s, "/api/report")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}

func TestAPINoData(t *testing.T) {
	rep := &fakeReporter{ds: ledger.Prepare(nil, nil, ledger.NewCalendar(config.DefaultMonthNames))}
	s := newTestServer(t, rep, nil)

	w := get(s, "/api/report")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, rep.runCalls)
}

func TestPurgeAndHealth(t *testing.T) {
	cache := &fakeCache{}
	s := newTestServer(t, newFakeReporter(), cache)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cache/purge", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"purged": 3}`, w.Body.String())
	assert.Equal(t, 1, cache.purged)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cache/purge?url=http://sheets.test/ledger.xlsx", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"purged": 1}`, w.Body.String())

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cache/purge?url=http://sheets.test/other.xlsx", nil))
	assert.JSONEq(t, `{"purged": 0}`, w.Body.String())
	assert.Equal(t, []string{"http://sheets.test/ledger.xlsx", "http://sheets.test/other.xlsx"}, cache.invalidated)
	assert.Equal(t, 1, cache.purged)

	w = get(s, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok", "cached_sources": 3}`, w.Body.String())
}

func TestRequestIDPropagates(t *testing.T) {
	s := newTestServer(t, newFakeReporter(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestListenAndServeShutsDown(t *testing.T) {
	s := newTestServer(t, newFakeReporter(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
