package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ginjaninja78/trial-balance/internal/ledger"
	"github.com/ginjaninja78/trial-balance/internal/report"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/ginjaninja78/trial-balance/internal/validation"
	"github.com/sirupsen/logrus"
)

// errNoData is returned when the ledger has nothing to select.
var errNoData = errors.New("ledger has no dated rows to report on")

// issueCount is one line of the issue summary.
type issueCount struct {
	Kind  validation.Kind `json:"kind"`
	Count int             `json:"count"`
}

// pageData is rendered by index.html.
type pageData struct {
	Options     types.Options
	Selection   types.Selection
	Result      *report.Result
	IssueCounts []issueCount
	BalancesURL template.URL
	SummaryURL  template.URL
	Error       string
}

// reportResponse is the /api/report body.
type reportResponse struct {
	Report *ledger.Report      `json:"report"`
	Issues []*validation.Issue `json:"issues"`
	Counts []issueCount        `json:"issue_counts"`
	Stats  report.Stats        `json:"stats"`
	Files  map[string]string   `json:"files"`
}

// =============================================================================
// PAGES
// =============================================================================

func (s *Server) index(c *gin.Context) {
	log := logEntry(c, s.log)
	data := pageData{}

	opts, err := s.reporter.Options(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("failed to load options")
		data.Error = err.Error()
		c.HTML(statusFor(err), "index.html", data)
		return
	}
	data.Options = opts

	sel, err := selection(c, opts)
	if err != nil {
		data.Error = err.Error()
		c.HTML(statusFor(err), "index.html", data)
		return
	}
	data.Selection = sel

	res, err := s.reporter.Run(c.Request.Context(), sel)
	if err != nil {
		log.WithError(err).Error("failed to build report")
		data.Error = err.Error()
		c.HTML(statusFor(err), "index.html", data)
		return
	}

	data.Selection = res.Report.Selection
	q := query(res.Report.Selection)
	data.Result = res
	data.IssueCounts = coercionCounts(res.Issues)
	data.BalancesURL = template.URL("/download/balances?" + q)
	data.SummaryURL = template.URL("/download/summary?" + q)

	c.HTML(http.StatusOK, "index.html", data)
}

// =============================================================================
// DOWNLOADS
// =============================================================================

func (s *Server) downloadBalances(c *gin.Context) {
	s.download(c, func(r *report.Result) report.File { return r.Balances })
}

func (s *Server) downloadSummary(c *gin.Context) {
	s.download(c, func(r *report.Result) report.File { return r.Summary })
}

func (s *Server) download(c *gin.Context, pick func(*report.Result) report.File) {
	res, ok := s.run(c)
	if !ok {
		return
	}
	file := pick(res)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, report.MimeXLSX, file.Data)
}

// =============================================================================
// JSON API
// =============================================================================

func (s *Server) options(c *gin.Context) {
	opts, err := s.reporter.Options(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (s *Server) report(c *gin.Context) {
	res, ok := s.run(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reportResponse{
		Report: res.Report,
		Issues: res.Issues.Issues,
		Counts: counts(res.Issues),
		Stats:  res.Stats,
		Files: map[string]string{
			"balances": res.Balances.Name,
			"summary":  res.Summary.Name,
		},
	})
}

func (s *Server) purgeCache(c *gin.Context) {
	if s.cache == nil {
		c.JSON(http.StatusOK, gin.H{"purged": 0})
		return
	}
	if location := c.Query("url"); location != "" {
		n := 0
		if s.cache.Invalidate(location) {
			n = 1
		}
		logEntry(c, s.log).WithFields(logrus.Fields{"url": location, "purged": n}).Info("source invalidated on request")
		c.JSON(http.StatusOK, gin.H{"purged": n})
		return
	}

	n := s.cache.Cached()
	s.cache.Purge()
	logEntry(c, s.log).WithField("purged", n).Info("source cache purged on request")
	c.JSON(http.StatusOK, gin.H{"purged": n})
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.cache != nil {
		body["cached_sources"] = s.cache.Cached()
	}
	c.JSON(http.StatusOK, body)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// run resolves the selection and builds the report, writing an error
// response on failure.
func (s *Server) run(c *gin.Context) (*report.Result, bool) {
	ctx := c.Request.Context()

	opts, err := s.reporter.Options(ctx)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	sel, err := selection(c, opts)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	res, err := s.reporter.Run(ctx, sel)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return res, true
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

// badRequest marks a selection the caller got wrong.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

// selection reads year, month and company from the query string, defaulting
// each to the first option.
func selection(c *gin.Context, opts types.Options) (types.Selection, error) {
	var sel types.Selection
	if err := c.ShouldBindQuery(&sel); err != nil {
		return sel, badRequest{fmt.Errorf("invalid selection: %w", err)}
	}

	if sel.Year == 0 {
		if len(opts.Years) == 0 {
			return sel, errNoData
		}
		sel.Year = opts.Years[0]
	}
	if sel.Month == "" {
		if len(opts.Months) == 0 {
			return sel, errNoData
		}
		sel.Month = opts.Months[0]
	}
	if sel.Company == "" && len(opts.Companies) > 0 {
		sel.Company = opts.Companies[0]
	}

	return sel, nil
}

// statusFor maps an error to an HTTP status. A source missing a configured
// column is a configuration problem on this side; other failures come from
// the sources.
func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br), errors.Is(err, ledger.ErrUnknownMonth):
		return http.StatusBadRequest
	case errors.Is(err, errNoData):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrMissingColumn):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusBadGateway
	}
}

func query(sel types.Selection) string {
	v := url.Values{}
	v.Set("year", strconv.Itoa(sel.Year))
	v.Set("month", sel.Month)
	v.Set("company", sel.Company)
	return v.Encode()
}

// counts lists issue counts by kind, sorted by kind.
func counts(r *validation.Result) []issueCount {
	out := make([]issueCount, 0)
	for kind, n := range r.Counts() {
		out = append(out, issueCount{Kind: kind, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// coercionCounts is counts without unmapped accounts, which the page lists
// separately.
func coercionCounts(r *validation.Result) []issueCount {
	all := counts(r)
	out := all[:0]
	for _, c := range all {
		if c.Kind != validation.KindUnmappedAccount {
			out = append(out, c)
		}
	}
	return out
}
