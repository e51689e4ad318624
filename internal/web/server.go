// =============================================================================
// Trial Balance Reporter - Web Server
// =============================================================================
//
// Serves the report page, the workbook downloads and a small JSON API.
//
// ROUTES:
//   GET  /                    report page (selection form and tables)
//   GET  /download/balances   balance detail workbook
//   GET  /download/summary    summary workbook (template + category totals)
//   GET  /api/options         selectable years, months and companies
//   GET  /api/report          report as JSON
//   POST /api/cache/purge     drop cached source spreadsheets (?url= drops one)
//   GET  /healthz             liveness
//
// SELECTION:
//   year, month and company are query parameters. A missing parameter
//   defaults to the first option of its list, so "/" shows the latest year.
//
// =============================================================================

package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/ginjaninja78/trial-balance/internal/report"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 15 * time.Second

// Reporter builds reports. *report.Builder implements it.
type Reporter interface {
	Run(ctx context.Context, sel types.Selection) (*report.Result, error)
	Options(ctx context.Context) (types.Options, error)
}

// SourceCache is the purgeable source cache. *source.Fetcher implements it.
type SourceCache interface {
	Purge()
	Invalidate(url string) bool
	Cached() int
}

// Server is the HTTP front end.
type Server struct {
	reporter Reporter
	cache    SourceCache
	log      *logrus.Logger
	engine   *gin.Engine
}

// NewServer creates the server and registers its routes.
func NewServer(reporter Reporter, cache SourceCache, cfg config.Server, log *logrus.Logger) (*Server, error) {
	page, err := template.New("index.html").
		Funcs(template.FuncMap{"money": money}).
		ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		reporter: reporter,
		cache:    cache,
		log:      log,
		engine:   gin.New(),
	}

	s.engine.SetHTMLTemplate(page)
	s.engine.Use(requestID())
	s.engine.Use(requestLogger(log))
	s.engine.Use(gin.Recovery())
	s.engine.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	s.engine.GET("/healthz", s.health)
	s.engine.GET("/", s.index)
	s.engine.GET("/download/balances", s.downloadBalances)
	s.engine.GET("/download/summary", s.downloadSummary)

	api := s.engine.Group("/api")
	api.GET("/options", s.options)
	api.GET("/report", s.report)
	api.POST("/cache/purge", s.purgeCache)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.WithField("addr", addr).Info("server listening")

	select {
	case <-ctx.Done():
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// corsConfig allows every origin when the list contains "*".
func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowHeaders(requestIDHeader)
	cfg.AddExposeHeaders(requestIDHeader, "Content-Disposition")
	return cfg
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
