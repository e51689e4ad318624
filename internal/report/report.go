// =============================================================================
// Trial Balance Reporter - Report Builder
// =============================================================================
//
// This module orchestrates the reporting pipeline for one selection, from
// fetching the source spreadsheets to rendering the output workbooks.
//
// REPORT PIPELINE:
//   1. Fetch the ledger, mapping and template workbooks (concurrently)
//   2. Parse the ledger and mapping into tables
//   3. Apply the configured cleaning rules
//   4. Decode typed ledger rows and account mappings
//   5. Join the mapping onto the ledger and report unmapped accounts
//   6. Compute balances, category totals and net figures
//   7. Render the balance detail and summary workbooks
//
// CONCURRENCY:
//   A Builder holds no per-request state. Sources are cached by the
//   fetcher, and every call recomputes the report from the source bytes,
//   so one Builder serves concurrent requests.
//
// =============================================================================

package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/ginjaninja78/trial-balance/internal/csvparser"
	"github.com/ginjaninja78/trial-balance/internal/ledger"
	"github.com/ginjaninja78/trial-balance/internal/transform"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/ginjaninja78/trial-balance/internal/validation"
	"github.com/ginjaninja78/trial-balance/internal/xlsxparser"
	"github.com/ginjaninja78/trial-balance/internal/xlsxwriter"
	"github.com/ginjaninja78/trial-balance/pkg/utils"
	"github.com/sirupsen/logrus"
)

// MimeXLSX is the content type of generated workbooks.
const MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// File is a generated workbook.
type File struct {
	Name string
	Data []byte
}

// Result is the outcome of one report run.
type Result struct {
	Report *ledger.Report

	// Issues holds coercion, mapping and unmapped-account issues.
	Issues *validation.Result

	Balances File
	Summary  File

	Stats Stats
}

// Stats contains statistics about the run.
type Stats struct {
	LedgerRows  int           `json:"ledger_rows"`
	MappingRows int           `json:"mapping_rows"`
	PeriodRows  int           `json:"period_rows"`
	Accounts    int           `json:"accounts"`
	Duration    time.Duration `json:"duration"`
}

// Data is the decoded, joined source data.
type Data struct {
	Dataset     *ledger.Dataset
	Issues      *validation.Result
	LedgerRows  int
	MappingRows int

	// Template is the raw statement template, when it was requested.
	Template []byte
}

// =============================================================================
// BUILDER STRUCTURE
// =============================================================================

// Fetcher retrieves source spreadsheets. *source.Fetcher implements it.
type Fetcher interface {
	FetchAll(ctx context.Context, locations ...string) ([][]byte, error)
}

// Builder runs the reporting pipeline.
type Builder struct {
	cfg      *config.Config
	fetcher  Fetcher
	log      *logrus.Logger
	calendar ledger.Calendar
	policy   ledger.Policy

	ledgerRules  *transform.Transformer
	mappingRules *transform.Transformer
}

// New creates a Builder.
//
// RETURNS:
//   - An error if a cleaning rule in the configuration is invalid.
func New(cfg *config.Config, fetcher Fetcher, log *logrus.Logger) (*Builder, error) {
	ledgerRules, err := transform.New(cfg.Sources.Ledger.Transformations)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger transformations: %w", err)
	}
	mappingRules, err := transform.New(cfg.Sources.Mapping.Transformations)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping transformations: %w", err)
	}

	return &Builder{
		cfg:          cfg,
		fetcher:      fetcher,
		log:          log,
		calendar:     ledger.NewCalendar(cfg.MonthNames),
		policy:       ledger.PolicyFromConfig(cfg),
		ledgerRules:  ledgerRules,
		mappingRules: mappingRules,
	}, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// Options lists the selectable years, months and companies.
func (b *Builder) Options(ctx context.Context) (types.Options, error) {
	data, err := b.Load(ctx, false)
	if err != nil {
		return types.Options{}, err
	}
	return data.Dataset.Options(), nil
}

// Run builds the report and both workbooks for a selection.
//
// RETURNS:
//   - The Result. Data issues are reported in Result.Issues, not as errors.
//   - An error wrapping ledger.ErrUnknownMonth for a bad selection, or any
//     fetch, parse or render failure.
func (b *Builder) Run(ctx context.Context, sel types.Selection) (*Result, error) {
	startTime := time.Now()
	log := b.log.WithFields(logrus.Fields{
		"year":    sel.Year,
		"month":   sel.Month,
		"company": sel.Company,
	})

	// =========================================================================
	// STEPS 1-5: LOAD SOURCES
	// =========================================================================

	data, err := b.Load(ctx, true)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 6: COMPUTE BALANCES
	// =========================================================================

	rep, err := ledger.Build(data.Dataset, sel, b.policy)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"accounts":    len(rep.Balances),
		"period_rows": rep.PeriodRows,
		"unmapped":    len(rep.Unmapped),
	}).Debug("balances computed")

	// =========================================================================
	// STEP 7: RENDER WORKBOOKS
	// =========================================================================

	balances, err := xlsxwriter.WriteBalances(rep.Balances, b.cfg.Output.BalancesSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to render balances: %w", err)
	}

	summary, err := xlsxwriter.AppendSummary(data.Template, b.cfg.Output.SummarySheet, rep.Categories, rep.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to render summary: %w", err)
	}

	params := fileParams(rep.Selection)
	result := &Result{
		Report: rep,
		Issues: data.Issues,
		Balances: File{
			Name: utils.GenerateOutputFileName(b.cfg.Output.BalancesFile, params),
			Data: balances,
		},
		Summary: File{
			Name: utils.GenerateOutputFileName(b.cfg.Output.SummaryFile, params),
			Data: summary,
		},
		Stats: Stats{
			LedgerRows:  data.LedgerRows,
			MappingRows: data.MappingRows,
			PeriodRows:  rep.PeriodRows,
			Accounts:    len(rep.Balances),
			Duration:    time.Since(startTime),
		},
	}

	log.WithFields(logrus.Fields{
		"warnings": data.Issues.WarningCount,
		"duration": result.Stats.Duration.String(),
	}).Info("report built")

	return result, nil
}

// Load fetches, parses and joins the sources. The template is fetched as
// well when withTemplate is set.
func (b *Builder) Load(ctx context.Context, withTemplate bool) (*Data, error) {
	src := b.cfg.Sources

	// =========================================================================
	// STEP 1: FETCH SOURCES
	// =========================================================================

	locations := []string{src.Ledger.URL, src.Mapping.URL}
	if withTemplate {
		locations = append(locations, src.Template.URL)
	}
	raw, err := b.fetcher.FetchAll(ctx, locations...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sources: %w", err)
	}

	// =========================================================================
	// STEPS 2-3: PARSE AND CLEAN
	// =========================================================================

	ledgerTable, err := parseTable(raw[0], src.Ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	b.ledgerRules.Apply(ledgerTable)

	mappingTable, err := parseTable(raw[1], src.Mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping: %w", err)
	}
	b.mappingRules.Apply(mappingTable)

	// =========================================================================
	// STEP 4: DECODE
	// =========================================================================

	rows, issues, err := ledger.DecodeLedger(ledgerTable, b.cfg.LedgerColumns, b.cfg.DateLayouts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ledger: %w", err)
	}

	mappings, mappingIssues, err := ledger.DecodeMappings(mappingTable, b.cfg.MappingColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mapping: %w", err)
	}
	issues.Merge(mappingIssues)

	// =========================================================================
	// STEP 5: JOIN
	// =========================================================================

	ds := ledger.Prepare(rows, mappings, b.calendar)
	unmapped := ds.Unmapped()
	issues.Add(validation.CheckUnmapped(unmapped)...)

	if !issues.Empty() {
		b.log.WithFields(logrus.Fields{
			"warnings": issues.WarningCount,
			"unmapped": len(unmapped),
		}).Warn("source data has issues")
	}

	data := &Data{
		Dataset:     ds,
		Issues:      issues,
		LedgerRows:  len(rows),
		MappingRows: len(mappings),
	}
	if withTemplate {
		data.Template = raw[2]
	}

	return data, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// parseTable decodes one source according to its format.
func parseTable(data []byte, src config.Source) (*types.Table, error) {
	switch src.Format {
	case config.FormatCSV:
		return csvparser.Parse(data, src.CSV)
	default:
		return xlsxparser.ParseWithOptions(data, xlsxparser.Options{
			Sheet:     src.Sheet,
			HeaderRow: src.HeaderRow,
		})
	}
}

// fileParams returns the file name placeholders of a selection.
func fileParams(sel types.Selection) map[string]string {
	return map[string]string{
		"month":   sel.Month,
		"year":    strconv.Itoa(sel.Year),
		"company": sel.Company,
	}
}
