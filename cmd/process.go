// =============================================================================
// Trial Balance Reporter - Process Command
// =============================================================================
//
// This file defines the 'process' command, which builds one report from the
// configured sources and writes both workbooks to the output directory.
//
// COMMAND USAGE:
//   trial-balance process [flags]
//
// FLAGS:
//   --year        : Report year (default: latest year in the ledger)
//   --month       : Report month name (default: first month in the ledger)
//   --company     : Company (default: first company in the ledger)
//   --dry-run     : Build the report without writing files
//   --output-dir  : Override output.dir from the configuration
//   --issue-log   : Write data issues to a text file in the output directory
//
// PROCESSING PIPELINE:
//   1. Resolve the selection (flags, falling back to the first option)
//   2. Fetch, parse and join the sources; compute balances
//   3. Write the balance detail and summary workbooks
//   4. Archive the workbooks and apply archive retention
//   5. Print the run summary and data issues
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ginjaninja78/trial-balance/internal/report"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/ginjaninja78/trial-balance/internal/validation"
	"github.com/ginjaninja78/trial-balance/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	selYear     int
	selMonth    string
	selCompany  string
	dryRun      bool
	outputDir   string
	writeIssues bool
)

// issueDisplayLimit caps the individual issues printed after a run.
const issueDisplayLimit = 20

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Build one report and write the workbooks",
	Long: `The process command fetches the ledger, mapping and template, computes the
trial balance for the selected year, month and company, and writes:

  - the balance detail workbook (sheet "Datos")
  - the statement template with the category totals appended

Selections left empty default to the first value the ledger offers, the
same defaults the web page uses. Data issues (unreadable values, unmapped
accounts) are reported but do not fail the run.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().IntVar(&selYear, "year", 0, "Report year")
	processCmd.Flags().StringVar(&selMonth, "month", "", "Report month name (e.g. enero)")
	processCmd.Flags().StringVar(&selCompany, "company", "", "Company")
	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build the report without writing output files")
	processCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory (overrides output.dir)")
	processCmd.Flags().BoolVar(&writeIssues, "issue-log", false, "Write data issues to a log file in the output directory")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startTime := time.Now()

	builder, _, err := newBuilder()
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: RESOLVE SELECTION
	// =========================================================================

	sel := types.Selection{Year: selYear, Month: selMonth, Company: selCompany}
	if sel.Year == 0 || sel.Month == "" || sel.Company == "" {
		opts, err := builder.Options(ctx)
		if err != nil {
			return err
		}
		sel = defaultSelection(sel, opts)
		if sel.Year == 0 || sel.Month == "" {
			return fmt.Errorf("ledger has no dated rows; pass --year and --month")
		}
	}

	fmt.Fprintln(out, "=== Trial Balance Reporter ===")
	fmt.Fprintf(out, "Selection: %s %d, %s\n", sel.Month, sel.Year, sel.Company)

	// =========================================================================
	// STEP 2: BUILD REPORT
	// =========================================================================

	res, err := builder.Run(ctx, sel)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEPS 3-4: WRITE AND ARCHIVE
	// =========================================================================

	if dryRun {
		fmt.Fprintln(out, "Dry run: no files written")
	} else if err := writeOutputs(out, res); err != nil {
		return err
	}

	// =========================================================================
	// STEP 5: PRINT SUMMARY
	// =========================================================================

	printSummary(out, res, time.Since(startTime))
	return nil
}

// writeOutputs writes both workbooks, archives them and applies retention.
func writeOutputs(out io.Writer, res *report.Result) error {
	dir := appConfig.Output.Dir
	if outputDir != "" {
		dir = outputDir
	}

	fm := utils.NewFileManager(dir, appConfig.Output.ArchiveDir)
	fm.UseTimestampSubdirs = appConfig.Output.ArchiveByDate
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	for _, file := range []report.File{res.Balances, res.Summary} {
		path, err := fm.WriteOutputFile(file.Name, file.Data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  ✓ %s\n", path)

		archived, err := fm.ArchiveOutputFile(path)
		if err != nil {
			return err
		}
		if archived != "" {
			logger.WithField("path", archived).Debug("workbook archived")
		}
	}

	removed, err := utils.CleanOldArchives(fm.ArchiveDir, appConfig.Output.ArchiveRetention)
	if err != nil {
		return err
	}
	if removed > 0 {
		logger.WithField("removed", removed).Info("old archives removed")
	}

	if writeIssues {
		path, err := utils.WriteIssueLog(res.Issues.Issues, dir)
		if err != nil {
			return err
		}
		if path != "" {
			fmt.Fprintf(out, "  ✓ %s\n", path)
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// defaultSelection fills empty fields with the first option of each list.
func defaultSelection(sel types.Selection, opts types.Options) types.Selection {
	if sel.Year == 0 && len(opts.Years) > 0 {
		sel.Year = opts.Years[0]
	}
	if sel.Month == "" && len(opts.Months) > 0 {
		sel.Month = opts.Months[0]
	}
	if sel.Company == "" && len(opts.Companies) > 0 {
		sel.Company = opts.Companies[0]
	}
	return sel
}

func printSummary(out io.Writer, res *report.Result, elapsed time.Duration) {
	rep := res.Report

	fmt.Fprintln(out, "\n=== Report Complete ===")
	fmt.Fprintf(out, "Ledger rows:     %d\n", res.Stats.LedgerRows)
	fmt.Fprintf(out, "Period rows:     %d\n", res.Stats.PeriodRows)
	fmt.Fprintf(out, "Accounts:        %d\n", res.Stats.Accounts)
	fmt.Fprintf(out, "Closing total:   %s\n", rep.Totals.Closing.StringFixed(2))
	fmt.Fprintf(out, "Net income:      %s\n", rep.Net.Income.StringFixed(2))
	fmt.Fprintf(out, "Net expense:     %s\n", rep.Net.Expense.StringFixed(2))
	fmt.Fprintf(out, "Time elapsed:    %s\n", elapsed)

	fmt.Fprintln(out)
	fmt.Fprint(out, validation.FormatIssues(res.Issues, issueDisplayLimit))
}
