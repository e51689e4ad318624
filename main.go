// =============================================================================
// Trial Balance Reporter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the trial balance reporter. It delegates
// command execution to the cmd package.
//
// USAGE:
//   trial-balance serve     - Serve the report page and downloads
//   trial-balance process   - Build one report and write both workbooks
//   trial-balance options   - List selectable years, months and companies
//   trial-balance version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core logic (sources, parsing, balances, rendering, web)
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/trial-balance/cmd"
)

func main() {
	cmd.Execute()
}
