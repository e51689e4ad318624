// =============================================================================
// Trial Balance Reporter - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the process command:
//   - Output file naming
//   - Writing generated workbooks
//   - Output archival and retention
//   - Data-issue log generation
//
// ARCHIVAL STRATEGY:
//   - Workbooks are written to the output directory
//   - When an archive directory is configured, each workbook is copied there,
//     optionally under a date-based subdirectory
//   - Archived files older than the retention period are removed
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/trial-balance/internal/validation"
	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles the files written by the process command.
type FileManager struct {
	// OutputDir is the directory where workbooks are written.
	OutputDir string

	// ArchiveDir receives a copy of each workbook. Empty disables archival.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2024/01/15/balance_enero_2024.xlsx
	UseTimestampSubdirs bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, archiveDir string) *FileManager {
	return &FileManager{
		OutputDir:  outputDir,
		ArchiveDir: archiveDir,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the output and archive directories if they don't
// exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.OutputDir, fm.ArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// OUTPUT FILES
// =============================================================================

// WriteOutputFile writes data to name inside the output directory.
//
// RETURNS:
//   - The path of the written file.
//   - An error if writing fails.
func (fm *FileManager) WriteOutputFile(name string, data []byte) (string, error) {
	path := filepath.Join(fm.OutputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ArchiveOutputFile copies an output file to the archive directory.
//
// RETURNS:
//   - The path to the archived file, or "" when archival is disabled.
//   - An error if archival fails.
//
// NOTE: Output files are copied, not moved, so they remain in the output directory.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if fm.ArchiveDir == "" {
		return "", nil
	}

	archivePath := fm.getArchivePath(filePath, time.Now())

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(filePath string, now time.Time) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		return filepath.Join(
			fm.ArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(fm.ArchiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName builds a workbook file name from a format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {month}, {year}, {company} - supplied through params
//   - params: A map of placeholder values, without braces.
//
// RETURNS:
//   - The generated file name, always ending in .xlsx. Characters that are
//     not allowed in file names are replaced with "_".
//
// EXAMPLE:
//   format: "saldos_cuentas_{company}_{month}_{year}.xlsx"
//   params: {"company": "ESGARI", "month": "enero", "year": "2024"}
//   output: "saldos_cuentas_ESGARI_enero_2024.xlsx"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"uuid":      uuid.New().String(),
		"timestamp": now.Format("20060102_150405"),
		"date":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements[key] = value
	}

	// Sorted so that the result does not depend on map order.
	keys := make([]string, 0, len(replacements))
	for key := range replacements {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", replacements[key])
	}
	result := SanitizeFileName(strings.NewReplacer(pairs...).Replace(format))

	if !strings.HasSuffix(strings.ToLower(result), ".xlsx") {
		result += ".xlsx"
	}

	return result
}

// SanitizeFileName replaces path separators, reserved characters and
// control characters with "_".
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20:
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}

// =============================================================================
// ISSUE LOG GENERATION
// =============================================================================

// WriteIssueLog writes data issues to a text file in outputDir.
//
// RETURNS:
//   - The path to the issue log, or "" when there are no issues.
//   - An error if writing fails.
func WriteIssueLog(issues []*validation.Issue, outputDir string) (string, error) {
	if len(issues) == 0 {
		return "", nil
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(outputDir, fmt.Sprintf("issue_log_%s.txt", timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create issue log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Trial Balance Reporter - Data Issues\n"+
		"Generated: %s\n"+
		"Total Issues: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(issues))

	for i, issue := range issues {
		fmt.Fprintf(writer, "Issue #%d\n"+
			"  Severity:       %s\n"+
			"  Kind:           %s\n"+
			"  Source:         %s\n"+
			"  Message:        %s\n",
			i+1, issue.Severity, issue.Kind, issue.Source, issue.Message)

		if issue.Row > 0 {
			fmt.Fprintf(writer, "  Row Number:     %d\n", issue.Row)
		}
		if issue.Field != "" {
			fmt.Fprintf(writer, "  Field:          %s\n", issue.Field)
		}
		if issue.Value != "" {
			fmt.Fprintf(writer, "  Value:          %s\n", issue.Value)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Issue Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush issue log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// CleanOldArchives removes archive files older than maxAge.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
	if archiveDir == "" || maxAge <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}

	return removed, nil
}
