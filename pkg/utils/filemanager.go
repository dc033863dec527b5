// =============================================================================
// Invoice Batch Generator - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the generator, including:
//   - Output file naming
//   - Batch error log generation
//   - Batch summary log generation
//   - Source file archival and archive retention
//   - Directory management
//
// ARCHIVAL STRATEGY:
//   - Source files (CSV, XLSX) are copied to the archive after a batch run
//   - The original source file is left in place
//   - Archives can be organized in date-based subdirectories
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

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the generator.
type FileManager struct {
	// OutputDir is the directory where invoice files are placed.
	OutputDir string

	// LogsDir is the directory where batch error and summary logs are placed.
	LogsDir string

	// ArchiveDir is the directory for archived source files. Archival is
	// disabled when empty.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2024/01/15/billing.csv
	UseTimestampSubdirs bool

	// now is the clock used for archive subdirectories.
	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, logsDir, archiveDir string) *FileManager {
	return &FileManager{
		OutputDir:           outputDir,
		LogsDir:             logsDir,
		ArchiveDir:          archiveDir,
		UseTimestampSubdirs: true,
		now:                 time.Now,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{fm.OutputDir, fm.LogsDir}
	if fm.ArchiveDir != "" {
		dirs = append(dirs, fm.ArchiveDir)
	}
	for _, dir := range dirs {
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
// FILE ARCHIVAL
// =============================================================================

// ArchiveFile copies a consumed source file into the archive directory.
//
// RETURNS:
//   - The path to the archived copy, or "" when archival is disabled.
//   - An error if archival fails.
func (fm *FileManager) ArchiveFile(filePath string) (string, error) {
	if fm.ArchiveDir == "" {
		return "", nil
	}

	archivePath := fm.getArchivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}
	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(filePath string) string {
	fileName := filepath.Base(filePath)
	if !fm.UseTimestampSubdirs {
		return filepath.Join(fm.ArchiveDir, fileName)
	}

	now := time.Now()
	if fm.now != nil {
		now = fm.now()
	}
	return filepath.Join(
		fm.ArchiveDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
		fileName,
	)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// unsafeNameChars are replaced in placeholder values so that an invoice
// number such as "INV/2024/7" cannot escape the output directory.
var unsafeNameChars = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "..", "-")

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD), unless params sets it
//               {time}      - Current time (HHMMSS)
//               any key of params, e.g. {invoice_number}
//   - ext: The required extension, e.g. ".pdf". Appended when missing.
//   - params: A map of placeholder values.
//
// EXAMPLE:
//   format: "invoice_{invoice_number}_{date}"
//   params: {"invoice_number": "INV-7", "date": "20240115"}
//   output: "invoice_INV-7_20240115.pdf"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = unsafeNameChars.Replace(value)
	}

	// One pass over format: substituted values are never scanned again.
	placeholders := make([]string, 0, len(replacements))
	for placeholder := range replacements {
		placeholders = append(placeholders, placeholder)
	}
	sort.Strings(placeholders)
	pairs := make([]string, 0, 2*len(placeholders))
	for _, placeholder := range placeholders {
		pairs = append(pairs, placeholder, replacements[placeholder])
	}
	result := strings.NewReplacer(pairs...).Replace(format)

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// Error types recorded in the batch error log.
const (
	ErrorTypeValidation = "validation"
	ErrorTypeProcessing = "processing"
)

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp     time.Time
	ErrorType     string
	ErrorMessage  string
	InvoiceNumber string
}

// WriteErrorLog writes error entries to a log file in dir.
//
// RETURNS:
//   - The path to the error log file, or "" when there are no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, dir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	now := time.Now()
	logPath := filepath.Join(dir, fmt.Sprintf("error_log_%s.txt", now.Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Invoice Batch Generator - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		now.Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.ErrorType,
			entry.ErrorMessage)
		if entry.InvoiceNumber != "" {
			fmt.Fprintf(writer, "  Invoice:        %s\n", entry.InvoiceNumber)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a batch run.
type ProcessingSummary struct {
	StartTime         time.Time
	EndTime           time.Time
	RangeStart        time.Time
	RangeEnd          time.Time
	TotalRows         int
	TotalRecords      int
	GeneratedInvoices int
	FailedInvoices    int
	ValidationErrors  int
	EmailsSent        int
	TotalBilled       string
	Invoices          []GeneratedInvoiceInfo
	XMLExport         string
}

// GeneratedInvoiceInfo describes one generated invoice.
type GeneratedInvoiceInfo struct {
	InvoiceNumber string
	Customer      string
	Total         string
	PDFPath       string
	Emailed       bool
}

// WriteSummaryLog writes a batch summary to a log file in dir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, dir string) (string, error) {
	summaryPath := filepath.Join(dir, fmt.Sprintf("processing_summary_%s.txt", time.Now().Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Invoice Batch Generator - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Billing Range:  %s to %s\n\n"+
		"Statistics:\n"+
		"  Rows Fetched:       %d\n"+
		"  Records:            %d\n"+
		"  Invoices Generated: %d\n"+
		"  Invoices Failed:    %d\n"+
		"  Validation Errors:  %d\n"+
		"  Emails Sent:        %d\n"+
		"  Total Billed:       %s\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.RangeStart.Format("2006-01-02"),
		summary.RangeEnd.Format("2006-01-02"),
		summary.TotalRows,
		summary.TotalRecords,
		summary.GeneratedInvoices,
		summary.FailedInvoices,
		summary.ValidationErrors,
		summary.EmailsSent,
		summary.TotalBilled)

	if len(summary.Invoices) > 0 {
		writer.WriteString("Generated Invoices:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, inv := range summary.Invoices {
			fmt.Fprintf(writer, "  Invoice:  %s\n", inv.InvoiceNumber)
			fmt.Fprintf(writer, "  Customer: %s\n", inv.Customer)
			fmt.Fprintf(writer, "  Total:    %s\n", inv.Total)
			fmt.Fprintf(writer, "  PDF:      %s\n", inv.PDFPath)
			fmt.Fprintf(writer, "  Emailed:  %t\n\n", inv.Emailed)
		}
	}
	if summary.XMLExport != "" {
		fmt.Fprintf(writer, "XML Export: %s\n\n", summary.XMLExport)
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
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

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldArchives removes archive files older than maxAge.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
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
