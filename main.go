// =============================================================================
// Invoice Batch Generator - Main Entry Point
// =============================================================================
//
// USAGE:
//   invoicer generate        - Generate invoices for a billing date range
//   invoicer validate-rows   - Validate a CSV or XLSX file of billing rows
//   invoicer validate        - Check configuration and connections
//   invoicer words           - Print an amount in words
//   invoicer version         - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Domain model, validation pipeline, sources and outputs
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/invoice-batch/cmd"
)

func main() {
	cmd.Execute()
}
