package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
)

// ErrMixedSchemas is returned when statements with different column layouts
// are written to one CSV file.
var ErrMixedSchemas = errors.New("statements use different column layouts; write them to .xlsx or separate files")

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteFile(path string, statements []*models.StatementInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, statements)
}

// Write writes transactions in CSV format to the given writer. All
// statements must share one schema.
func (w *CSVWriter) Write(out io.Writer, statements []*models.StatementInfo) error {
	groups := groupBySchema(statements)
	if len(groups) > 1 {
		return ErrMixedSchemas
	}
	schema := models.SchemaCurrentAccount
	if len(groups) == 1 {
		schema = groups[0].schema
	}

	writer := csv.NewWriter(out)

	// Metadata as comment rows
	if w.IncludeHeader {
		for _, info := range statements {
			if info == nil {
				continue
			}
			writer.Write([]string{"# Source", info.Source})
			writer.Write([]string{"# Format", string(info.Format)})
			if info.AccountNumber != "" {
				writer.Write([]string{"# Account Number", info.AccountNumber})
			}
			if info.StatementDate != nil {
				writer.Write([]string{"# Statement Date", info.StatementDate.Format("2006-01-02")})
			}
		}
	}

	if err := writer.Write(schema.Header()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if len(groups) == 1 {
		for _, txn := range groups[0].txns {
			if err := writer.Write(schema.Row(txn)); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}
