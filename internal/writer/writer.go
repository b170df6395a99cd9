package writer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
)

// ErrUnsupportedOutput is returned when no writer handles an output extension.
var ErrUnsupportedOutput = errors.New("unsupported output format")

// Writer exports the reconstructed statements of a batch.
type Writer interface {
	WriteFile(path string, statements []*models.StatementInfo) error
}

// ForPath picks a writer from the output file extension.
func ForPath(path string) (Writer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return &CSVWriter{}, nil
	case ".xlsx":
		return &XLSXWriter{}, nil
	case ".ofx", ".qfx":
		return &OFXWriter{}, nil
	case ".db", ".sqlite", ".sqlite3":
		return &SQLiteWriter{}, nil
	}
	return nil, fmt.Errorf("%w: %q (use .csv, .xlsx, .ofx or .db)", ErrUnsupportedOutput, filepath.Ext(path))
}

// schemaGroup holds the transactions of every statement sharing one schema,
// in statement order.
type schemaGroup struct {
	schema models.Schema
	name   string
	txns   []models.Transaction
}

// groupBySchema concatenates transactions per schema, keeping the order in
// which schemas and statements first appear.
func groupBySchema(statements []*models.StatementInfo) []*schemaGroup {
	var groups []*schemaGroup
	index := make(map[models.Schema]*schemaGroup)
	for _, info := range statements {
		if info == nil {
			continue
		}
		schema := info.Schema
		if schema == "" {
			schema = models.SchemaCurrentAccount
		}
		g, ok := index[schema]
		if !ok {
			g = &schemaGroup{schema: schema, name: string(info.Format)}
			index[schema] = g
			groups = append(groups, g)
		}
		g.txns = append(g.txns, info.Transactions...)
	}
	return groups
}
