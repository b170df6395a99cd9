package writer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// sqliteSchema keeps every export run so repeated conversions accumulate a
// transaction history.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	documents INTEGER NOT NULL,
	transactions INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS statements (
	run_id TEXT NOT NULL REFERENCES runs(id),
	source TEXT NOT NULL,
	format TEXT NOT NULL,
	account_number TEXT,
	statement_date TEXT,
	discarded INTEGER NOT NULL,
	warnings INTEGER NOT NULL,
	reconcile_converged INTEGER
);
CREATE TABLE IF NOT EXISTS transactions (
	run_id TEXT NOT NULL REFERENCES runs(id),
	source TEXT NOT NULL,
	format TEXT NOT NULL,
	sequence INTEGER NOT NULL,
	date TEXT,
	posting_date TEXT,
	transaction_date TEXT,
	type TEXT,
	description TEXT NOT NULL,
	beneficiary TEXT,
	amount TEXT NOT NULL,
	direction TEXT NOT NULL,
	balance TEXT,
	flow TEXT,
	opening INTEGER NOT NULL,
	unreconciled INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_run ON transactions(run_id);
`

// SQLiteWriter appends a run to a SQLite database using the pure Go
// modernc driver.
type SQLiteWriter struct {
	// RunID identifies the run; a random UUID when empty.
	RunID string
	Now   func() time.Time
}

// WriteFile opens (or creates) the database at path and inserts the run.
func (w *SQLiteWriter) WriteFile(path string, statements []*models.StatementInfo) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database %q: %w", path, err)
	}
	defer db.Close()

	_, err = w.Write(context.Background(), db, statements)
	return err
}

// Write inserts the statements in one transaction and returns the run id.
func (w *SQLiteWriter) Write(ctx context.Context, db *sql.DB, statements []*models.StatementInfo) (string, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return "", fmt.Errorf("create schema: %w", err)
	}

	runID := w.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	docs, total := 0, 0
	for _, info := range statements {
		if info == nil {
			continue
		}
		docs++
		total += len(info.Transactions)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, documents, transactions) VALUES (?, ?, ?, ?)`,
		runID, now().UTC().Format(time.RFC3339), docs, total,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmtIns, err := tx.PrepareContext(ctx, `INSERT INTO statements
		(run_id, source, format, account_number, statement_date, discarded, warnings, reconcile_converged)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare statements insert: %w", err)
	}
	defer stmtIns.Close()

	txnIns, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(run_id, source, format, sequence, date, posting_date, transaction_date, type, description,
		 beneficiary, amount, direction, balance, flow, opening, unreconciled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare transactions insert: %w", err)
	}
	defer txnIns.Close()

	for _, info := range statements {
		if info == nil {
			continue
		}
		var converged sql.NullBool
		if info.Reconcile.Applied {
			converged = sql.NullBool{Bool: info.Reconcile.Converged, Valid: true}
		}
		if _, err := stmtIns.ExecContext(ctx, runID, info.Source, string(info.Format),
			nullString(info.AccountNumber), nullDate(info.StatementDate),
			info.Discarded, len(info.Warnings), converged,
		); err != nil {
			return "", fmt.Errorf("insert statement %q: %w", info.Source, err)
		}

		for _, t := range info.Transactions {
			var date, balance sql.NullString
			if !t.Date.IsZero() {
				date = sql.NullString{String: t.Date.Format("2006-01-02"), Valid: true}
			}
			if t.Balance.Valid {
				balance = sql.NullString{String: t.Balance.Decimal.StringFixed(2), Valid: true}
			}
			if _, err := txnIns.ExecContext(ctx, runID, info.Source, string(info.Format), t.Sequence,
				date, nullString(t.PostingDate), nullString(t.TransactionDate), nullString(t.Type),
				t.Description, nullString(t.Beneficiary), t.Amount.StringFixed(2), string(t.Direction),
				balance, nullString(t.Flow), t.Opening, t.Unreconciled,
			); err != nil {
				return "", fmt.Errorf("insert transaction %s#%d: %w", info.Source, t.Sequence, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format("2006-01-02"), Valid: true}
}
