package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
)

// assemble turns an extracted draft into a transaction in the format's
// canonical shape. The flow label is attached after reconciliation.
func assemble(d *Draft, f fields, cfg *FormatConfig, src yearSource) (models.Transaction, error) {
	txn := models.Transaction{
		Format:      cfg.ID,
		DateToken:   d.EntryToken,
		Type:        f.typ,
		Description: f.description,
		Beneficiary: f.beneficiary,
		Amount:      f.amount,
		Direction:   f.direction,
		Balance:     f.balance,
		Opening:     d.Opening,
	}

	if cfg.Grammar == GrammarPaired {
		txn.PostingDate = d.EntryToken
		txn.TransactionDate = d.SecondToken
	}

	if d.Opening {
		return txn, nil
	}

	date, err := parseEntryDate(d.EntryToken, cfg, src)
	if err != nil {
		return models.Transaction{}, err
	}
	txn.Date = date
	txn.Year = date.Year()
	return txn, nil
}

// parseEntryDate parses a date token with the format layout, supplying the
// synthesized year when the token carries none.
func parseEntryDate(token string, cfg *FormatConfig, src yearSource) (time.Time, error) {
	parsed, err := time.Parse(cfg.DateLayout, strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", token, err)
	}
	if !cfg.NeedsYear {
		return parsed, nil
	}

	year := rollYear(parsed.Month(), src)
	date := time.Date(year, parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 29/02 in a common year to 1 March.
	if date.Day() != parsed.Day() {
		return time.Time{}, fmt.Errorf("invalid date %q in %d", token, year)
	}
	return date, nil
}

// findAccountNumber returns the first account number printed in the document.
func findAccountNumber(raw []string, cfg *FormatConfig) string {
	if cfg.AccountPattern == nil {
		return ""
	}
	for _, line := range raw {
		if m := cfg.AccountPattern.FindStringSubmatch(line); m != nil {
			if len(m) > 1 {
				return m[1]
			}
			return m[0]
		}
	}
	return ""
}

// labelFlows writes the human-readable flow for every transaction.
func labelFlows(txns []models.Transaction, labels FlowLabels) {
	for i := range txns {
		if txns[i].Opening {
			txns[i].Flow = ""
			continue
		}
		txns[i].Flow = labels.For(txns[i].Direction)
	}
}
