package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether a transaction moves money into or out of the account.
type Direction string

const (
	DirectionInflow  Direction = "inflow"
	DirectionOutflow Direction = "outflow"
	DirectionUnknown Direction = "unknown"
)

// Opposite returns the other side of a known direction. Unknown stays unknown.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionInflow:
		return DirectionOutflow
	case DirectionOutflow:
		return DirectionInflow
	default:
		return DirectionUnknown
	}
}

// FormatID identifies a statement format (institution + account type).
type FormatID string

const (
	FormatMaybankCASA FormatID = "maybank-casa"
	FormatMaybankMAE  FormatID = "maybank-mae"
	FormatMaybankCC   FormatID = "maybank-cc"
	FormatCIMBDebit   FormatID = "cimb-debit"
)

// Transaction is a single reconstructed statement row.
type Transaction struct {
	Source   string   `json:"source,omitempty"`
	Format   FormatID `json:"format"`
	Sequence int      `json:"sequence"`

	Date      time.Time `json:"date"`
	DateToken string    `json:"dateToken"`
	Year      int       `json:"year,omitempty"`

	// Credit-card formats carry both dates as printed.
	PostingDate     string `json:"postingDate,omitempty"`
	TransactionDate string `json:"transactionDate,omitempty"`

	Type        string `json:"type,omitempty"`
	Description string `json:"description"`
	Beneficiary string `json:"beneficiary,omitempty"`

	Amount    decimal.Decimal     `json:"amount"` // always non-negative
	Direction Direction           `json:"direction"`
	Balance   decimal.NullDecimal `json:"balance"`
	Flow      string              `json:"flow"`

	Opening      bool `json:"opening,omitempty"`
	Unreconciled bool `json:"unreconciled,omitempty"`
}

// Credit returns the amount when the transaction is an inflow, zero otherwise.
func (t Transaction) Credit() decimal.Decimal {
	if t.Direction == DirectionInflow {
		return t.Amount
	}
	return decimal.Zero
}

// Debit returns the amount when the transaction is an outflow, zero otherwise.
func (t Transaction) Debit() decimal.Decimal {
	if t.Direction == DirectionOutflow {
		return t.Amount
	}
	return decimal.Zero
}

// Unclassified returns the amount when the direction is unknown. Opening
// balance rows are not transactions and return zero.
func (t Transaction) Unclassified() decimal.Decimal {
	if t.Direction == DirectionUnknown && !t.Opening {
		return t.Amount
	}
	return decimal.Zero
}

// DebugLine captures what the engine did with each input line.
type DebugLine struct {
	LineNum int    `json:"lineNum"`
	Text    string `json:"text"`
	HasDate bool   `json:"hasDate"`
	Result  string `json:"result"` // "anchor", "amount", "balance", "type", "description", "skipped", "dropped"
}

// Warning is a data-quality note attached to a document, optionally to one row.
type Warning struct {
	Row     int    `json:"row,omitempty"` // 1-based sequence, 0 for document level
	Message string `json:"message"`
}

// ReconcileReport summarises the balance reconciliation pass.
type ReconcileReport struct {
	Applied    bool  `json:"applied"`
	Iterations int   `json:"iterations"`
	Swaps      int   `json:"swaps"`
	Converged  bool  `json:"converged"`
	Unresolved []int `json:"unresolved,omitempty"`
}

// StatementInfo holds everything reconstructed from one statement document.
type StatementInfo struct {
	Format        FormatID
	Schema        Schema
	Source        string
	Year          int
	StatementDate *time.Time
	AccountNumber string
	Transactions  []Transaction
	Discarded     int // drafts dropped for lack of an amount
	Warnings      []Warning
	Reconcile     ReconcileReport
	DebugLines    []DebugLine
}
