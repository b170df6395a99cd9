package models

import (
	"strconv"
	"strings"
)

// Schema is the column layout a format is exported with.
type Schema string

const (
	SchemaCurrentAccount Schema = "current-account"
	SchemaCreditCard     Schema = "credit-card"
	SchemaTransfer       Schema = "transfer"
)

const isoDate = "2006-01-02"

// Header returns the column names in output order.
func (s Schema) Header() []string {
	switch s {
	case SchemaCreditCard:
		return []string{"Year", "Posting Date", "Transaction Date", "Transaction Description", "Amount", "Flow"}
	case SchemaTransfer:
		return []string{"Date", "Transaction Type", "Description", "Sender/Beneficiary", "Amount (DR)", "Amount (CR)", "Balance", "Flow"}
	default:
		return []string{"Entry Date", "Transaction Type", "Transaction Description", "Transaction Amount", "Statement Balance", "Flow"}
	}
}

// Row renders a transaction as string cells matching Header.
func (s Schema) Row(t Transaction) []string {
	switch s {
	case SchemaCreditCard:
		year := ""
		if t.Year != 0 {
			year = strconv.Itoa(t.Year)
		}
		return []string{year, t.PostingDate, t.TransactionDate, t.Description, t.Amount.StringFixed(2), t.Flow}
	case SchemaTransfer:
		var dr, cr string
		switch {
		case t.Opening:
		case t.Direction == DirectionInflow:
			cr = t.Amount.StringFixed(2)
		case t.Direction == DirectionOutflow:
			dr = t.Amount.StringFixed(2)
		}
		return []string{formatDate(t), t.Type, t.Description, dashIfEmpty(t.Beneficiary), dr, cr, formatBalance(t), t.Flow}
	default:
		return []string{formatDate(t), t.Type, t.Description, t.Amount.StringFixed(2), formatBalance(t), t.Flow}
	}
}

// ParseSchema maps a schema name onto a Schema, defaulting to current-account.
func ParseSchema(name string) Schema {
	switch Schema(strings.ToLower(strings.TrimSpace(name))) {
	case SchemaCreditCard:
		return SchemaCreditCard
	case SchemaTransfer:
		return SchemaTransfer
	default:
		return SchemaCurrentAccount
	}
}

func formatDate(t Transaction) string {
	if t.Date.IsZero() {
		return "-"
	}
	return t.Date.Format(isoDate)
}

func formatBalance(t Transaction) string {
	if !t.Balance.Valid {
		return ""
	}
	return t.Balance.Decimal.StringFixed(2)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
