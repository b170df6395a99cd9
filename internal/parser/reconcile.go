package parser

import (
	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultMaxReconcileIterations bounds the repair loop when no cap is given.
const DefaultMaxReconcileIterations = 10

var balanceEpsilon = decimal.New(1, -2)

// Reconcile repairs misclassified directions using the running balance. For
// every row after the first, balance[i] must equal
// balance[i-1] + credit[i] - debit[i] within 0.01. Inconsistent rows have
// their direction swapped and the check is repeated, at most maxIter times.
// Rows still inconsistent at the cap get their original direction back and
// are flagged Unreconciled. Rows without a balance are skipped and opening
// rows are never swapped.
func Reconcile(txns []models.Transaction, maxIter int) models.ReconcileReport {
	if maxIter <= 0 {
		maxIter = DefaultMaxReconcileIterations
	}
	report := models.ReconcileReport{Applied: true}

	original := make([]models.Direction, len(txns))
	for i := range txns {
		original[i] = txns[i].Direction
	}

	bad := inconsistentRows(txns)
	for len(bad) > 0 && report.Iterations < maxIter {
		for _, i := range bad {
			txns[i].Direction = swapDirection(txns[i].Direction)
		}
		report.Iterations++
		report.Swaps += len(bad)
		bad = inconsistentRows(txns)
	}

	if len(bad) == 0 {
		report.Converged = true
		return report
	}

	for _, i := range bad {
		txns[i].Direction = original[i]
		txns[i].Unreconciled = true
		report.Unresolved = append(report.Unresolved, txns[i].Sequence)
	}
	return report
}

// inconsistentRows returns the indexes of rows whose balance does not follow
// from the previous balance and their classified amount.
func inconsistentRows(txns []models.Transaction) []int {
	var (
		bad  []int
		prev decimal.Decimal
		seen bool
	)
	for i, t := range txns {
		if !t.Balance.Valid {
			continue
		}
		if !seen || t.Opening {
			prev = t.Balance.Decimal
			seen = true
			continue
		}
		expected := prev.Add(t.Credit()).Sub(t.Debit())
		if expected.Sub(t.Balance.Decimal).Abs().GreaterThanOrEqual(balanceEpsilon) {
			bad = append(bad, i)
		}
		prev = t.Balance.Decimal
	}
	return bad
}

// swapDirection flips a row's direction. An unknown row contributes nothing
// to the balance, so its first swap tries inflow.
func swapDirection(d models.Direction) models.Direction {
	if d == models.DirectionUnknown {
		return models.DirectionInflow
	}
	return d.Opposite()
}
