package parser

import (
	"reflect"
	"testing"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/shopspring/decimal"
)

func row(seq int, amount string, dir models.Direction, balance string) models.Transaction {
	t := models.Transaction{
		Sequence:  seq,
		Amount:    decimal.RequireFromString(amount),
		Direction: dir,
	}
	if balance != "" {
		t.Balance = decimal.NewNullDecimal(decimal.RequireFromString(balance))
	}
	return t
}

func TestReconcileFlipsMisclassifiedRow(t *testing.T) {
	txns := []models.Transaction{
		row(1, "100.00", models.DirectionInflow, "100.00"),
		row(2, "50.00", models.DirectionOutflow, "150.00"),
		row(3, "30.00", models.DirectionOutflow, "120.00"),
	}

	report := Reconcile(txns, 0)

	if !report.Converged {
		t.Fatal("expected convergence")
	}
	if report.Iterations != 1 || report.Swaps != 1 {
		t.Errorf("got %d iterations and %d swaps, want 1 and 1", report.Iterations, report.Swaps)
	}
	if txns[1].Direction != models.DirectionInflow {
		t.Errorf("row 2: got %q, want inflow", txns[1].Direction)
	}
	if txns[2].Direction != models.DirectionOutflow {
		t.Errorf("row 3: got %q, want outflow", txns[2].Direction)
	}
	if bad := inconsistentRows(txns); len(bad) != 0 {
		t.Errorf("rows still inconsistent: %v", bad)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	txns := []models.Transaction{
		row(1, "100.00", models.DirectionInflow, "100.00"),
		row(2, "50.00", models.DirectionOutflow, "150.00"),
		row(3, "30.00", models.DirectionOutflow, "120.00"),
	}
	Reconcile(txns, 0)
	before := append([]models.Transaction(nil), txns...)

	report := Reconcile(txns, 0)
	if report.Swaps != 0 || report.Iterations != 0 || !report.Converged {
		t.Errorf("second pass: got %+v, want no swaps", report)
	}
	if !reflect.DeepEqual(before, txns) {
		t.Error("second pass modified transactions")
	}
}

func TestReconcileCapRestoresDirection(t *testing.T) {
	txns := []models.Transaction{
		row(1, "0.00", models.DirectionUnknown, "100.00"),
		row(2, "10.00", models.DirectionOutflow, "150.00"),
		row(3, "30.00", models.DirectionOutflow, "120.00"),
	}

	report := Reconcile(txns, 3)

	if report.Converged {
		t.Fatal("expected no convergence")
	}
	if report.Iterations != 3 {
		t.Errorf("iterations: got %d, want 3", report.Iterations)
	}
	if !reflect.DeepEqual(report.Unresolved, []int{2}) {
		t.Errorf("unresolved: got %v, want [2]", report.Unresolved)
	}
	if txns[1].Direction != models.DirectionOutflow || !txns[1].Unreconciled {
		t.Errorf("row 2: got %q unreconciled=%v", txns[1].Direction, txns[1].Unreconciled)
	}
	if txns[2].Unreconciled {
		t.Error("row 3 should reconcile")
	}
}

func TestReconcileSkipsRowsWithoutBalance(t *testing.T) {
	txns := []models.Transaction{
		row(1, "100.00", models.DirectionInflow, "100.00"),
		row(2, "999.00", models.DirectionInflow, ""),
		row(3, "20.00", models.DirectionInflow, "80.00"),
	}

	report := Reconcile(txns, 0)

	if !report.Converged || report.Swaps != 1 {
		t.Errorf("got %+v, want one swap and convergence", report)
	}
	if txns[1].Direction != models.DirectionInflow {
		t.Error("row without balance must not be swapped")
	}
	if txns[2].Direction != models.DirectionOutflow {
		t.Errorf("row 3: got %q, want outflow", txns[2].Direction)
	}
}

func TestReconcileNeverSwapsOpening(t *testing.T) {
	opening := row(1, "500.00", models.DirectionUnknown, "500.00")
	opening.Opening = true
	txns := []models.Transaction{
		opening,
		row(2, "100.00", models.DirectionOutflow, "600.00"),
	}

	Reconcile(txns, 0)

	if txns[0].Direction != models.DirectionUnknown {
		t.Errorf("opening row swapped to %q", txns[0].Direction)
	}
	if txns[1].Direction != models.DirectionInflow {
		t.Errorf("row 2: got %q, want inflow", txns[1].Direction)
	}
}

func TestReconcileResolvesUnknownDirection(t *testing.T) {
	txns := []models.Transaction{
		row(1, "100.00", models.DirectionInflow, "100.00"),
		row(2, "30.00", models.DirectionUnknown, "70.00"),
	}

	report := Reconcile(txns, 0)

	if !report.Converged || report.Iterations != 2 || report.Swaps != 2 {
		t.Errorf("got %+v, want convergence after 2 swaps", report)
	}
	if txns[1].Direction != models.DirectionOutflow {
		t.Errorf("row 2: got %q, want outflow", txns[1].Direction)
	}
}
