package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
)

func TestReconstructLeading(t *testing.T) {
	lines := []string{"01/02/24", "15,000.00+", "14,500.00", "SALARY CREDIT"}

	info, err := Reconstruct(lines, maybankCASA(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(info.Transactions))
	}

	txn := info.Transactions[0]
	if txn.Direction != models.DirectionInflow {
		t.Errorf("direction: got %q, want inflow", txn.Direction)
	}
	if txn.Amount.StringFixed(2) != "15000.00" {
		t.Errorf("amount: got %s", txn.Amount.StringFixed(2))
	}
	if !txn.Balance.Valid || txn.Balance.Decimal.StringFixed(2) != "14500.00" {
		t.Errorf("balance: got %+v", txn.Balance)
	}
	if txn.Description != "SALARY CREDIT" {
		t.Errorf("description: got %q", txn.Description)
	}
	if !txn.Date.Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date: got %s", txn.Date)
	}
	if txn.Flow != "Deposit" || txn.Sequence != 1 {
		t.Errorf("flow/sequence: got %q/%d", txn.Flow, txn.Sequence)
	}
}

func TestReconstructDiscardsAbsentAmounts(t *testing.T) {
	lines := []string{
		"01/02/24", "TRANSFER TO A/C", "JOHN", "500.00", "14,000.00",
		"02/02/24", "END OF STATEMENT",
	}

	info, err := Reconstruct(lines, maybankCASA(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Transactions) != 1 || info.Discarded != 1 {
		t.Fatalf("got %d transactions and %d discarded, want 1 and 1", len(info.Transactions), info.Discarded)
	}
	txn := info.Transactions[0]
	if txn.Type != "TRANSFER TO A/C" || txn.Direction != models.DirectionOutflow {
		t.Errorf("type/direction: got %q/%q", txn.Type, txn.Direction)
	}
	if txn.Flow != "Withdrawal" {
		t.Errorf("flow: got %q", txn.Flow)
	}
}

func TestReconstructOverride(t *testing.T) {
	lines := []string{"03/02/24", "DEBIT ADVICE", "ANNUAL FEE 2024", "50.00-", "13,950.00"}

	info, err := Reconstruct(lines, maybankCASA(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := info.Transactions[0].Description; got != "Card Annual Fee" {
		t.Errorf("description: got %q, want %q", got, "Card Annual Fee")
	}
}

func TestReconstructEmptyDocument(t *testing.T) {
	info, err := Reconstruct([]string{"no transactions this period"}, maybankMAE(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Transactions) != 0 {
		t.Errorf("got %d transactions, want 0", len(info.Transactions))
	}
}

func TestReconstructYear(t *testing.T) {
	body := []string{"01/02", "TRANSFER FR A/C", "100.00+", "1,100.00"}

	tests := []struct {
		name     string
		lines    []string
		opts     Options
		expected time.Time
		wantErr  error
	}{
		{
			name:     "from file name",
			lines:    body,
			opts:     Options{SourceName: "MAE_20240215.pdf"},
			expected: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "from metadata",
			lines:    body,
			opts:     Options{SourceName: "statement.pdf", MetadataYear: 2022},
			expected: time.Date(2022, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "from statement date with roll-over",
			lines: []string{
				"TARIKH PENYATA", "STATEMENT DATE", "31/01/24", "TARIKH NILAI",
				"28/12", "PAYMENT", "20.00-", "80.00",
			},
			expected: time.Date(2023, time.December, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "missing year",
			lines:   body,
			wantErr: ErrMissingYear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Reconstruct(tt.lines, maybankMAE(), tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got error %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(info.Transactions) != 1 {
				t.Fatalf("got %d transactions, want 1", len(info.Transactions))
			}
			if got := info.Transactions[0].Date; !got.Equal(tt.expected) {
				t.Errorf("date: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestReconstructInvalidDateWarns(t *testing.T) {
	lines := []string{"29/02", "PAYMENT", "20.00-", "80.00"}

	info, err := Reconstruct(lines, maybankMAE(), Options{SourceName: "MAE_20230315.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Transactions) != 0 || info.Discarded != 1 || len(info.Warnings) != 1 {
		t.Errorf("got %d transactions, %d discarded, %d warnings",
			len(info.Transactions), info.Discarded, len(info.Warnings))
	}
}

func TestReconstructPaired(t *testing.T) {
	lines := []string{
		"05/01", "06/01", "GRAB*FOOD", "45.90",
		"07/01", "08/01", "PAYMENT - THANK YOU", "500.00CR",
	}

	info, err := Reconstruct(lines, maybankCC(), Options{SourceName: "CC_20240120.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(info.Transactions))
	}

	purchase, payment := info.Transactions[0], info.Transactions[1]
	if purchase.Direction != models.DirectionOutflow || purchase.Flow != "Debit" {
		t.Errorf("purchase: got %q/%q", purchase.Direction, purchase.Flow)
	}
	if payment.Direction != models.DirectionInflow || payment.Flow != "Credit" {
		t.Errorf("payment: got %q/%q", payment.Direction, payment.Flow)
	}
	if purchase.PostingDate != "05/01" || purchase.TransactionDate != "06/01" || purchase.Year != 2024 {
		t.Errorf("dates: got %q/%q/%d", purchase.PostingDate, purchase.TransactionDate, purchase.Year)
	}
}

func TestReconstructReconciles(t *testing.T) {
	lines := []string{
		"Page / Halaman 1",
		"CIMB ISLAMIC BANK",
		"ISLAMIC BBB-PPPP",
		"OPENING BALANCE",
		"1,000.00",
		"01/03/2024 DUITNOW CREDIT",
		"01/03/2024",
		"ALI BIN ABU",
		"200.00",
		"1,200.00",
		"02/03/2024 TRANSFER",
		"BOB",
		"300.00",
		"1,500.00",
		"03/03/2024 PAYMENT",
		"99 SPEEDMART-2133",
		"50.00",
		"1,450.00",
	}

	info, err := Reconstruct(lines, cimbDebit(), Options{Debug: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Transactions) != 4 {
		t.Fatalf("got %d transactions, want 4", len(info.Transactions))
	}
	if !info.Reconcile.Applied || !info.Reconcile.Converged || info.Reconcile.Swaps != 1 {
		t.Errorf("reconcile: got %+v", info.Reconcile)
	}
	if len(info.DebugLines) == 0 {
		t.Error("expected debug lines")
	}

	opening := info.Transactions[0]
	if !opening.Opening || opening.Description != "Opening Balance" || !opening.Date.IsZero() {
		t.Errorf("opening: got %+v", opening)
	}

	credit := info.Transactions[1]
	if credit.Direction != models.DirectionInflow || credit.Beneficiary != "ALI BIN ABU" {
		t.Errorf("credit: got %q/%q", credit.Direction, credit.Beneficiary)
	}

	transfer := info.Transactions[2]
	if transfer.Direction != models.DirectionInflow || transfer.Flow != "deposit" {
		t.Errorf("transfer should be repaired to inflow, got %q/%q", transfer.Direction, transfer.Flow)
	}

	payment := info.Transactions[3]
	if payment.Description != "ninetynine speed mart" || payment.Direction != models.DirectionOutflow {
		t.Errorf("payment: got %q/%q", payment.Description, payment.Direction)
	}
}

func TestReconstructKeepsAnchorAfterShortRow(t *testing.T) {
	lines := []string{
		"OPENING BALANCE",
		"1,000.00",
		"01/03/2024 DUITNOW CREDIT",
		"200.00",
		"1,200.00",
		"02/03/2024 PAYMENT",
		"ALI",
		"50.00",
		"1,150.00",
	}

	info, err := Reconstruct(lines, cimbDebit(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Transactions) != 3 || info.Discarded != 0 {
		t.Fatalf("got %d transactions and %d discarded, want 3 and 0", len(info.Transactions), info.Discarded)
	}

	payment := info.Transactions[2]
	if payment.Type != "PAYMENT" || payment.Beneficiary != "ALI" {
		t.Errorf("type/beneficiary: got %q/%q", payment.Type, payment.Beneficiary)
	}
	if payment.Amount.StringFixed(2) != "50.00" || payment.Direction != models.DirectionOutflow {
		t.Errorf("amount/direction: got %s/%q", payment.Amount.StringFixed(2), payment.Direction)
	}
	if !info.Reconcile.Converged || info.Reconcile.Swaps != 0 {
		t.Errorf("reconcile: got %+v", info.Reconcile)
	}
}

func TestAutoDetect(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected models.FormatID
		wantErr  bool
	}{
		{
			name:     "detects CIMB",
			lines:    []string{"CIMB BANK BERHAD", "Statement of account"},
			expected: models.FormatCIMBDebit,
		},
		{
			name:     "detects Maybank credit card",
			lines:    []string{"Maybank", "CREDIT CARD STATEMENT"},
			expected: models.FormatMaybankCC,
		},
		{
			name:     "detects MAE",
			lines:    []string{"Maybank Islamic Berhad", "MAE", "ACCOUNT TRANSACTIONS"},
			expected: models.FormatMaybankMAE,
		},
		{
			name:     "detects Maybank current account",
			lines:    []string{"Malayan Banking Berhad (MAYBANK)", "SAVINGS ACCOUNT"},
			expected: models.FormatMaybankCASA,
		},
		{
			name:    "unknown bank returns error",
			lines:   []string{"Some Unknown Bank", "Statement"},
			wantErr: true,
		},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.AutoDetect(tt.lines)
			if tt.wantErr {
				if !errors.Is(err, ErrFormatNotDetected) {
					t.Errorf("got error %v, want ErrFormatNotDetected", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tt.expected {
				t.Errorf("got %q, want %q", got.ID, tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		id       models.FormatID
		wantName string
		wantErr  bool
	}{
		{models.FormatMaybankCASA, "Maybank Debit Card Statement", false},
		{models.FormatMaybankMAE, "Maybank MAE Statement", false},
		{models.FormatMaybankCC, "Maybank Credit Card Statement", false},
		{"CIMB-DEBIT", "CIMB Debit Statement", false},
		{"unknown", "", true},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			p, err := reg.New(tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("got error %v, want ErrUnknownFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.FormatName() != tt.wantName {
				t.Errorf("got %q, want %q", p.FormatName(), tt.wantName)
			}
		})
	}
}

func TestRegisterPrependsNewFormats(t *testing.T) {
	reg := NewRegistry()
	custom := maybankCASA()
	custom.ID = "custom"
	reg.Register(custom)

	formats := reg.Formats()
	if formats[0].ID != "custom" {
		t.Errorf("first format: got %q, want custom", formats[0].ID)
	}

	replaced := cimbDebit()
	replaced.Name = "CIMB replaced"
	reg.Register(replaced)
	if len(reg.Formats()) != 5 {
		t.Errorf("got %d formats, want 5", len(reg.Formats()))
	}
	cfg, err := reg.Lookup(models.FormatCIMBDebit)
	if err != nil || cfg.Name != "CIMB replaced" {
		t.Errorf("lookup after replace: got %v, %v", cfg, err)
	}
}
