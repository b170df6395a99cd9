package writer

import (
	"fmt"
	"os"
	"time"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
)

// ofxNameLimit is the longest NAME the OFX specification allows.
const ofxNameLimit = 32

// OFXWriter writes an OFX 2.0.3 response with one statement per document:
// bank statements for account formats, credit card statements for card
// formats. Opening balance rows are not transactions and are skipped.
type OFXWriter struct {
	// Currency is the ISO 4217 code of the statements, MYR when empty.
	Currency string
	// Now stamps the server time; tests pin it.
	Now func() time.Time
}

// WriteFile marshals the statements and writes them to path.
func (w *OFXWriter) WriteFile(path string, statements []*models.StatementInfo) error {
	resp, err := w.Response(statements)
	if err != nil {
		return err
	}
	buf, err := resp.Marshal()
	if err != nil {
		return fmt.Errorf("marshal OFX: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write output file %q: %w", path, err)
	}
	return nil
}

// Response builds the OFX response for the statements.
func (w *OFXWriter) Response(statements []*models.StatementInfo) (*ofxgo.Response, error) {
	code := w.Currency
	if code == "" {
		code = "MYR"
	}
	cur, err := ofxgo.NewCurrSymbol(code)
	if err != nil {
		return nil, fmt.Errorf("currency %q: %w", code, err)
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	resp := &ofxgo.Response{
		Version: ofxgo.OfxVersion203,
		Signon: ofxgo.SignonResponse{
			Status:   ofxgo.Status{Code: 0, Severity: "INFO"},
			DtServer: ofxgo.Date{Time: now()},
			Language: "ENG",
		},
	}

	for _, info := range statements {
		if info == nil {
			continue
		}
		uid, err := ofxgo.RandomUID()
		if err != nil {
			return nil, fmt.Errorf("generate transaction uid: %w", err)
		}
		list, balance, asOf := transactionList(info)
		acct := info.AccountNumber
		if acct == "" {
			acct = "UNKNOWN"
		}

		if info.Schema == models.SchemaCreditCard {
			resp.CreditCard = append(resp.CreditCard, &ofxgo.CCStatementResponse{
				TrnUID:       *uid,
				Status:       ofxgo.Status{Code: 0, Severity: "INFO"},
				CurDef:       *cur,
				CCAcctFrom:   ofxgo.CCAcct{AcctID: ofxgo.String(acct)},
				BankTranList: list,
				BalAmt:       balance,
				DtAsOf:       asOf,
			})
			continue
		}
		resp.Bank = append(resp.Bank, &ofxgo.StatementResponse{
			TrnUID: *uid,
			Status: ofxgo.Status{Code: 0, Severity: "INFO"},
			CurDef: *cur,
			BankAcctFrom: ofxgo.BankAcct{
				BankID:   ofxgo.String(string(info.Format)),
				AcctID:   ofxgo.String(acct),
				AcctType: ofxgo.AcctTypeChecking,
			},
			BankTranList: list,
			BalAmt:       balance,
			DtAsOf:       asOf,
		})
	}
	return resp, nil
}

// transactionList converts dated transactions and returns the last known
// balance with its date.
func transactionList(info *models.StatementInfo) (*ofxgo.TransactionList, ofxgo.Amount, ofxgo.Date) {
	list := &ofxgo.TransactionList{}
	var balance ofxgo.Amount
	var asOf ofxgo.Date

	for _, txn := range info.Transactions {
		if txn.Opening || txn.Date.IsZero() {
			if txn.Balance.Valid {
				balance.SetString(txn.Balance.Decimal.String())
			}
			continue
		}
		if list.DtStart.IsZero() || txn.Date.Before(list.DtStart.Time) {
			list.DtStart = ofxgo.Date{Time: txn.Date}
		}
		if txn.Date.After(list.DtEnd.Time) {
			list.DtEnd = ofxgo.Date{Time: txn.Date}
		}

		var amt ofxgo.Amount
		amt.SetString(txn.Amount.String())
		trnType := ofxgo.TrnTypeOther
		switch txn.Direction {
		case models.DirectionInflow:
			trnType = ofxgo.TrnTypeCredit
		case models.DirectionOutflow:
			trnType = ofxgo.TrnTypeDebit
			amt.Neg(&amt.Rat)
		}

		list.Transactions = append(list.Transactions, ofxgo.Transaction{
			TrnType:  trnType,
			DtPosted: ofxgo.Date{Time: txn.Date},
			TrnAmt:   amt,
			FiTID:    ofxgo.String(fitID(txn)),
			Name:     ofxgo.String(truncateName(txn.Description)),
			Memo:     ofxgo.String(memo(txn)),
		})

		if txn.Balance.Valid {
			balance.SetString(txn.Balance.Decimal.String())
		}
		asOf = ofxgo.Date{Time: txn.Date}
	}
	return list, balance, asOf
}

// fitID is stable across exports of the same statement so importers can
// de-duplicate.
func fitID(txn models.Transaction) string {
	key := fmt.Sprintf("%s|%d|%s|%s", txn.Source, txn.Sequence, txn.Date.Format("20060102"), txn.Amount.StringFixed(2))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

func truncateName(s string) string {
	r := []rune(s)
	if len(r) > ofxNameLimit {
		return string(r[:ofxNameLimit])
	}
	return s
}

func memo(txn models.Transaction) string {
	switch {
	case txn.Type != "" && txn.Beneficiary != "":
		return txn.Type + " " + txn.Beneficiary
	case txn.Type != "":
		return txn.Type
	default:
		return txn.Beneficiary
	}
}
