package writer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const documentsSheet = "Documents"

// XLSXWriter writes one sheet per column layout plus a Documents sheet
// listing every source statement.
type XLSXWriter struct{}

// WriteFile builds the workbook and saves it to path.
func (w *XLSXWriter) WriteFile(path string, statements []*models.StatementInfo) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	first := true
	for _, g := range groupBySchema(statements) {
		sheet := sheetName(g.name)
		if first {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}

		rows := make([][]string, 0, len(g.txns)+1)
		rows = append(rows, g.schema.Header())
		for _, txn := range g.txns {
			rows = append(rows, g.schema.Row(txn))
		}
		if err := writeRows(f, sheet, rows, bold); err != nil {
			return err
		}
	}

	if first {
		if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := f.NewSheet(documentsSheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", documentsSheet, err)
	}
	if err := writeRows(f, documentsSheet, documentRows(statements), bold); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %q: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]string, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 {
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
		last, _ := excelize.ColumnNumberToName(len(rows[0]))
		if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
			return fmt.Errorf("size %s columns: %w", sheet, err)
		}
	}
	return nil
}

// cellValue stores money as numbers so spreadsheets can sum them.
func cellValue(s string) interface{} {
	if strings.Contains(s, ".") {
		if d, err := decimal.NewFromString(s); err == nil {
			return d.InexactFloat64()
		}
	}
	return s
}

func documentRows(statements []*models.StatementInfo) [][]string {
	rows := [][]string{{"Source", "Format", "Account Number", "Statement Date", "Transactions", "Discarded", "Warnings"}}
	for _, info := range statements {
		if info == nil {
			continue
		}
		stmtDate := ""
		if info.StatementDate != nil {
			stmtDate = info.StatementDate.Format("2006-01-02")
		}
		rows = append(rows, []string{
			info.Source,
			string(info.Format),
			info.AccountNumber,
			stmtDate,
			strconv.Itoa(len(info.Transactions)),
			strconv.Itoa(info.Discarded),
			strconv.Itoa(len(info.Warnings)),
		})
	}
	return rows
}

// sheetName trims a name to Excel's 31 character limit.
func sheetName(name string) string {
	if name == "" {
		name = "Transactions"
	}
	r := []rune(name)
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}
