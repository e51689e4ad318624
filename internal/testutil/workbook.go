// Package testutil builds in-memory spreadsheets for tests.
package testutil

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet is a named worksheet with its rows, header first.
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// Workbook returns the bytes of an XLSX file holding the given sheets in
// order. The default "Sheet1" is renamed to the first sheet's name.
func Workbook(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}

		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			values := row
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// SingleSheet is shorthand for a workbook with one sheet.
func SingleSheet(t testing.TB, name string, rows ...[]interface{}) []byte {
	t.Helper()
	return Workbook(t, Sheet{Name: name, Rows: rows})
}
