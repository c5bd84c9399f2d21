// Package importer reads participant rosters uploaded as CSV or Excel sheets.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sirdesai22/certify-service/internal/errs"
)

// Row is one roster entry. Values are trimmed but not validated.
type Row struct {
	Line  int
	Name  string
	Email string
}

// Read picks the decoder from the uploaded file name.
func Read(filename string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return ReadCSV(r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q (use .csv or .xlsx)", errs.ErrInvalidInput, filepath.Ext(filename))
	}
}

func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %v", errs.ErrInvalidInput, err)
	}
	return fromRecords(records)
}

func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx: %v", errs.ErrInvalidInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", errs.ErrInvalidInput)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx: %v", errs.ErrInvalidInput, err)
	}
	return fromRecords(records)
}

var errNoEmailColumn = fmt.Errorf("%w: header must contain an email column", errs.ErrInvalidInput)

func fromRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", errs.ErrInvalidInput)
	}

	nameCol, emailCol := -1, -1
	for i, h := range records[0] {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "name", "full name", "full_name":
			if nameCol < 0 {
				nameCol = i
			}
		case "email", "e-mail", "email address":
			if emailCol < 0 {
				emailCol = i
			}
		}
	}
	if emailCol < 0 {
		return nil, errNoEmailColumn
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row := Row{Line: i + 2, Email: cell(rec, emailCol), Name: cell(rec, nameCol)}
		if row.Email == "" && row.Name == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
