// Package tabular decodes uploaded CSV and XLSX files into ordered sequences
// of flat key-value records. The first row is treated as the header; every
// following row becomes one record keyed by the header names.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Decoder errors
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingHeader     = errors.New("file has no header row")
)

// Record is one decoded row, keyed by header column name.
type Record map[string]string

// Get returns the value for a column, tolerating missing keys.
func (r Record) Get(column string) string {
	return r[column]
}

// DecodeFile dispatches on the file extension and decodes the whole file
// into memory. Supported extensions: .csv and .xlsx.
func DecodeFile(path string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open csv file: %w", err)
		}
		defer f.Close()
		return DecodeCSV(f)
	case ".xlsx":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open xlsx file: %w", err)
		}
		defer f.Close()
		return DecodeXLSX(f)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// DecodeCSV reads comma-separated rows in original file order.
func DecodeCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may be ragged
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rowsToRecords(rows)
}

// DecodeXLSX reads the first sheet of an Excel workbook in row order.
func DecodeXLSX(r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse xlsx: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet: %w", err)
	}
	return rowsToRecords(rows)
}

// rowsToRecords maps raw rows onto header-keyed records. Rows with every cell
// empty are skipped; short rows leave the trailing columns empty.
func rowsToRecords(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, ErrMissingHeader
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var records []Record
	for _, row := range rows[1:] {
		empty := true
		record := make(Record, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			var value string
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			record[col] = value
			if value != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}
