package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecodeCSV(t *testing.T) {
	input := "tup_id,name,school_year\n" +
		"TUP-01-0001,Juan Dela Cruz,2024-2025\n" +
		"TUP-01-0002,Maria Clara,2024-2025\n"

	records, err := DecodeCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "TUP-01-0001", records[0].Get("tup_id"))
	assert.Equal(t, "Juan Dela Cruz", records[0].Get("name"))
	assert.Equal(t, "Maria Clara", records[1].Get("name"))
}

func TestDecodeCSVSkipsEmptyRowsAndPadsShortRows(t *testing.T) {
	input := "tup_id,name\n" +
		",\n" +
		"TUP-01-0003\n"

	records, err := DecodeCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "TUP-01-0003", records[0].Get("tup_id"))
	assert.Equal(t, "", records[0].Get("name"))
}

func TestDecodeCSVHeaderOnly(t *testing.T) {
	records, err := DecodeCSV(strings.NewReader("tup_id,name\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecodeCSVEmptyInput(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"tup_id", "name"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"TUP-01-0001", "Juan Dela Cruz"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]string{"TUP-01-0002", "Maria Clara"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	records, err := DecodeXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "TUP-01-0001", records[0].Get("tup_id"))
	assert.Equal(t, "Maria Clara", records[1].Get("name"))
}

func TestDecodeFileUnsupportedExtension(t *testing.T) {
	_, err := DecodeFile("students.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
