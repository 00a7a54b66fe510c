package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is the encoding of an uploaded table.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
)

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks the parser for an upload from its file name, falling back
// to the content: xlsx workbooks are zip archives.
func DetectFormat(filename string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// row is one data record. Num counts records with the header as 1.
type row struct {
	Num   int
	Cells []string
}

// table is a header row plus its data rows. Blank rows are already dropped.
type table struct {
	Header []string
	Rows   []row
}

func parseTable(format Format, data []byte) (*table, error) {
	if format == FormatXLSX {
		return parseXLSX(data)
	}
	return parseCSV(data)
}

var utf8BOM = []byte("\xef\xbb\xbf")

func parseCSV(data []byte) (*table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	// Vendor sheets carry ragged rows and inch marks in unquoted cells.
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	t := &table{Header: header}
	for num := 2; ; num++ {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", num, err)
		}
		if isBlank(cells) {
			continue
		}
		t.Rows = append(t.Rows, row{Num: num, Cells: cells})
	}
	return t, nil
}

func parseXLSX(data []byte) (*table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("no sheets found in Excel file")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("file is empty")
	}

	t := &table{Header: rows[0]}
	for i, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		// GetRows trims trailing empty cells; a cell under a header is "" as in CSV.
		if n := len(t.Header); len(cells) < n {
			cells = append(cells, make([]string, n-len(cells))...)
		}
		t.Rows = append(t.Rows, row{Num: i + 2, Cells: cells})
	}
	return t, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
