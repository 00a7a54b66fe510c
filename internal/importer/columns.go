package importer

import (
	"strings"

	"printer-docs-backend/internal/model"
)

// field is a destination column of model.ErrorCode.
type field int

const (
	fieldCode field = iota
	fieldClassification
	fieldCause
	fieldMeasures
	fieldSolution
	fieldEstimatedAbnormalParts
	fieldCorrection
	fieldFaultyPartIsolation
	fieldNote
	numFields
)

// headerAliases lists the accepted header texts per field. The first alias
// present in the header row wins.
var headerAliases = [numFields][]string{
	fieldCode:                   {"Code"},
	fieldClassification:         {"Classification"},
	fieldCause:                  {"Cause"},
	fieldMeasures:               {"Measures to take when an alert occurs", "Measures"},
	fieldSolution:               {"Solution"},
	fieldEstimatedAbnormalParts: {"Estimated abnormal parts"},
	fieldCorrection:             {"Correction"},
	fieldFaultyPartIsolation:    {"Faulty part isolation DIPSW", "Faulty part isolation DIPSW ", "Faulty part isolation"},
	fieldNote:                   {"Note"},
}

// columnMap holds the header index of each field, or -1 when absent.
type columnMap [numFields]int

// mapColumns resolves headerAliases against header. Exact matches are tried
// first; a second pass ignores case and surrounding whitespace.
func mapColumns(header []string) columnMap {
	exact := make(map[string]int, len(header))
	loose := make(map[string]int, len(header))
	for i, h := range header {
		if _, ok := exact[h]; !ok {
			exact[h] = i
		}
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := loose[key]; !ok {
			loose[key] = i
		}
	}

	var cols columnMap
	for f, aliases := range headerAliases {
		cols[f] = -1
		for _, a := range aliases {
			if i, ok := exact[a]; ok {
				cols[f] = i
				break
			}
		}
		if cols[f] >= 0 {
			continue
		}
		for _, a := range aliases {
			if i, ok := loose[strings.ToLower(strings.TrimSpace(a))]; ok {
				cols[f] = i
				break
			}
		}
	}
	return cols
}

// found reports whether any field was recognised.
func (c columnMap) found() bool {
	for _, i := range c {
		if i >= 0 {
			return true
		}
	}
	return false
}

// cell returns the value of f in cells. A missing column or a short row is nil.
func (c columnMap) cell(cells []string, f field) *string {
	i := c[f]
	if i < 0 || i >= len(cells) {
		return nil
	}
	v := cells[i]
	return &v
}

// errorCode builds the record for one row.
func (c columnMap) errorCode(cells []string) model.ErrorCode {
	ec := model.ErrorCode{
		Classification:         c.cell(cells, fieldClassification),
		Cause:                  c.cell(cells, fieldCause),
		Measures:               c.cell(cells, fieldMeasures),
		Solution:               c.cell(cells, fieldSolution),
		EstimatedAbnormalParts: c.cell(cells, fieldEstimatedAbnormalParts),
		Correction:             c.cell(cells, fieldCorrection),
		FaultyPartIsolation:    c.cell(cells, fieldFaultyPartIsolation),
		Note:                   c.cell(cells, fieldNote),
	}
	if code := c.cell(cells, fieldCode); code != nil {
		ec.Code = *code
	}
	return ec
}
