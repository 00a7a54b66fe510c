package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrorCode is one vendor error code of a printer with its service text.
// (PrinterID, Code) is unique.
type ErrorCode struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PrinterID              uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_error_codes_printer_code,priority:1" json:"printer_id"`
	Code                   string    `gorm:"not null;uniqueIndex:idx_error_codes_printer_code,priority:2" json:"code"`
	Classification         *string   `json:"classification"`
	Cause                  *string   `json:"cause"`
	Measures               *string   `json:"measures"`
	Solution               *string   `json:"solution"`
	EstimatedAbnormalParts *string   `json:"estimated_abnormal_parts"`
	Correction             *string   `json:"correction"`
	FaultyPartIsolation    *string   `json:"faulty_part_isolation"`
	Note                   *string   `json:"note"`

	Parts []SparePart `gorm:"-" json:"parts"`
}

// UpsertColumns are overwritten when an import hits an existing (printer_id, code).
var UpsertColumns = []string{
	"classification",
	"cause",
	"measures",
	"solution",
	"estimated_abnormal_parts",
	"correction",
	"faulty_part_isolation",
	"note",
}

// BeforeCreate assigns a fresh id when none was set.
func (e *ErrorCode) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
