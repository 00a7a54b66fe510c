package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SparePart is a replaceable part. When loaded for an error code, Ranking holds
// the association's ranking rather than the part's own default.
type SparePart struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OemCode     string    `gorm:"uniqueIndex:idx_spare_parts_oem_code;not null" json:"oem_code"`
	Description string    `gorm:"not null;default:''" json:"description"`
	ImageURL    *string   `json:"image_url"`
	Ranking     int       `gorm:"not null;default:0" json:"ranking"`
}

// BeforeCreate assigns a fresh id when none was set.
func (p *SparePart) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ErrorPart links an error code to a spare part with a display ranking (ascending).
type ErrorPart struct {
	ErrorID uuid.UUID `gorm:"type:uuid;primaryKey" json:"error_id"`
	PartID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"part_id"`
	Ranking int       `gorm:"not null;default:0" json:"ranking"`
}
