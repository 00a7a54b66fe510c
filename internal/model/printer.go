package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Printer is a printer model identified by its canonical, vendor-prefix-free name.
type Printer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModelName string    `gorm:"uniqueIndex:idx_printers_model_name;not null" json:"model_name"`
}

// BeforeCreate assigns a fresh id when none was set.
func (p *Printer) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
