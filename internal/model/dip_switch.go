package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DipSwitch is one bit of a printer's DIP-switch table. ModelName is a copy of
// the canonical printer name, not a foreign key.
type DipSwitch struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModelName    string    `gorm:"not null;index:idx_dip_switches_lookup,priority:1" json:"model_name"`
	SwitchNumber int       `gorm:"not null;index:idx_dip_switches_lookup,priority:2" json:"switch_number"`
	BitNumber    int       `gorm:"not null;index:idx_dip_switches_lookup,priority:3" json:"bit_number"`
	FunctionName *string   `json:"function_name"`
	Setting0     *string   `gorm:"column:setting_0" json:"setting_0"`
	Setting1     *string   `gorm:"column:setting_1" json:"setting_1"`
	DefaultVal   *string   `json:"default_val"`
}

// BeforeCreate assigns a fresh id when none was set.
func (d *DipSwitch) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
