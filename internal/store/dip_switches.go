package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"printer-docs-backend/internal/model"
)

const dipSwitchBatchSize = 200

// ReplaceDipSwitches deletes every row of modelName and inserts rows under it,
// in one transaction so readers never see the model without switches.
func (s *gormStore) ReplaceDipSwitches(ctx context.Context, modelName string, rows []model.DipSwitch) error {
	for i := range rows {
		rows[i].ModelName = modelName
	}
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("model_name = ?", modelName).Delete(&model.DipSwitch{}).Error; err != nil {
				return fmt.Errorf("failed to clear dip switches: %w", err)
			}
			if len(rows) == 0 {
				return nil
			}
			if err := tx.CreateInBatches(&rows, dipSwitchBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert dip switches: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to replace dip switches of %q: %w", modelName, err)
	}
	return nil
}

// ClearDipSwitches deletes every row of modelName.
func (s *gormStore) ClearDipSwitches(ctx context.Context, modelName string) (int64, error) {
	var deleted int64
	err := s.do(ctx, func(db *gorm.DB) error {
		res := db.Where("model_name = ?", modelName).Delete(&model.DipSwitch{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear dip switches of %q: %w", modelName, err)
	}
	return deleted, nil
}

// QueryDipSwitches returns rows matching every set filter, ordered by switch then bit.
func (s *gormStore) QueryDipSwitches(ctx context.Context, f DipSwitchFilter) ([]model.DipSwitch, error) {
	switches := make([]model.DipSwitch, 0)
	err := s.do(ctx, func(db *gorm.DB) error {
		tx := db.Model(&model.DipSwitch{})
		if f.Model != nil {
			tx = tx.Where("model_name = ?", *f.Model)
		}
		if f.Switch != nil {
			tx = tx.Where("switch_number = ?", *f.Switch)
		}
		if f.Bit != nil {
			tx = tx.Where("bit_number = ?", *f.Bit)
		}
		return tx.Order("switch_number ASC, bit_number ASC").Find(&switches).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query dip switches: %w", err)
	}
	return switches, nil
}

// DipSwitchModelNames lists the distinct model names in the DIP-switch table.
func (s *gormStore) DipSwitchModelNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Model(&model.DipSwitch{}).Distinct().Order("model_name").Pluck("model_name", &names).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list dip switch models: %w", err)
	}
	return names, nil
}

// RenameDipSwitchModel moves rows of from to to. When to already has rows,
// those are kept and from's rows are deleted instead.
func (s *gormStore) RenameDipSwitchModel(ctx context.Context, from, to string) (renamed, deleted int64, err error) {
	err = s.do(ctx, func(db *gorm.DB) error {
		renamed, deleted = 0, 0
		return db.Transaction(func(tx *gorm.DB) error {
			var existing int64
			if err := tx.Model(&model.DipSwitch{}).Where("model_name = ?", to).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				res := tx.Where("model_name = ?", from).Delete(&model.DipSwitch{})
				deleted = res.RowsAffected
				return res.Error
			}
			res := tx.Model(&model.DipSwitch{}).Where("model_name = ?", from).Update("model_name", to)
			renamed = res.RowsAffected
			return res.Error
		})
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to rename dip switches %q -> %q: %w", from, to, err)
	}
	return renamed, deleted, nil
}
