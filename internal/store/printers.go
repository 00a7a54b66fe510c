package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"printer-docs-backend/internal/model"
)

// ListPrinters returns every printer ordered by model name.
func (s *gormStore) ListPrinters(ctx context.Context) ([]model.Printer, error) {
	var printers []model.Printer
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Order("model_name").Find(&printers).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	return printers, nil
}

// FindPrinterByName looks a printer up by exact model name.
func (s *gormStore) FindPrinterByName(ctx context.Context, name string) (*model.Printer, error) {
	var p model.Printer
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Where("model_name = ?", name).First(&p).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find printer %q: %w", name, err)
	}
	return &p, nil
}

// EnsurePrinter inserts a printer named name unless one exists, and returns it.
func (s *gormStore) EnsurePrinter(ctx context.Context, name string) (*model.Printer, error) {
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "model_name"}},
			DoNothing: true,
		}).Create(&model.Printer{ModelName: name}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert printer %q: %w", name, err)
	}
	return s.FindPrinterByName(ctx, name)
}

// MergePrinter moves every error code of fromID to toID and deletes fromID.
// Codes both printers own stay with toID; fromID's copies and their part links
// are dropped. The printer row is only deleted once it owns no codes.
func (s *gormStore) MergePrinter(ctx context.Context, fromID, toID uuid.UUID) (MergeResult, error) {
	if fromID == toID {
		return MergeResult{}, fmt.Errorf("cannot merge printer %s into itself", fromID)
	}

	var res MergeResult
	err := s.do(ctx, func(db *gorm.DB) error {
		res = MergeResult{}
		return db.Transaction(func(tx *gorm.DB) error {
			targetCodes := tx.Model(&model.ErrorCode{}).Select("code").Where("printer_id = ?", toID)
			shadowed := tx.Model(&model.ErrorCode{}).Select("id").
				Where("printer_id = ? AND code IN (?)", fromID, targetCodes)

			if err := tx.Where("error_id IN (?)", shadowed).Delete(&model.ErrorPart{}).Error; err != nil {
				return fmt.Errorf("failed to drop part links of shadowed codes: %w", err)
			}

			dropped := tx.Where("printer_id = ? AND code IN (?)", fromID, targetCodes).Delete(&model.ErrorCode{})
			if dropped.Error != nil {
				return fmt.Errorf("failed to drop shadowed codes: %w", dropped.Error)
			}
			res.Dropped = dropped.RowsAffected

			moved := tx.Model(&model.ErrorCode{}).Where("printer_id = ?", fromID).Update("printer_id", toID)
			if moved.Error != nil {
				return fmt.Errorf("failed to move error codes: %w", moved.Error)
			}
			res.Moved = moved.RowsAffected

			var remaining int64
			if err := tx.Model(&model.ErrorCode{}).Where("printer_id = ?", fromID).Count(&remaining).Error; err != nil {
				return err
			}
			if remaining > 0 {
				return fmt.Errorf("printer %s still owns %d error codes", fromID, remaining)
			}

			if err := tx.Where("id = ?", fromID).Delete(&model.Printer{}).Error; err != nil {
				return fmt.Errorf("failed to delete printer %s: %w", fromID, err)
			}
			return nil
		})
	})
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to merge printer %s into %s: %w", fromID, toID, err)
	}
	return res, nil
}
