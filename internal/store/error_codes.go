package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"printer-docs-backend/internal/model"
	"printer-docs-backend/internal/normalize"
)

// Stored codes are normalized in SQL the same way normalize.CodePrefix treats input.
const (
	digitsOnlyExpr = `regexp_replace(error_codes.code, '[^0-9]', '', 'g')`
	compactExpr    = `UPPER(REPLACE(REPLACE(error_codes.code, '-', ''), ' ', ''))`
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// startsWith turns prefix into a LIKE pattern matching strings that begin with it.
func startsWith(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

// SearchErrorCodes returns the codes of q.Model ordered by code.
func (s *gormStore) SearchErrorCodes(ctx context.Context, q ErrorQuery) ([]model.ErrorCode, error) {
	var codes []model.ErrorCode
	err := s.do(ctx, func(db *gorm.DB) error {
		tx := db.Select("error_codes.*").
			Joins("JOIN printers ON printers.id = error_codes.printer_id").
			Where("printers.model_name = ?", q.Model)

		if q.HasCode {
			expr := compactExpr
			if q.Style == normalize.CodeNumeric {
				expr = digitsOnlyExpr
			}
			tx = tx.Where(expr+` LIKE ? ESCAPE '\'`, startsWith(q.Prefix))
		}

		tx = tx.Order("error_codes.code")
		if q.Limit > 0 {
			tx = tx.Limit(q.Limit)
		}
		return tx.Find(&codes).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search error codes for %q: %w", q.Model, err)
	}
	return codes, nil
}

// UpsertErrorCode inserts ec or, when (printer_id, code) exists, overwrites
// every non-key column with ec's values, nulls included.
func (s *gormStore) UpsertErrorCode(ctx context.Context, ec *model.ErrorCode) error {
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "printer_id"}, {Name: "code"}},
			DoUpdates: clause.AssignmentColumns(model.UpsertColumns),
		}).Create(ec).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert error code %q: %w", ec.Code, err)
	}
	return nil
}

// A starred code such as "3501*" is a duplicate when its printer also owns "3501".
const starredDuplicates = `code LIKE '%*%' AND EXISTS (
	SELECT 1 FROM error_codes e2
	WHERE e2.printer_id = error_codes.printer_id
	AND e2.code = REPLACE(error_codes.code, '*', '')
)`

// DeleteStarredDuplicates removes starred duplicate codes and their part links.
func (s *gormStore) DeleteStarredDuplicates(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			dupIDs := tx.Model(&model.ErrorCode{}).Select("id").Where(starredDuplicates)
			if err := tx.Where("error_id IN (?)", dupIDs).Delete(&model.ErrorPart{}).Error; err != nil {
				return err
			}
			res := tx.Where(starredDuplicates).Delete(&model.ErrorCode{})
			deleted = res.RowsAffected
			return res.Error
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete starred duplicate codes: %w", err)
	}
	return deleted, nil
}
