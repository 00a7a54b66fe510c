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

// PartsForError returns the spare parts linked to errorID, ordered by the
// link's ranking. Each part's Ranking is the link ranking.
func (s *gormStore) PartsForError(ctx context.Context, errorID uuid.UUID) ([]model.SparePart, error) {
	parts := make([]model.SparePart, 0)
	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Raw(`
			SELECT sp.id, sp.oem_code, sp.description, sp.image_url, ep.ranking AS ranking
			FROM spare_parts sp
			JOIN error_parts ep ON sp.id = ep.part_id
			WHERE ep.error_id = ?
			ORDER BY ep.ranking ASC, sp.oem_code ASC`, errorID).
			Scan(&parts).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load parts for error %s: %w", errorID, err)
	}
	return parts, nil
}

// UpsertSparePart inserts part or updates the part with the same OEM code,
// then loads the stored row back into part.
func (s *gormStore) UpsertSparePart(ctx context.Context, part *model.SparePart) error {
	err := s.do(ctx, func(db *gorm.DB) error {
		candidate := *part
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "oem_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "image_url", "ranking"}),
		}).Create(&candidate).Error; err != nil {
			return err
		}
		var stored model.SparePart
		if err := db.Where("oem_code = ?", part.OemCode).First(&stored).Error; err != nil {
			return err
		}
		*part = stored
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert spare part %q: %w", part.OemCode, err)
	}
	return nil
}

// ReplaceErrorParts sets the part links of errorID to exactly links.
func (s *gormStore) ReplaceErrorParts(ctx context.Context, errorID uuid.UUID, links []model.ErrorPart) error {
	partIDs := make([]uuid.UUID, 0, len(links))
	seen := make(map[uuid.UUID]bool, len(links))
	for i := range links {
		links[i].ErrorID = errorID
		if !seen[links[i].PartID] {
			seen[links[i].PartID] = true
			partIDs = append(partIDs, links[i].PartID)
		}
	}
	if len(partIDs) != len(links) {
		return fmt.Errorf("duplicate part in links for error %s", errorID)
	}

	err := s.do(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var owner model.ErrorCode
			if err := tx.Select("id").Where("id = ?", errorID).First(&owner).Error; err != nil {
				return err
			}

			if len(partIDs) > 0 {
				var found int64
				if err := tx.Model(&model.SparePart{}).Where("id IN ?", partIDs).Count(&found).Error; err != nil {
					return err
				}
				if found != int64(len(partIDs)) {
					return gorm.ErrRecordNotFound
				}
			}

			if err := tx.Where("error_id = ?", errorID).Delete(&model.ErrorPart{}).Error; err != nil {
				return err
			}
			if len(links) == 0 {
				return nil
			}
			return tx.Create(&links).Error
		})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to replace parts of error %s: %w", errorID, err)
	}
	return nil
}
