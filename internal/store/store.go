package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"printer-docs-backend/internal/model"
	"printer-docs-backend/internal/normalize"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrorQuery selects error codes of one printer model.
type ErrorQuery struct {
	Model string
	// HasCode enables the prefix filter described by Style and Prefix.
	HasCode bool
	Style   normalize.CodeStyle
	Prefix  string
	// Limit caps the rows returned; zero means no cap.
	Limit int
}

// DipSwitchFilter narrows a DIP-switch read. Nil fields are not filtered on.
type DipSwitchFilter struct {
	Model  *string
	Switch *int
	Bit    *int
}

// MergeResult reports what a printer merge did.
type MergeResult struct {
	Moved   int64
	Dropped int64
}

// Store defines the interface for all database operations.
type Store interface {
	Ping(ctx context.Context) error

	ListPrinters(ctx context.Context) ([]model.Printer, error)
	FindPrinterByName(ctx context.Context, name string) (*model.Printer, error)
	EnsurePrinter(ctx context.Context, name string) (*model.Printer, error)
	MergePrinter(ctx context.Context, fromID, toID uuid.UUID) (MergeResult, error)

	SearchErrorCodes(ctx context.Context, q ErrorQuery) ([]model.ErrorCode, error)
	UpsertErrorCode(ctx context.Context, ec *model.ErrorCode) error
	DeleteStarredDuplicates(ctx context.Context) (int64, error)

	PartsForError(ctx context.Context, errorID uuid.UUID) ([]model.SparePart, error)
	UpsertSparePart(ctx context.Context, part *model.SparePart) error
	ReplaceErrorParts(ctx context.Context, errorID uuid.UUID, links []model.ErrorPart) error

	ReplaceDipSwitches(ctx context.Context, modelName string, rows []model.DipSwitch) error
	ClearDipSwitches(ctx context.Context, modelName string) (int64, error)
	QueryDipSwitches(ctx context.Context, f DipSwitchFilter) ([]model.DipSwitch, error)
	DipSwitchModelNames(ctx context.Context) ([]string, error)
	RenameDipSwitchModel(ctx context.Context, from, to string) (renamed, deleted int64, err error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db    *gorm.DB
	retry RetryPolicy
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, retry RetryPolicy) Store {
	return &gormStore{db: db, retry: retry}
}

func (s *gormStore) do(ctx context.Context, fn func(db *gorm.DB) error) error {
	return retryWithBackoff(ctx, s.retry, func() error {
		return fn(s.db.WithContext(ctx))
	})
}

// Ping checks that the database answers.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
