// Package importer loads vendor error-code tables (CSV or Excel) into the store.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"printer-docs-backend/internal/apperr"
	"printer-docs-backend/internal/metrics"
	"printer-docs-backend/internal/model"
)

// Store is the part of store.Store the importer needs.
type Store interface {
	EnsurePrinter(ctx context.Context, name string) (*model.Printer, error)
	UpsertErrorCode(ctx context.Context, ec *model.ErrorCode) error
}

// Namer normalizes printer model names.
type Namer interface {
	Normalize(raw string) string
}

// Upload is one uploaded table for a printer model.
type Upload struct {
	Model    string
	Filename string
	Data     []byte
}

// SkippedRow explains why a row was not imported.
type SkippedRow struct {
	Row    int    `json:"row"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Report summarises an import.
type Report struct {
	Model     string       `json:"model"`
	PrinterID uuid.UUID    `json:"printer_id"`
	Upserted  int          `json:"upserted"`
	Skipped   int          `json:"skipped"`
	Rows      []SkippedRow `json:"skipped_rows"`
}

// Message is the one-line summary shown to users.
func (r *Report) Message() string {
	return fmt.Sprintf("Imported %d error codes for %s", r.Upserted, r.Model)
}

// Service imports error-code tables.
type Service struct {
	store   Store
	namer   Namer
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates an import service.
func NewService(s Store, namer Namer, log *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{store: s, namer: namer, log: log.Named("importer"), metrics: m}
}

// Import upserts every data row of u under the normalized model name, creating
// the printer when needed. Rows that fail are reported and skipped; the rest of
// the batch still runs.
func (s *Service) Import(ctx context.Context, u Upload) (*Report, error) {
	if strings.TrimSpace(u.Model) == "" {
		return nil, apperr.Input("Model name is required")
	}
	name := s.namer.Normalize(u.Model)
	if name == "" {
		return nil, apperr.Inputf("model name %q is empty once normalized", u.Model)
	}
	if len(u.Data) == 0 {
		return nil, apperr.Input("file is required")
	}

	t, err := parseTable(DetectFormat(u.Filename, u.Data), u.Data)
	if err != nil {
		return nil, apperr.Inputf("could not read %s: %v", displayName(u.Filename), err)
	}
	cols := mapColumns(t.Header)
	if !cols.found() {
		return nil, apperr.Inputf("no known columns in header row (expected e.g. %q)", headerAliases[fieldCode][0])
	}
	if cols[fieldCode] < 0 {
		s.log.Warn("upload has no Code column; rows are stored under an empty code", zap.String("model", name))
	}

	printer, err := s.store.EnsurePrinter(ctx, name)
	if err != nil {
		return nil, apperr.Storage("resolve printer", err)
	}

	report := &Report{Model: name, PrinterID: printer.ID, Rows: []SkippedRow{}}
	for _, r := range t.Rows {
		ec := cols.errorCode(r.Cells)
		ec.PrinterID = printer.ID
		if err := s.store.UpsertErrorCode(ctx, &ec); err != nil {
			s.log.Error("failed to upsert error code",
				zap.String("model", name),
				zap.Int("row", r.Num),
				zap.String("code", ec.Code),
				zap.Error(err))
			report.skip(r.Num, ec.Code, "storage failure")
			continue
		}
		report.Upserted++
	}

	s.metrics.RecordImport(report.Upserted, report.Skipped)
	s.log.Info("import finished",
		zap.String("model", name),
		zap.Int("upserted", report.Upserted),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func (r *Report) skip(num int, code, reason string) {
	r.Skipped++
	r.Rows = append(r.Rows, SkippedRow{Row: num, Code: code, Reason: reason})
}

func displayName(filename string) string {
	if filename == "" {
		return "upload"
	}
	return filename
}
