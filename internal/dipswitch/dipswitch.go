// Package dipswitch replaces and reads per-model DIP-switch tables.
package dipswitch

import (
	"context"

	"go.uber.org/zap"

	"printer-docs-backend/internal/apperr"
	"printer-docs-backend/internal/metrics"
	"printer-docs-backend/internal/model"
	"printer-docs-backend/internal/store"
)

// Store is the part of store.Store the DIP-switch service needs.
type Store interface {
	ReplaceDipSwitches(ctx context.Context, modelName string, rows []model.DipSwitch) error
	ClearDipSwitches(ctx context.Context, modelName string) (int64, error)
	QueryDipSwitches(ctx context.Context, f store.DipSwitchFilter) ([]model.DipSwitch, error)
}

// Namer normalizes printer model names.
type Namer interface {
	Normalize(raw string) string
}

// Row is one uploaded switch bit.
type Row struct {
	ModelName    string  `json:"model_name"`
	SwitchNumber *int    `json:"switch_number"`
	BitNumber    *int    `json:"bit_number"`
	FunctionName *string `json:"function_name"`
	Setting0     *string `json:"setting_0"`
	Setting1     *string `json:"setting_1"`
	DefaultVal   *string `json:"default_val"`
}

// Filter selects switches. Empty or nil fields match everything.
type Filter struct {
	Model  string
	Switch *int
	Bit    *int
}

// Service manages DIP-switch tables.
type Service struct {
	store   Store
	namer   Namer
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates a DIP-switch service.
func NewService(s Store, namer Namer, log *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{store: s, namer: namer, log: log.Named("dipswitch"), metrics: m}
}

// Replace swaps the whole table of one model for rows. The model is taken
// from the first row; every row is stored under it. An empty list does nothing.
func (s *Service) Replace(ctx context.Context, rows []Row) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	name := s.namer.Normalize(rows[0].ModelName)
	if name == "" {
		return "", apperr.Inputf("model_name %q is empty once normalized", rows[0].ModelName)
	}

	switches := make([]model.DipSwitch, 0, len(rows))
	mixed := 0
	for i, r := range rows {
		if r.SwitchNumber == nil || r.BitNumber == nil {
			return "", apperr.Inputf("row %d: switch_number and bit_number are required", i+1)
		}
		if i > 0 && s.namer.Normalize(r.ModelName) != name {
			mixed++
		}
		switches = append(switches, model.DipSwitch{
			ModelName:    name,
			SwitchNumber: *r.SwitchNumber,
			BitNumber:    *r.BitNumber,
			FunctionName: r.FunctionName,
			Setting0:     r.Setting0,
			Setting1:     r.Setting1,
			DefaultVal:   r.DefaultVal,
		})
	}
	if mixed > 0 {
		s.log.Warn("rows name other models; storing all under the first row's model",
			zap.String("model", name), zap.Int("rows", mixed))
	}

	if err := s.store.ReplaceDipSwitches(ctx, name, switches); err != nil {
		return "", apperr.Storage("replace dip switches", err)
	}
	s.metrics.RecordDipSwitchImport(len(switches))
	s.log.Info("dip switches replaced", zap.String("model", name), zap.Int("rows", len(switches)))
	return name, nil
}

// Clear deletes the whole table of a model.
func (s *Service) Clear(ctx context.Context, modelName string) (int64, error) {
	name := s.namer.Normalize(modelName)
	if name == "" {
		return 0, apperr.Input("missing required parameter: model")
	}
	n, err := s.store.ClearDipSwitches(ctx, name)
	if err != nil {
		return 0, apperr.Storage("clear dip switches", err)
	}
	s.log.Info("dip switches cleared", zap.String("model", name), zap.Int64("rows", n))
	return n, nil
}

// Query returns switches matching f ordered by switch then bit.
func (s *Service) Query(ctx context.Context, f Filter) ([]model.DipSwitch, error) {
	sf := store.DipSwitchFilter{Switch: f.Switch, Bit: f.Bit}
	if f.Model != "" {
		name := s.namer.Normalize(f.Model)
		sf.Model = &name
	}
	switches, err := s.store.QueryDipSwitches(ctx, sf)
	if err != nil {
		return nil, apperr.Storage("query dip switches", err)
	}
	if switches == nil {
		switches = []model.DipSwitch{}
	}
	return switches, nil
}
