// Package reconcile folds vendor-prefixed duplicates into canonical printer
// records. Every step is idempotent, so it runs on each start.
package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"printer-docs-backend/internal/metrics"
	"printer-docs-backend/internal/model"
	"printer-docs-backend/internal/store"
)

// Store is the part of store.Store reconciliation needs.
type Store interface {
	ListPrinters(ctx context.Context) ([]model.Printer, error)
	EnsurePrinter(ctx context.Context, name string) (*model.Printer, error)
	MergePrinter(ctx context.Context, fromID, toID uuid.UUID) (store.MergeResult, error)
	DeleteStarredDuplicates(ctx context.Context) (int64, error)
	DipSwitchModelNames(ctx context.Context) ([]string, error)
	RenameDipSwitchModel(ctx context.Context, from, to string) (renamed, deleted int64, err error)
}

// Namer normalizes printer model names.
type Namer interface {
	Normalize(raw string) string
}

// Options select what a run does.
type Options struct {
	// CanonicalModels are the names duplicates are merged into.
	CanonicalModels         []string
	NormalizeDipSwitchNames bool
	DedupeStarredCodes      bool
}

// Result counts what a run changed.
type Result struct {
	PrintersCreated int   `json:"printers_created"`
	PrintersMerged  int   `json:"printers_merged"`
	CodesMoved      int64 `json:"codes_moved"`
	CodesDropped    int64 `json:"codes_dropped"`
	StarredDeleted  int64 `json:"starred_deleted"`
	DipRenamed      int64 `json:"dip_switches_renamed"`
	DipDeleted      int64 `json:"dip_switches_deleted"`
}

// Changed reports whether the run modified anything.
func (r Result) Changed() bool {
	return r != Result{}
}

// Reconciler runs the maintenance pass.
type Reconciler struct {
	store   Store
	namer   Namer
	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Reconciler.
func New(s Store, namer Namer, opts Options, log *zap.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{store: s, namer: namer, opts: opts, log: log.Named("reconcile"), metrics: m}
}

// Run ensures the canonical printers exist, merges their prefixed duplicates
// into them, and then applies the optional DIP-switch and starred-code cleanups.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	var res Result

	canonical, err := r.ensureCanonical(ctx, &res)
	if err != nil {
		return res, err
	}
	if err := r.mergeDuplicates(ctx, canonical, &res); err != nil {
		return res, err
	}

	if r.opts.NormalizeDipSwitchNames {
		if err := r.normalizeDipSwitches(ctx, &res); err != nil {
			return res, err
		}
	}
	if r.opts.DedupeStarredCodes {
		n, err := r.store.DeleteStarredDuplicates(ctx)
		if err != nil {
			return res, fmt.Errorf("failed to delete starred duplicates: %w", err)
		}
		res.StarredDeleted = n
		r.metrics.RecordReconcile("starred_deleted", n)
	}

	r.log.Info("reconciliation finished",
		zap.Bool("changed", res.Changed()),
		zap.Int("printers_created", res.PrintersCreated),
		zap.Int("printers_merged", res.PrintersMerged),
		zap.Int64("codes_moved", res.CodesMoved),
		zap.Int64("codes_dropped", res.CodesDropped),
		zap.Int64("starred_deleted", res.StarredDeleted),
		zap.Int64("dip_switches_renamed", res.DipRenamed),
		zap.Int64("dip_switches_deleted", res.DipDeleted))
	return res, nil
}

// ensureCanonical inserts missing canonical printers and returns all of them by name.
func (r *Reconciler) ensureCanonical(ctx context.Context, res *Result) (map[string]uuid.UUID, error) {
	printers, err := r.store.ListPrinters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	existing := make(map[string]uuid.UUID, len(printers))
	for _, p := range printers {
		existing[p.ModelName] = p.ID
	}

	canonical := make(map[string]uuid.UUID, len(r.opts.CanonicalModels))
	for _, name := range r.opts.CanonicalModels {
		if id, ok := existing[name]; ok {
			canonical[name] = id
			continue
		}
		p, err := r.store.EnsurePrinter(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure printer %q: %w", name, err)
		}
		canonical[name] = p.ID
		res.PrintersCreated++
		r.metrics.RecordReconcile("printer_created", 1)
		r.log.Info("created canonical printer", zap.String("model", name))
	}
	return canonical, nil
}

func (r *Reconciler) mergeDuplicates(ctx context.Context, canonical map[string]uuid.UUID, res *Result) error {
	printers, err := r.store.ListPrinters(ctx)
	if err != nil {
		return fmt.Errorf("failed to list printers: %w", err)
	}
	for _, p := range printers {
		name := r.namer.Normalize(p.ModelName)
		target, ok := canonical[name]
		if name == p.ModelName || !ok || target == p.ID {
			continue
		}

		merged, err := r.store.MergePrinter(ctx, p.ID, target)
		if err != nil {
			return err
		}
		res.PrintersMerged++
		res.CodesMoved += merged.Moved
		res.CodesDropped += merged.Dropped
		r.metrics.RecordReconcile("printer_merged", 1)
		r.metrics.RecordReconcile("code_moved", merged.Moved)
		r.metrics.RecordReconcile("code_dropped", merged.Dropped)
		r.log.Info("merged duplicate printer",
			zap.String("from", p.ModelName),
			zap.String("into", name),
			zap.Int64("moved", merged.Moved),
			zap.Int64("dropped", merged.Dropped))
	}
	return nil
}

func (r *Reconciler) normalizeDipSwitches(ctx context.Context, res *Result) error {
	names, err := r.store.DipSwitchModelNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list dip switch models: %w", err)
	}
	for _, name := range names {
		norm := r.namer.Normalize(name)
		if norm == name || norm == "" {
			continue
		}
		renamed, deleted, err := r.store.RenameDipSwitchModel(ctx, name, norm)
		if err != nil {
			return err
		}
		res.DipRenamed += renamed
		res.DipDeleted += deleted
		r.metrics.RecordReconcile("dip_renamed", renamed)
		r.metrics.RecordReconcile("dip_deleted", deleted)
		r.log.Info("normalized dip switch model name",
			zap.String("from", name),
			zap.String("to", norm),
			zap.Int64("renamed", renamed),
			zap.Int64("deleted", deleted))
	}
	return nil
}
