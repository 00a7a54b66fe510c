// Package search answers error-code lookups for one printer model.
package search

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"printer-docs-backend/internal/apperr"
	"printer-docs-backend/internal/metrics"
	"printer-docs-backend/internal/model"
	"printer-docs-backend/internal/normalize"
	"printer-docs-backend/internal/store"
)

// Store is the part of store.Store the search needs.
type Store interface {
	SearchErrorCodes(ctx context.Context, q store.ErrorQuery) ([]model.ErrorCode, error)
	PartsForError(ctx context.Context, errorID uuid.UUID) ([]model.SparePart, error)
}

// Query is one search request.
type Query struct {
	// Model must equal a stored model name exactly.
	Model string
	// Code is an optional code fragment matched as a prefix.
	Code string
	// Limit overrides the default row cap when set.
	Limit *int
	// Summary skips part attachment and the default row cap.
	Summary bool
}

// Options tune a Service.
type Options struct {
	DefaultLimit     int
	PartsConcurrency int
}

// Service runs error-code searches.
type Service struct {
	store   Store
	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates a search service.
func NewService(s Store, opts Options, log *zap.Logger, m *metrics.Metrics) *Service {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 50
	}
	if opts.PartsConcurrency <= 0 {
		opts.PartsConcurrency = 1
	}
	return &Service{store: s, opts: opts, log: log.Named("search"), metrics: m}
}

// Search returns the matching codes ordered by code. Outside summary mode every
// code carries its spare parts; a failed parts lookup leaves that code with
// none instead of failing the search.
func (s *Service) Search(ctx context.Context, q Query) ([]model.ErrorCode, error) {
	if q.Model == "" {
		return nil, apperr.Input("missing required parameter: model")
	}

	sq := store.ErrorQuery{Model: q.Model}
	switch {
	case q.Limit != nil:
		if *q.Limit <= 0 {
			return nil, apperr.Inputf("limit must be a positive integer, got %d", *q.Limit)
		}
		sq.Limit = *q.Limit
	case !q.Summary:
		sq.Limit = s.opts.DefaultLimit
	}
	if q.Code != "" {
		sq.HasCode = true
		sq.Style, sq.Prefix = normalize.CodePrefix(q.Code)
	}

	codes, err := s.store.SearchErrorCodes(ctx, sq)
	if err != nil {
		return nil, apperr.Storage("search error codes", err)
	}
	if codes == nil {
		codes = []model.ErrorCode{}
	}
	s.metrics.RecordSearch(len(codes))

	if q.Summary {
		for i := range codes {
			codes[i].Parts = []model.SparePart{}
		}
		return codes, nil
	}
	s.attachParts(ctx, codes)
	return codes, nil
}

func (s *Service) attachParts(ctx context.Context, codes []model.ErrorCode) {
	var g errgroup.Group
	g.SetLimit(s.opts.PartsConcurrency)
	for i := range codes {
		ec := &codes[i]
		g.Go(func() error {
			parts, err := s.store.PartsForError(ctx, ec.ID)
			if err != nil {
				s.log.Warn("parts lookup failed; returning code without parts",
					zap.String("error_id", ec.ID.String()),
					zap.String("code", ec.Code),
					zap.Error(err))
				s.metrics.RecordPartsLookupFailure()
				parts = nil
			}
			if parts == nil {
				parts = []model.SparePart{}
			}
			ec.Parts = parts
			return nil
		})
	}
	_ = g.Wait()
}
