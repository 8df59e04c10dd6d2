// Package analytics serves course usage statistics over HTTP and drives
// the builders for exports.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/coursestats/internal/usagestats"
)

// ScopeSource resolves a course's scopes and its staff exclusion rule.
type ScopeSource interface {
	usagestats.ScopeResolver
	Excluder(ctx context.Context, courseID uuid.UUID) (usagestats.ExcludeFunc, error)
}

// Service wires the event store, enrollments and catalog into builders.
type Service struct {
	events usagestats.EventSource
	scopes ScopeSource
	titles usagestats.TitleResolver
	topN   int
	logger *zap.Logger
}

// NewService creates a usage stats service. topN <= 0 means usagestats.DefaultTopN.
func NewService(events usagestats.EventSource, scopes ScopeSource, titles usagestats.TitleResolver, topN int, logger *zap.Logger) *Service {
	if topN <= 0 {
		topN = usagestats.DefaultTopN
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{events: events, scopes: scopes, titles: titles, topN: topN, logger: logger}
}

// TopN returns the default number of records for top lists.
func (s *Service) TopN() int { return s.topN }

// Window narrows builds to events in [Since, Until).
type Window struct {
	Since *time.Time
	Until *time.Time
}

// Builders holds one resource and one video builder for a single request.
type Builders struct {
	Resources *usagestats.Builder[usagestats.ResourceInfo]
	Videos    *usagestats.Builder[usagestats.VideoInfo]
}

// Builders returns fresh builders for courseID. The exclusion rule is
// resolved once and shared by both.
func (s *Service) Builders(ctx context.Context, courseID uuid.UUID, w Window) (*Builders, error) {
	cfg := usagestats.Config{
		Source: s.events,
		Titles: s.titles,
		Logger: s.logger,
	}
	if s.scopes != nil {
		exclude, err := s.scopes.Excluder(ctx, courseID)
		if err != nil {
			return nil, fmt.Errorf("resolve exclusions: %w", err)
		}
		cfg.Scopes = s.scopes
		cfg.Exclude = exclude
	}
	return &Builders{
		Resources: usagestats.NewResourceBuilder(courseID, cfg).WithWindow(w.Since, w.Until),
		Videos:    usagestats.NewVideoBuilder(courseID, cfg).WithWindow(w.Since, w.Until),
	}, nil
}
