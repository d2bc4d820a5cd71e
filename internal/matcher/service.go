// Package matcher ranks playdates against the materials, forms, slots, and constraints a user
// selects.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/playdate/internal/domain"
)

// CandidateProvider supplies the joined candidate rows, typically through a cache.
type CandidateProvider interface {
	Candidates(ctx context.Context) ([]domain.CandidateRow, error)
}

// EntitlementLookup resolves, in one batch, which playdates an organization holds an active
// entitlement for.
type EntitlementLookup interface {
	EntitledActivityIDs(ctx context.Context, orgID string, activityIDs []string) (map[string]struct{}, error)
}

// PackLookup resolves, in one batch, the visible packs each playdate belongs to.
type PackLookup interface {
	PackSlugsByActivity(ctx context.Context, activityIDs []string) (map[string][]string, error)
}

// Session carries the caller context relevant to matching. An empty OrgID means no organization.
type Session struct {
	OrgID string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer overrides the tracer used for matcher spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// Service runs the matching pipeline.
type Service struct {
	candidates   CandidateProvider
	entitlements EntitlementLookup
	packs        PackLookup
	logger       *zap.Logger
	tracer       trace.Tracer
}

// NewService constructs a Service.
func NewService(candidates CandidateProvider, entitlements EntitlementLookup, packs PackLookup, opts ...Option) *Service {
	s := &Service{
		candidates:   candidates,
		entitlements: entitlements,
		packs:        packs,
		logger:       zap.NewNop(),
		tracer:       otel.Tracer("example.com/playdate/internal/matcher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PerformMatching filters, scores, enriches, and ranks every candidate for the selection.
// It fails as a whole with domain.ErrStoreUnavailable or domain.ErrEntitlementLookupFailed.
func (s *Service) PerformMatching(ctx context.Context, sel domain.Selection, session Session) (domain.MatchResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "matcher.perform")
	defer span.End()

	result, err := s.perform(ctx, NormalizeSelection(sel), session, span)
	matchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		matchFailures.WithLabelValues(failureReason(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.MatchResult{}, err
	}
	resultSize.Observe(float64(len(result.Ranked)))
	return result, nil
}

func (s *Service) perform(ctx context.Context, sel domain.Selection, session Session, span trace.Span) (domain.MatchResult, error) {
	rows, err := s.candidates.Candidates(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return domain.MatchResult{}, err
	}
	all := GroupCandidates(rows)

	survivors := make([]domain.ActivityCandidate, 0, len(all))
	for _, c := range all {
		if passesHardFilter(c, sel) {
			survivors = append(survivors, c)
		}
	}
	span.SetAttributes(
		attribute.Int("matcher.candidates.total", len(all)),
		attribute.Int("matcher.candidates.filtered", len(survivors)),
	)

	byForm := userMaterialsByForm(sel.MaterialIDs, indexMaterials(all))
	input := NewScoreInput(sel)

	type scored struct {
		candidate domain.ActivityCandidate
		score     int
		coverage  domain.CoverageDetail
	}
	scoredList := make([]scored, 0, len(survivors))
	ids := make([]string, 0, len(survivors))
	for _, c := range survivors {
		score, coverage := Score(c, input)
		coverage.SuggestedSubstitutions = suggestSubstitutions(coverage.MaterialsMissing, byForm)
		scoredList = append(scoredList, scored{candidate: c, score: score, coverage: coverage})
		ids = append(ids, c.ID)
	}

	entitled, packSlugs, err := s.lookupAccess(ctx, session, ids)
	if err != nil {
		return domain.MatchResult{}, err
	}

	ranked := make([]domain.RankedActivity, 0, len(scoredList))
	for _, item := range scoredList {
		c := item.candidate
		_, isEntitled := entitled[c.ID]
		entry := domain.RankedActivity{
			ActivityID:           c.ID,
			Slug:                 c.Slug,
			Title:                c.Title,
			Headline:             c.Headline,
			Score:                item.score,
			PrimaryFunction:      c.PrimaryFunction,
			ArcEmphasis:          c.ArcEmphasis,
			FrictionDial:         c.FrictionDial,
			EnergyLevel:          c.Energy,
			QuickStart:           c.QuickStart,
			Coverage:             item.coverage,
			HasRepeatableVariant: c.HasRepeatableVariant(),
			IsEntitled:           isEntitled,
			PackSlugs:            packSlugs[c.ID],
		}
		if isEntitled {
			entry.SubstitutionNotes = c.SubstitutionsNotes
			entry.VariantModeDetail = c.RepeatableMode
		}
		if entry.PackSlugs == nil {
			entry.PackSlugs = []string{}
		}
		ranked = append(ranked, entry)
	}
	SortRanked(ranked)

	s.logger.Debug("matching complete",
		zap.Int("candidates", len(all)),
		zap.Int("after_filter", len(survivors)),
		zap.Int("entitled", len(entitled)),
		zap.Bool("has_org", session.OrgID != ""),
	)

	return domain.MatchResult{
		Ranked: ranked,
		Meta: domain.MatchMeta{
			ContextFiltersApplied:     sel.Contexts,
			EnergyLevelFiltersApplied: sel.EnergyLevels,
			TotalCandidates:           len(all),
			TotalAfterFilter:          len(survivors),
		},
	}, nil
}

// lookupAccess issues the entitlement and pack lookups concurrently. Either failure fails the request.
func (s *Service) lookupAccess(ctx context.Context, session Session, ids []string) (map[string]struct{}, map[string][]string, error) {
	entitled := map[string]struct{}{}
	packSlugs := map[string][]string{}
	if len(ids) == 0 {
		return entitled, packSlugs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if session.OrgID != "" {
		g.Go(func() error {
			found, err := s.entitlements.EntitledActivityIDs(gctx, session.OrgID, ids)
			if err != nil {
				return fmt.Errorf("entitlements: %w", err)
			}
			if found != nil {
				entitled = found
			}
			return nil
		})
	}
	g.Go(func() error {
		found, err := s.packs.PackSlugsByActivity(gctx, ids)
		if err != nil {
			return fmt.Errorf("packs: %w", err)
		}
		if found != nil {
			packSlugs = found
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrEntitlementLookupFailed, err)
	}
	return entitled, packSlugs, nil
}

func passesHardFilter(c domain.ActivityCandidate, sel domain.Selection) bool {
	if !c.HasContexts(sel.Contexts) {
		return false
	}
	if len(sel.EnergyLevels) == 0 {
		return true
	}
	if c.Energy == nil {
		return false
	}
	for _, level := range sel.EnergyLevels {
		if level == *c.Energy {
			return true
		}
	}
	return false
}

// indexMaterials maps every material id seen on any candidate to its record.
func indexMaterials(candidates []domain.ActivityCandidate) map[string]domain.Material {
	index := make(map[string]domain.Material)
	for _, c := range candidates {
		for _, m := range c.Materials {
			if _, ok := index[m.ID]; !ok {
				index[m.ID] = m
			}
		}
	}
	return index
}

// userMaterialsByForm buckets the user's own materials by form tag, keeping selection order.
// Ids not present in the index and materials without a form are skipped.
func userMaterialsByForm(materialIDs []string, index map[string]domain.Material) map[string][]domain.Material {
	byForm := make(map[string][]domain.Material)
	for _, id := range materialIDs {
		m, ok := index[id]
		if !ok || m.FormTag == "" {
			continue
		}
		byForm[m.FormTag] = append(byForm[m.FormTag], m)
	}
	return byForm
}

func suggestSubstitutions(missing []domain.MissingMaterial, byForm map[string][]domain.Material) []domain.Substitution {
	out := []domain.Substitution{}
	for _, m := range missing {
		if m.FormTag == "" {
			continue
		}
		alternatives := make([]domain.MaterialRef, 0)
		for _, owned := range byForm[m.FormTag] {
			if owned.ID == m.ID {
				continue
			}
			alternatives = append(alternatives, domain.MaterialRef{ID: owned.ID, Title: owned.Title})
		}
		if len(alternatives) > 0 {
			out = append(out, domain.Substitution{MissingMaterial: m.Title, AvailableAlternatives: alternatives})
		}
	}
	return out
}

// NormalizeSelection trims and de-duplicates every selection set, preserving order. Slices in the
// result are never nil.
func NormalizeSelection(sel domain.Selection) domain.Selection {
	levels := make([]domain.EnergyLevel, 0, len(sel.EnergyLevels))
	seen := make(map[domain.EnergyLevel]struct{}, len(sel.EnergyLevels))
	for _, level := range sel.EnergyLevels {
		if _, dup := seen[level]; dup || level == "" {
			continue
		}
		seen[level] = struct{}{}
		levels = append(levels, level)
	}
	return domain.Selection{
		MaterialIDs:  distinctTrimmed(sel.MaterialIDs),
		Forms:        distinctTrimmed(sel.Forms),
		Slots:        distinctTrimmed(sel.Slots),
		Contexts:     distinctTrimmed(sel.Contexts),
		EnergyLevels: levels,
	}
}

func distinctTrimmed(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, domain.ErrEntitlementLookupFailed):
		return "entitlement_lookup_failed"
	default:
		return "other"
	}
}
