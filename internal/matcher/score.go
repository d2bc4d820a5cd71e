package matcher

import (
	"math"

	"example.com/playdate/internal/domain"
)

// Score weights. The friction penalty is dial-1 and is applied before the final clamp.
const (
	materialsWeight  = 45.0
	formsWeight      = 30.0
	slotsWeight      = 10.0
	quickStartWeight = 10.0

	minScore = 0
	maxScore = 100
)

// ScoreInput is the user's selection as lookup sets.
type ScoreInput struct {
	MaterialIDs set
	Forms       set
	Slots       set
}

// NewScoreInput builds lookup sets from a selection.
func NewScoreInput(sel domain.Selection) ScoreInput {
	return ScoreInput{
		MaterialIDs: newSet(sel.MaterialIDs),
		Forms:       newSet(sel.Forms),
		Slots:       newSet(sel.Slots),
	}
}

// Score rates one candidate against the selection and reports what is covered and missing.
// Suggested substitutions are left empty for the caller to fill.
func Score(c domain.ActivityCandidate, in ScoreInput) (int, domain.CoverageDetail) {
	coverage := domain.CoverageDetail{
		MaterialsCovered:       []domain.MaterialRef{},
		MaterialsMissing:       []domain.MissingMaterial{},
		FormsCovered:           []string{},
		FormsMissing:           []string{},
		SuggestedSubstitutions: []domain.Substitution{},
	}

	for _, m := range c.Materials {
		if in.MaterialIDs.has(m.ID) {
			coverage.MaterialsCovered = append(coverage.MaterialsCovered, domain.MaterialRef{ID: m.ID, Title: m.Title})
		} else {
			coverage.MaterialsMissing = append(coverage.MaterialsMissing, domain.MissingMaterial{ID: m.ID, Title: m.Title, FormTag: m.FormTag})
		}
	}
	for _, form := range c.RequiredForms {
		if in.Forms.has(form) {
			coverage.FormsCovered = append(coverage.FormsCovered, form)
		} else {
			coverage.FormsMissing = append(coverage.FormsMissing, form)
		}
	}

	materialsRatio := 1.0
	if len(c.Materials) > 0 {
		materialsRatio = float64(len(coverage.MaterialsCovered)) / float64(len(c.Materials))
	}
	formsRatio := 1.0
	if len(c.RequiredForms) > 0 {
		formsRatio = float64(len(coverage.FormsCovered)) / float64(len(c.RequiredForms))
	}

	slotsScore := slotsWeight
	if len(in.Slots) > 0 {
		matched := 0
		for _, slot := range c.SlotsOptional {
			if in.Slots.has(slot) {
				matched++
			}
		}
		slotsScore = float64(matched) / float64(max(len(c.SlotsOptional), 1)) * slotsWeight
	}

	quickStartScore := 0.0
	if c.QuickStart {
		quickStartScore = quickStartWeight
	}

	frictionPenalty := 0.0
	if c.FrictionDial != nil {
		frictionPenalty = float64(*c.FrictionDial - 1)
	}

	raw := materialsRatio*materialsWeight + formsRatio*formsWeight + slotsScore + quickStartScore - frictionPenalty
	return clamp(int(math.Round(raw)), minScore, maxScore), coverage
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

type set map[string]struct{}

func newSet(values []string) set {
	s := make(set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}
