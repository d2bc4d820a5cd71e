package matcher

import (
	"slices"

	"example.com/playdate/internal/domain"
)

// GroupCandidates folds joined (playdate, material) rows into one candidate per playdate, in
// first-seen order. Scalar fields come from the first row of each playdate; later rows only add
// materials. List fields are always non-nil.
func GroupCandidates(rows []domain.CandidateRow) []domain.ActivityCandidate {
	index := make(map[string]int, len(rows))
	seenMaterials := make(map[string]map[string]struct{})
	out := make([]domain.ActivityCandidate, 0)

	for _, row := range rows {
		pos, ok := index[row.ID]
		if !ok {
			pos = len(out)
			index[row.ID] = pos
			seenMaterials[row.ID] = make(map[string]struct{})
			out = append(out, newCandidate(row))
		}

		if row.MaterialID == nil || *row.MaterialID == "" {
			continue
		}
		materialID := *row.MaterialID
		if _, dup := seenMaterials[row.ID][materialID]; dup {
			continue
		}
		seenMaterials[row.ID][materialID] = struct{}{}
		out[pos].Materials = append(out[pos].Materials, domain.Material{
			ID:      materialID,
			Title:   deref(row.MaterialTitle),
			FormTag: deref(row.MaterialFormTag),
		})
	}
	return out
}

func newCandidate(row domain.CandidateRow) domain.ActivityCandidate {
	return domain.ActivityCandidate{
		ID:                 row.ID,
		Slug:               row.Slug,
		Title:              row.Title,
		Headline:           row.Headline,
		PrimaryFunction:    row.PrimaryFunction,
		ArcEmphasis:        cloneOrEmpty(row.ArcEmphasis),
		ContextTags:        cloneOrEmpty(row.ContextTags),
		FrictionDial:       row.FrictionDial,
		Energy:             domain.EnergyFromFriction(row.FrictionDial),
		QuickStart:         row.StartIn120s,
		RequiredForms:      cloneOrEmpty(row.RequiredForms),
		SlotsOptional:      cloneOrEmpty(row.SlotsOptional),
		Materials:          []domain.Material{},
		RepeatableMode:     row.RepeatableMode,
		SubstitutionsNotes: row.SubstitutionsNotes,
	}
}

func cloneOrEmpty(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	return slices.Clone(values)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
