package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/playdate/internal/domain"
)

func TestScoreFullCoverage(t *testing.T) {
	c := domain.ActivityCandidate{
		Materials:     []domain.Material{{ID: "m1", Title: "tube", FormTag: "paper"}},
		RequiredForms: []string{"paper"},
		FrictionDial:  intPtr(1),
		QuickStart:    true,
	}
	score, coverage := Score(c, NewScoreInput(domain.Selection{MaterialIDs: []string{"m1"}, Forms: []string{"paper"}}))

	require.Equal(t, 95, score)
	require.Equal(t, []domain.MaterialRef{{ID: "m1", Title: "tube"}}, coverage.MaterialsCovered)
	require.Empty(t, coverage.MaterialsMissing)
	require.Equal(t, []string{"paper"}, coverage.FormsCovered)
	require.Empty(t, coverage.FormsMissing)
	require.NotNil(t, coverage.SuggestedSubstitutions)
	require.Empty(t, coverage.SuggestedSubstitutions)
}

func TestScoreZeroMaterialsGetsFullMaterialCredit(t *testing.T) {
	c := domain.ActivityCandidate{
		Materials:     []domain.Material{},
		RequiredForms: []string{"paper", "wood"},
	}
	// 45 materials + 0 forms + 10 slots (none selected) + 0 quick start.
	score, _ := Score(c, NewScoreInput(domain.Selection{MaterialIDs: []string{"x"}}))
	require.Equal(t, 55, score)
}

func TestScoreZeroFormsGetsFullFormCredit(t *testing.T) {
	c := domain.ActivityCandidate{
		Materials: []domain.Material{{ID: "m1"}, {ID: "m2"}},
	}
	// 22.5 materials + 30 forms + 10 slots = 62.5, rounded half up.
	score, coverage := Score(c, NewScoreInput(domain.Selection{MaterialIDs: []string{"m1"}}))
	require.Equal(t, 63, score)
	require.Len(t, coverage.MaterialsMissing, 1)
	require.Equal(t, "m2", coverage.MaterialsMissing[0].ID)
}

func TestScoreSlotsAbsenceIsNotPenalised(t *testing.T) {
	withSlots := domain.ActivityCandidate{SlotsOptional: []string{"glue", "tape", "string"}}
	withoutSlots := domain.ActivityCandidate{}

	a, _ := Score(withSlots, NewScoreInput(domain.Selection{}))
	b, _ := Score(withoutSlots, NewScoreInput(domain.Selection{}))
	require.Equal(t, 85, a)
	require.Equal(t, 85, b)
}

func TestScoreSlotsPartialCredit(t *testing.T) {
	c := domain.ActivityCandidate{SlotsOptional: []string{"glue", "tape"}}
	score, _ := Score(c, NewScoreInput(domain.Selection{Slots: []string{"glue", "scissors"}}))
	require.Equal(t, 80, score)

	none := domain.ActivityCandidate{}
	score, _ = Score(none, NewScoreInput(domain.Selection{Slots: []string{"glue"}}))
	require.Equal(t, 75, score, "a candidate without slots earns no bonus once the user names slots")
}

func TestScoreFrictionPenalty(t *testing.T) {
	for dial, want := range map[int]int{1: 85, 3: 83, 5: 81} {
		c := domain.ActivityCandidate{FrictionDial: intPtr(dial)}
		score, _ := Score(c, NewScoreInput(domain.Selection{}))
		assert.Equal(t, want, score, "dial %d", dial)
	}
}

func TestScoreClampsNegativeTotalsToZero(t *testing.T) {
	c := domain.ActivityCandidate{
		Materials:     []domain.Material{{ID: "m1", FormTag: "wood"}, {ID: "m2", FormTag: "wood"}},
		RequiredForms: []string{"wood"},
		FrictionDial:  intPtr(5),
	}
	score, coverage := Score(c, NewScoreInput(domain.Selection{Slots: []string{"glue"}}))
	require.Equal(t, 0, score)
	require.Equal(t, []string{"wood"}, coverage.FormsMissing)
	require.Equal(t, "wood", coverage.MaterialsMissing[0].FormTag)
}

func TestScoreStaysWithinBounds(t *testing.T) {
	materials := [][]domain.Material{nil, {{ID: "m1"}}, {{ID: "m1"}, {ID: "m2"}, {ID: "m3"}}}
	forms := [][]string{nil, {"paper"}, {"paper", "wood"}}
	dials := []*int{nil, intPtr(0), intPtr(1), intPtr(3), intPtr(5)}
	selections := []domain.Selection{
		{},
		{MaterialIDs: []string{"m1", "m2", "m3"}, Forms: []string{"paper", "wood"}, Slots: []string{"glue"}},
		{Slots: []string{"none"}},
	}

	for _, ms := range materials {
		for _, fs := range forms {
			for _, dial := range dials {
				for _, quick := range []bool{true, false} {
					for _, sel := range selections {
						c := domain.ActivityCandidate{
							Materials:     ms,
							RequiredForms: fs,
							SlotsOptional: []string{"glue"},
							FrictionDial:  dial,
							QuickStart:    quick,
						}
						score, _ := Score(c, NewScoreInput(sel))
						require.GreaterOrEqual(t, score, 0)
						require.LessOrEqual(t, score, 100)
					}
				}
			}
		}
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
