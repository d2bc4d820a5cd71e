package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/playdate/internal/domain"
)

func TestPerformMatchingFullCoverageScenario(t *testing.T) {
	rows := []domain.CandidateRow{{
		ID: "a", Slug: "tube-tower", Title: "Tube Tower",
		RequiredForms: []string{"paper"}, FrictionDial: intPtr(1), StartIn120s: true,
		ContextTags: []string{"indoors"},
		MaterialID:  strPtr("m1"), MaterialTitle: strPtr("cardboard tube"), MaterialFormTag: strPtr("paper"),
	}}
	svc := NewService(&rowsProvider{rows: rows}, &stubEntitlements{}, &stubPacks{})

	result, err := svc.PerformMatching(context.Background(), domain.Selection{
		MaterialIDs: []string{"m1"},
		Forms:       []string{"paper"},
		Contexts:    []string{"indoors"},
	}, Session{})
	require.NoError(t, err)

	require.Len(t, result.Ranked, 1)
	got := result.Ranked[0]
	require.Equal(t, "a", got.ActivityID)
	// 45 materials + 30 forms + 10 no-slots credit + 10 quick start; the weights top out at 95.
	require.Equal(t, 95, got.Score)
	require.Empty(t, got.Coverage.MaterialsMissing)
	require.Equal(t, []string{"indoors"}, result.Meta.ContextFiltersApplied)
	require.Equal(t, 1, result.Meta.TotalCandidates)
	require.Equal(t, 1, result.Meta.TotalAfterFilter)
}

func TestPerformMatchingContextFilterRequiresAllTags(t *testing.T) {
	rows := []domain.CandidateRow{
		{ID: "outside", Title: "Outside", ContextTags: []string{"outdoors"}},
		{ID: "both", Title: "Both", ContextTags: []string{"outdoors", "quiet", "indoors"}},
	}
	svc := NewService(&rowsProvider{rows: rows}, &stubEntitlements{}, &stubPacks{})

	result, err := svc.PerformMatching(context.Background(), domain.Selection{
		Contexts: []string{"outdoors", "quiet"},
	}, Session{})
	require.NoError(t, err)
	require.Len(t, result.Ranked, 1)
	require.Equal(t, "both", result.Ranked[0].ActivityID)
	require.Equal(t, 2, result.Meta.TotalCandidates)
	require.Equal(t, 1, result.Meta.TotalAfterFilter)
}

func TestPerformMatchingEnergyFilterExcludesUnrated(t *testing.T) {
	rows := []domain.CandidateRow{
		{ID: "unrated", Title: "Unrated"},
		{ID: "calm", Title: "Calm", FrictionDial: intPtr(2)},
		{ID: "active", Title: "Active", FrictionDial: intPtr(4)},
	}
	svc := NewService(&rowsProvider{rows: rows}, &stubEntitlements{}, &stubPacks{})

	filtered, err := svc.PerformMatching(context.Background(), domain.Selection{
		EnergyLevels: []domain.EnergyLevel{domain.EnergyCalm, domain.EnergyModerate},
	}, Session{})
	require.NoError(t, err)
	require.Len(t, filtered.Ranked, 1)
	require.Equal(t, "calm", filtered.Ranked[0].ActivityID)
	require.Equal(t, []domain.EnergyLevel{domain.EnergyCalm, domain.EnergyModerate}, filtered.Meta.EnergyLevelFiltersApplied)

	unfiltered, err := svc.PerformMatching(context.Background(), domain.Selection{}, Session{})
	require.NoError(t, err)
	ids := make([]string, 0, len(unfiltered.Ranked))
	for _, r := range unfiltered.Ranked {
		ids = append(ids, r.ActivityID)
	}
	// Unrated playdates pay no friction penalty, so they can still rank first on score.
	require.Equal(t, []string{"unrated", "calm", "active"}, ids)
}

func TestPerformMatchingSuggestsSubstitutionsFromAllCandidates(t *testing.T) {
	rows := []domain.CandidateRow{
		{ID: "c", Title: "Raft", ContextTags: []string{"outdoors"},
			MaterialID: strPtr("M"), MaterialTitle: strPtr("driftwood"), MaterialFormTag: strPtr("wood")},
		{ID: "c", MaterialID: strPtr("P"), MaterialTitle: strPtr("newspaper"), MaterialFormTag: strPtr("paper")},
		// Filtered out by context, but still the only place M2 is defined.
		{ID: "d", Title: "Birdhouse", ContextTags: []string{"workshop"},
			MaterialID: strPtr("M2"), MaterialTitle: strPtr("plank"), MaterialFormTag: strPtr("wood")},
	}
	svc := NewService(&rowsProvider{rows: rows}, &stubEntitlements{}, &stubPacks{})

	result, err := svc.PerformMatching(context.Background(), domain.Selection{
		MaterialIDs: []string{"M2", "unknown-id"},
		Contexts:    []string{"outdoors"},
	}, Session{})
	require.NoError(t, err)
	require.Len(t, result.Ranked, 1)

	subs := result.Ranked[0].Coverage.SuggestedSubstitutions
	require.Equal(t, []domain.Substitution{{
		MissingMaterial:       "driftwood",
		AvailableAlternatives: []domain.MaterialRef{{ID: "M2", Title: "plank"}},
	}}, subs)
}

func TestPerformMatchingGatesEntitledFields(t *testing.T) {
	rows := []domain.CandidateRow{
		{ID: "a", Title: "Alpha", SubstitutionsNotes: strPtr("use foil"), RepeatableMode: strPtr("weekly remix")},
		{ID: "b", Title: "Bravo", SubstitutionsNotes: strPtr("use string"), RepeatableMode: strPtr("seasonal")},
	}
	entitlements := &stubEntitlements{entitled: map[string]struct{}{"a": {}}}
	packs := &stubPacks{slugs: map[string][]string{"b": {"rainy-day"}}}
	svc := NewService(&rowsProvider{rows: rows}, entitlements, packs)

	result, err := svc.PerformMatching(context.Background(), domain.Selection{}, Session{OrgID: "org-1"})
	require.NoError(t, err)
	require.Equal(t, 1, entitlements.calls)
	require.Equal(t, "org-1", entitlements.lastOrg)
	require.ElementsMatch(t, []string{"a", "b"}, entitlements.lastIDs)
	require.Equal(t, 1, packs.calls)

	byID := map[string]domain.RankedActivity{}
	for _, r := range result.Ranked {
		byID[r.ActivityID] = r
	}

	a := byID["a"]
	require.True(t, a.IsEntitled)
	require.Equal(t, "use foil", *a.SubstitutionNotes)
	require.Equal(t, "weekly remix", *a.VariantModeDetail)
	require.Equal(t, []string{}, a.PackSlugs)

	b := byID["b"]
	require.False(t, b.IsEntitled)
	require.Nil(t, b.SubstitutionNotes)
	require.Nil(t, b.VariantModeDetail)
	require.True(t, b.HasRepeatableVariant)
	require.Equal(t, []string{"rainy-day"}, b.PackSlugs)
}

func TestPerformMatchingWithoutOrgSkipsEntitlementLookup(t *testing.T) {
	rows := []domain.CandidateRow{{ID: "a", Title: "Alpha", SubstitutionsNotes: strPtr("secret")}}
	entitlements := &stubEntitlements{entitled: map[string]struct{}{"a": {}}}
	svc := NewService(&rowsProvider{rows: rows}, entitlements, &stubPacks{})

	result, err := svc.PerformMatching(context.Background(), domain.Selection{}, Session{})
	require.NoError(t, err)
	require.Equal(t, 0, entitlements.calls)
	require.False(t, result.Ranked[0].IsEntitled)
	require.Nil(t, result.Ranked[0].SubstitutionNotes)
}

func TestPerformMatchingFailures(t *testing.T) {
	rows := []domain.CandidateRow{{ID: "a", Title: "Alpha"}}

	_, err := NewService(&rowsProvider{err: errors.New("db down")}, &stubEntitlements{}, &stubPacks{}).
		PerformMatching(context.Background(), domain.Selection{}, Session{})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = NewService(&rowsProvider{rows: rows}, &stubEntitlements{err: errors.New("timeout")}, &stubPacks{}).
		PerformMatching(context.Background(), domain.Selection{}, Session{OrgID: "org"})
	require.ErrorIs(t, err, domain.ErrEntitlementLookupFailed)

	_, err = NewService(&rowsProvider{rows: rows}, &stubEntitlements{}, &stubPacks{err: errors.New("timeout")}).
		PerformMatching(context.Background(), domain.Selection{}, Session{})
	require.ErrorIs(t, err, domain.ErrEntitlementLookupFailed)
}

func TestPerformMatchingIsDeterministic(t *testing.T) {
	rows := []domain.CandidateRow{
		{ID: "x", Title: "Xylophone", FrictionDial: intPtr(2), MaterialID: strPtr("m1"), MaterialFormTag: strPtr("paper")},
		{ID: "y", Title: "Yarn", FrictionDial: intPtr(2), MaterialID: strPtr("m2"), MaterialFormTag: strPtr("paper")},
		{ID: "z", Title: "Zither", MaterialID: strPtr("m3"), MaterialFormTag: strPtr("wood")},
		{ID: "w", Title: "Whistle", FrictionDial: intPtr(1)},
	}
	svc := NewService(&rowsProvider{rows: rows}, &stubEntitlements{}, &stubPacks{})
	sel := domain.Selection{MaterialIDs: []string{"m1", "m2"}, Slots: []string{"glue"}}

	first, err := svc.PerformMatching(context.Background(), sel, Session{})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := svc.PerformMatching(context.Background(), sel, Session{})
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestMatchResultEncodesEmptyListsAndNulls(t *testing.T) {
	svc := NewService(&rowsProvider{rows: []domain.CandidateRow{{ID: "a", Title: "Alpha"}}}, &stubEntitlements{}, &stubPacks{})

	result, err := svc.PerformMatching(context.Background(), domain.Selection{}, Session{})
	require.NoError(t, err)

	body, err := json.Marshal(result)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"ranked": [{
			"activityId": "a", "slug": "", "title": "Alpha", "headline": null, "score": 85,
			"primaryFunction": null, "arcEmphasis": [], "frictionDial": null, "energyLevel": null,
			"quickStart": false,
			"coverage": {"materialsCovered": [], "materialsMissing": [], "formsCovered": [], "formsMissing": [], "suggestedSubstitutions": []},
			"substitutionNotes": null, "hasRepeatableVariant": false, "variantModeDetail": null,
			"isEntitled": false, "packSlugs": []
		}],
		"meta": {"contextFiltersApplied": [], "energyLevelFiltersApplied": [], "totalCandidates": 1, "totalAfterFilter": 1}
	}`, string(body))
}

type rowsProvider struct {
	rows []domain.CandidateRow
	err  error
}

func (p *rowsProvider) Candidates(context.Context) ([]domain.CandidateRow, error) {
	return p.rows, p.err
}

type stubEntitlements struct {
	entitled map[string]struct{}
	err      error
	calls    int
	lastOrg  string
	lastIDs  []string
}

func (s *stubEntitlements) EntitledActivityIDs(_ context.Context, orgID string, ids []string) (map[string]struct{}, error) {
	s.calls++
	s.lastOrg = orgID
	s.lastIDs = ids
	if s.err != nil {
		return nil, s.err
	}
	return s.entitled, nil
}

type stubPacks struct {
	slugs map[string][]string
	err   error
	calls int
}

func (s *stubPacks) PackSlugsByActivity(context.Context, []string) (map[string][]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.slugs, nil
}
