package domain

import "errors"

var (
	// ErrStoreUnavailable indicates the candidate or vocabulary store could not be read.
	ErrStoreUnavailable = errors.New("candidate store unavailable")
	// ErrEntitlementLookupFailed indicates the batched entitlement or pack lookup failed.
	ErrEntitlementLookupFailed = errors.New("entitlement lookup failed")
)

// Selection is the matcher input: what the user has on hand and which constraints apply.
type Selection struct {
	MaterialIDs  []string
	Forms        []string
	Slots        []string
	Contexts     []string
	EnergyLevels []EnergyLevel
}

// MaterialRef identifies a material in coverage output.
type MaterialRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MissingMaterial is a required material the user does not have.
type MissingMaterial struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	FormTag string `json:"formTag"`
}

// Substitution lists owned materials that share the form of a missing one.
type Substitution struct {
	MissingMaterial       string        `json:"missingMaterial"`
	AvailableAlternatives []MaterialRef `json:"availableAlternatives"`
}

// CoverageDetail breaks down which needs of a playdate the selection satisfies.
type CoverageDetail struct {
	MaterialsCovered       []MaterialRef     `json:"materialsCovered"`
	MaterialsMissing       []MissingMaterial `json:"materialsMissing"`
	FormsCovered           []string          `json:"formsCovered"`
	FormsMissing           []string          `json:"formsMissing"`
	SuggestedSubstitutions []Substitution    `json:"suggestedSubstitutions"`
}

// RankedActivity is one scored entry of a match result.
type RankedActivity struct {
	ActivityID           string         `json:"activityId"`
	Slug                 string         `json:"slug"`
	Title                string         `json:"title"`
	Headline             *string        `json:"headline"`
	Score                int            `json:"score"`
	PrimaryFunction      *string        `json:"primaryFunction"`
	ArcEmphasis          []string       `json:"arcEmphasis"`
	FrictionDial         *int           `json:"frictionDial"`
	EnergyLevel          *EnergyLevel   `json:"energyLevel"`
	QuickStart           bool           `json:"quickStart"`
	Coverage             CoverageDetail `json:"coverage"`
	SubstitutionNotes    *string        `json:"substitutionNotes"`
	HasRepeatableVariant bool           `json:"hasRepeatableVariant"`
	VariantModeDetail    *string        `json:"variantModeDetail"`
	IsEntitled           bool           `json:"isEntitled"`
	PackSlugs            []string       `json:"packSlugs"`
}

// MatchMeta explains how the ranked list was produced.
type MatchMeta struct {
	ContextFiltersApplied     []string      `json:"contextFiltersApplied"`
	EnergyLevelFiltersApplied []EnergyLevel `json:"energyLevelFiltersApplied"`
	TotalCandidates           int           `json:"totalCandidates"`
	TotalAfterFilter          int           `json:"totalAfterFilter"`
}

// MatchResult is the matcher response envelope.
type MatchResult struct {
	Ranked []RankedActivity `json:"ranked"`
	Meta   MatchMeta        `json:"meta"`
}
