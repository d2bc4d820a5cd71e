// Package domain defines the types shared by the playdate matcher components.
package domain

// Material is a concrete, nameable resource shared across many playdates.
type Material struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	FormTag string `json:"formTag"`
}

// CandidateRow is one (playdate, material) pair as returned by the candidate store.
// Playdates without materials appear once with nil material fields.
type CandidateRow struct {
	ID                 string
	Slug               string
	Title              string
	Headline           *string
	PrimaryFunction    *string
	ArcEmphasis        []string
	ContextTags        []string
	FrictionDial       *int
	StartIn120s        bool
	RequiredForms      []string
	SlotsOptional      []string
	RepeatableMode     *string
	SubstitutionsNotes *string
	MaterialID         *string
	MaterialTitle      *string
	MaterialFormTag    *string
}

// ActivityCandidate is a playdate with its materials nested. Slice fields are never nil.
type ActivityCandidate struct {
	ID                 string
	Slug               string
	Title              string
	Headline           *string
	PrimaryFunction    *string
	ArcEmphasis        []string
	ContextTags        []string
	FrictionDial       *int
	Energy             *EnergyLevel
	QuickStart         bool
	RequiredForms      []string
	SlotsOptional      []string
	Materials          []Material
	RepeatableMode     *string
	SubstitutionsNotes *string
}

// HasRepeatableVariant reports whether the playdate carries a repeatable variant mode.
func (c ActivityCandidate) HasRepeatableVariant() bool {
	return c.RepeatableMode != nil && *c.RepeatableMode != ""
}

// HasContexts reports whether the candidate carries every one of the given context tags.
func (c ActivityCandidate) HasContexts(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(c.ContextTags))
	for _, tag := range c.ContextTags {
		have[tag] = struct{}{}
	}
	for _, tag := range required {
		if _, ok := have[tag]; !ok {
			return false
		}
	}
	return true
}
