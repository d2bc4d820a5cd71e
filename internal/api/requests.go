package api

import (
	"example.com/playdate/internal/domain"
)

// MatchRequest is the body of POST /v1/matcher. Unknown ids and tags are accepted and simply
// never match.
type MatchRequest struct {
	Materials    []string `json:"materials"`
	Forms        []string `json:"forms"`
	Slots        []string `json:"slots"`
	Contexts     []string `json:"contexts"`
	EnergyLevels []string `json:"energyLevels,omitempty"`
}

// Selection validates energy levels and converts the request into a matcher selection.
func (r MatchRequest) Selection() (domain.Selection, error) {
	levels := make([]domain.EnergyLevel, 0, len(r.EnergyLevels))
	for _, raw := range r.EnergyLevels {
		level, err := domain.ParseEnergyLevel(raw)
		if err != nil {
			return domain.Selection{}, err
		}
		levels = append(levels, level)
	}
	return domain.Selection{
		MaterialIDs:  r.Materials,
		Forms:        r.Forms,
		Slots:        r.Slots,
		Contexts:     r.Contexts,
		EnergyLevels: levels,
	}, nil
}

// PickerResponse is the body of GET /v1/matcher/picker.
type PickerResponse struct {
	Forms     []string          `json:"forms"`
	Slots     []string          `json:"slots"`
	Contexts  []string          `json:"contexts"`
	Materials []domain.Material `json:"materials"`
}
