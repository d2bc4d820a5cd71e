package domain

import (
	"fmt"
	"strings"
)

// EnergyLevel is the three-level label derived from a friction dial.
type EnergyLevel string

const (
	EnergyCalm     EnergyLevel = "calm"
	EnergyModerate EnergyLevel = "moderate"
	EnergyActive   EnergyLevel = "active"
)

// EnergyFromFriction maps a friction dial to an energy label. A nil dial has no label.
func EnergyFromFriction(dial *int) *EnergyLevel {
	if dial == nil {
		return nil
	}
	var level EnergyLevel
	switch {
	case *dial <= 2:
		level = EnergyCalm
	case *dial == 3:
		level = EnergyModerate
	default:
		level = EnergyActive
	}
	return &level
}

// ParseEnergyLevel validates a wire value.
func ParseEnergyLevel(raw string) (EnergyLevel, error) {
	switch level := EnergyLevel(strings.ToLower(strings.TrimSpace(raw))); level {
	case EnergyCalm, EnergyModerate, EnergyActive:
		return level, nil
	default:
		return "", fmt.Errorf("unknown energy level %q", raw)
	}
}
