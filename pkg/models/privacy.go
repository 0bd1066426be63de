package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PrivacyLevel selects how aggressively a report is anonymized before export.
type PrivacyLevel string

const (
	PrivacyBasic    PrivacyLevel = "basic"
	PrivacyEnhanced PrivacyLevel = "enhanced"
	PrivacyStrict   PrivacyLevel = "strict"
)

// GeneralizationTier controls how coarse the Stage 2 buckets are.
type GeneralizationTier string

const (
	GeneralizationMinimal    GeneralizationTier = "minimal"
	GeneralizationModerate   GeneralizationTier = "moderate"
	GeneralizationAggressive GeneralizationTier = "aggressive"
)

// PrivacyPolicy is the concrete parameter set bound to a privacy level.
type PrivacyPolicy struct {
	SaltRotation       time.Duration      `json:"salt_rotation"`
	GeneralizationTier GeneralizationTier `json:"generalization_tier"`
	// Epsilon is the differential-privacy budget. Zero disables noise.
	Epsilon    float64 `json:"epsilon"`
	KThreshold uint64  `json:"k_threshold"`
}

// ParsePrivacyLevel converts a config string into a PrivacyLevel.
func ParsePrivacyLevel(s string) (PrivacyLevel, error) {
	switch PrivacyLevel(strings.ToLower(strings.TrimSpace(s))) {
	case PrivacyBasic:
		return PrivacyBasic, nil
	case PrivacyEnhanced:
		return PrivacyEnhanced, nil
	case PrivacyStrict:
		return PrivacyStrict, nil
	default:
		return "", fmt.Errorf("unknown privacy level %q (want basic, enhanced, or strict)", s)
	}
}

// Policy returns the parameter set for the level. Unknown levels fall back
// to the strict policy so a bad config can only err on the private side.
func (p PrivacyLevel) Policy() PrivacyPolicy {
	switch p {
	case PrivacyBasic:
		return PrivacyPolicy{
			SaltRotation:       24 * time.Hour,
			GeneralizationTier: GeneralizationMinimal,
			Epsilon:            0,
			KThreshold:         3,
		}
	case PrivacyEnhanced:
		return PrivacyPolicy{
			SaltRotation:       12 * time.Hour,
			GeneralizationTier: GeneralizationModerate,
			Epsilon:            1.0,
			KThreshold:         5,
		}
	default:
		return PrivacyPolicy{
			SaltRotation:       time.Hour,
			GeneralizationTier: GeneralizationAggressive,
			Epsilon:            0.5,
			KThreshold:         10,
		}
	}
}

// Rank orders privacy levels so callers can enforce a minimum level.
func (p PrivacyLevel) Rank() int {
	switch p {
	case PrivacyBasic:
		return 1
	case PrivacyEnhanced:
		return 2
	case PrivacyStrict:
		return 3
	default:
		return 0
	}
}

// UnmarshalJSON validates the level on decode.
func (p *PrivacyLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	level, err := ParsePrivacyLevel(s)
	if err != nil {
		return err
	}

	*p = level

	return nil
}
