package matching

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid matching configuration")

// Weights are the relative importance of each criterion. They should sum
// to approximately 1.0 (validated range 0.8 to 1.2).
type Weights struct {
	Amount    float64 `mapstructure:"amount"`
	Date      float64 `mapstructure:"date"`
	Vendor    float64 `mapstructure:"vendor"`
	Reference float64 `mapstructure:"reference"`
}

// AmountTolerances are relative difference bands for amount scoring.
type AmountTolerances struct {
	Exact  float64 `mapstructure:"exact"`
	High   float64 `mapstructure:"high"`
	Medium float64 `mapstructure:"medium"`
}

// DateTolerances are day-difference bands for date scoring.
type DateTolerances struct {
	ExactDays  int `mapstructure:"exact_days"`
	HighDays   int `mapstructure:"high_days"`
	MediumDays int `mapstructure:"medium_days"`
}

// Config holds all tunables of the matching engine. A Config is validated
// once via Validate; invalid values are rejected, never clamped.
type Config struct {
	Weights              Weights          `mapstructure:"weights"`
	MinimumMatchScore    float64          `mapstructure:"minimum_match_score"`
	BonusThreshold       float64          `mapstructure:"bonus_threshold"`
	BonusMultiplier      float64          `mapstructure:"bonus_multiplier"`
	Amount               AmountTolerances `mapstructure:"amount_tolerances"`
	Date                 DateTolerances   `mapstructure:"date_tolerances"`
	VendorFuzzyThreshold float64          `mapstructure:"vendor_fuzzy_threshold"`

	// Overage above the transaction amount (relative) at which a combined
	// match gets a warning attached. Warnings never block an attachment.
	OverageWarnThreshold float64 `mapstructure:"overage_warn_threshold"`

	// Minimum combination score required before the orchestrator persists
	// attachments without human review.
	AutoAssignThreshold float64 `mapstructure:"auto_assign_threshold"`

	// AtomicAssignment persists a multi-document combination all-or-nothing.
	// When false (default), attachments that succeeded before a failure are
	// kept and the failure is reported as a warning.
	AtomicAssignment bool `mapstructure:"atomic_assignment"`

	// Enumeration bounds for the combination finder.
	MaxCombinationDocs     int `mapstructure:"max_combination_docs"`
	MaxCombinationsPerSize int `mapstructure:"max_combinations_per_size"`
}

// DefaultConfig returns the production default configuration.
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{
			Amount:    0.40,
			Date:      0.25,
			Vendor:    0.25,
			Reference: 0.10,
		},
		MinimumMatchScore: 0.3,
		BonusThreshold:    0.9,
		BonusMultiplier:   1.1,
		Amount: AmountTolerances{
			Exact:  0.01,
			High:   0.05,
			Medium: 0.10,
		},
		Date: DateTolerances{
			ExactDays:  0,
			HighDays:   7,
			MediumDays: 30,
		},
		VendorFuzzyThreshold:   0.8,
		OverageWarnThreshold:   0.10,
		AutoAssignThreshold:    0.7,
		MaxCombinationDocs:     25,
		MaxCombinationsPerSize: 50,
	}
}

// Validate checks all ranges. It returns an error wrapping ErrInvalidConfig
// on the first violation found.
func (c *Config) Validate() error {
	w := c.Weights
	if w.Amount < 0 || w.Date < 0 || w.Vendor < 0 || w.Reference < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidConfig)
	}
	sum := w.Amount + w.Date + w.Vendor + w.Reference
	if sum < 0.8 || sum > 1.2 {
		return fmt.Errorf("%w: weight sum %.3f outside [0.8, 1.2]", ErrInvalidConfig, sum)
	}
	if c.MinimumMatchScore < 0 || c.MinimumMatchScore > 1 {
		return fmt.Errorf("%w: minimum match score %.3f outside [0, 1]", ErrInvalidConfig, c.MinimumMatchScore)
	}
	if c.BonusThreshold < 0 || c.BonusThreshold > 1 {
		return fmt.Errorf("%w: bonus threshold %.3f outside [0, 1]", ErrInvalidConfig, c.BonusThreshold)
	}
	if c.BonusMultiplier < 1 || c.BonusMultiplier > 2 {
		return fmt.Errorf("%w: bonus multiplier %.3f outside [1, 2]", ErrInvalidConfig, c.BonusMultiplier)
	}
	if c.Amount.Exact <= 0 || c.Amount.High < c.Amount.Exact || c.Amount.Medium < c.Amount.High {
		return fmt.Errorf("%w: amount tolerances must be positive and ascending", ErrInvalidConfig)
	}
	if c.Date.ExactDays < 0 || c.Date.HighDays < c.Date.ExactDays || c.Date.MediumDays < c.Date.HighDays {
		return fmt.Errorf("%w: date tolerances must be non-negative and ascending", ErrInvalidConfig)
	}
	if c.VendorFuzzyThreshold <= 0 || c.VendorFuzzyThreshold >= 1 {
		return fmt.Errorf("%w: vendor fuzzy threshold %.3f outside (0, 1)", ErrInvalidConfig, c.VendorFuzzyThreshold)
	}
	if c.OverageWarnThreshold < 0 {
		return fmt.Errorf("%w: overage warn threshold must be non-negative", ErrInvalidConfig)
	}
	if c.AutoAssignThreshold < 0 || c.AutoAssignThreshold > 1 {
		return fmt.Errorf("%w: auto-assign threshold %.3f outside [0, 1]", ErrInvalidConfig, c.AutoAssignThreshold)
	}
	if c.MaxCombinationDocs < 2 {
		return fmt.Errorf("%w: max combination docs must be at least 2", ErrInvalidConfig)
	}
	if c.MaxCombinationsPerSize < 1 {
		return fmt.Errorf("%w: max combinations per size must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Clone returns an independent copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
