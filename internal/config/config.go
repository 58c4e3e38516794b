package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/services/matching"
)

// LoadMatching reads the engine configuration from matching.yaml when
// present, with environment override (prefix TAXFILER_). Missing keys fall
// back to the engine defaults; the result is validated before use.
func LoadMatching() (*matching.Config, error) {
	v := viper.New()
	v.SetConfigName("matching")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("TAXFILER")
	v.AutomaticEnv()

	setMatchingDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading matching config: %w", err)
		}
	}

	cfg := matching.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing matching config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setMatchingDefaults(v *viper.Viper) {
	def := matching.DefaultConfig()

	v.SetDefault("weights.amount", def.Weights.Amount)
	v.SetDefault("weights.date", def.Weights.Date)
	v.SetDefault("weights.vendor", def.Weights.Vendor)
	v.SetDefault("weights.reference", def.Weights.Reference)
	v.SetDefault("minimum_match_score", def.MinimumMatchScore)
	v.SetDefault("bonus_threshold", def.BonusThreshold)
	v.SetDefault("bonus_multiplier", def.BonusMultiplier)
	v.SetDefault("amount_tolerances.exact", def.Amount.Exact)
	v.SetDefault("amount_tolerances.high", def.Amount.High)
	v.SetDefault("amount_tolerances.medium", def.Amount.Medium)
	v.SetDefault("date_tolerances.exact_days", def.Date.ExactDays)
	v.SetDefault("date_tolerances.high_days", def.Date.HighDays)
	v.SetDefault("date_tolerances.medium_days", def.Date.MediumDays)
	v.SetDefault("vendor_fuzzy_threshold", def.VendorFuzzyThreshold)
	v.SetDefault("overage_warn_threshold", def.OverageWarnThreshold)
	v.SetDefault("auto_assign_threshold", def.AutoAssignThreshold)
	v.SetDefault("atomic_assignment", def.AtomicAssignment)
	v.SetDefault("max_combination_docs", def.MaxCombinationDocs)
	v.SetDefault("max_combinations_per_size", def.MaxCombinationsPerSize)
}
