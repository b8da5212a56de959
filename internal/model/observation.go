// Package model defines the core data types shared across the decomposition pipeline.
package model

import (
	"fmt"
	"strings"
)

// Observation is one surveyed field: a (household, plot, subplot, season-year)
// row with its actual yield and management/biophysical covariates.
// Observations are read-only inputs; derived quantities live on other types.
type Observation struct {
	HouseholdID string `csv:"household_id" json:"household_id"`
	PlotID      string `csv:"plot_id" json:"plot_id"`
	SubplotID   string `csv:"subplot_id" json:"subplot_id"`
	Year        int    `csv:"year" json:"year"`

	// Ya is the recorded actual yield in t/ha, strictly positive after
	// preparation filtering.
	Ya float64 `csv:"-" json:"ya"`

	// Continuous holds raw continuous covariates (seed rate, N/P rates,
	// herbicide volume, weeding labor, climate and soil-water indices).
	Continuous map[string]float64 `csv:"-" json:"continuous"`

	// Categorical holds string-labeled covariates (variety, soil class,
	// presence/absence flags).
	Categorical map[string]string `csv:"-" json:"categorical"`

	// LogInputs holds the log-transformed continuous covariates, filled by
	// survey.Prepare after the zero-to-epsilon remap. Keys match Continuous.
	LogInputs map[string]float64 `csv:"-" json:"-"`
}

// FieldID identifies the physical field an observation belongs to. Yield
// ceilings are resolved per field, then looked up by harvest year.
func (o *Observation) FieldID() string {
	return fmt.Sprintf("%s/%s/%s", o.HouseholdID, o.PlotID, o.SubplotID)
}

// StratumKey builds the composite stratum key for an observation from the
// given categorical key names. Year is always part of the stratum. The key is
// a stable string so strata can be grouped in a single pass.
func (o *Observation) StratumKey(keys []string) string {
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, fmt.Sprintf("year=%d", o.Year))
	for _, k := range keys {
		parts = append(parts, k+"="+o.Categorical[k])
	}
	return strings.Join(parts, "|")
}

// YieldClass labels an observation's position within its stratum's yield
// distribution.
type YieldClass string

const (
	ClassHighest YieldClass = "highest"
	ClassAverage YieldClass = "average"
	ClassLowest  YieldClass = "lowest"
)
