// Package objective computes the portfolio solver's minimisation target
// for a single country's resolved trajectory, and the per-country
// normalisation weights used to keep large-burden countries from
// dominating the objective. It is factored out of internal/solver so that
// internal/frontier (which needs the same objective to rank points before
// the solver ever runs) does not have to import the solver package.
package objective

import (
	"github.com/globalfund/allocengine/internal/domain"
	"github.com/globalfund/allocengine/internal/emulator"
)

// Func evaluates the objective contribution of one country's trajectory,
// summed over the given years, using the supplied per-indicator weights.
// Exposed as an injectable type so callers can override the default
// (e.g. the cross-disease "deaths only" objective in
// optimisation_across_diseases_and_countries.py).
type Func func(traj emulator.Trajectory, years []domain.Year, weights map[string]float64) float64

// Default sums w_i * central(i, y) across the requested years and every
// weighted indicator. This is the §4.4 objective:
// Σ_y Σ_i w_i * central(i, y, ff).
func Default(traj emulator.Trajectory, years []domain.Year, weights map[string]float64) float64 {
	var total float64
	for _, y := range years {
		vals, ok := traj.Values[y]
		if !ok {
			continue
		}
		for indicator, w := range weights {
			if w == 0 {
				continue
			}
			if v, ok := vals[indicator]; ok {
				total += w * v.Central
			}
		}
	}
	return total
}

// NormalizedWeights computes, per objective indicator, w_i = 1/max_i where
// max_i is the largest value (over every stored funding fraction) of that
// indicator's central estimate summed across the objective years. This is
// the "fraction of worst" normalisation described in §4.4: it keeps
// countries with large absolute burden from dominating the portfolio
// objective. An indicator whose maximum is exactly zero gets weight zero
// (it can never contribute, rather than producing a division by zero).
func NormalizedWeights(e *emulator.Emulator, objectiveIndicators []string, years []domain.Year, mode emulator.Mode) (map[string]float64, error) {
	maxByIndicator := make(map[string]float64, len(objectiveIndicators))

	for _, ff := range e.FundingFractions() {
		traj, err := e.Get(ff, mode)
		if err != nil {
			return nil, err
		}
		for _, indicator := range objectiveIndicators {
			var sum float64
			for _, y := range years {
				if vals, ok := traj.Values[y]; ok {
					if v, ok := vals[indicator]; ok {
						sum += v.Central
					}
				}
			}
			if sum > maxByIndicator[indicator] {
				maxByIndicator[indicator] = sum
			}
		}
	}

	weights := make(map[string]float64, len(objectiveIndicators))
	for _, indicator := range objectiveIndicators {
		if m := maxByIndicator[indicator]; m > 0 {
			weights[indicator] = 1.0 / m
		} else {
			weights[indicator] = 0
		}
	}
	return weights, nil
}

// UnnormalizedWeights assigns weight 1.0 to every indicator, for the
// cross-disease optimisation mode described in SPEC_FULL.md where raw
// impact (not normalised "fraction of worst") drives the comparison.
func UnnormalizedWeights(objectiveIndicators []string) map[string]float64 {
	weights := make(map[string]float64, len(objectiveIndicators))
	for _, indicator := range objectiveIndicators {
		weights[indicator] = 1.0
	}
	return weights
}
