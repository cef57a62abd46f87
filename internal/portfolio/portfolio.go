// Package portfolio sums per-country calibrated trajectories across a
// declared portfolio of countries, imputing the contribution of countries
// that carry no model results from partner-data rates applied to
// population, per §4.6.
package portfolio

import (
	"sort"

	"github.com/globalfund/allocengine/internal/domain"
	"github.com/globalfund/allocengine/internal/projection"
)

// Aggregate is the portfolio-level summed trajectory for one scenario.
type Aggregate struct {
	Scenario         domain.Scenario
	Years            []domain.Year
	Values           map[domain.Year]map[string]domain.Datum
	ImputedCountries []domain.Country
	Warnings         []domain.Warning
}

// addDatum sums two Datums, treating a NaN (absent) bound as a zero
// contribution rather than poisoning the whole portfolio sum with NaN --
// countries reported central-only (partner data, imputed countries) must
// still contribute to the portfolio's central total even though they carry
// no low/high bound.
func addDatum(a, b domain.Datum) domain.Datum {
	return domain.Datum{Low: addComponent(a.Low, b.Low), Central: addComponent(a.Central, b.Central), High: addComponent(a.High, b.High)}
}

func addComponent(a, b float64) float64 {
	av, bv := a, b
	if isNaN(av) {
		av = 0
	}
	if isNaN(bv) {
		bv = 0
	}
	return av + bv
}

func isNaN(f float64) bool { return f != f }

// Sum aggregates one scenario's resolved per-country projections across
// portfolioCountries. results holds the calibrated projection for every
// modelled country; countries in portfolioCountries absent from results
// are imputed via partner-data rate * population, restricted to
// use_scaling indicators (non-scaling indicators contribute zero for
// unmodelled countries).
func Sum(
	scenario domain.Scenario,
	results map[domain.Country]*projection.Result,
	portfolioCountries []domain.Country,
	partnerData *domain.CentralSeries,
	params *domain.Parameters,
) *Aggregate {
	agg := &Aggregate{
		Scenario: scenario,
		Values:   make(map[domain.Year]map[string]domain.Datum),
	}

	yearSet := make(map[domain.Year]bool)
	for _, r := range results {
		for _, y := range r.Calibrated.Years {
			yearSet[y] = true
		}
	}

	sortedCountries := append([]domain.Country(nil), portfolioCountries...)
	sort.Slice(sortedCountries, func(i, j int) bool { return sortedCountries[i] < sortedCountries[j] })

	for _, country := range sortedCountries {
		if r, ok := results[country]; ok {
			for _, y := range r.Calibrated.Years {
				addYearRow(agg, y, r.Calibrated.Values[y])
			}
			continue
		}

		agg.ImputedCountries = append(agg.ImputedCountries, country)
		for y := range yearSet {
			row, warnings := imputeCountryYear(scenario, country, y, params, partnerData)
			agg.Warnings = append(agg.Warnings, warnings...)
			addYearRow(agg, y, row)
		}
	}

	agg.Years = make([]domain.Year, 0, len(agg.Values))
	for y := range agg.Values {
		agg.Years = append(agg.Years, y)
	}
	sort.Slice(agg.Years, func(i, j int) bool { return agg.Years[i] < agg.Years[j] })

	return agg
}

func addYearRow(agg *Aggregate, year domain.Year, row map[string]domain.Datum) {
	if agg.Values[year] == nil {
		agg.Values[year] = make(map[string]domain.Datum)
	}
	for indicator, d := range row {
		agg.Values[year][indicator] = addDatum(agg.Values[year][indicator], d)
	}
}

// imputeCountryYear computes one unmodelled country's contribution for one
// year: rate (from partner data) * population (also from partner data),
// restricted to indicators flagged use_scaling. Indicators missing either
// the rate or the population observation contribute zero and produce a
// diagnostic warning.
func imputeCountryYear(
	scenario domain.Scenario,
	country domain.Country,
	year domain.Year,
	params *domain.Parameters,
	partnerData *domain.CentralSeries,
) (map[string]domain.Datum, []domain.Warning) {
	row := make(map[string]domain.Datum)
	var warnings []domain.Warning

	for name, ind := range params.Indicators {
		if !ind.UseScaling {
			continue
		}
		rate, err := partnerData.At(scenario, country, year, name)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: domain.ErrNotFound, Detail: "no partner rate for " + name + ", imputed as zero"})
			continue
		}
		population, err := partnerData.At(scenario, country, year, domain.IndicatorPopulation)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: domain.ErrNotFound, Detail: "no population to impute " + name + ", imputed as zero"})
			continue
		}
		row[name] = domain.NewCentralOnly(rate * population)
	}
	return row, warnings
}
