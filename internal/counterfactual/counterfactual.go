// Package counterfactual re-runs the projection pipeline at full funding
// (ff=1) under a reference scenario descriptor (null, constant-coverage,
// global-plan), and derives the impact differences the portfolio report
// needs, per §4.7.
package counterfactual

import (
	"github.com/globalfund/allocengine/internal/domain"
	"github.com/globalfund/allocengine/internal/emulator"
	"github.com/globalfund/allocengine/internal/portfolio"
	"github.com/globalfund/allocengine/internal/projection"
)

// fullFunding is the funding fraction every counterfactual scenario is
// evaluated at: these are reference trajectories, not allocation outcomes.
const fullFunding = 1.0

// OverrideFunc computes a specialised counterfactual contribution for one
// country by differencing against a fixed historical rate, bypassing the
// standard emulator/calibration pipeline. Used for malaria-style
// counterfactuals where "no intervention" is defined by a historical
// incidence rate rather than a modelled null scenario.
type OverrideFunc func(country domain.Country, year domain.Year, historicalRate float64) domain.Datum

// Run evaluates one counterfactual scenario across every modelled country
// and aggregates to the portfolio. overrides, keyed by country, replaces
// the standard pipeline for countries that need the historical-rate hook;
// historicalRates supplies the rate each override consults. globalPlan
// supplies the stated-target trajectory for the global-plan scenario
// (§4.7: "global-plan = stated targets"); it is consulted only when
// scenario is domain.ScenarioGlobalPlan and is ignored otherwise.
func Run(
	scenario domain.Scenario,
	mr *domain.ModelResults,
	partnerData *domain.CentralSeries,
	params *domain.Parameters,
	mode emulator.Mode,
	overrides map[domain.Country]OverrideFunc,
	historicalRates map[domain.Country]float64,
	globalPlan *domain.Gp,
) (*portfolio.Aggregate, []domain.Warning, error) {
	results := make(map[domain.Country]*projection.Result)
	var warnings []domain.Warning

	useGlobalPlan := scenario == domain.ScenarioGlobalPlan && globalPlan != nil

	for _, country := range params.ModelledCountries {
		if override, ok := overrides[country]; ok {
			results[country] = runOverride(scenario, country, override, historicalRates[country], params)
			continue
		}

		if useGlobalPlan {
			results[country] = runFromGlobalPlan(globalPlan, scenario, country, params)
			continue
		}

		e, err := emulator.New(mr, scenario, country, params.YearsForFunding)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: err, Detail: "excluded from counterfactual " + string(scenario)})
			continue
		}
		result, err := projection.Project(e, fullFunding, mode, partnerData, params)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: err, Detail: "projection failed under counterfactual " + string(scenario)})
			continue
		}
		warnings = append(warnings, result.Warnings...)
		results[country] = result
	}

	agg := portfolio.Sum(scenario, results, params.PortfolioCountries, partnerData, params)
	warnings = append(warnings, agg.Warnings...)
	return agg, warnings, nil
}

// runOverride builds a synthetic projection.Result for one country from the
// override hook alone, so it can flow through the same portfolio.Sum path
// as standard countries.
func runOverride(scenario domain.Scenario, country domain.Country, override OverrideFunc, rate float64, params *domain.Parameters) *projection.Result {
	years := params.YearsForFunding.Years()
	values := make(map[domain.Year]map[string]domain.Datum, len(years))
	for _, y := range years {
		row := make(map[string]domain.Datum)
		for name, ind := range params.Indicators {
			if ind.UseScaling {
				row[name] = override(country, y, rate)
			}
		}
		values[y] = row
	}
	traj := emulator.Trajectory{Years: years, Values: values}
	return &projection.Result{
		Country:          country,
		Scenario:         scenario,
		FundingFraction:  fullFunding,
		Raw:              traj,
		Calibrated:       traj,
		CalibrationRatio: map[string]float64{},
	}
}

// runFromGlobalPlan builds a synthetic projection.Result for one country
// from its Gp stated targets rather than the emulator/calibration
// pipeline, so the global-plan counterfactual reflects declared targets
// (exogenous or derived from model results at full funding) instead of a
// re-run of the standard model. Years or indicators absent from the Gp
// are simply omitted from the resulting trajectory, consistent with the
// rest of this package falling through on missing data rather than
// aborting the country.
func runFromGlobalPlan(gp *domain.Gp, scenario domain.Scenario, country domain.Country, params *domain.Parameters) *projection.Result {
	years := params.YearsForFunding.Years()
	values := make(map[domain.Year]map[string]domain.Datum, len(years))
	for _, y := range years {
		row := make(map[string]domain.Datum)
		for name, ind := range params.Indicators {
			if !ind.UseScaling {
				continue
			}
			v, err := gp.Target(country, y, name)
			if err != nil {
				continue
			}
			row[name] = domain.Datum{Low: v, Central: v, High: v}
		}
		values[y] = row
	}
	traj := emulator.Trajectory{Years: years, Values: values}
	return &projection.Result{
		Country:          country,
		Scenario:         scenario,
		FundingFraction:  fullFunding,
		Raw:              traj,
		Calibrated:       traj,
		CalibrationRatio: map[string]float64{},
	}
}

// Difference computes the element-wise post-aggregation derived measure
// cf - ic (e.g. deaths_averted = portfolio_deaths(counterfactual) -
// portfolio_deaths(intervention_case)), per year, for a single indicator.
func Difference(cf, ic *portfolio.Aggregate, indicator string) map[domain.Year]domain.Datum {
	out := make(map[domain.Year]domain.Datum)
	for _, y := range cf.Years {
		cfVal := cf.Values[y][indicator]
		icVal := ic.Values[y][indicator]
		out[y] = domain.Datum{
			Low:     subtractComponent(cfVal.Low, icVal.Low),
			Central: subtractComponent(cfVal.Central, icVal.Central),
			High:    subtractComponent(cfVal.High, icVal.High),
		}
	}
	return out
}

func subtractComponent(a, b float64) float64 {
	if a != a {
		a = 0
	}
	if b != b {
		b = 0
	}
	return a - b
}

// DeathsAverted is Difference specialised to the deaths indicator.
func DeathsAverted(cf, ic *portfolio.Aggregate) map[domain.Year]domain.Datum {
	return Difference(cf, ic, domain.IndicatorDeaths)
}

// InfectionsAverted is Difference specialised to the cases indicator
// (infections are reported under the "cases" indicator name throughout).
func InfectionsAverted(cf, ic *portfolio.Aggregate) map[domain.Year]domain.Datum {
	return Difference(cf, ic, domain.IndicatorCases)
}
