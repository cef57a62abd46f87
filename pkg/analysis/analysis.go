// Package analysis is the library entry point described in §6:
// RunAnalysis(parameters, inputs) -> PortfolioProjection. It wires together
// every component (C1-C8) for one self-contained analysis run; no shared
// mutable state crosses into a second call, so independent scenarios may
// run in parallel workers per §5.
package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/globalfund/allocengine/internal/counterfactual"
	"github.com/globalfund/allocengine/internal/domain"
	"github.com/globalfund/allocengine/internal/emulator"
	"github.com/globalfund/allocengine/internal/frontier"
	"github.com/globalfund/allocengine/internal/objective"
	"github.com/globalfund/allocengine/internal/portfolio"
	"github.com/globalfund/allocengine/internal/projection"
	"github.com/globalfund/allocengine/internal/report"
	"github.com/globalfund/allocengine/internal/runctx"
	"github.com/globalfund/allocengine/internal/solver"
)

// Inputs bundles every external collaborator contract §6 describes.
type Inputs struct {
	ModelResults  *domain.ModelResults
	PartnerData   *domain.CentralSeries
	PFInputData   *domain.CentralSeries
	TgfFunding    *domain.Funding
	NonTgfFunding *domain.Funding
}

// CountryResult is one country's resolved allocation plus projection.
type CountryResult struct {
	Country         domain.Country
	FundingFraction float64
	State           solver.State
	Projection      *projection.Result
}

// PortfolioProjection is RunAnalysis's output: §6's contract.
type PortfolioProjection struct {
	RunID             string
	Countries         []CountryResult
	Portfolio         *portfolio.Aggregate
	Counterfactuals   map[domain.Scenario]*portfolio.Aggregate
	DeathsAverted     map[domain.Year]domain.Datum
	InfectionsAverted map[domain.Year]domain.Datum
	SolverReport      *solver.Report
	Report            *report.Adapter
	Warnings          []domain.Warning
	// CountryViews is the §C.5 diagnostic join of model, PF-input and
	// partner rows at each country's chosen funding fraction, keyed by
	// country. It carries no effect on the solved allocation; it exists so
	// callers can inspect what every source table reported for the chosen
	// operating point.
	CountryViews map[domain.Country][]domain.JoinedRow
}

// RunAnalysis is the invocation boundary described in §6.
func RunAnalysis(params *domain.Parameters, inputs Inputs, logger zerolog.Logger) (*PortfolioProjection, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if inputs.ModelResults == nil {
		return nil, domain.ErrInputsEmpty
	}

	run := runctx.New(logger)
	var warnings []domain.Warning

	mode := emulator.Tolerant
	if !params.HandleOutOfBoundsCosts {
		mode = emulator.Strict
	}

	scenario := domain.ScenarioProgrammaticFunded

	filtered, frontierWarnings, err := frontier.FilterModelResults(
		inputs.ModelResults, scenario, params.YearsForFunding, params.YearsForObjFunc.Years(),
		params.ObjectiveIndicators, objective.Default, frontier.EdgeLower, mode,
	)
	if err != nil {
		return nil, fmt.Errorf("frontier filtering: %w", err)
	}
	warnings = append(warnings, frontierWarnings...)

	emulators := make(map[domain.Country]*emulator.Emulator)
	solverInput := solver.Input{ForceMonotonicDecreasing: true}
	if inputs.TgfFunding != nil {
		solverInput.TGFTotal = inputs.TgfFunding.Total()
	}

	for _, country := range params.ModelledCountries {
		e, err := emulator.New(filtered, scenario, country, params.YearsForFunding)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: err, Detail: "excluded from solve"})
			continue
		}
		emulators[country] = e

		weights, err := objective.NormalizedWeights(e, params.ObjectiveIndicators, params.YearsForObjFunc.Years(), mode)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: err, Detail: "objective weights failed"})
			continue
		}
		points, err := frontier.CountryPoints(e, objective.Default, weights, params.YearsForObjFunc.Years(), mode)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: err, Detail: "failed to build candidate points"})
			continue
		}

		candidates := make([]solver.CandidatePoint, len(points))
		for i, p := range points {
			candidates[i] = solver.CandidatePoint{FundingFraction: p.FundingFraction, Cost: p.Cost, Obj: p.Obj}
		}
		var nonTGF float64
		if inputs.NonTgfFunding != nil {
			nonTGF = inputs.NonTgfFunding.Get(country)
		}
		solverInput.Countries = append(solverInput.Countries, solver.CountryInput{
			Country: country, Points: candidates, NonTGF: nonTGF,
		})
	}

	solverReport, err := solver.Solve(solverInput, true)
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}
	if solverReport.Best.BudgetInfeasible {
		warnings = append(warnings, domain.Warning{Err: domain.ErrBudgetInfeasible, Detail: "sum of floors exceeds TGF + non-TGF total"})
	}
	if solverReport.Best.TimedOut {
		warnings = append(warnings, domain.Warning{Err: domain.ErrTimeout, Detail: "solver step budget exhausted"})
	}
	warnings = append(warnings, solverReport.ExcludedCountries...)

	countryResults := make([]CountryResult, 0, len(solverReport.Best.Countries))
	projections := make(map[domain.Country]*projection.Result, len(solverReport.Best.Countries))
	for _, c := range solverReport.Best.Countries {
		e, ok := emulators[c.Country]
		if !ok {
			continue
		}
		proj, err := projection.Project(e, c.FundingFraction, mode, inputs.PartnerData, params)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(c.Country), Err: err, Detail: "projection failed"})
			continue
		}
		warnings = append(warnings, proj.Warnings...)
		projections[c.Country] = proj
		countryResults = append(countryResults, CountryResult{
			Country: c.Country, FundingFraction: c.FundingFraction, State: c.State, Projection: proj,
		})
	}
	sort.Slice(countryResults, func(i, j int) bool { return countryResults[i].Country < countryResults[j].Country })

	portfolioAgg := portfolio.Sum(scenario, projections, params.PortfolioCountries, inputs.PartnerData, params)
	warnings = append(warnings, portfolioAgg.Warnings...)

	countryViews := make(map[domain.Country][]domain.JoinedRow, len(countryResults))
	for _, c := range countryResults {
		view, err := domain.JoinCountryView(inputs.ModelResults, inputs.PFInputData, inputs.PartnerData, scenario, c.Country, c.FundingFraction)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(c.Country), Err: err, Detail: "diagnostic join failed"})
			continue
		}
		countryViews[c.Country] = view
	}

	// globalPlanGp is the stated-target trajectory the global-plan
	// counterfactual sources from (§4.7), derived from this run's
	// full-funding model results absent an exogenously supplied plan.
	globalPlanGp, _ := domain.DeriveGpFromModelResults(inputs.ModelResults, scenario)

	counterfactuals := make(map[domain.Scenario]*portfolio.Aggregate)
	for cfScenario := range params.CounterfactualMap {
		agg, cfWarnings, err := counterfactual.Run(cfScenario, inputs.ModelResults, inputs.PartnerData, params, mode, nil, nil, globalPlanGp)
		if err != nil {
			warnings = append(warnings, domain.Warning{Err: err, Detail: "counterfactual " + string(cfScenario) + " failed"})
			continue
		}
		warnings = append(warnings, cfWarnings...)
		counterfactuals[cfScenario] = agg
	}

	var deathsAverted, infectionsAverted map[domain.Year]domain.Datum
	if nullAgg, ok := counterfactuals[domain.ScenarioCounterfactualNull]; ok {
		deathsAverted = counterfactual.DeathsAverted(nullAgg, portfolioAgg)
		infectionsAverted = counterfactual.InfectionsAverted(nullAgg, portfolioAgg)
	}

	adapter := report.New(logger)
	adapter.AddPortfolioTotal(portfolioAgg, domain.IndicatorDeaths, params.YearsForFunding, "total deaths, funding window")
	adapter.AddTrajectoryTable("deaths_trajectory", portfolioAgg, domain.IndicatorDeaths)
	adapter.AddTrajectoryTable("cases_trajectory", portfolioAgg, domain.IndicatorCases)
	if deathsAverted != nil {
		adapter.AddROIPerDollar(deathsAverted, params.YearsForFunding, solverInput.TGFTotal)
	}

	run.Done(context.Background())

	return &PortfolioProjection{
		RunID:             run.ID.String(),
		Countries:         countryResults,
		Portfolio:         portfolioAgg,
		Counterfactuals:   counterfactuals,
		DeathsAverted:     deathsAverted,
		InfectionsAverted: infectionsAverted,
		SolverReport:      solverReport,
		Report:            adapter,
		Warnings:          warnings,
		CountryViews:      countryViews,
	}, nil
}
