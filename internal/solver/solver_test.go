package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoCountryInput(tgfTotal float64) Input {
	return Input{
		TGFTotal: tgfTotal,
		Countries: []CountryInput{
			{
				Country: "A",
				NonTGF:  0,
				Points: []CandidatePoint{
					{FundingFraction: 0.0, Cost: 0, Obj: 100},
					{FundingFraction: 0.5, Cost: 50, Obj: 60},
					{FundingFraction: 1.0, Cost: 100, Obj: 40},
				},
			},
			{
				Country: "B",
				NonTGF:  0,
				Points: []CandidatePoint{
					{FundingFraction: 0.0, Cost: 0, Obj: 80},
					{FundingFraction: 0.5, Cost: 30, Obj: 50},
					{FundingFraction: 1.0, Cost: 60, Obj: 30},
				},
			},
		},
	}
}

func TestSolveForward_TwoCountrySimpleCurves(t *testing.T) {
	result, warnings, err := SolveForward(twoCountryInput(100))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.InDelta(t, 80, result.TotalCost, 1e-9)
	assert.InDelta(t, 110, result.Objective, 1e-9)
	assert.False(t, result.BudgetInfeasible)

	byCountry := map[string]CountryResult{}
	for _, c := range result.Countries {
		byCountry[string(c.Country)] = c
	}
	assert.InDelta(t, 0.5, byCountry["A"].FundingFraction, 1e-9)
	assert.InDelta(t, 0.5, byCountry["B"].FundingFraction, 1e-9)
}

func TestSolveBackward_TwoCountrySimpleCurves(t *testing.T) {
	result, warnings, err := SolveBackward(twoCountryInput(100))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.InDelta(t, 80, result.TotalCost, 1e-9)
	assert.InDelta(t, 110, result.Objective, 1e-9)
	assert.False(t, result.BudgetInfeasible)
}

func TestSolve_BestOfBoth(t *testing.T) {
	report, err := Solve(twoCountryInput(100), true)
	require.NoError(t, err)
	require.NotNil(t, report.Best)
	assert.InDelta(t, 110, report.Best.Objective, 1e-9)
	assert.Nil(t, report.Forward)
	assert.Nil(t, report.Backward)
}

func TestSolve_ReturnsBothWhenRequested(t *testing.T) {
	report, err := Solve(twoCountryInput(100), false)
	require.NoError(t, err)
	require.NotNil(t, report.Forward)
	require.NotNil(t, report.Backward)
}

func TestSolveForward_OverfundedFromNonTGF(t *testing.T) {
	input := Input{
		TGFTotal: 0,
		Countries: []CountryInput{
			{
				Country: "A",
				NonTGF:  120,
				Points: []CandidatePoint{
					{FundingFraction: 0.0, Cost: 0, Obj: 100},
					{FundingFraction: 1.0, Cost: 100, Obj: 40},
				},
			},
		},
	}
	result, warnings, err := SolveForward(input)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, result.Countries, 1)
	c := result.Countries[0]
	assert.Equal(t, 1.0, c.FundingFraction)
	assert.True(t, c.FullyFundedFromNonTGF)
	assert.InDelta(t, -20, result.TGFSpend, 1e-9)
	assert.False(t, result.BudgetInfeasible)
}

func TestApplyMonotonic_CorrectsViolation(t *testing.T) {
	points := []CandidatePoint{
		{FundingFraction: 0.0, Cost: 0, Obj: 100},
		{FundingFraction: 0.5, Cost: 50, Obj: 40},
		{FundingFraction: 1.0, Cost: 100, Obj: 55},
	}
	corrected := applyMonotonic(points)
	require.Len(t, corrected, 3)
	assert.Equal(t, 100.0, corrected[0].Obj)
	assert.Equal(t, 40.0, corrected[1].Obj)
	assert.Equal(t, 40.0, corrected[2].Obj)
}

func TestSolveForward_ForceMonotonicDecreasing(t *testing.T) {
	input := twoCountryInput(100)
	input.Countries[0].Points[2].Obj = 55 // introduce a violation on country A
	input.ForceMonotonicDecreasing = true

	result, _, err := SolveForward(input)
	require.NoError(t, err)
	for _, c := range result.Countries {
		if c.Country == "A" && c.FundingFraction == 1.0 {
			assert.Equal(t, 40.0, c.Obj)
		}
	}
}

func TestSolveBackward_BudgetInfeasibleAtFloors(t *testing.T) {
	input := Input{
		TGFTotal: 10,
		Countries: []CountryInput{
			{
				// NonTGF 10 rounds the floor up to ff=1.0 (cost 50), whose
				// TGF share of 40 exceeds the budget of 10.
				Country: "A",
				NonTGF:  10,
				Points: []CandidatePoint{
					{FundingFraction: 0.0, Cost: 0, Obj: 100},
					{FundingFraction: 1.0, Cost: 50, Obj: 40},
				},
			},
		},
	}
	result, _, err := SolveBackward(input)
	require.NoError(t, err)
	assert.True(t, result.BudgetInfeasible)
	assert.InDelta(t, 1.0, result.Countries[0].FundingFraction, 1e-9)
}

func TestSolveForward_MaxStepsTimesOut(t *testing.T) {
	input := twoCountryInput(100)
	input.MaxSteps = 1
	result, _, err := SolveForward(input)
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
	assert.Equal(t, 1, result.StepsApplied)
}

func TestBuildCountries_ExcludesEmptyPointsWithWarning(t *testing.T) {
	input := Input{
		TGFTotal: 10,
		Countries: []CountryInput{
			{Country: "Z", NonTGF: 0, Points: nil},
			{
				Country: "A",
				NonTGF:  0,
				Points: []CandidatePoint{
					{FundingFraction: 0.0, Cost: 0, Obj: 10},
					{FundingFraction: 1.0, Cost: 10, Obj: 5},
				},
			},
		},
	}
	result, warnings, err := SolveForward(input)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Z", warnings[0].Country)
	require.Len(t, result.Countries, 1)
	assert.Equal(t, "A", string(result.Countries[0].Country))
}

func TestComposeCrossDisease_PrefixesCountriesAndPoolsBudget(t *testing.T) {
	hiv := twoCountryInput(100)
	tb := twoCountryInput(60)

	composed := ComposeCrossDisease(map[string]Input{"hiv": hiv, "tb": tb})

	assert.InDelta(t, 160, composed.TGFTotal, 1e-9)
	require.Len(t, composed.Countries, 4)

	seen := make(map[string]bool)
	for _, c := range composed.Countries {
		seen[string(c.Country)] = true
	}
	assert.True(t, seen["hiv:A"])
	assert.True(t, seen["hiv:B"])
	assert.True(t, seen["tb:A"])
	assert.True(t, seen["tb:B"])
}

func TestComposeCrossDisease_SolvesAndSplitsBackPerDisease(t *testing.T) {
	hiv := twoCountryInput(100)
	tb := twoCountryInput(60)
	composed := ComposeCrossDisease(map[string]Input{"hiv": hiv, "tb": tb})

	report, err := Solve(composed, true)
	require.NoError(t, err)

	split := SplitCrossDiseaseResult(report.Best)
	require.Contains(t, split, "hiv")
	require.Contains(t, split, "tb")
	for _, sub := range split {
		require.Len(t, sub.Countries, 2)
		for _, cr := range sub.Countries {
			assert.NotContains(t, string(cr.Country), ":")
		}
	}
}
