package portfolio

import (
	"testing"

	"github.com/globalfund/allocengine/internal/domain"
	"github.com/globalfund/allocengine/internal/emulator"
	"github.com/globalfund/allocengine/internal/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectCountry(t *testing.T, country domain.Country, caseVal, costVal float64) *projection.Result {
	t.Helper()
	mr := domain.NewModelResults()
	for _, ff := range []float64{0.0, 1.0} {
		require.NoError(t, mr.Insert(domain.ScenarioProgrammaticFunded, ff, country, 2025, domain.IndicatorCases, domain.Datum{Central: caseVal}))
		require.NoError(t, mr.Insert(domain.ScenarioProgrammaticFunded, ff, country, 2025, domain.IndicatorCost, domain.Datum{Central: costVal}))
	}
	e, err := emulator.New(mr, domain.ScenarioProgrammaticFunded, country, domain.YearRange{Start: 2025, End: 2025})
	require.NoError(t, err)
	partner := domain.NewPartnerData()
	params := &domain.Parameters{Indicators: map[string]domain.Indicator{
		domain.IndicatorCases: {Name: domain.IndicatorCases, UseScaling: true},
	}}
	result, err := projection.Project(e, 1.0, emulator.Strict, partner, params)
	require.NoError(t, err)
	return result
}

func TestSum_AddsModelledCountries(t *testing.T) {
	a := projectCountry(t, "KEN", 40, 100)
	b := projectCountry(t, "UGA", 20, 50)

	params := &domain.Parameters{Indicators: map[string]domain.Indicator{
		domain.IndicatorCases: {Name: domain.IndicatorCases, UseScaling: true},
	}}
	agg := Sum(domain.ScenarioProgrammaticFunded,
		map[domain.Country]*projection.Result{"KEN": a, "UGA": b},
		[]domain.Country{"KEN", "UGA"},
		domain.NewPartnerData(), params)

	assert.InDelta(t, 60, agg.Values[2025][domain.IndicatorCases].Central, 1e-9)
	assert.InDelta(t, 150, agg.Values[2025][domain.IndicatorCost].Central, 1e-9)
	assert.Empty(t, agg.ImputedCountries)
}

func TestSum_Linearity(t *testing.T) {
	a := projectCountry(t, "KEN", 40, 100)
	b := projectCountry(t, "UGA", 20, 50)
	c := projectCountry(t, "TZA", 10, 25)
	params := &domain.Parameters{Indicators: map[string]domain.Indicator{
		domain.IndicatorCases: {Name: domain.IndicatorCases, UseScaling: true},
	}}
	partner := domain.NewPartnerData()

	whole := Sum(domain.ScenarioProgrammaticFunded,
		map[domain.Country]*projection.Result{"KEN": a, "UGA": b, "TZA": c},
		[]domain.Country{"KEN", "UGA", "TZA"}, partner, params)

	first := Sum(domain.ScenarioProgrammaticFunded,
		map[domain.Country]*projection.Result{"KEN": a, "UGA": b},
		[]domain.Country{"KEN", "UGA"}, partner, params)
	second := Sum(domain.ScenarioProgrammaticFunded,
		map[domain.Country]*projection.Result{"TZA": c},
		[]domain.Country{"TZA"}, partner, params)

	assert.InDelta(t,
		first.Values[2025][domain.IndicatorCases].Central+second.Values[2025][domain.IndicatorCases].Central,
		whole.Values[2025][domain.IndicatorCases].Central, 1e-9)
}

func TestSum_ImputesUnmodelledCountryFromPartnerRate(t *testing.T) {
	modelled := projectCountry(t, "KEN", 40, 100)
	params := &domain.Parameters{Indicators: map[string]domain.Indicator{
		domain.IndicatorCases: {Name: domain.IndicatorCases, UseScaling: true},
	}}
	partner := domain.NewPartnerData()
	require.NoError(t, partner.Insert(domain.ScenarioProgrammaticFunded, "MWI", 2025, domain.IndicatorCases, 0.01))
	require.NoError(t, partner.Insert(domain.ScenarioProgrammaticFunded, "MWI", 2025, domain.IndicatorPopulation, 1000))

	agg := Sum(domain.ScenarioProgrammaticFunded,
		map[domain.Country]*projection.Result{"KEN": modelled},
		[]domain.Country{"KEN", "MWI"}, partner, params)

	assert.Equal(t, []domain.Country{"MWI"}, agg.ImputedCountries)
	assert.InDelta(t, 40+10, agg.Values[2025][domain.IndicatorCases].Central, 1e-9)
}

func TestSum_MissingImputationDataWarns(t *testing.T) {
	modelled := projectCountry(t, "KEN", 40, 100)
	params := &domain.Parameters{Indicators: map[string]domain.Indicator{
		domain.IndicatorCases: {Name: domain.IndicatorCases, UseScaling: true},
	}}
	partner := domain.NewPartnerData()

	agg := Sum(domain.ScenarioProgrammaticFunded,
		map[domain.Country]*projection.Result{"KEN": modelled},
		[]domain.Country{"KEN", "MWI"}, partner, params)

	require.NotEmpty(t, agg.Warnings)
	assert.InDelta(t, 40, agg.Values[2025][domain.IndicatorCases].Central, 1e-9)
}
