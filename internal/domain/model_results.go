package domain

import (
	"sort"
	"strconv"

	"github.com/globalfund/allocengine/internal/store"
)

// ModelResults holds upstream disease-model output, keyed by
// (scenario, funding_fraction, country, year, indicator) -> Datum. This is
// the core external-collaborator contract described in the system
// overview: raw file parsing is out of scope, but the resulting normalised
// table is what every downstream component (emulator, frontier, solver,
// projection) reads from.
type ModelResults struct {
	table *store.Table[Datum]
}

// NewModelResults creates an empty ModelResults table.
func NewModelResults() *ModelResults {
	return &ModelResults{table: store.New[Datum]("model_results",
		"scenario", "funding_fraction", "country", "year", "indicator")}
}

// Insert adds one (scenario, ff, country, year, indicator) -> Datum row.
func (m *ModelResults) Insert(scenario Scenario, ff float64, country Country, year Year, indicator string, d Datum) error {
	key := store.Key{string(scenario), FormatFraction(ff), string(country), FormatYear(year), indicator}
	return m.table.Insert(key, d)
}

// Row is a fully-resolved model-results observation, returned by queries
// that need the decoded key alongside the value.
type Row struct {
	Scenario        Scenario
	FundingFraction float64
	Country         Country
	Year            Year
	Indicator       string
	Value           Datum
}

func decodeRow(r store.Row[Datum]) (Row, error) {
	ff, err := ParseFraction(r.Key[1])
	if err != nil {
		return Row{}, err
	}
	year, err := strconv.Atoi(r.Key[3])
	if err != nil {
		return Row{}, err
	}
	return Row{
		Scenario:        Scenario(r.Key[0]),
		FundingFraction: ff,
		Country:         Country(r.Key[2]),
		Year:            Year(year),
		Indicator:       r.Key[4],
		Value:           r.Value,
	}, nil
}

// CountryScenario returns every row for a given (scenario, country) pair,
// across all funding fractions, years and indicators. This is the query
// the Emulator uses at construction time.
//
// Prefix lookup only supports leading dimensions; scenario+country are not
// adjacent leading dims (funding_fraction sits between them), so this scans
// the scenario partition and filters by country.
func (m *ModelResults) CountryScenario(scenario Scenario, country Country) ([]Row, error) {
	scenarioRows, err := m.table.Get(store.Key{string(scenario)})
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(scenarioRows))
	for _, r := range scenarioRows {
		if Country(r.Key[2]) != country {
			continue
		}
		decoded, err := decodeRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	if len(out) == 0 {
		return nil, NewKeyError("model_results", string(scenario)+"/"+string(country), ErrNotFound)
	}
	return out, nil
}

// FundingFractions returns the sorted, deduplicated set of funding
// fractions stored for a (scenario, country) pair.
func (m *ModelResults) FundingFractions(scenario Scenario, country Country) ([]float64, error) {
	rows, err := m.CountryScenario(scenario, country)
	if err != nil {
		return nil, err
	}
	seen := make(map[float64]bool)
	var out []float64
	for _, r := range rows {
		if !seen[r.FundingFraction] {
			seen[r.FundingFraction] = true
			out = append(out, r.FundingFraction)
		}
	}
	sort.Float64s(out)
	return out, nil
}

// At returns the single Datum for a fully-specified cell.
func (m *ModelResults) At(scenario Scenario, ff float64, country Country, year Year, indicator string) (Datum, error) {
	return m.table.GetOne(store.Key{string(scenario), FormatFraction(ff), string(country), FormatYear(year), indicator})
}

// Countries returns the distinct set of countries present anywhere in the table.
func (m *ModelResults) Countries() []Country {
	seen := make(map[Country]bool)
	for _, r := range m.table.All() {
		seen[Country(r.Key[2])] = true
	}
	out := make([]Country, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Table exposes the underlying generic table for components (frontier
// filter, report adapter) that need raw grouped access.
func (m *ModelResults) Table() *store.Table[Datum] { return m.table }
