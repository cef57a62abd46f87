package domain

import (
	"sort"
	"strconv"

	"github.com/globalfund/allocengine/internal/store"
)

// CentralSeries is a (scenario, country, year, indicator) -> central-only
// table, the shape shared by PartnerData and PFInputData.
type CentralSeries struct {
	name  string
	table *store.Table[float64]
}

func newCentralSeries(name string) *CentralSeries {
	return &CentralSeries{
		name:  name,
		table: store.New[float64](name, "scenario", "country", "year", "indicator"),
	}
}

// NewPartnerData constructs the reference historical series used as a
// calibration anchor for years at or before the base year.
func NewPartnerData() *CentralSeries { return newCentralSeries("partner_data") }

// NewPFInputData constructs the programmatic-funding input series.
func NewPFInputData() *CentralSeries { return newCentralSeries("pf_input_data") }

// Insert adds a central-only observation.
func (c *CentralSeries) Insert(scenario Scenario, country Country, year Year, indicator string, central float64) error {
	return c.table.Insert(store.Key{string(scenario), string(country), FormatYear(year), indicator}, central)
}

// At returns the central value for a fully-specified cell.
func (c *CentralSeries) At(scenario Scenario, country Country, year Year, indicator string) (float64, error) {
	return c.table.GetOne(store.Key{string(scenario), string(country), FormatYear(year), indicator})
}

// SeriesRow is a decoded observation from a CentralSeries.
type SeriesRow struct {
	Scenario  Scenario
	Country   Country
	Year      Year
	Indicator string
	Central   float64
}

// CountryIndicator returns every year's observation for a given
// (scenario, country, indicator), sorted ascending by year. Used by
// calibration to find the base year (the last year present).
func (c *CentralSeries) CountryIndicator(scenario Scenario, country Country, indicator string) ([]SeriesRow, error) {
	rows, err := c.table.Get(store.Key{string(scenario), string(country)})
	if err != nil {
		return nil, err
	}
	out := make([]SeriesRow, 0, len(rows))
	for _, r := range rows {
		if r.Key[3] != indicator {
			continue
		}
		year, err := strconv.Atoi(r.Key[2])
		if err != nil {
			return nil, err
		}
		out = append(out, SeriesRow{
			Scenario:  Scenario(r.Key[0]),
			Country:   Country(r.Key[1]),
			Year:      Year(year),
			Indicator: r.Key[3],
			Central:   r.Value,
		})
	}
	if len(out) == 0 {
		return nil, NewKeyError(c.name, string(scenario)+"/"+string(country)+"/"+indicator, ErrNotFound)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

// BaseYearValue returns the central value in the last (most recent) year
// present for (scenario, country, indicator) -- the calibration anchor.
func (c *CentralSeries) BaseYearValue(scenario Scenario, country Country, indicator string) (Year, float64, error) {
	rows, err := c.CountryIndicator(scenario, country, indicator)
	if err != nil {
		return 0, 0, err
	}
	last := rows[len(rows)-1]
	return last.Year, last.Central, nil
}

// CountryAll returns every (year, indicator) observation stored for a
// (scenario, country) pair, in no particular order. scenario and country
// are CentralSeries' two leading dimensions, so this is a direct O(1)
// prefix lookup (unlike ModelResults.CountryScenario, which must scan).
func (c *CentralSeries) CountryAll(scenario Scenario, country Country) ([]SeriesRow, error) {
	rows, err := c.table.Get(store.Key{string(scenario), string(country)})
	if err != nil {
		return nil, err
	}
	out := make([]SeriesRow, 0, len(rows))
	for _, r := range rows {
		year, err := strconv.Atoi(r.Key[2])
		if err != nil {
			return nil, err
		}
		out = append(out, SeriesRow{
			Scenario:  Scenario(r.Key[0]),
			Country:   Country(r.Key[1]),
			Year:      Year(year),
			Indicator: r.Key[3],
			Central:   r.Value,
		})
	}
	return out, nil
}

// Table exposes the underlying generic table.
func (c *CentralSeries) Table() *store.Table[float64] { return c.table }
