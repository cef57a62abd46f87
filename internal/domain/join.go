package domain

import (
	"math"
	"sort"
)

// JoinedRow is one (year, indicator) observation assembled from every
// source the system carries for a country, with sources that had no
// matching row reported as NaN rather than causing the join to fail --
// mirroring database.py's get_country, which falls back past a missing
// source with a try/except KeyError rather than aborting.
type JoinedRow struct {
	Year           Year
	Indicator      string
	Model          Datum   // from ModelResults at the requested funding fraction
	PFInput        float64 // from PFInputData, NaN if absent
	Partner        float64 // from PartnerData, NaN if absent
	ModelPresent   bool
	PFInputPresent bool
	PartnerPresent bool
}

// JoinCountryView assembles a read-only, diagnostics-friendly view joining
// model, PF-input and partner rows for a single (scenario, country,
// funding_fraction), across every year and indicator any of the three
// sources reports. It never mutates its inputs.
func JoinCountryView(
	mr *ModelResults,
	pf *PFInputData,
	partner *PartnerData,
	scenario Scenario,
	country Country,
	ff float64,
) ([]JoinedRow, error) {
	rowsByKey := make(map[[2]interface{}]*JoinedRow)

	key := func(year Year, indicator string) [2]interface{} { return [2]interface{}{year, indicator} }
	get := func(year Year, indicator string) *JoinedRow {
		k := key(year, indicator)
		r, ok := rowsByKey[k]
		if !ok {
			r = &JoinedRow{Year: year, Indicator: indicator, PFInput: math.NaN(), Partner: math.NaN()}
			rowsByKey[k] = r
		}
		return r
	}

	modelRows, err := mr.CountryScenario(scenario, country)
	if err != nil && len(modelRows) == 0 {
		// No model rows at all is not fatal for the join: partner/PF-input
		// data may still exist. Only propagate a genuine lookup error when
		// nothing else will be found either.
		modelRows = nil
	}
	for _, r := range modelRows {
		if r.FundingFraction != ff {
			continue
		}
		row := get(r.Year, r.Indicator)
		row.Model = r.Value
		row.ModelPresent = true
	}

	if pf != nil {
		pfRows, _ := pf.CountryAll(scenario, country)
		for _, r := range pfRows {
			row := get(r.Year, r.Indicator)
			row.PFInput = r.Central
			row.PFInputPresent = true
		}
	}

	if partner != nil {
		partnerRows, _ := partner.CountryAll(scenario, country)
		for _, r := range partnerRows {
			row := get(r.Year, r.Indicator)
			row.Partner = r.Central
			row.PartnerPresent = true
		}
	}

	if len(rowsByKey) == 0 && err != nil {
		return nil, err
	}

	out := make([]JoinedRow, 0, len(rowsByKey))
	for _, r := range rowsByKey {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Indicator < out[j].Indicator
	})
	return out, nil
}
