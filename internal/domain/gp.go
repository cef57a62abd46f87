package domain

// PartnerData and PFInputData are both central-only, (scenario, country,
// year, indicator)-keyed series; they are distinguished by provenance, not
// shape, so both alias the shared CentralSeries implementation (see
// partner_data.go).
type PartnerData = CentralSeries
type PFInputData = CentralSeries

// Gp (Global Plan) is a target trajectory per (country, year, indicator).
// It may be supplied exogenously (fixed targets) or derived from model
// results at full funding -- DeriveGpFromModelResults below implements the
// latter, following database.py's pattern of building derived tables as
// read-only handles over their inputs rather than mutating them in place.
type Gp struct {
	targets *CentralSeries
}

// NewGp constructs an empty, fixed Global Plan target table.
func NewGp() *Gp {
	return &Gp{targets: newCentralSeries("global_plan")}
}

// SetTarget declares an exogenous target value for (country, year, indicator).
// The scenario dimension is fixed to ScenarioGlobalPlan for all Gp rows.
func (g *Gp) SetTarget(country Country, year Year, indicator string, value float64) error {
	return g.targets.Insert(ScenarioGlobalPlan, country, year, indicator, value)
}

// Target returns the declared or derived target for (country, year, indicator).
func (g *Gp) Target(country Country, year Year, indicator string) (float64, error) {
	return g.targets.At(ScenarioGlobalPlan, country, year, indicator)
}

// DeriveGpFromModelResults builds a Gp whose targets are the model's
// central-estimate values at full funding (funding_fraction = 1.0) for a
// given scenario, for every (country, year, indicator) cell present. This
// is the "derived from model results at full funding" mode described in
// the data model: the Gp holds a read-only snapshot, never a back-reference
// to the ModelResults it was built from.
func DeriveGpFromModelResults(mr *ModelResults, scenario Scenario) (*Gp, error) {
	gp := NewGp()
	for _, country := range mr.Countries() {
		rows, err := mr.CountryScenario(scenario, country)
		if err != nil {
			continue
		}
		for _, r := range rows {
			if r.FundingFraction != 1.0 {
				continue
			}
			// At ff=1.0 each (country, year, indicator) cell appears once, so
			// SetTarget does not collide here; only the central estimate is
			// kept as the target.
			_ = gp.SetTarget(r.Country, r.Year, r.Indicator, r.Value.Central)
		}
	}
	return gp, nil
}
