package domain

import "fmt"

// YearRange is an inclusive [Start, End] range of years.
type YearRange struct {
	Start Year
	End   Year
}

// Contains reports whether y falls within the inclusive range.
func (r YearRange) Contains(y Year) bool {
	return y >= r.Start && y <= r.End
}

// Years returns the inclusive range expanded to a slice, ascending.
func (r YearRange) Years() []Year {
	if r.End < r.Start {
		return nil
	}
	out := make([]Year, 0, int(r.End-r.Start)+1)
	for y := r.Start; y <= r.End; y++ {
		out = append(out, y)
	}
	return out
}

// InnovationFactor is one row of the external, parameter-table-driven
// innovation schedule: a multiplicative adjustment applied to one
// (year, indicator) cell when INNOVATION_ON is set. See DESIGN.md for the
// Open Question this resolves: the schedule is data, not a hard-coded
// boolean-triggered formula.
type InnovationFactor struct {
	Year      Year
	Indicator string
	Factor    float64
}

// Parameters is the closed configuration record threaded through every
// constructor in this package tree. Unknown keys in the source
// configuration are rejected at load time (see internal/config); this type
// itself only ever holds the recognised, named fields.
type Parameters struct {
	StartYear              Year
	EndYear                Year
	YearsForFunding        YearRange
	YearsForObjFunc        YearRange
	InnovationOn           bool
	HandleOutOfBoundsCosts bool
	LoadDataFromRawFiles   bool

	// CounterfactualMap maps a counterfactual scenario descriptor to the
	// identifier used when requesting it from the model-results store.
	CounterfactualMap map[Scenario]Scenario

	// Indicators is the per-disease indicator table: name -> use_scaling.
	Indicators map[string]Indicator

	// ModelledCountries lists the countries for which model results exist.
	ModelledCountries []Country

	// PortfolioCountries is the superset of countries the portfolio
	// aggregator sums over, including countries with no model results
	// (imputed from partner-data rates, see Portfolio Aggregator).
	PortfolioCountries []Country

	// InnovationSchedule is the (year, indicator) -> factor table used
	// when InnovationOn is set.
	InnovationSchedule []InnovationFactor

	// ObjectiveIndicators lists which indicators enter the solver's
	// default objective (typically cases and deaths).
	ObjectiveIndicators []string
}

// Validate rejects a Parameters record that is structurally unusable,
// surfacing as the cross-cutting ErrParametersMissing condition (fatal,
// aborts the run, per the error-handling design).
func (p *Parameters) Validate() error {
	if p == nil {
		return ErrParametersMissing
	}
	if p.EndYear < p.StartYear {
		return fmt.Errorf("%w: end year %d precedes start year %d", ErrParametersMissing, p.EndYear, p.StartYear)
	}
	if p.YearsForFunding.End < p.YearsForFunding.Start {
		return fmt.Errorf("%w: invalid YEARS_FOR_FUNDING range", ErrParametersMissing)
	}
	if p.YearsForObjFunc.End < p.YearsForObjFunc.Start {
		return fmt.Errorf("%w: invalid YEARS_FOR_OBJ_FUNC range", ErrParametersMissing)
	}
	if len(p.ModelledCountries) == 0 {
		return fmt.Errorf("%w: no modelled countries declared", ErrParametersMissing)
	}
	if len(p.ObjectiveIndicators) == 0 {
		return fmt.Errorf("%w: no objective indicators declared", ErrParametersMissing)
	}
	return nil
}

// InnovationFactorFor looks up the schedule entry for (year, indicator),
// returning 1.0 (no adjustment) when absent.
func (p *Parameters) InnovationFactorFor(year Year, indicator string) float64 {
	for _, f := range p.InnovationSchedule {
		if f.Year == year && f.Indicator == indicator {
			return f.Factor
		}
	}
	return 1.0
}

// IsCounterfactual reports whether a scenario descriptor is one of the
// configured counterfactual identifiers, and returns its canonical form.
func (p *Parameters) IsCounterfactual(s Scenario) (Scenario, bool) {
	if canon, ok := p.CounterfactualMap[s]; ok {
		return canon, true
	}
	return "", false
}
