// Package emulator interpolates a single country's cost-impact curve
// across the continuous funding-fraction axis, and converts between
// dollars and funding fractions. One Emulator is built per
// (country, scenario) pair from the stored funding-fraction grid; it is
// immutable once constructed, matching the "derived artefacts ... created
// fresh per analysis run" lifecycle in the data model.
package emulator

import (
	"fmt"
	"math"
	"sort"

	"github.com/globalfund/allocengine/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Trajectory is a year-indexed frame of indicator values for one resolved
// funding fraction (or dollar amount converted to one).
type Trajectory struct {
	// Years, ascending, matching Values' outer index.
	Years []domain.Year
	// Values[year][indicator] -> interpolated Datum.
	Values map[domain.Year]map[string]domain.Datum
	// Clamped is set when tolerant-mode interpolation clamped the request
	// to the nearest stored endpoint instead of failing.
	Clamped bool
}

// point is one stored (funding_fraction, year, indicator) -> Datum
// observation, grouped by funding fraction for interpolation.
type point struct {
	fraction float64
	values   map[domain.Year]map[string]domain.Datum
}

// Emulator interpolates a single (country, scenario) cost-impact curve.
type Emulator struct {
	country         domain.Country
	scenario        domain.Scenario
	points          []point // sorted ascending by fraction
	years           []domain.Year
	indicators      []string
	yearsForFunding []domain.Year
	totalCostAtFull float64
}

// Tolerance mode for out-of-range requests.
type Mode int

const (
	// Strict fails with ErrEmulatorOutOfRange on any extrapolation.
	Strict Mode = iota
	// Tolerant clamps to the nearest stored endpoint and sets Trajectory.Clamped.
	Tolerant
)

// New builds an Emulator for (country, scenario) from every row the
// ModelResults table holds for that pair. It requires at least two
// distinct funding fractions, one of which must be exactly 1.0 (the
// full-funding anchor used for dollar<->fraction conversion).
func New(mr *domain.ModelResults, scenario domain.Scenario, country domain.Country, yearsForFunding domain.YearRange) (*Emulator, error) {
	rows, err := mr.CountryScenario(scenario, country)
	if err != nil {
		return nil, err
	}

	byFraction := make(map[float64]*point)
	yearSet := make(map[domain.Year]bool)
	indicatorSet := make(map[string]bool)
	hasFullAnchor := false

	for _, r := range rows {
		p, ok := byFraction[r.FundingFraction]
		if !ok {
			p = &point{fraction: r.FundingFraction, values: make(map[domain.Year]map[string]domain.Datum)}
			byFraction[r.FundingFraction] = p
		}
		if p.values[r.Year] == nil {
			p.values[r.Year] = make(map[string]domain.Datum)
		}
		p.values[r.Year][r.Indicator] = r.Value
		yearSet[r.Year] = true
		indicatorSet[r.Indicator] = true
		if r.FundingFraction == 1.0 {
			hasFullAnchor = true
		}
	}

	if len(byFraction) < 2 || !hasFullAnchor {
		return nil, fmt.Errorf("%s/%s: %w", country, scenario, domain.ErrEmulatorInsufficientPoints)
	}

	points := make([]point, 0, len(byFraction))
	for _, p := range byFraction {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].fraction < points[j].fraction })

	years := make([]domain.Year, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })

	indicators := make([]string, 0, len(indicatorSet))
	for i := range indicatorSet {
		indicators = append(indicators, i)
	}
	sort.Strings(indicators)

	e := &Emulator{
		country:         country,
		scenario:        scenario,
		points:          points,
		years:           years,
		indicators:      indicators,
		yearsForFunding: yearsForFunding.Years(),
	}
	e.totalCostAtFull = e.totalCostAt(1.0)
	return e, nil
}

// fractionBounds returns the min and max stored funding fraction.
func (e *Emulator) fractionBounds() (float64, float64) {
	return e.points[0].fraction, e.points[len(e.points)-1].fraction
}

// Get interpolates the trajectory at funding fraction ff. In Strict mode,
// ff outside the stored [min, max] range is an error; in Tolerant mode it
// is clamped and Trajectory.Clamped is set.
func (e *Emulator) Get(ff float64, mode Mode) (Trajectory, error) {
	if math.IsNaN(ff) || ff < 0 || ff > 1 {
		return Trajectory{}, fmt.Errorf("%v: %w", ff, domain.ErrInvalidFraction)
	}

	lo, hi := e.fractionBounds()
	clamped := false
	reqFF := ff
	if reqFF < lo || reqFF > hi {
		if mode == Strict {
			return Trajectory{}, fmt.Errorf("ff=%v outside [%v,%v]: %w", ff, lo, hi, domain.ErrEmulatorOutOfRange)
		}
		reqFF = floats.Max([]float64{lo, floats.Min([]float64{hi, reqFF})})
		clamped = true
	}

	lowerIdx, upperIdx, t := e.bracket(reqFF)

	values := make(map[domain.Year]map[string]domain.Datum, len(e.years))
	for _, y := range e.years {
		values[y] = make(map[string]domain.Datum, len(e.indicators))
		for _, ind := range e.indicators {
			lowVal, lowOK := e.points[lowerIdx].values[y][ind]
			highVal, highOK := e.points[upperIdx].values[y][ind]
			if !lowOK || !highOK {
				continue
			}
			values[y][ind] = lowVal.Lerp(highVal, t)
		}
	}

	return Trajectory{Years: append([]domain.Year(nil), e.years...), Values: values, Clamped: clamped}, nil
}

// bracket finds the two stored points surrounding ff and the interpolation
// parameter t in [0,1] between them (t=0 at the lower point).
func (e *Emulator) bracket(ff float64) (lower, upper int, t float64) {
	if ff <= e.points[0].fraction {
		return 0, 0, 0
	}
	last := len(e.points) - 1
	if ff >= e.points[last].fraction {
		return last, last, 0
	}
	for i := 0; i < last; i++ {
		if ff >= e.points[i].fraction && ff <= e.points[i+1].fraction {
			span := e.points[i+1].fraction - e.points[i].fraction
			if span == 0 {
				return i, i + 1, 0
			}
			return i, i + 1, (ff - e.points[i].fraction) / span
		}
	}
	return last, last, 0
}

// totalCostAt sums central cost across the declared funding-for-years
// window at the given (possibly interpolated) funding fraction.
func (e *Emulator) totalCostAt(ff float64) float64 {
	lowerIdx, upperIdx, t := e.bracket(ff)
	var total float64
	for _, y := range e.yearsForFunding {
		lowVal, lowOK := e.points[lowerIdx].values[y][domain.IndicatorCost]
		highVal, highOK := e.points[upperIdx].values[y][domain.IndicatorCost]
		if !lowOK || !highOK {
			continue
		}
		total += lowVal.Central + (highVal.Central-lowVal.Central)*t
	}
	return total
}

// TotalCost returns Σ_{y in YEARS_FOR_FUNDING} central(cost, y, ff).
func (e *Emulator) TotalCost(ff float64) float64 {
	return e.totalCostAt(ff)
}

// TotalCostAtFull is the cached total cost at ff=1.0 (the full-funding anchor).
func (e *Emulator) TotalCostAtFull() float64 {
	return e.totalCostAtFull
}

// FractionForDollars converts a dollar amount into a funding fraction:
// fraction_for_dollars(d) = d / total_cost(1.0). Fails with
// ErrCostZeroAtFull when the country's full-funding cost is zero and a
// non-zero dollar amount is requested.
func (e *Emulator) FractionForDollars(dollars float64) (float64, error) {
	if e.totalCostAtFull == 0 {
		if dollars == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("%s/%s: %w", e.country, e.scenario, domain.ErrCostZeroAtFull)
	}
	return dollars / e.totalCostAtFull, nil
}

// DollarsForFraction is the inverse of FractionForDollars, using the same
// linear relation (cost scales with the full-funding total).
func (e *Emulator) DollarsForFraction(ff float64) float64 {
	return ff * e.totalCostAtFull
}

// GetDollars is Get, but the caller supplies a dollar amount instead of a
// funding fraction. The dollar amount must fall within
// [total_cost(min_ff), total_cost(max_ff)] in Strict mode.
func (e *Emulator) GetDollars(dollars float64, mode Mode) (Trajectory, error) {
	ff, err := e.FractionForDollars(dollars)
	if err != nil {
		return Trajectory{}, err
	}
	return e.Get(ff, mode)
}

// FundingFractions returns the sorted, distinct funding fractions stored
// for this emulator's (country, scenario).
func (e *Emulator) FundingFractions() []float64 {
	out := make([]float64, len(e.points))
	for i, p := range e.points {
		out[i] = p.fraction
	}
	return out
}

// Country and Scenario report the identity this emulator was built for.
func (e *Emulator) Country() domain.Country   { return e.country }
func (e *Emulator) Scenario() domain.Scenario { return e.scenario }
