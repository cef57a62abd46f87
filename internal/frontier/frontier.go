// Package frontier removes dominated (cost, objective) points from a
// country's funding-fraction grid before the allocation solver runs,
// following the convex-hull approach of find_cost_effective_frontier.py
// generalised to the solver's minimise-objective convention (see
// SPEC_FULL.md §C.2 for the dual-edge extension this keeps from the
// original Python).
package frontier

import (
	"sort"

	"github.com/globalfund/allocengine/internal/domain"
	"github.com/globalfund/allocengine/internal/emulator"
	"github.com/globalfund/allocengine/internal/objective"
)

// Edge selects which side of the convex hull is retained.
type Edge int

const (
	// EdgeLower retains the lower envelope: for increasing cost, the
	// lowest achievable objective. This is the default described in §4.3
	// (the solver minimises the objective).
	EdgeLower Edge = iota
	// EdgeUpper retains the upper envelope (greatest impact for cost),
	// matching the original Python's default orientation; used by the
	// cross-disease analyses that rank by raw impact.
	EdgeUpper
)

// Point is one country's (cost, objective) observation at a given funding fraction.
type Point struct {
	FundingFraction float64
	Cost            float64
	Obj             float64
}

func cross(o, a, b Point) float64 {
	return (a.Cost-o.Cost)*(b.Obj-o.Obj) - (a.Obj-o.Obj)*(b.Cost-o.Cost)
}

// dedupeByCost keeps, for each distinct cost, the point with the lowest
// objective (EdgeLower tie-break) or highest objective (EdgeUpper
// tie-break), implementing the §4.3 tie-break rule before hull
// construction.
func dedupeByCost(points []Point, edge Edge) []Point {
	best := make(map[float64]Point)
	for _, p := range points {
		cur, ok := best[p.Cost]
		if !ok {
			best[p.Cost] = p
			continue
		}
		if edge == EdgeLower && p.Obj < cur.Obj {
			best[p.Cost] = p
		}
		if edge == EdgeUpper && p.Obj > cur.Obj {
			best[p.Cost] = p
		}
	}
	out := make([]Point, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
	return out
}

// chain runs the monotone-chain hull construction over points already in
// the order they should be walked, popping while successive triples make
// a right (clockwise) turn. Given points sorted ascending by cost this produces the
// lower hull; given points sorted descending by cost it produces the
// upper hull (walked right-to-left).
func chain(ordered []Point) []Point {
	var hull []Point
	for _, p := range ordered {
		// Strict "< 0" (clockwise turn) pops a point; an exactly collinear
		// point (cross == 0) is kept, since a tied cost-effectiveness ratio
		// is not a dominated point.
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) < 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull
}

// Filter returns the subset of points lying on the requested hull edge,
// sorted ascending by cost. It is idempotent: filtering an already-filtered
// set returns the same set, since every surviving point already lies on
// the hull of the reduced set. Only hull membership is tested: the
// highest-cost point always survives, and with EdgeLower a point on the
// rising end of the hull is kept even when a cheaper point has a lower
// objective (e.g. (100,60) after (50,40)).
func Filter(points []Point, edge Edge) []Point {
	deduped := dedupeByCost(points, edge) // already sorted ascending by cost
	if len(deduped) <= 2 {
		return deduped
	}

	if edge == EdgeLower {
		return chain(deduped)
	}

	// Upper hull: walk right-to-left (descending cost), then reverse back
	// to ascending-cost order for the caller.
	reversed := make([]Point, len(deduped))
	for i, p := range deduped {
		reversed[len(deduped)-1-i] = p
	}
	hull := chain(reversed)
	out := make([]Point, len(hull))
	for i, p := range hull {
		out[len(hull)-1-i] = p
	}
	return out
}

// EnsureZeroFundingRetained appends the ff=0 point back into a filtered
// set if it was dropped by the hull computation, per §4.3's "the
// zero-funding point is always retained."
func EnsureZeroFundingRetained(filtered []Point, all []Point) []Point {
	for _, p := range filtered {
		if p.FundingFraction == 0 {
			return filtered
		}
	}
	for _, p := range all {
		if p.FundingFraction == 0 {
			out := append([]Point{p}, filtered...)
			sort.Slice(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
			return out
		}
	}
	return filtered
}

// CountryPoints computes the (cost, objective) point for every stored
// funding fraction of one country's emulator, ready to be passed to
// Filter. yearsForFunding governs the cost sum; yearsForObjFunc and
// objFn/weights govern the objective sum (§4.4's YEARS_FOR_OBJ_FUNC).
func CountryPoints(
	e *emulator.Emulator,
	objFn objective.Func,
	weights map[string]float64,
	yearsForObjFunc []domain.Year,
	mode emulator.Mode,
) ([]Point, error) {
	fractions := e.FundingFractions()
	points := make([]Point, 0, len(fractions))
	for _, ff := range fractions {
		traj, err := e.Get(ff, mode)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{
			FundingFraction: ff,
			Cost:            e.TotalCost(ff),
			Obj:             objFn(traj, yearsForObjFunc, weights),
		})
	}
	return points, nil
}

// RetainedFractions filters a country's points and returns the surviving
// funding fractions, ascending, always including ff=0.
func RetainedFractions(points []Point, edge Edge) []float64 {
	filtered := Filter(points, edge)
	filtered = EnsureZeroFundingRetained(filtered, points)
	out := make([]float64, len(filtered))
	for i, p := range filtered {
		out[i] = p.FundingFraction
	}
	sort.Float64s(out)
	return out
}

// FilterModelResults applies the frontier filter to every modelled
// country's funding-fraction grid for a given scenario, and returns a new
// ModelResults containing only the retained (country, funding_fraction)
// rows -- a functional transform, never mutating the input in place.
// Countries whose emulator cannot be built (insufficient
// points) are skipped and reported in the returned warnings, without
// aborting the rest of the portfolio.
func FilterModelResults(
	mr *domain.ModelResults,
	scenario domain.Scenario,
	yearsForFunding domain.YearRange,
	yearsForObjFunc []domain.Year,
	objectiveIndicators []string,
	objFn objective.Func,
	edge Edge,
	mode emulator.Mode,
) (*domain.ModelResults, []domain.Warning, error) {
	out := domain.NewModelResults()
	var warnings []domain.Warning

	for _, country := range mr.Countries() {
		e, err := emulator.New(mr, scenario, country, yearsForFunding)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: err, Detail: "excluded from frontier filtering"})
			continue
		}

		weights, err := objective.NormalizedWeights(e, objectiveIndicators, yearsForObjFunc, mode)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: err, Detail: "failed to compute objective weights"})
			continue
		}

		points, err := CountryPoints(e, objFn, weights, yearsForObjFunc, mode)
		if err != nil {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: err, Detail: "failed to compute frontier points"})
			continue
		}

		retained := make(map[float64]bool)
		for _, ff := range RetainedFractions(points, edge) {
			retained[ff] = true
		}
		if len(retained) == 0 {
			warnings = append(warnings, domain.Warning{Country: string(country), Err: domain.ErrNoFeasiblePoints, Detail: "no points survived frontier filtering"})
			continue
		}

		rows, err := mr.CountryScenario(scenario, country)
		if err != nil {
			continue
		}
		for _, r := range rows {
			if !retained[r.FundingFraction] {
				continue
			}
			if err := out.Insert(r.Scenario, r.FundingFraction, r.Country, r.Year, r.Indicator, r.Value); err != nil {
				return nil, warnings, err
			}
		}
	}

	return out, warnings, nil
}
