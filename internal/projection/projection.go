// Package projection resolves one country's chosen funding fraction into a
// full per-year, per-indicator trajectory, calibrated against partner data,
// with the optional innovation and out-of-bounds-cost adjustments described
// in §4.5.
package projection

import (
	"github.com/globalfund/allocengine/internal/domain"
	"github.com/globalfund/allocengine/internal/emulator"
)

// Result is one country's resolved projection at its chosen funding
// fraction: the raw emulator trajectory plus the calibrated one, and the
// diagnostics produced along the way.
type Result struct {
	Country               domain.Country
	Scenario              domain.Scenario
	FundingFraction       float64
	Raw                   emulator.Trajectory // model_projection
	Calibrated            emulator.Trajectory // model_projection_adj
	CalibrationRatio      map[string]float64  // indicator -> r applied
	OutOfBoundsAdjustment map[string]float64  // indicator -> |clamp delta| applied per year, summed
	Warnings              []domain.Warning
}

func cloneTrajectory(t emulator.Trajectory) emulator.Trajectory {
	out := emulator.Trajectory{
		Years:   append([]domain.Year(nil), t.Years...),
		Values:  make(map[domain.Year]map[string]domain.Datum, len(t.Values)),
		Clamped: t.Clamped,
	}
	for y, vals := range t.Values {
		row := make(map[string]domain.Datum, len(vals))
		for ind, d := range vals {
			row[ind] = d
		}
		out.Values[y] = row
	}
	return out
}

// Project resolves ff into a calibrated trajectory for one (country,
// scenario) pair. partnerData supplies the calibration anchor;
// params.Indicators identifies which indicator names carry use_scaling=true.
func Project(
	e *emulator.Emulator,
	ff float64,
	mode emulator.Mode,
	partnerData *domain.CentralSeries,
	params *domain.Parameters,
) (*Result, error) {
	raw, err := e.Get(ff, mode)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Country:               e.Country(),
		Scenario:              e.Scenario(),
		FundingFraction:       ff,
		Raw:                   raw,
		Calibrated:            cloneTrajectory(raw),
		CalibrationRatio:      make(map[string]float64),
		OutOfBoundsAdjustment: make(map[string]float64),
	}

	for name, ind := range params.Indicators {
		if !ind.UseScaling {
			continue
		}
		ratio := result.calibrationRatioFor(partnerData, name, raw)
		result.CalibrationRatio[name] = ratio
		if ratio == 1.0 {
			continue
		}
		for _, y := range result.Calibrated.Years {
			row := result.Calibrated.Values[y]
			if d, ok := row[name]; ok {
				row[name] = d.Scale(ratio)
			}
		}
	}

	if params.InnovationOn {
		applyInnovation(result, params)
	}

	if params.HandleOutOfBoundsCosts {
		clampOutOfBoundsCost(result, e)
	}

	return result, nil
}

// calibrationRatioFor computes r = partner_central(base_year) /
// model_central(base_year). Missing partner data or a zero anchor on
// either side falls through to ratio 1.0 with a CALIBRATION_MISSING
// warning rather than aborting the country.
func (r *Result) calibrationRatioFor(partnerData *domain.CentralSeries, indicator string, raw emulator.Trajectory) float64 {
	baseYear, partnerCentral, err := partnerData.BaseYearValue(r.Scenario, r.Country, indicator)
	if err != nil || partnerCentral == 0 {
		r.Warnings = append(r.Warnings, domain.Warning{
			Country: string(r.Country), Err: domain.ErrCalibrationMissing,
			Detail: "no partner data anchor for " + indicator + ", using ratio 1.0",
		})
		return 1.0
	}
	modelRow, ok := raw.Values[baseYear]
	if !ok {
		r.Warnings = append(r.Warnings, domain.Warning{
			Country: string(r.Country), Err: domain.ErrCalibrationMissing,
			Detail: "no model value at partner base year for " + indicator,
		})
		return 1.0
	}
	modelCentral, ok := modelRow[indicator]
	if !ok || modelCentral.Central == 0 {
		r.Warnings = append(r.Warnings, domain.Warning{
			Country: string(r.Country), Err: domain.ErrCalibrationMissing,
			Detail: "model central value missing or zero for " + indicator,
		})
		return 1.0
	}
	return partnerCentral / modelCentral.Central
}

// applyInnovation multiplies each year's calibrated value by the
// parameter-table-driven innovation factor for that (year, indicator),
// the forward-looking reduction for novel interventions.
func applyInnovation(r *Result, params *domain.Parameters) {
	for _, y := range r.Calibrated.Years {
		row := r.Calibrated.Values[y]
		for indicator, d := range row {
			factor := params.InnovationFactorFor(y, indicator)
			if factor != 1.0 {
				row[indicator] = d.Scale(factor)
			}
		}
	}
}

// clampOutOfBoundsCost clamps each year's calibrated cost value to the
// envelope observed at the emulator's stored funding-fraction extremes,
// recording the clamp amount summed across years. The envelope is always
// read with the tolerant emulator mode: clamping exists precisely to
// absorb out-of-bounds values, so it must not itself fail strict-mode
// bounds checks.
func clampOutOfBoundsCost(r *Result, e *emulator.Emulator) {
	fractions := e.FundingFractions()
	if len(fractions) == 0 {
		return
	}
	lowTraj, err := e.Get(fractions[0], emulator.Tolerant)
	if err != nil {
		return
	}
	highTraj, err := e.Get(fractions[len(fractions)-1], emulator.Tolerant)
	if err != nil {
		return
	}

	var totalAdj float64
	for _, y := range r.Calibrated.Years {
		row := r.Calibrated.Values[y]
		d, ok := row[domain.IndicatorCost]
		if !ok {
			continue
		}
		lo, loOK := lowTraj.Values[y][domain.IndicatorCost]
		hi, hiOK := highTraj.Values[y][domain.IndicatorCost]
		if !loOK || !hiOK {
			continue
		}
		envelopeLow, envelopeHigh := lo.Central, hi.Central
		if envelopeLow > envelopeHigh {
			envelopeLow, envelopeHigh = envelopeHigh, envelopeLow
		}
		clamped := d.Central
		if clamped < envelopeLow {
			clamped = envelopeLow
		}
		if clamped > envelopeHigh {
			clamped = envelopeHigh
		}
		if clamped != d.Central {
			delta := d.Central - clamped
			if delta < 0 {
				delta = -delta
			}
			totalAdj += delta
			d.Central = clamped
			row[domain.IndicatorCost] = d
		}
	}
	if totalAdj != 0 {
		r.OutOfBoundsAdjustment[domain.IndicatorCost] = totalAdj
	}
}
