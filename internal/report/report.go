// Package report exposes the stable, row-oriented measure API described in
// §4.8: every named measure is either a scalar with a label or a table with
// declared columns. It never formats to Excel/PDF -- that stays external,
// per spec.md's Non-goals. Every adapter instance stamps its output with an
// opaque run_id (uuid) and a generated_at timestamp, the provenance
// mechanism described in SPEC_FULL.md §C.4.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/globalfund/allocengine/internal/domain"
	"github.com/globalfund/allocengine/internal/portfolio"
)

// ScalarMeasure is a single labelled value (e.g. "total_deaths_2020_2030").
type ScalarMeasure struct {
	Label string
	Value float64
}

// TableMeasure is a declared-column row set.
type TableMeasure struct {
	Columns []string
	Rows    [][]any
}

// Measure is one named report row: exactly one of Scalar or Table is set.
type Measure struct {
	Name   string
	Scalar *ScalarMeasure
	Table  *TableMeasure
}

// Adapter accumulates named measures for a single analysis run and stamps
// them with a shared run identity.
type Adapter struct {
	runID       uuid.UUID
	generatedAt time.Time
	measures    map[string]Measure
	order       []string
	logger      zerolog.Logger
}

// New creates an Adapter for one analysis run, assigning it a fresh run_id.
func New(logger zerolog.Logger) *Adapter {
	return &Adapter{
		runID:       uuid.New(),
		generatedAt: time.Now(),
		measures:    make(map[string]Measure),
		logger:      logger.With().Str("component", "report").Logger(),
	}
}

// RunID is the uuid provenance stamp shared by every measure in this run.
func (a *Adapter) RunID() uuid.UUID { return a.runID }

// GeneratedAt is the timestamp this adapter (and its measures) was created at.
func (a *Adapter) GeneratedAt() time.Time { return a.generatedAt }

// AddScalar registers a scalar-with-label measure.
func (a *Adapter) AddScalar(name, label string, value float64) {
	if _, exists := a.measures[name]; !exists {
		a.order = append(a.order, name)
	}
	a.measures[name] = Measure{Name: name, Scalar: &ScalarMeasure{Label: label, Value: value}}
	a.logger.Debug().Str("measure", name).Float64("value", value).Msg("scalar measure recorded")
}

// AddTable registers a dataframe-with-columns measure.
func (a *Adapter) AddTable(name string, columns []string, rows [][]any) {
	if _, exists := a.measures[name]; !exists {
		a.order = append(a.order, name)
	}
	a.measures[name] = Measure{Name: name, Table: &TableMeasure{Columns: columns, Rows: rows}}
	a.logger.Debug().Str("measure", name).Int("rows", len(rows)).Msg("table measure recorded")
}

// Measure retrieves a previously-registered measure by name.
func (a *Adapter) Measure(name string) (Measure, bool) {
	m, ok := a.measures[name]
	return m, ok
}

// Names returns every registered measure name, in the order it was added.
func (a *Adapter) Names() []string {
	return append([]string(nil), a.order...)
}

// AddPortfolioTotal adds a scalar measure summing one indicator's central
// value across a year range, named e.g. "total_deaths_2020_2030".
func (a *Adapter) AddPortfolioTotal(agg *portfolio.Aggregate, indicator string, years domain.YearRange, label string) {
	var total float64
	for _, y := range agg.Years {
		if !years.Contains(y) {
			continue
		}
		total += agg.Values[y][indicator].Central
	}
	name := fmt.Sprintf("total_%s_%d_%d", indicator, years.Start, years.End)
	a.AddScalar(name, label, total)
}

// AddTrajectoryTable adds a dataframe measure with columns
// [year, low, central, high] for one indicator across every year the
// aggregate carries.
func (a *Adapter) AddTrajectoryTable(name string, agg *portfolio.Aggregate, indicator string) {
	years := append([]domain.Year(nil), agg.Years...)
	sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })
	rows := make([][]any, 0, len(years))
	for _, y := range years {
		d := agg.Values[y][indicator]
		rows = append(rows, []any{int(y), d.Low, d.Central, d.High})
	}
	a.AddTable(name, []string{"year", "low", "central", "high"}, rows)
}

// AddROIPerDollar adds the supplemented "lives-saved per dollar" measure
// (SPEC_FULL.md §C.3): roi_per_dollar = total deaths averted / tgf budget
// total, over the declared year range.
func (a *Adapter) AddROIPerDollar(deathsAverted map[domain.Year]domain.Datum, years domain.YearRange, tgfBudgetTotal float64) {
	var totalAverted float64
	for y, d := range deathsAverted {
		if years.Contains(y) {
			totalAverted += d.Central
		}
	}
	var roi float64
	if tgfBudgetTotal != 0 {
		roi = totalAverted / tgfBudgetTotal
	}
	a.AddScalar("roi_per_dollar", "deaths averted per TGF dollar spent", roi)
}
