// Package runctx carries one analysis run's identity and resource
// diagnostics: a uuid that tags the run's logger and its diagnostics
// record (§5's "an analysis object owns its inputs and derived artefacts
// exclusively for its lifetime"), and the RSS/CPU-percentage sampling
// operators need when many analysis-run workers run in parallel. Warnings,
// solver reports and report-adapter rows do not carry this id; the report
// adapter stamps its own run_id.
package runctx

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// RunContext is the per-analysis-run identity and diagnostics accumulator.
// One instance is created per RunAnalysis call; it is never shared across
// concurrent runs.
type RunContext struct {
	ID        uuid.UUID
	StartedAt time.Time
	Logger    zerolog.Logger

	proc *process.Process
}

// New starts a run context, deriving a logger tagged with the run id the
// way the teacher tags component loggers with .Str("repo", "...").
func New(logger zerolog.Logger) *RunContext {
	id := uuid.New()
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &RunContext{
		ID:        id,
		StartedAt: time.Now(),
		Logger:    logger.With().Str("run_id", id.String()).Logger(),
		proc:      proc,
	}
}

// Diagnostics is the resource-usage snapshot taken at the end of a run.
type Diagnostics struct {
	RunID        uuid.UUID
	Elapsed      time.Duration
	PeakRSSBytes uint64 // resident set size at snapshot time, not a high-water mark
	CPUPercent   float64
}

// Snapshot samples current process resource usage via gopsutil and returns
// the diagnostics record a report adapter or scheduler log line attaches to
// this run.
func (r *RunContext) Snapshot(ctx context.Context) Diagnostics {
	d := Diagnostics{RunID: r.ID, Elapsed: time.Since(r.StartedAt)}
	if r.proc == nil {
		return d
	}
	if mem, err := r.proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		d.PeakRSSBytes = mem.RSS
	}
	if cpu, err := r.proc.CPUPercentWithContext(ctx); err == nil {
		d.CPUPercent = cpu
	}
	return d
}

// Done logs the run's completion diagnostics at info level.
func (r *RunContext) Done(ctx context.Context) Diagnostics {
	d := r.Snapshot(ctx)
	r.Logger.Info().
		Dur("elapsed", d.Elapsed).
		Uint64("peak_rss_bytes", d.PeakRSSBytes).
		Float64("cpu_percent", d.CPUPercent).
		Msg("analysis run complete")
	return d
}
