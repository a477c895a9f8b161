package guard

import (
	"context"

	"github.com/driftwatch/driftwatch/internal/store"
)

// runState tracks the runner's per-run lifecycle:
// Idle -> Running -> Aggregated. A Runner is single-use; a fresh run
// always starts from a fresh Runner, so no guard is ever re-entered.
type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateAggregated
)

// Runner sequences guards and aggregates their verdicts.
type Runner struct {
	guards []Guard
	state  runState
}

// NewRunner creates a runner over the given guard sequence. With no
// guards given, the default fixed sequence applies.
func NewRunner(guards ...Guard) *Runner {
	if len(guards) == 0 {
		guards = DefaultSequence()
	}
	return &Runner{guards: guards, state: stateIdle}
}

// Run executes every guard in sequence and returns the aggregated
// report. There is no short-circuit: one invocation surfaces every
// independent problem, not just the first.
//
// A connection-level failure is escalated as run-fatal: the guard that
// hit it and all remaining database-dependent guards are marked not-run
// (the report still enumerates them), while database-independent guards
// keep running.
func (r *Runner) Run(ctx context.Context, env *Env) *Report {
	r.state = stateRunning
	report := NewReport()

	// A run may start without a connection at all (the CLI could not
	// open the database). Database-independent guards still run.
	if env.Store == nil && report.Fatal == "" {
		report.Fatal = "no database connection"
	}

	for _, g := range r.guards {
		logger := env.Logger.With("guard", g.Name(), "run_id", report.RunID)

		if report.Fatal != "" && g.RequiresDatabase() {
			logger.Warn("guard skipped, database unreachable")
			report.Verdicts = append(report.Verdicts, Verdict{
				Guard:  g.Name(),
				Status: StatusNotRun,
				Detail: "database unreachable: " + report.Fatal,
			})
			continue
		}

		v := g.Run(ctx, env)

		if v.err != nil && store.IsConnectionError(v.err) {
			report.Fatal = v.err.Error()
			v = Verdict{Guard: g.Name(), Status: StatusNotRun, Detail: "database unreachable: " + v.Detail}
		}

		switch v.Status {
		case StatusPass:
			logger.Info("guard passed")
		case StatusFail:
			logger.Error("guard failed", "detail", v.Detail)
		case StatusNotRun:
			logger.Warn("guard not run", "detail", v.Detail)
		}
		report.Verdicts = append(report.Verdicts, v)
	}

	r.state = stateAggregated
	return report
}
