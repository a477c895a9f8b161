// Package guard defines the verification guards and the runner that
// sequences them into a single verdict report.
//
// Each guard is one independent check over the run-scoped environment
// (database handle, configuration, query text, oracle artifact). Guards
// never retry: flakiness in the decision engine is exactly the class of
// bug the harness exists to catch, and masking it would defeat the
// purpose.
package guard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/store"
)

// Status is a guard's individual outcome.
type Status string

const (
	StatusPass   Status = "pass"
	StatusFail   Status = "fail"
	StatusNotRun Status = "not-run"
)

// Verdict is one guard's contribution to the report. Every guard that
// runs contributes exactly one; guards skipped by a fatal precondition
// are marked not-run rather than omitted.
type Verdict struct {
	Guard  string `json:"guard"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`

	// err carries the originating error so the runner can distinguish
	// connection-level failures from ordinary check failures.
	err error
}

// Guard is one verification check. RequiresDatabase lets the runner mark
// remaining database guards not-run after a connection-level failure
// instead of piling up identical errors.
type Guard interface {
	Name() string
	RequiresDatabase() bool
	Run(ctx context.Context, env *Env) Verdict
}

// Env is the run-scoped environment shared by all guards. The runner
// owns its lifecycle; no guard retains state across runs.
type Env struct {
	Store        *store.Store
	Config       *config.Document
	QueryText    string
	ArtifactPath string
	Logger       *slog.Logger
}

// Report aggregates every verdict of one run.
type Report struct {
	RunID    string    `json:"run_id"`
	Verdicts []Verdict `json:"verdicts"`
	// Fatal is set when a connection-level failure made the remaining
	// database-dependent guards impossible to run. Distinct from any
	// individual guard failure.
	Fatal string `json:"fatal,omitempty"`
}

// NewReport creates an empty report with a fresh run ID.
func NewReport() *Report {
	return &Report{RunID: uuid.NewString(), Verdicts: []Verdict{}}
}

// Pass reports the overall outcome: true iff every guard passed and no
// run-level fatal error occurred.
func (r *Report) Pass() bool {
	if r.Fatal != "" {
		return false
	}
	for _, v := range r.Verdicts {
		if v.Status != StatusPass {
			return false
		}
	}
	return true
}

// Counts returns the number of pass, fail, and not-run verdicts.
func (r *Report) Counts() (pass, fail, notRun int) {
	for _, v := range r.Verdicts {
		switch v.Status {
		case StatusPass:
			pass++
		case StatusFail:
			fail++
		case StatusNotRun:
			notRun++
		}
	}
	return
}

func pass(name string) Verdict {
	return Verdict{Guard: name, Status: StatusPass}
}

func fail(name, format string, args ...any) Verdict {
	return Verdict{Guard: name, Status: StatusFail, Detail: fmt.Sprintf(format, args...)}
}

func failErr(name string, err error) Verdict {
	return Verdict{Guard: name, Status: StatusFail, Detail: err.Error(), err: err}
}
