package deploy

import (
	"context"
	"time"

	"github.com/systmms/authstack/internal/config"
	"github.com/systmms/authstack/internal/logging"
	"github.com/systmms/authstack/internal/secure"
	"github.com/systmms/authstack/pkg/cluster"
	"github.com/systmms/authstack/pkg/release"
)

// Env carries the capabilities and the state steps accumulate during a run:
// generated database passwords and the DSNs built from them, sealed until a
// later step needs them.
type Env struct {
	Def       *config.Definition
	Cluster   cluster.Interface
	Installer release.Installer
	Log       *logging.Logger

	adminPassword    *secure.Credential
	servicePasswords map[string]*secure.Credential // component -> role password
	dsns             map[string]*secure.Credential // component -> DSN
}

// NewEnv wires the capabilities for one run.
func NewEnv(def *config.Definition, cl cluster.Interface, installer release.Installer, log *logging.Logger) *Env {
	return &Env{
		Def:              def,
		Cluster:          cl,
		Installer:        installer,
		Log:              log,
		servicePasswords: map[string]*secure.Credential{},
		dsns:             map[string]*secure.Credential{},
	}
}

// Close destroys every credential accumulated during the run. Safe to call
// more than once.
func (e *Env) Close() {
	if e.adminPassword != nil {
		e.adminPassword.Destroy()
		e.adminPassword = nil
	}
	for _, cred := range e.servicePasswords {
		cred.Destroy()
	}
	e.servicePasswords = map[string]*secure.Credential{}
	for _, cred := range e.dsns {
		cred.Destroy()
	}
	e.dsns = map[string]*secure.Credential{}
}

// StepStatus is the outcome of one step.
type StepStatus string

const (
	StatusSuccess StepStatus = "success"
	StatusFailed  StepStatus = "failed"
	StatusSkipped StepStatus = "skipped"
)

// StepResult records one step of an execution.
type StepResult struct {
	Name     string
	Status   StepStatus
	Duration time.Duration
	Err      error
}

// Result is the outcome of a full runbook execution.
type Result struct {
	Steps    []StepResult
	Duration time.Duration
}

// Failed returns the failed step, or nil when every executed step
// succeeded.
func (r *Result) Failed() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Status == StatusFailed {
			return &r.Steps[i]
		}
	}
	return nil
}

// Succeeded counts the successful steps.
func (r *Result) Succeeded() int {
	n := 0
	for _, step := range r.Steps {
		if step.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// Runner executes plans sequentially with no retries: the first failure
// aborts the remainder, and the skipped steps are recorded as such.
type Runner struct {
	log     *logging.Logger
	metrics *Metrics
}

// NewRunner builds a Runner. metrics may be nil to disable recording.
func NewRunner(log *logging.Logger, metrics *Metrics) *Runner {
	return &Runner{log: log, metrics: metrics}
}

// Execute validates the plan and runs its steps in order. The returned
// error is the first step failure (or the validation error); the Result
// carries per-step status and durations either way.
func (r *Runner) Execute(ctx context.Context, plan *Plan, env *Env) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}
	start := time.Now()
	var failed error

	for i, step := range plan.Steps {
		if failed != nil {
			result.Steps = append(result.Steps, StepResult{Name: step.Name, Status: StatusSkipped})
			continue
		}
		if err := ctx.Err(); err != nil {
			result.Steps = append(result.Steps, StepResult{Name: step.Name, Status: StatusFailed, Err: err})
			failed = err
			continue
		}

		r.log.Step("[%d/%d] %s", i+1, len(plan.Steps), step.Description)
		r.metrics.StepStarted(step.Name)

		stepStart := time.Now()
		err := step.Run(ctx, env)
		elapsed := time.Since(stepStart)

		if err != nil {
			r.metrics.StepCompleted(step.Name, "failed", elapsed)
			r.log.Error("Step %s failed after %s: %v", step.Name, elapsed.Round(time.Millisecond), err)
			result.Steps = append(result.Steps, StepResult{Name: step.Name, Status: StatusFailed, Duration: elapsed, Err: err})
			failed = err
			continue
		}

		r.metrics.StepCompleted(step.Name, "success", elapsed)
		result.Steps = append(result.Steps, StepResult{Name: step.Name, Status: StatusSuccess, Duration: elapsed})
	}

	result.Duration = time.Since(start)

	if failed != nil {
		r.metrics.DeployCompleted("failed")
		return result, failed
	}
	r.metrics.DeployCompleted("success")
	return result, nil
}
