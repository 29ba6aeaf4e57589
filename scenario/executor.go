// Package scenario runs N-way parameter sweeps of a slow external
// operation without letting one branch's failure cost the others their
// results. The concrete use is residential financing comparisons
// (purchase vs lease, each with a different federal tax credit rate),
// but the executor is parameter-agnostic.
package scenario

import (
	"context"
	"fmt"
	"sync"

	"github.com/gridmind/gridmind/core"
)

// Params carries a variant's parameter overrides, merged over the base
// request by the operation itself.
type Params map[string]interface{}

// Variant names one branch of a sweep.
type Variant struct {
	Name   string
	Params Params
}

// Result is one settled branch: exactly one of Outcome or Err is set.
type Result struct {
	Name    string
	Params  Params
	Outcome interface{}
	Err     error
}

// Report aggregates every branch in input order.
type Report struct {
	Results []Result
}

// Succeeded returns the successful branches in input order.
func (r *Report) Succeeded() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the failed branches in input order.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// ByName returns the named branch, or nil.
func (r *Report) ByName(name string) *Result {
	for i := range r.Results {
		if r.Results[i].Name == name {
			return &r.Results[i]
		}
	}
	return nil
}

// Operation is the branch body. It receives the variant's params and the
// branch context; cancellation of the parent cancels every branch.
type Operation func(ctx context.Context, params Params) (interface{}, error)

// BranchExecutor fans an operation out over variants.
type BranchExecutor struct {
	logger core.Logger
}

// NewBranchExecutor creates an executor.
func NewBranchExecutor(logger core.Logger) *BranchExecutor {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &BranchExecutor{logger: logger}
}

// RunBranches launches one goroutine per variant and waits for all of
// them to settle. It never short-circuits: a failing branch is recorded
// in its slot and its siblings run to completion. The call itself only
// errs on zero variants; branch panics become branch errors.
func (e *BranchExecutor) RunBranches(ctx context.Context, variants []Variant, op Operation) (*Report, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("no variants to run")
	}

	report := &Report{Results: make([]Result, len(variants))}

	var wg sync.WaitGroup
	for i, v := range variants {
		wg.Add(1)
		go func(i int, v Variant) {
			defer wg.Done()
			report.Results[i] = e.runOne(ctx, v, op)
		}(i, v)
	}
	wg.Wait()

	failed := len(report.Failed())
	e.logger.Info("Scenario branches settled", map[string]interface{}{
		"operation": "run_branches",
		"branches":  len(variants),
		"failed":    failed,
	})
	return report, nil
}

func (e *BranchExecutor) runOne(ctx context.Context, v Variant, op Operation) (res Result) {
	res = Result{Name: v.Name, Params: v.Params}

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = nil
			res.Err = fmt.Errorf("branch %s panicked: %v", v.Name, r)
			e.logger.Error("Scenario branch panicked", map[string]interface{}{
				"operation": "run_branches",
				"branch":    v.Name,
				"panic":     fmt.Sprintf("%v", r),
			})
		}
	}()

	outcome, err := op(ctx, v.Params)
	if err != nil {
		res.Err = fmt.Errorf("branch %s: %w", v.Name, err)
		e.logger.Warn("Scenario branch failed", map[string]interface{}{
			"operation": "run_branches",
			"branch":    v.Name,
			"error":     err.Error(),
		})
		return res
	}
	res.Outcome = outcome
	return res
}
