package scenario

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestRunBranchesIsolatesFailure tests that a failing lease branch does
// not suppress the purchase branch's data, and the call itself succeeds
func TestRunBranchesIsolatesFailure(t *testing.T) {
	exec := NewBranchExecutor(nil)
	boom := errors.New("optimizer rejected request")

	report, err := exec.RunBranches(context.Background(), FinancingVariants("residential"),
		func(ctx context.Context, params Params) (interface{}, error) {
			if params["ownership_type"] == "lease" {
				return nil, boom
			}
			return map[string]interface{}{"npv": 0.0}, nil
		})
	if err != nil {
		t.Fatalf("RunBranches must not fail on branch errors: %v", err)
	}

	purchase := report.ByName("purchase")
	if purchase == nil || purchase.Err != nil || purchase.Outcome == nil {
		t.Errorf("purchase branch should carry its outcome: %+v", purchase)
	}

	lease := report.ByName("lease")
	if lease == nil || !errors.Is(lease.Err, boom) {
		t.Errorf("lease branch should carry its error: %+v", lease)
	}
	if lease != nil && !strings.Contains(lease.Err.Error(), "lease") {
		t.Errorf("branch error should name its branch: %v", lease.Err)
	}

	if len(report.Succeeded()) != 1 || len(report.Failed()) != 1 {
		t.Errorf("expected one success and one failure, got %d/%d",
			len(report.Succeeded()), len(report.Failed()))
	}
}

// TestRunBranchesOrderAndConcurrency tests input-order results and
// actual parallelism
func TestRunBranchesOrderAndConcurrency(t *testing.T) {
	exec := NewBranchExecutor(nil)

	variants := []Variant{
		{Name: "a", Params: Params{"delay": 40 * time.Millisecond}},
		{Name: "b", Params: Params{"delay": time.Millisecond}},
		{Name: "c", Params: Params{"delay": 20 * time.Millisecond}},
	}

	start := time.Now()
	report, err := exec.RunBranches(context.Background(), variants,
		func(ctx context.Context, params Params) (interface{}, error) {
			time.Sleep(params["delay"].(time.Duration))
			return "done", nil
		})
	if err != nil {
		t.Fatalf("RunBranches: %v", err)
	}

	for i, want := range []string{"a", "b", "c"} {
		if report.Results[i].Name != want {
			t.Errorf("result %d: expected %s, got %s", i, want, report.Results[i].Name)
		}
	}
	// Serial would take 61ms+.
	if elapsed := time.Since(start); elapsed > 55*time.Millisecond {
		t.Errorf("branches appear serialized: took %v", elapsed)
	}
}

// TestRunBranchesPanicBecomesBranchError tests panic containment
func TestRunBranchesPanicBecomesBranchError(t *testing.T) {
	exec := NewBranchExecutor(nil)

	report, err := exec.RunBranches(context.Background(),
		[]Variant{{Name: "ok"}, {Name: "bad", Params: Params{"explode": true}}},
		func(ctx context.Context, params Params) (interface{}, error) {
			if params["explode"] == true {
				panic("index out of range")
			}
			return "fine", nil
		})
	if err != nil {
		t.Fatalf("RunBranches must survive a branch panic: %v", err)
	}

	if bad := report.ByName("bad"); bad.Err == nil || !strings.Contains(bad.Err.Error(), "panicked") {
		t.Errorf("expected panic captured as branch error, got %+v", bad)
	}
	if ok := report.ByName("ok"); ok.Err != nil {
		t.Errorf("sibling of panicking branch should succeed: %+v", ok)
	}
}

// TestRunBranchesCancellation tests that parent cancellation reaches
// every branch
func TestRunBranchesCancellation(t *testing.T) {
	exec := NewBranchExecutor(nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	report, err := exec.RunBranches(ctx, FinancingVariants("residential"),
		func(ctx context.Context, params Params) (interface{}, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
				return "too late", nil
			}
		})
	if err != nil {
		t.Fatalf("RunBranches: %v", err)
	}
	for _, res := range report.Results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("branch %s: expected context.Canceled, got %v", res.Name, res.Err)
		}
	}
}

// TestRunBranchesNoVariants tests the only direct error path
func TestRunBranchesNoVariants(t *testing.T) {
	exec := NewBranchExecutor(nil)
	if _, err := exec.RunBranches(context.Background(), nil, nil); err == nil {
		t.Error("expected error for empty variant list")
	}
}

// TestFinancingVariants tests the 2026 financing sweep shapes
func TestFinancingVariants(t *testing.T) {
	res := FinancingVariants("residential")
	if len(res) != 2 {
		t.Fatalf("expected purchase and lease branches, got %d", len(res))
	}
	if res[0].Name != "purchase" || res[0].Params["federal_itc_fraction"] != PurchaseITCFraction {
		t.Errorf("unexpected purchase branch: %+v", res[0])
	}
	if res[1].Name != "lease" || res[1].Params["federal_itc_fraction"] != LeaseITCFraction {
		t.Errorf("unexpected lease branch: %+v", res[1])
	}
	if res[1].Params["third_party_ownership"] != true {
		t.Error("lease branch must mark third-party ownership")
	}
	for _, v := range res {
		if v.Params["analysis_years"] != AnalysisYears {
			t.Errorf("branch %s: expected %d analysis years", v.Name, AnalysisYears)
		}
	}

	com := FinancingVariants("commercial")
	if len(com) != 1 {
		t.Fatalf("expected single commercial branch, got %d", len(com))
	}
	if com[0].Params["federal_itc_fraction"] != LeaseITCFraction {
		t.Errorf("commercial branch keeps the 30%% credit: %+v", com[0])
	}
}

// TestDeadlinePassed tests the commercial construction cutoff
func TestDeadlinePassed(t *testing.T) {
	before := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	after := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	if DeadlinePassed(before) {
		t.Error("June 2026 is before the cutoff")
	}
	if !DeadlinePassed(after) {
		t.Error("August 2026 is after the cutoff")
	}
}
