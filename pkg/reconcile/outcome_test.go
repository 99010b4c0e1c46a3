package reconcile

import (
	"errors"
	"testing"
)

func TestRunOutcome_Record(t *testing.T) {
	outcome := NewRunOutcome("plan1")

	outcome.Record(ActionResult{EntityID: "a", Status: StatusSucceeded})
	outcome.Record(ActionResult{EntityID: "b", Status: StatusSkipped})
	outcome.Record(ActionResult{EntityID: "c", Status: StatusDeferred})
	outcome.Record(ActionResult{EntityID: "d", Status: StatusFailed, Err: errors.New("boom")})

	if len(outcome.Succeeded) != 1 || len(outcome.Skipped) != 1 || len(outcome.Deferred) != 1 {
		t.Errorf("Unexpected buckets: %+v", outcome)
	}
	if outcome.Failed["d"] == nil {
		t.Error("Expected failure cause for d")
	}
	if len(outcome.Results) != 4 {
		t.Errorf("Expected 4 results, got %d", len(outcome.Results))
	}
}

func TestRunOutcome_ExitCode(t *testing.T) {
	outcome := NewRunOutcome("plan1")
	outcome.Record(ActionResult{EntityID: "a", Status: StatusSucceeded})
	outcome.Record(ActionResult{EntityID: "b", Status: StatusDeferred})

	// Deferred entities never fail the run.
	if outcome.ExitCode() != 0 {
		t.Errorf("Expected exit code 0, got %d", outcome.ExitCode())
	}
	if !outcome.OK() {
		t.Error("Expected outcome to be OK")
	}

	outcome.Record(ActionResult{EntityID: "c", Status: StatusFailed, Err: errors.New("boom")})
	if outcome.ExitCode() != 1 {
		t.Errorf("Expected exit code 1, got %d", outcome.ExitCode())
	}
}

func TestRunOutcome_Merge(t *testing.T) {
	first := NewRunOutcome("plan1")
	first.Record(ActionResult{EntityID: "a", Status: StatusSucceeded})

	second := NewRunOutcome("plan2")
	second.Record(ActionResult{EntityID: "b", Status: StatusFailed, Err: errors.New("boom")})
	second.Record(ActionResult{EntityID: "c", Status: StatusSucceeded})

	first.Merge(second)

	if len(first.Results) != 3 {
		t.Errorf("Expected 3 merged results, got %d", len(first.Results))
	}
	if len(first.Succeeded) != 2 {
		t.Errorf("Expected 2 succeeded after merge, got %d", len(first.Succeeded))
	}
	if first.ExitCode() != 1 {
		t.Errorf("Expected merged failure to set exit code 1, got %d", first.ExitCode())
	}
}

func TestRunOutcome_FailedEntitiesSorted(t *testing.T) {
	outcome := NewRunOutcome("plan1")
	outcome.Record(ActionResult{EntityID: "z", Status: StatusFailed, Err: errors.New("1")})
	outcome.Record(ActionResult{EntityID: "a", Status: StatusFailed, Err: errors.New("2")})
	outcome.Record(ActionResult{EntityID: "m", Status: StatusFailed, Err: errors.New("3")})

	got := outcome.FailedEntities()
	want := []string{"a", "m", "z"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}
