package pipeline_test

import (
	"testing"

	"skmotion/internal/pipeline"
)

func TestResilienceSequence(t *testing.T) {
	r := pipeline.NewResilience(2)
	steps := []struct {
		different bool
		want      pipeline.Decision
		remaining int
	}{
		{true, pipeline.AcceptChanged, 2},
		{false, pipeline.AcceptHoldover, 1},
		{false, pipeline.AcceptHoldover, 0},
		{false, pipeline.Reject, 0},
		{false, pipeline.Reject, 0},
		{true, pipeline.AcceptChanged, 2},
		{false, pipeline.AcceptHoldover, 1},
		{true, pipeline.AcceptChanged, 2},
	}
	for i, step := range steps {
		got := r.Decide(step.different)
		if got != step.want {
			t.Fatalf("step %d: decision %s, want %s", i, got, step.want)
		}
		if r.Remaining() != step.remaining {
			t.Fatalf("step %d: remaining %d, want %d", i, r.Remaining(), step.remaining)
		}
	}
}

func TestResilienceZeroRejectsAllSimilar(t *testing.T) {
	r := pipeline.NewResilience(0)
	if r.Decide(true) != pipeline.AcceptChanged {
		t.Fatal("changed frame must be accepted")
	}
	for i := 0; i < 3; i++ {
		if d := r.Decide(false); d.Accepted() {
			t.Fatalf("similar frame %d accepted", i)
		}
	}
}

func TestNegativeResilienceClamped(t *testing.T) {
	r := pipeline.NewResilience(-4)
	r.Decide(true)
	if r.Decide(false) != pipeline.Reject {
		t.Fatal("negative limit should behave like zero")
	}
}
