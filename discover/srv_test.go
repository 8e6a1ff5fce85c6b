package discover

import "testing"

func TestSortTargetsPriorityThenWeight(t *testing.T) {
	targets := []Target{
		{Host: "a", Priority: 10, Weight: 5},
		{Host: "b", Priority: 10, Weight: 20},
		{Host: "c", Priority: 5, Weight: 0},
	}
	sortTargets(targets)
	want := []string{"c", "b", "a"}
	for i, w := range want {
		if targets[i].Host != w {
			t.Errorf("position %d: got %q, want %q", i, targets[i].Host, w)
		}
	}
}

func TestSortTargetsStableOnTies(t *testing.T) {
	targets := []Target{
		{Host: "first", Priority: 1, Weight: 1},
		{Host: "second", Priority: 1, Weight: 1},
	}
	sortTargets(targets)
	if targets[0].Host != "first" || targets[1].Host != "second" {
		t.Errorf("expected a stable sort to preserve input order on ties, got %+v", targets)
	}
}
