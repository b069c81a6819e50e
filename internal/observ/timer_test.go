package observ

import (
	"strings"
	"testing"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()

	idx := tm.Begin(PhaseApply)
	tm.End(idx, "3 patches")

	report := tm.Report()
	if len(report.Phases) != 1 {
		t.Fatalf("expected 1 phase, got %d", len(report.Phases))
	}
	if report.Phases[0].Name != "apply" || report.Phases[0].Note != "3 patches" {
		t.Fatalf("unexpected phase: %+v", report.Phases[0])
	}

	summary := tm.Summary()
	if !strings.Contains(summary, "apply") || !strings.Contains(summary, "total") {
		t.Fatalf("summary missing phases: %q", summary)
	}
}

func TestTimerEndOutOfRangeIsIgnored(t *testing.T) {
	tm := NewTimer()
	tm.End(-1, "")
	tm.End(5, "")
	if len(tm.Report().Phases) != 0 {
		t.Fatalf("expected no phases")
	}
}
