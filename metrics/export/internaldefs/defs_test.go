package internaldefs

import (
	"strings"
	"testing"

	"github.com/wordleapi/wordauth"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[wordauth.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "wordauth_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %s", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for _, def := range HistogramDefs {
		seen[def.ID] = true
	}

	if len(seen) != wordauth.MetricCount {
		t.Fatalf("expected %d metric ids covered, got %d", wordauth.MetricCount, len(seen))
	}
}

func TestBoundsAligned(t *testing.T) {
	if len(HistogramBoundSuffix) != 8 {
		t.Fatalf("expected 8 bucket suffixes, got %d", len(HistogramBoundSuffix))
	}
	if len(HistogramUpperBounds) != len(HistogramBoundSuffix)-1 {
		t.Fatalf("expected finite bounds to omit +Inf")
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
