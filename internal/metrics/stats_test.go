package metrics

import (
	"math"
	"testing"
	"time"
)

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(64, 20*time.Millisecond, 10*time.Millisecond, 1.2)
	w.Record(32, 10*time.Millisecond, 20*time.Millisecond, 0.6)
	snap := w.Snapshot()
	if math.Abs(snap.SamplesPerSec-1600) > 1 {
		t.Fatalf("unexpected throughput %.2f", snap.SamplesPerSec)
	}
	if math.Abs(snap.MeanLoss-1.0) > 1e-12 {
		t.Fatalf("expected sample-weighted loss 1.0, got %f", snap.MeanLoss)
	}
	if w.samples != 0 || w.steps != 0 || w.lossSum != 0 {
		t.Fatalf("window was not reset")
	}
	if snap.LastLoss != 0.6 {
		t.Fatalf("expected last loss 0.6, got %.2f", snap.LastLoss)
	}
	if snap.Samples != 96 || snap.Steps != 2 {
		t.Fatalf("unexpected counts samples=%d steps=%d", snap.Samples, snap.Steps)
	}
}

func TestWindowEmptySnapshot(t *testing.T) {
	var w Window
	snap := w.Snapshot()
	if snap.SamplesPerSec != 0 || snap.MeanLoss != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}
