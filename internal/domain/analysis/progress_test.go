package analysis

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_BlendedPercentage(t *testing.T) {
	sim := NewSimulator()

	// analysis is index 2 of 5: 2/5*100 + 50/5 = 50
	snap := sim.Snapshot(StageAnalysis, 50)
	assert.InDelta(t, 50.0, snap.Overall, 1e-9)

	tests := []struct {
		stage    Stage
		progress float64
		want     float64
	}{
		{StageUpload, 0, 0},
		{StageUpload, 100, 20},
		{StageProcessing, 0, 20},
		{StageComparison, 25, 65},
		{StageCompleted, 100, 100},
	}
	for _, tt := range tests {
		got := sim.Snapshot(tt.stage, tt.progress).Overall
		assert.InDelta(t, tt.want, got, 1e-9, "stage %s progress %v", tt.stage, tt.progress)
	}
}

func TestSimulator_UnknownStageFallsBack(t *testing.T) {
	sim := NewSimulator()
	var snap Snapshot
	require.NotPanics(t, func() { snap = sim.Snapshot(Stage("reticulating"), 30) })
	assert.Equal(t, 0, snap.StepIndex)
	assert.Equal(t, DefaultSteps[0].Title, snap.Step.Title)
	assert.Equal(t, DefaultSteps[0].Description, snap.Step.Description)
}

func TestSimulator_ETA(t *testing.T) {
	sim := NewSimulator()

	// analysis at 0%: 60 + 30 + 0 remaining
	assert.InDelta(t, 90.0, sim.Snapshot(StageAnalysis, 0).ETASeconds, 1e-9)
	// analysis at 50%: 30 + 30
	assert.InDelta(t, 60.0, sim.Snapshot(StageAnalysis, 50).ETASeconds, 1e-9)
	// completed leaves nothing
	assert.InDelta(t, 0.0, sim.Snapshot(StageCompleted, 100).ETASeconds, 1e-9)
}

func TestSimulator_ETAMonotonicWithinStage(t *testing.T) {
	sim := NewSimulator()
	prev := sim.Snapshot(StageProcessing, 0).ETASeconds
	for p := 5.0; p <= 100; p += 5 {
		cur := sim.Snapshot(StageProcessing, p).ETASeconds
		assert.Less(t, cur, prev, "ETA must decrease as progress grows (p=%v)", p)
		prev = cur
	}
}

func TestSimulator_NilState(t *testing.T) {
	sim := NewSimulator()
	assert.Equal(t, Snapshot{}, sim.SnapshotState(nil))

	st := &ProgressState{Stage: StageAnalysis, Progress: 50}
	assert.InDelta(t, 50.0, sim.SnapshotState(st).Overall, 1e-9)
}

func TestAnimator_ConvergesInEqualSteps(t *testing.T) {
	var mu sync.Mutex
	var seen []float64
	a := NewAnimator(4, time.Millisecond, func(v float64) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})
	a.Start()
	a.SetTarget(80)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 4
	}, time.Second, time.Millisecond)
	a.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.InDelta(t, 20.0, seen[0], 1e-9)
	assert.InDelta(t, 80.0, seen[len(seen)-1], 1e-9)
	assert.InDelta(t, 80.0, a.Current(), 1e-9)
	// no overshoot, no extra emits once settled
	assert.Len(t, seen, 4)
}

func TestAnimator_RetargetMidFlight(t *testing.T) {
	a := NewAnimator(2, time.Millisecond, func(float64) {})
	a.Start()
	defer a.Stop()

	a.SetTarget(100)
	assert.Eventually(t, func() bool { return a.Current() == 100 }, time.Second, time.Millisecond)

	a.SetTarget(40)
	assert.Eventually(t, func() bool { return a.Current() == 40 }, time.Second, time.Millisecond)
}
