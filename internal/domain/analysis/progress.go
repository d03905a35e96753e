package analysis

import (
	"sync"
	"time"
)

// ProgressState is the latest coarse progress reported by the pipeline.
// Updates replace the previous value wholesale; ordering is not enforced
// here, whatever the pipeline reports is what gets displayed.
type ProgressState struct {
	RunID       RunID     `json:"run_id"`
	Stage       Stage     `json:"stage"`
	Progress    float64   `json:"progress"`
	CurrentTask string    `json:"current_task,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StepInfo is one hand-authored entry of the progress display table.
type StepInfo struct {
	Stage            Stage  `json:"stage"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	EstimatedSeconds int    `json:"estimated_seconds"`
}

// DefaultSteps is the display table for the standard pipeline.
var DefaultSteps = []StepInfo{
	{Stage: StageUpload, Title: "Загрузка документов", Description: "Документы передаются на сервер", EstimatedSeconds: 10},
	{Stage: StageProcessing, Title: "Извлечение текста", Description: "Извлекается текст из ТЗ и КП", EstimatedSeconds: 25},
	{Stage: StageAnalysis, Title: "Анализ предложений", Description: "ИИ анализирует коммерческие предложения", EstimatedSeconds: 60},
	{Stage: StageComparison, Title: "Сравнение с ТЗ", Description: "Формируется сравнение с требованиями ТЗ", EstimatedSeconds: 30},
	{Stage: StageCompleted, Title: "Готово", Description: "Анализ завершён", EstimatedSeconds: 0},
}

// Snapshot is the derived, human-readable progress view.
type Snapshot struct {
	Stage      Stage    `json:"stage"`
	Overall    float64  `json:"overall"`
	ETASeconds float64  `json:"eta_seconds"`
	Step       StepInfo `json:"step"`
	StepIndex  int      `json:"step_index"`
}

// Simulator turns a sparse (stage, progress) pair into a blended overall
// percentage, an estimated time remaining and the current step entry.
type Simulator struct {
	steps []StepInfo
}

// NewSimulator uses DefaultSteps when called with no entries.
func NewSimulator(steps ...StepInfo) *Simulator {
	if len(steps) == 0 {
		steps = DefaultSteps
	}
	return &Simulator{steps: steps}
}

// Steps returns the configured display table.
func (s *Simulator) Steps() []StepInfo { return s.steps }

// Snapshot derives the display values for the given stage and 0-100
// progress. Each stage is weighted as one equal slot of the total
// regardless of its estimated duration; only the ETA uses the durations.
// Unknown stages fall back to the first configured step.
func (s *Simulator) Snapshot(stage Stage, progress float64) Snapshot {
	idx := 0
	for i, st := range s.steps {
		if st.Stage == stage {
			idx = i
			break
		}
	}

	n := float64(len(s.steps))
	overall := float64(idx)/n*100 + progress/n

	eta := float64(s.steps[idx].EstimatedSeconds) * (1 - progress/100)
	for _, st := range s.steps[idx+1:] {
		eta += float64(st.EstimatedSeconds)
	}

	return Snapshot{
		Stage:      s.steps[idx].Stage,
		Overall:    overall,
		ETASeconds: eta,
		Step:       s.steps[idx],
		StepIndex:  idx,
	}
}

// SnapshotState is Snapshot over a stored ProgressState; a nil state
// yields a zero snapshot rather than an error.
func (s *Simulator) SnapshotState(state *ProgressState) Snapshot {
	if state == nil {
		return Snapshot{}
	}
	return s.Snapshot(state.Stage, state.Progress)
}

// Animator smooths a displayed percentage toward a moving target in a
// fixed number of equal increments on a fixed-interval timer. Purely
// cosmetic; it never feeds back into any computed value.
type Animator struct {
	steps    int
	interval time.Duration
	emit     func(float64)

	mu      sync.Mutex
	current float64
	delta   float64
	target  float64

	stop chan struct{}
	done chan struct{}
}

const (
	animatorSteps    = 20
	animatorInterval = 50 * time.Millisecond
)

// NewAnimator delivers smoothed values to emit. steps/interval <= 0 use
// the defaults (20 increments, 50ms).
func NewAnimator(steps int, interval time.Duration, emit func(float64)) *Animator {
	if steps <= 0 {
		steps = animatorSteps
	}
	if interval <= 0 {
		interval = animatorInterval
	}
	return &Animator{
		steps:    steps,
		interval: interval,
		emit:     emit,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the ticker loop until Stop is called.
func (a *Animator) Start() {
	go func() {
		defer close(a.done)
		t := time.NewTicker(a.interval)
		defer t.Stop()
		for {
			select {
			case <-a.stop:
				return
			case <-t.C:
				if v, ok := a.advance(); ok {
					a.emit(v)
				}
			}
		}
	}()
}

// SetTarget re-splits the remaining distance into equal increments.
func (a *Animator) SetTarget(target float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.target = target
	a.delta = (target - a.current) / float64(a.steps)
}

// Current returns the last displayed value.
func (a *Animator) Current() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Stop halts the ticker loop and waits for it to exit.
func (a *Animator) Stop() {
	close(a.stop)
	<-a.done
}

func (a *Animator) advance() (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.delta == 0 {
		return 0, false
	}
	a.current += a.delta
	// snap to target when the step would overshoot
	if (a.delta > 0 && a.current >= a.target) || (a.delta < 0 && a.current <= a.target) {
		a.current = a.target
		a.delta = 0
	}
	return a.current, true
}
