package opt

import "math"

// Scheduler yields the learning rate for an epoch (or iteration).
type Scheduler interface {
	LearningRate(epoch int) float64
}

// Constant returns the same learning rate for every epoch.
type Constant struct {
	Rate float64
}

// LearningRate returns c.Rate.
func (c Constant) LearningRate(int) float64 { return c.Rate }

// TriangularCyclic oscillates linearly between Base and Max with a half
// period of StepSize epochs.
//
// The amplitude stays the same in every cycle and the cycle position uses
// float division, so epoch 6 with StepSize 2 yields Max. Use
// Triangular2Cyclic for a schedule whose amplitude halves each cycle.
type TriangularCyclic struct {
	Base     float64
	Max      float64
	StepSize int
}

// NewTriangularCyclic creates the schedule. A non-positive stepSize is treated as 1.
func NewTriangularCyclic(base, max float64, stepSize int) *TriangularCyclic {
	return &TriangularCyclic{Base: base, Max: max, StepSize: stepSizeOrOne(stepSize)}
}

// LearningRate returns base + (max-base) * max(0, 1-x).
func (s *TriangularCyclic) LearningRate(epoch int) float64 {
	_, x := cyclePosition(epoch, stepSizeOrOne(s.StepSize))
	return s.Base + (s.Max-s.Base)*math.Max(0, 1-x)
}

// Triangular2Cyclic is a triangular cycle of StepUp+StepDown epochs per half
// period whose amplitude halves every cycle.
type Triangular2Cyclic struct {
	Base     float64
	Max      float64
	StepUp   int
	StepDown int
}

// NewTriangular2Cyclic creates the schedule.
func NewTriangular2Cyclic(base, max float64, stepUp, stepDown int) *Triangular2Cyclic {
	return &Triangular2Cyclic{Base: base, Max: max, StepUp: stepUp, StepDown: stepDown}
}

// LearningRate returns base + (max-base) * max(0, 1-x) / 2^(cycle-1).
func (s *Triangular2Cyclic) LearningRate(iteration int) float64 {
	cycle, x := cyclePosition(iteration, stepSizeOrOne(s.StepUp+s.StepDown))
	return s.Base + (s.Max-s.Base)*math.Max(0, 1-x)/math.Pow(2, cycle-1)
}

// StepDecay multiplies Initial by Gamma every StepSize epochs.
type StepDecay struct {
	Initial  float64
	Gamma    float64
	StepSize int
}

// NewStepDecay creates the schedule. A non-positive stepSize is treated as 1.
func NewStepDecay(initial, gamma float64, stepSize int) *StepDecay {
	return &StepDecay{Initial: initial, Gamma: gamma, StepSize: stepSizeOrOne(stepSize)}
}

// LearningRate returns initial * gamma^(epoch/step) with integer division.
func (s *StepDecay) LearningRate(epoch int) float64 {
	return s.Initial * math.Pow(s.Gamma, float64(epoch/stepSizeOrOne(s.StepSize)))
}

// ExponentialDecay multiplies Initial by Gamma every epoch.
type ExponentialDecay struct {
	Initial float64
	Gamma   float64
}

// LearningRate returns initial * gamma^epoch.
func (s ExponentialDecay) LearningRate(epoch int) float64 {
	return s.Initial * math.Pow(s.Gamma, float64(epoch))
}

// cyclePosition returns the 1-based cycle number and the distance from the
// cycle peak in half periods.
func cyclePosition(epoch, step int) (cycle, x float64) {
	e, st := float64(epoch), float64(step)
	cycle = math.Floor(1 + e/(2*st))
	x = math.Abs(e/st - 2*cycle + 1)
	return cycle, x
}

func stepSizeOrOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
