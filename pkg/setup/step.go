package setup

import "fmt"

// Step identifies a position in the guided setup sequence. Steps only ever
// advance one at a time; the sole other legal move is a reset to
// StepInitial for a full restart.
type Step int

const (
	StepInitial Step = iota
	StepBaselineComplete
	StepUSBDetected
	StepCableConnected
	StepConfigured
	StepVerified
	StepMonitoringShown
	StepComplete
)

var stepNames = map[Step]string{
	StepInitial:          "Initial",
	StepBaselineComplete: "Baseline captured",
	StepUSBDetected:      "USB adapter detected",
	StepCableConnected:   "Cable connected",
	StepConfigured:       "Interface configured",
	StepVerified:         "Connectivity verified",
	StepMonitoringShown:  "Monitoring shown",
	StepComplete:         "Complete",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// CanTransitionTo reports whether moving from s to next is legal: advance
// by exactly one, reset to initial, or stay put.
func (s Step) CanTransitionTo(next Step) bool {
	return next == s+1 || next == StepInitial || next == s
}

// advance moves to the next step, panicking on an illegal jump. Step
// sequencing is under the orchestrator's sole control, so a bad transition
// is a bug in this package rather than a runtime condition.
func (s Step) advance(next Step) Step {
	if !s.CanTransitionTo(next) {
		panic(fmt.Sprintf("illegal step transition %v -> %v", s, next))
	}
	return next
}
