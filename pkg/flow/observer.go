package flow

import "time"

// Observer is notified around every step of a run.
type Observer interface {
	StepStarted(run string, b Binding)
	StepSkipped(run string, b Binding, reason SkipReason)
	StepFinished(run string, b Binding, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) StepStarted(string, Binding)                        {}
func (nopObserver) StepSkipped(string, Binding, SkipReason)            {}
func (nopObserver) StepFinished(string, Binding, time.Duration, error) {}
