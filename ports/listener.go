package ports

import (
	"rankstat/domain/submission"
)

// SubmissionListener receives the caller-visible signals of a submission.
// Callbacks run on the orchestrator's supervising goroutine and must not block.
type SubmissionListener interface {
	OnProgress(progress submission.Progress)
	OnComplete(outcome submission.Outcome)
	OnError(outcome submission.Outcome)
	OnCancelled(outcome submission.Outcome)
}

// ListenerFuncs adapts plain functions to SubmissionListener. Nil fields are skipped.
type ListenerFuncs struct {
	Progress  func(submission.Progress)
	Complete  func(submission.Outcome)
	Error     func(submission.Outcome)
	Cancelled func(submission.Outcome)
}

func (f ListenerFuncs) OnProgress(p submission.Progress) {
	if f.Progress != nil {
		f.Progress(p)
	}
}

func (f ListenerFuncs) OnComplete(o submission.Outcome) {
	if f.Complete != nil {
		f.Complete(o)
	}
}

func (f ListenerFuncs) OnError(o submission.Outcome) {
	if f.Error != nil {
		f.Error(o)
	}
}

func (f ListenerFuncs) OnCancelled(o submission.Outcome) {
	if f.Cancelled != nil {
		f.Cancelled(o)
	}
}

// MultiListener fans signals out to several listeners in order
type MultiListener []SubmissionListener

func (m MultiListener) OnProgress(p submission.Progress) {
	for _, l := range m {
		l.OnProgress(p)
	}
}

func (m MultiListener) OnComplete(o submission.Outcome) {
	for _, l := range m {
		l.OnComplete(o)
	}
}

func (m MultiListener) OnError(o submission.Outcome) {
	for _, l := range m {
		l.OnError(o)
	}
}

func (m MultiListener) OnCancelled(o submission.Outcome) {
	for _, l := range m {
		l.OnCancelled(o)
	}
}
