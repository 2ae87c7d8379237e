package api

import (
	"time"

	"rankstat/domain/submission"
	"rankstat/internal/errors"
)

// HubListener forwards submission signals to the SSE hub
type HubListener struct {
	hub *SSEHub
}

// NewHubListener creates a listener broadcasting to hub
func NewHubListener(hub *SSEHub) *HubListener {
	return &HubListener{hub: hub}
}

// OnProgress implements ports.SubmissionListener
func (l *HubListener) OnProgress(p submission.Progress) {
	l.hub.Broadcast(SubmissionEvent{
		SubmissionID: p.SubmissionID.String(),
		EventType:    EventProgress,
		State:        string(p.State),
		Progress:     p.Fraction(),
		Data:         p,
		Timestamp:    time.Now(),
	})
}

// OnComplete implements ports.SubmissionListener
func (l *HubListener) OnComplete(o submission.Outcome) {
	l.hub.Broadcast(outcomeEvent(EventComplete, o))
}

// OnError implements ports.SubmissionListener
func (l *HubListener) OnError(o submission.Outcome) {
	l.hub.Broadcast(outcomeEvent(EventError, o))
}

// OnCancelled implements ports.SubmissionListener. A timeout is followed by an
// error signal, so only a user cancellation ends the stream here.
func (l *HubListener) OnCancelled(o submission.Outcome) {
	event := outcomeEvent(EventCancelled, o)
	event.Final = !errors.IsTimeout(o.Err)
	l.hub.Broadcast(event)
}

func outcomeEvent(eventType string, o submission.Outcome) SubmissionEvent {
	progress := 0.0
	if o.State == submission.StateCompleted {
		progress = 1
	}
	return SubmissionEvent{
		SubmissionID: o.SubmissionID.String(),
		EventType:    eventType,
		State:        string(o.State),
		Progress:     progress,
		Data:         o,
		Timestamp:    time.Now(),
		Final:        true,
	}
}

// terminalEventType names the final event for a finished outcome
func terminalEventType(o submission.Outcome) string {
	switch o.State {
	case submission.StateCompleted:
		return EventComplete
	case submission.StateCancelled:
		if errors.IsTimeout(o.Err) {
			return EventError
		}
		return EventCancelled
	default:
		return EventError
	}
}
