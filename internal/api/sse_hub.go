package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"rankstat/internal"

	"github.com/gin-gonic/gin"
)

// Event types streamed to SSE clients
const (
	EventProgress  = "progress"
	EventComplete  = "complete"
	EventError     = "error"
	EventCancelled = "cancelled"
)

// SubmissionEvent is one signal of a submission, streamed over SSE
type SubmissionEvent struct {
	SubmissionID string      `json:"submission_id"`
	EventType    string      `json:"event_type"`
	State        string      `json:"state"`
	Progress     float64     `json:"progress"`
	Data         interface{} `json:"data,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	// Final marks the last event of a submission; the stream closes after it
	Final bool `json:"final"`
}

// SSEHub manages Server-Sent Events for live submission updates
type SSEHub struct {
	clients   map[string]map[chan SubmissionEvent]bool
	clientsMu sync.RWMutex
	broadcast chan SubmissionEvent
	logger    *internal.Logger
	ping      time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewSSEHub creates a new SSE hub and starts its delivery loop
func NewSSEHub(logger *internal.Logger) *SSEHub {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	hub := &SSEHub{
		clients:   make(map[string]map[chan SubmissionEvent]bool),
		broadcast: make(chan SubmissionEvent, 100),
		logger:    logger,
		ping:      30 * time.Second,
		stop:      make(chan struct{}),
	}

	go hub.run()
	return hub
}

// run delivers broadcast events to the clients of each submission
func (h *SSEHub) run() {
	for {
		select {
		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[event.SubmissionID] {
				select {
				case clientChan <- event:
				default:
					h.logger.Warn("[SSE] Client channel full for submission %s, skipping event", event.SubmissionID)
				}
			}
			h.clientsMu.RUnlock()
		case <-h.stop:
			return
		}
	}
}

// Close stops the delivery loop
func (h *SSEHub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Broadcast sends an event to all clients listening to a submission
func (h *SSEHub) Broadcast(event SubmissionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("[SSE] Broadcast channel full, dropping event: %s", event.EventType)
	}
}

// Register adds a client for a submission. The returned channel is closed by Unregister.
func (h *SSEHub) Register(submissionID string) chan SubmissionEvent {
	ch := make(chan SubmissionEvent, 16)
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if h.clients[submissionID] == nil {
		h.clients[submissionID] = make(map[chan SubmissionEvent]bool)
	}
	h.clients[submissionID][ch] = true
	h.logger.Debug("[SSE] Client registered for submission %s (total clients: %d)",
		submissionID, len(h.clients[submissionID]))
	return ch
}

// Unregister removes a client
func (h *SSEHub) Unregister(submissionID string, ch chan SubmissionEvent) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	clients, exists := h.clients[submissionID]
	if !exists || !clients[ch] {
		return
	}
	delete(clients, ch)
	close(ch)
	if len(clients) == 0 {
		delete(h.clients, submissionID)
	}
}

// Stream writes events from ch until a final event, client disconnect or hub shutdown
func (h *SSEHub) Stream(c *gin.Context, ch chan SubmissionEvent) {
	writeSSEHeaders(c)
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-ch:
			if !ok {
				return false
			}
			writeEvent(c, event)
			return !event.Final

		case <-time.After(h.ping):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		case <-h.stop:
			return false
		}
	})
}

// GetClientCount returns the number of active clients for a submission
func (h *SSEHub) GetClientCount(submissionID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[submissionID])
}

func writeSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Cache-Control")
}

func writeEvent(c *gin.Context, event SubmissionEvent) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		c.SSEvent(EventError, `{"error": "failed to encode event"}`)
		return
	}
	c.SSEvent(event.EventType, string(eventJSON))
	c.Writer.Flush()
}

// writeSingleEvent answers an SSE request with one event and ends the response
func writeSingleEvent(c *gin.Context, event SubmissionEvent) {
	writeSSEHeaders(c)
	c.Status(http.StatusOK)
	writeEvent(c, event)
}
