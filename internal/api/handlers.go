package api

import (
	"net/http"

	"rankstat/app"
	"rankstat/domain/core"
	"rankstat/domain/submission"
	"rankstat/internal"
	"rankstat/internal/errors"
	"rankstat/internal/orchestrator"
	"rankstat/ports"

	"github.com/gin-gonic/gin"
)

// SubmissionHandler serves the submission API
type SubmissionHandler struct {
	service *app.SubmissionService
	reader  ports.ResultReader
	hub     *SSEHub
	logger  *internal.Logger
}

// NewSubmissionHandler creates a handler. reader may be nil when results are not persisted.
func NewSubmissionHandler(service *app.SubmissionService, reader ports.ResultReader, hub *SSEHub, logger *internal.Logger) *SubmissionHandler {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &SubmissionHandler{service: service, reader: reader, hub: hub, logger: logger}
}

type submissionResponse struct {
	ID      core.SubmissionID   `json:"id"`
	Title   string              `json:"title,omitempty"`
	Machine submission.Machine  `json:"machine"`
	Outcome *submission.Outcome `json:"outcome,omitempty"`
}

func newSubmissionResponse(orch *orchestrator.Orchestrator) submissionResponse {
	resp := submissionResponse{ID: orch.ID(), Machine: orch.Machine()}
	if req := orch.Request(); req != nil {
		resp.Title = req.Title()
	}
	if out, done := orch.Outcome(); done {
		resp.Outcome = &out
	}
	return resp
}

// ListVariables returns the variables available for testing
func (h *SubmissionHandler) ListVariables(c *gin.Context) {
	refs, err := h.service.Variables(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variables": refs})
}

// SubmitPaired accepts a two-related-samples submission
func (h *SubmissionHandler) SubmitPaired(c *gin.Context) {
	var cmd app.PairedCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": errors.CodeValidationError})
		return
	}
	orch, err := h.service.SubmitPaired(c.Request.Context(), cmd, nil)
	h.respondSubmitted(c, orch, err)
}

// SubmitChiSquare accepts a chi-square goodness-of-fit submission
func (h *SubmissionHandler) SubmitChiSquare(c *gin.Context) {
	var cmd app.ChiSquareCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": errors.CodeValidationError})
		return
	}
	orch, err := h.service.SubmitChiSquare(c.Request.Context(), cmd, nil)
	h.respondSubmitted(c, orch, err)
}

// ListSubmissions returns every known submission
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"submissions": h.service.List()})
}

// GetSubmission returns the state and, once finished, the outcome of a submission
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	orch, err := h.service.Get(core.SubmissionID(c.Param("id")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSubmissionResponse(orch))
}

// CancelSubmission cancels a running submission
func (h *SubmissionHandler) CancelSubmission(c *gin.Context) {
	id := core.SubmissionID(c.Param("id"))
	if err := h.service.Cancel(id); err != nil {
		h.respondError(c, err)
		return
	}
	orch, err := h.service.Get(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSubmissionResponse(orch))
}

// StreamEvents streams the signals of a submission over SSE
func (h *SubmissionHandler) StreamEvents(c *gin.Context) {
	orch, err := h.service.Get(core.SubmissionID(c.Param("id")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	id := orch.ID().String()

	ch := h.hub.Register(id)
	defer h.hub.Unregister(id, ch)

	if out, done := orch.Outcome(); done {
		event := outcomeEvent(terminalEventType(out), out)
		writeSingleEvent(c, event)
		return
	}
	h.hub.Stream(c, ch)
}

// GetStatistics returns the persisted tables of an analytic
func (h *SubmissionHandler) GetStatistics(c *gin.Context) {
	if h.reader == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result persistence is disabled", "code": errors.CodeNotFound})
		return
	}
	stored, err := h.reader.Statistics(c.Request.Context(), core.AnalyticID(c.Param("id")))
	if err != nil {
		h.respondError(c, errors.WithCode(errors.CodeDatabaseError, err))
		return
	}
	if len(stored) == 0 {
		h.respondError(c, errors.NotFound("analytic "+c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"statistics": stored})
}

func (h *SubmissionHandler) respondSubmitted(c *gin.Context, orch *orchestrator.Orchestrator, err error) {
	if err != nil {
		if orch != nil {
			// rejected after registration, e.g. unreadable data
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "code": errors.GetCode(err), "submission": newSubmissionResponse(orch)})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, newSubmissionResponse(orch))
}

func (h *SubmissionHandler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeDataUnavailable:
		return http.StatusUnprocessableEntity
	case errors.CodeCancelled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
