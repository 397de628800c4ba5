package controllers

import (
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"

	"meetuphere/internal/delivery/http/helpers"
	"meetuphere/internal/domain"
	"meetuphere/internal/worker"
)

// ProcessResponse reports the terminal state of a pushed queue message.
type ProcessResponse struct {
	State domain.ProcessingState `json:"state" example:"notify_sent"`
}

// ProcessSuccessResponse is the response envelope for POST /checkin.
type ProcessSuccessResponse struct {
	Data  ProcessResponse   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// WorkerController processes queue messages pushed over HTTP by a queue daemon.
type WorkerController struct {
	Logger             *slog.Logger
	Processor          domain.CheckinProcessor
	DeadLetterFailures bool
}

// NewWorkerController creates a WorkerController.
func NewWorkerController(logger *slog.Logger, processor domain.CheckinProcessor, deadLetterFailures bool) *WorkerController {
	return &WorkerController{
		Logger:             logger,
		Processor:          processor,
		DeadLetterFailures: deadLetterFailures,
	}
}

// ProcessCheckin godoc
// @Summary Process one queued check-in
// @Description Body is a base64-encoded CheckinEvent JSON as delivered by the queue daemon (raw JSON is accepted too). Answers 200 to delete the message; 500 only for failed outcomes when dead-lettering is enabled.
// @Tags worker
// @Accept plain
// @Produce json
// @Success 200 {object} controllers.ProcessSuccessResponse
// @Failure 500 {object} controllers.ProcessSuccessResponse
// @Router /checkin [post]
func (c *WorkerController) ProcessCheckin(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPushBytes))
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "unreadable body")
		return
	}
	outcome := c.Processor.HandleMessage(r.Context(), decodeMessage(body))
	helpers.WriteJSONSuccess(w, worker.StatusFor(outcome, c.DeadLetterFailures), ProcessResponse{State: outcome.State})
}

func decodeMessage(body []byte) []byte {
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
	n, err := base64.StdEncoding.Decode(decoded, body)
	if err != nil {
		return body
	}
	return decoded[:n]
}
