// Package api exposes the Contract Accrual Processor's one RPC (spec.md
// §6 process_contracts) over HTTP, mirroring the teacher's thin
// cron-handler-delegates-to-service shape (internal/api/cron/subscription.go).
package api

import (
	"net/http"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/batch"
	"github.com/fourgeeks/accrual-engine/internal/ierr"
	"github.com/fourgeeks/accrual-engine/internal/logger"
	"github.com/fourgeeks/accrual-engine/internal/validator"
	"github.com/gin-gonic/gin"
)

// ProcessContractsRequest is the spec.md §6 process_contracts input.
type ProcessContractsRequest struct {
	PeriodStartDate string `json:"period_start_date" validate:"required,datetime=2006-01-02"`
}

// ResultDTO is the wire shape of one accrualengine.Result.
type ResultDTO struct {
	ContractID string  `json:"contract_id"`
	PeriodID   *string `json:"period_id,omitempty"`
	Status     string  `json:"status"`
	Message    string  `json:"message,omitempty"`
}

// SummaryDTO is the wire shape of batch.Summary.
type SummaryDTO struct {
	TotalProcessed int `json:"total_processed"`
	Successful     int `json:"successful"`
	Failed         int `json:"failed"`
	Skipped        int `json:"skipped"`
}

// NotificationDTO is the wire shape of types.Notification.
type NotificationDTO struct {
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	ContractID string    `json:"contract_id,omitempty"`
}

// ProcessContractsResponse is the spec.md §6 process_contracts output.
type ProcessContractsResponse struct {
	PeriodStartDate   string            `json:"period_start_date"`
	Summary           SummaryDTO        `json:"summary"`
	ProcessingResults []ResultDTO       `json:"processing_results"`
	Notifications     []NotificationDTO `json:"notifications"`
}

// BatchHandler handles the process_contracts endpoint.
type BatchHandler struct {
	driver *batch.Driver
	logger *logger.Logger
}

// NewBatchHandler builds a BatchHandler over driver.
func NewBatchHandler(driver *batch.Driver, log *logger.Logger) *BatchHandler {
	return &BatchHandler{driver: driver, logger: log}
}

// ProcessContracts runs one monthly batch over period_start_date and
// returns the full report (spec.md §6).
func (h *BatchHandler) ProcessContracts(c *gin.Context) {
	var req ProcessContractsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validator.ValidateRequest(req); err != nil {
		writeError(c, err)
		return
	}

	periodStart, err := time.Parse("2006-01-02", req.PeriodStartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start_date"})
		return
	}

	report, err := h.driver.Run(c.Request.Context(), periodStart)
	if err != nil {
		h.logger.Errorw("batch run failed", "error", err, "period_start_date", req.PeriodStartDate)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(report))
}

func toResponse(report *batch.Report) ProcessContractsResponse {
	results := make([]ResultDTO, len(report.ProcessingResults))
	for i, res := range report.ProcessingResults {
		results[i] = ResultDTO{
			ContractID: res.ContractID,
			PeriodID:   res.PeriodID,
			Status:     string(res.Status),
			Message:    res.Message,
		}
	}

	notes := make([]NotificationDTO, len(report.Notifications))
	for i, n := range report.Notifications {
		notes[i] = NotificationDTO{
			Type:       string(n.Type),
			Message:    n.Message,
			Timestamp:  n.Timestamp,
			ContractID: n.ContractID,
		}
	}

	return ProcessContractsResponse{
		PeriodStartDate: report.PeriodStartDate.Format("2006-01-02"),
		Summary: SummaryDTO{
			TotalProcessed: report.Summary.TotalProcessed,
			Successful:     report.Summary.Successful,
			Failed:         report.Summary.Failed,
			Skipped:        report.Summary.Skipped,
		},
		ProcessingResults: results,
		Notifications:     notes,
	}
}

// writeError maps an ierr-classified error to an HTTP status, the way the
// teacher's middleware.ErrorHandler does from its own error package.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case ierr.IsValidation(err):
		status = http.StatusBadRequest
	case ierr.IsNotFound(err):
		status = http.StatusNotFound
	case ierr.IsInvariantViolation(err):
		status = http.StatusConflict
	case ierr.IsDependencyUnavailable(err):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
