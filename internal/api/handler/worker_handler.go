package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/dto"
	"github.com/crosslist/crosslist-be/internal/api/model"
	"github.com/crosslist/crosslist-be/internal/api/storage"
	"github.com/crosslist/crosslist-be/internal/dispatch"
	"github.com/gin-gonic/gin"
)

// Claim handles POST /api/v1/worker/claim
// Atomically hands the extension its oldest queued job, moving it to
// PROCESSING. An empty queue answers with a null job. A claim doubles as
// a heartbeat.
func (h *WorkerHandler) Claim(c *gin.Context) {
	var req dto.ClaimJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "invalid_request",
		})
		return
	}

	if err := h.store.UpsertHeartbeat(c.Request.Context(), req.UserID, true); err != nil {
		h.logger.Warn("Failed to refresh liveness on claim",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
	}

	job, err := h.store.ClaimOldestQueued(c.Request.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNoQueuedJob) {
			c.JSON(http.StatusOK, dto.ClaimJobResponse{Job: nil})
			return
		}
		h.logger.Error("Failed to claim job",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "claim_failed",
		})
		return
	}

	c.JSON(http.StatusOK, dto.ClaimJobResponse{
		Job: &dto.ClaimedJobDTO{
			JobID:     job.JobID,
			ListingID: job.ListingID,
			Platform:  job.Platform,
		},
	})
}

// Report handles POST /api/v1/worker/report
// Applies a worker report to the job state machine. Reports against
// already-terminal jobs are acknowledged and ignored, so extension
// retries are harmless.
func (h *WorkerHandler) Report(c *gin.Context) {
	var req dto.ReportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "invalid_request",
		})
		return
	}

	outcome := domain.ReportOutcome(req.Outcome)
	if !outcome.IsValid() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_outcome",
			Message: "outcome must be SUCCESS, ERROR, PROGRESS or VERIFICATION_REQUIRED",
		})
		return
	}

	ctx := c.Request.Context()

	job, err := h.store.GetJobByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error: "job_not_found",
			})
			return
		}
		h.logger.Error("Failed to load job for report", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "report_failed",
		})
		return
	}

	if outcome == domain.ReportOutcomeProgress {
		if err := h.store.TouchJob(ctx, job.JobID); err != nil {
			h.logger.Warn("Failed to record progress",
				slog.String("job_id", job.JobID),
				slog.String("error", err.Error()),
			)
		}
		c.JSON(http.StatusOK, dto.ReportJobResponse{Acknowledged: true})
		return
	}

	if job.Status.IsTerminal() {
		c.JSON(http.StatusOK, dto.ReportJobResponse{Acknowledged: true, Ignored: true})
		return
	}

	target, _ := outcome.Status()
	if !job.Status.CanTransitionTo(target) {
		h.logger.Warn("Report would violate state machine",
			slog.String("job_id", job.JobID),
			slog.String("status", string(job.Status)),
			slog.String("outcome", string(outcome)),
		)
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "illegal_transition",
			Message: domain.ErrIllegalTransition.Error(),
		})
		return
	}

	fields := storage.TransitionFields{}
	switch outcome {
	case domain.ReportOutcomeSuccess:
		fields.PlatformListingID = req.PlatformListingID
		fields.PlatformURL = req.PlatformURL
	case domain.ReportOutcomeError, domain.ReportOutcomeVerificationRequired:
		fields.ErrorMessage = req.Message
	}

	if err := h.store.TransitionJob(ctx, job.JobID, job.Status, target, fields); err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) {
			// Lost a race with another report. The job reached a
			// terminal state first; treat this one as a duplicate.
			c.JSON(http.StatusOK, dto.ReportJobResponse{Acknowledged: true, Ignored: true})
			return
		}
		h.logger.Error("Failed to apply report",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "report_failed",
		})
		return
	}

	if outcome == domain.ReportOutcomeSuccess {
		pl := &model.PlatformListing{
			ListingID:         job.ListingID,
			Platform:          job.Platform,
			PlatformListingID: req.PlatformListingID,
			PlatformURL:       req.PlatformURL,
			ListedAt:          time.Now(),
		}
		if err := h.store.UpsertPlatformListing(ctx, pl); err != nil {
			h.logger.Error("Failed to record platform listing",
				slog.String("job_id", job.JobID),
				slog.String("error", err.Error()),
			)
		}
	}

	h.publishReportEvent(c, job, outcome)

	c.JSON(http.StatusOK, dto.ReportJobResponse{Acknowledged: true})
}

func (h *WorkerHandler) publishReportEvent(c *gin.Context, job *model.Job, outcome domain.ReportOutcome) {
	if h.events == nil {
		return
	}

	var routingKey string
	switch outcome {
	case domain.ReportOutcomeSuccess:
		routingKey = "job.completed"
	case domain.ReportOutcomeError:
		routingKey = "job.failed"
	case domain.ReportOutcomeVerificationRequired:
		routingKey = "job.verification"
	default:
		return
	}

	status, _ := outcome.Status()
	event := dispatch.JobEvent{
		JobID:     job.JobID,
		UserID:    job.UserID,
		ListingID: job.ListingID,
		Platform:  job.Platform,
		Status:    string(status),
	}

	if err := h.events.PublishJobEvent(c.Request.Context(), routingKey, event); err != nil {
		h.logger.Warn("Failed to publish job event",
			slog.String("job_id", job.JobID),
			slog.String("routing_key", routingKey),
			slog.String("error", err.Error()),
		)
	}
}

// Heartbeat handles POST /api/v1/worker/heartbeat
// The extension's periodic check-in; what the dispatcher's liveness gate
// reads.
func (h *WorkerHandler) Heartbeat(c *gin.Context) {
	var req dto.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "invalid_request",
		})
		return
	}

	if err := h.store.UpsertHeartbeat(c.Request.Context(), req.UserID, *req.Connected); err != nil {
		h.logger.Error("Failed to record heartbeat",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "heartbeat_failed",
		})
		return
	}

	c.Status(http.StatusNoContent)
}
