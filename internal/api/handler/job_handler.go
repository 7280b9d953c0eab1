package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/dto"
	"github.com/crosslist/crosslist-be/internal/api/storage"
	"github.com/gin-gonic/gin"
)

// Dispatch handles POST /api/v1/jobs
// Gates preconditions and creates a cross-listing job for the extension
// to pick up. Returns the job id without waiting for execution.
func (h *JobHandler) Dispatch(c *gin.Context) {
	var req dto.DispatchJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid dispatch request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "user_id, listing_id and platform are required",
		})
		return
	}

	job, err := h.dispatcher.Dispatch(c.Request.Context(), req.UserID, req.ListingID, req.Platform)
	if err != nil {
		h.dispatchError(c, &req, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.DispatchJobResponse{
		JobID: job.JobID,
	})
}

// dispatchError maps precondition failures to actionable payloads. No
// job row exists for any of these.
func (h *JobHandler) dispatchError(c *gin.Context, req *dto.DispatchJobRequest, err error) {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "listing_not_found",
			Message: err.Error(),
		})

	case errors.Is(err, domain.ErrNotListingOwner):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error:   "forbidden",
			Message: err.Error(),
		})

	case errors.Is(err, domain.ErrDuplicateListing):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "duplicate_listing",
			Message: err.Error(),
		})

	case errors.Is(err, domain.ErrWorkerOffline):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:             "extension_not_connected",
			Message:           "open the browser extension and try again",
			RequiresReconnect: true,
		})

	case errors.Is(err, domain.ErrCredentialStale):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:             "reconnect_required",
			Message:           err.Error(),
			RequiresReconnect: true,
		})

	default:
		h.logger.Error("Dispatch failed",
			slog.String("listing_id", req.ListingID),
			slog.String("platform", req.Platform),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "dispatch_failed",
		})
	}
}

// GetJobStatus handles GET /api/v1/jobs/:job_id
// The status-read endpoint the client poller drives.
func (h *JobHandler) GetJobStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error: "job_not_found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "status_read_failed",
		})
		return
	}

	resp := dto.JobStatusResponse{
		JobID:  job.JobID,
		Status: string(job.Status),
	}
	if job.ErrorMessage.Valid {
		resp.ErrorMessage = job.ErrorMessage.String
	}
	if job.PlatformListingID.Valid {
		resp.PlatformListingID = job.PlatformListingID.String
	}
	if job.PlatformURL.Valid {
		resp.PlatformURL = job.PlatformURL.String
	}

	c.JSON(http.StatusOK, resp)
}

// ListJobs handles GET /api/v1/jobs
// Cross-listing history with filtering and keyset pagination.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "invalid_query",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "invalid_cursor",
		})
		return
	}

	filter := storage.JobFilter{
		UserID:   req.UserID,
		Platform: req.Platform,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "list_failed",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i, job := range jobs {
		jobResponse[i] = dto.JobDTO{
			JobID:     job.JobID,
			UserID:    job.UserID,
			ListingID: job.ListingID,
			Platform:  job.Platform,
			Status:    string(job.Status),
			CreatedAt: job.CreatedAt.Format(time.RFC3339),
		}
		if job.ErrorMessage.Valid {
			jobResponse[i].ErrorMessage = job.ErrorMessage.String
		}
		if job.CompletedAt.Valid {
			jobResponse[i].CompletedAt = job.CompletedAt.Time.Format(time.RFC3339)
		}
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// Delist handles DELETE /api/v1/listings/:listing_id/platforms/:platform
// Drops the platform-listing record, freeing the pair for re-dispatch.
// Removing the listing on the marketplace itself is the extension's job.
func (h *JobHandler) Delist(c *gin.Context) {
	listingID := c.Param("listing_id")
	platform := c.Param("platform")

	if err := h.store.DeletePlatformListing(c.Request.Context(), listingID, platform); err != nil {
		h.logger.Error("Failed to delist",
			slog.String("listing_id", listingID),
			slog.String("platform", platform),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "delist_failed",
		})
		return
	}

	c.Status(http.StatusNoContent)
}
