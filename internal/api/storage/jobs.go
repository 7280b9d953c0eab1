package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/model"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// CreateJob inserts a new job row. The partial unique index on
// (listing_id, platform) over non-failed jobs makes the duplicate-dispatch
// race lose cleanly: the second insert conflicts and maps to
// ErrDuplicateListing instead of producing a second active job.
func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, user_id, listing_id, platform,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.UserID,
		job.ListingID,
		job.Platform,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return domain.ErrDuplicateListing
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJobByID retrieves a job by its id.
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `
		SELECT
			job_id, user_id, listing_id, platform, status,
			error_message, platform_listing_id, platform_url,
			created_at, updated_at, completed_at
		FROM jobs
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// HasActiveJob reports whether a non-terminal job exists for the
// (listing, platform) pair. Used as the fast-path duplicate check before
// insert; the unique index is the authoritative guard.
func (s *Storage) HasActiveJob(ctx context.Context, listingID, platform string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM jobs
			WHERE listing_id = $1
			  AND platform = $2
			  AND status IN ($3, $4, $5)
		)
	`

	err := s.db.GetContext(ctx, &exists, query, listingID, platform,
		domain.JobStatusQueued, domain.JobStatusProcessing, domain.JobStatusPendingVerification)
	if err != nil {
		return false, fmt.Errorf("failed to check active job: %w", err)
	}

	return exists, nil
}

// ClaimOldestQueued atomically claims the user's oldest QUEUED job,
// moving it to PROCESSING. SKIP LOCKED makes two concurrently polling
// extensions for the same user claim disjoint jobs.
func (s *Storage) ClaimOldestQueued(ctx context.Context, userID string) (*model.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    updated_at = NOW()
		WHERE job_id = (
			SELECT job_id FROM jobs
			WHERE user_id = $2 AND status = $3
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING job_id, user_id, listing_id, platform, status,
		          error_message, platform_listing_id, platform_url,
		          created_at, updated_at, completed_at
	`

	var job model.Job
	err := s.db.GetContext(ctx, &job, query, domain.JobStatusProcessing, userID, domain.JobStatusQueued)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoQueuedJob
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Info("Job claimed",
		slog.String("job_id", job.JobID),
		slog.String("user_id", userID),
		slog.String("platform", job.Platform),
	)

	return &job, nil
}

// TransitionFields carries the optional columns written along with a
// status transition.
type TransitionFields struct {
	ErrorMessage      string
	PlatformListingID string
	PlatformURL       string
}

// TransitionJob performs a compare-and-swap status update: the write
// only lands if the row is still in the expected prior status, so a late
// or duplicate report can never overwrite a terminal state.
// completed_at is set iff the new status is terminal.
func (s *Storage) TransitionJob(ctx context.Context, jobID string, from, to domain.JobStatus, fields TransitionFields) error {
	if !from.CanTransitionTo(to) {
		return domain.ErrIllegalTransition
	}

	query := `
		UPDATE jobs
		SET status = $1,
			error_message = NULLIF($2, ''),
			platform_listing_id = COALESCE(NULLIF($3, ''), platform_listing_id),
			platform_url = COALESCE(NULLIF($4, ''), platform_url),
			completed_at = CASE
				WHEN $1 IN ($5, $6) THEN NOW()
				ELSE NULL
			END,
			updated_at = NOW()
		WHERE job_id = $7
		  AND status = $8
	`

	result, err := s.db.ExecContext(ctx, query,
		to, fields.ErrorMessage, fields.PlatformListingID, fields.PlatformURL,
		domain.JobStatusCompleted, domain.JobStatusFailed,
		jobID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to transition job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrIllegalTransition
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)

	return nil
}

// SupersedeVerificationJob fails the pair's PENDING_VERIFICATION job,
// if one exists, so a post-verification retry can insert a fresh job.
// The write targets the status directly, so it can never touch a job
// the worker has meanwhile resumed or finished. Returns whether a job
// was superseded.
func (s *Storage) SupersedeVerificationJob(ctx context.Context, listingID, platform string) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE listing_id = $3
		  AND platform = $4
		  AND status = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusFailed, "superseded by retry",
		listingID, platform, domain.JobStatusPendingVerification,
	)
	if err != nil {
		return false, fmt.Errorf("failed to supersede verification job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		s.logger.Info("Verification job superseded",
			slog.String("listing_id", listingID),
			slog.String("platform", platform),
		)
	}

	return rowsAffected > 0, nil
}

// TouchJob bumps updated_at on a PROCESSING job. Called on PROGRESS
// reports so long-running jobs survive the staleness sweep.
func (s *Storage) TouchJob(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET updated_at = NOW()
		WHERE job_id = $1 AND status = $2
	`

	result, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to touch job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Progress report for job that is not processing",
			slog.String("job_id", jobID),
		)
	}

	return nil
}

// SweepStaleJobs fails QUEUED and PROCESSING jobs whose updated_at is
// older than the cutoff. PENDING_VERIFICATION jobs are waiting on a
// human, not the worker, and are left alone.
func (s *Storage) SweepStaleJobs(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE status IN ($3, $4)
		  AND updated_at < $5
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusFailed, reason,
		domain.JobStatusQueued, domain.JobStatusProcessing,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale jobs: %w", err)
	}

	swept, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return swept, nil
}

type JobFilter struct {
	UserID   string
	Platform string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns jobs matching the filter, newest first, keyset
// paginated. Fetches one row past the page size so the caller can tell
// whether a next page exists.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `
		SELECT
			job_id, user_id, listing_id, platform, status,
			error_message, platform_listing_id, platform_url,
			created_at, updated_at, completed_at
		FROM jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}

	if filter.Platform != "" {
		query += fmt.Sprintf(" AND platform = $%d", argIdx)
		args = append(args, filter.Platform)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
