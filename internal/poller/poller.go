package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crosslist/crosslist-be/internal/api/domain"
)

// RetryPolicy bounds a poll loop: how many status reads, how far apart.
// Independent of the transport used to read.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetryPolicy is 120 attempts at 1s, a two minute ceiling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 120,
		Interval:    time.Second,
	}
}

// Snapshot is one observation of a job from the status endpoint.
type Snapshot struct {
	JobID        string
	Status       domain.JobStatus
	ErrorMessage string
}

// StatusReader reads the current state of a job.
type StatusReader interface {
	ReadStatus(ctx context.Context, jobID string) (*Snapshot, error)
}

// DispatchFunc re-issues the original dispatch call and returns the new
// job id. Used for the post-verification retry, which creates a fresh
// job rather than resuming the interrupted one.
type DispatchFunc func(ctx context.Context) (jobID string, err error)

// Outcome classifies how a poll loop ended.
type Outcome string

const (
	// OutcomeCompleted and OutcomeFailed are terminal.
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"

	// OutcomeVerificationRequired means the job paused for a manual
	// out-of-band step. Not a failure.
	OutcomeVerificationRequired Outcome = "verification_required"

	// OutcomeStillProcessing means the attempt budget ran out without a
	// terminal state. A visibility timeout, not a failure.
	OutcomeStillProcessing Outcome = "still_processing"
)

// Result is the poll loop's verdict on a job.
type Result struct {
	Outcome      Outcome
	JobID        string
	ErrorMessage string
}

// Poller drives caller-side status polling after dispatch.
type Poller struct {
	reader StatusReader
	policy RetryPolicy
	logger *slog.Logger
}

func NewPoller(reader StatusReader, policy RetryPolicy, logger *slog.Logger) *Poller {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Poller{
		reader: reader,
		policy: policy,
		logger: logger,
	}
}

// Poll reads the job status at the policy's interval until a terminal
// state, a verification interrupt, or budget exhaustion. It never polls
// past the first terminal or PENDING_VERIFICATION observation.
func (p *Poller) Poll(ctx context.Context, jobID string) (*Result, error) {
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		snap, err := p.reader.ReadStatus(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to read job status: %w", err)
		}

		switch snap.Status {
		case domain.JobStatusCompleted:
			p.logger.Info("Job completed",
				slog.String("job_id", jobID),
				slog.Int("attempts", attempt),
			)
			return &Result{Outcome: OutcomeCompleted, JobID: jobID}, nil

		case domain.JobStatusFailed:
			p.logger.Info("Job failed",
				slog.String("job_id", jobID),
				slog.String("error", snap.ErrorMessage),
			)
			return &Result{
				Outcome:      OutcomeFailed,
				JobID:        jobID,
				ErrorMessage: snap.ErrorMessage,
			}, nil

		case domain.JobStatusPendingVerification:
			p.logger.Info("Job paused for verification",
				slog.String("job_id", jobID),
			)
			return &Result{
				Outcome:      OutcomeVerificationRequired,
				JobID:        jobID,
				ErrorMessage: snap.ErrorMessage,
			}, nil
		}

		if attempt < p.policy.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.policy.Interval):
			}
		}
	}

	p.logger.Warn("Poll budget exhausted, job still processing",
		slog.String("job_id", jobID),
		slog.Int("max_attempts", p.policy.MaxAttempts),
	)

	return &Result{Outcome: OutcomeStillProcessing, JobID: jobID}, nil
}

// ResumeAfterVerification runs the one-shot retry after the user
// confirms the manual step: re-dispatch (a new job id) and one fresh
// poll loop. A second verification interrupt is not retried again; the
// result is returned alongside ErrVerificationRetryExhausted so the
// caller knows explicit re-initiation is needed.
func (p *Poller) ResumeAfterVerification(ctx context.Context, dispatch DispatchFunc) (*Result, error) {
	jobID, err := dispatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to re-dispatch after verification: %w", err)
	}

	p.logger.Info("Re-dispatched after verification",
		slog.String("job_id", jobID),
	)

	result, err := p.Poll(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if result.Outcome == OutcomeVerificationRequired {
		return result, domain.ErrVerificationRetryExhausted
	}

	return result, nil
}
