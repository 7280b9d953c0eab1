package poller

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/model"
	"github.com/crosslist/crosslist-be/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader replays a fixed sequence of snapshots, repeating the
// last one once the script runs out.
type scriptedReader struct {
	script []Snapshot
	reads  int
}

func (r *scriptedReader) ReadStatus(ctx context.Context, jobID string) (*Snapshot, error) {
	idx := r.reads
	if idx >= len(r.script) {
		idx = len(r.script) - 1
	}
	r.reads++
	snap := r.script[idx]
	snap.JobID = jobID
	return &snap, nil
}

func fastPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: maxAttempts, Interval: time.Millisecond}
}

func TestPollStopsOnCompleted(t *testing.T) {
	reader := &scriptedReader{script: []Snapshot{
		{Status: domain.JobStatusQueued},
		{Status: domain.JobStatusProcessing},
		{Status: domain.JobStatusCompleted},
	}}
	p := NewPoller(reader, fastPolicy(10), slog.Default())

	result, err := p.Poll(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, 3, reader.reads, "polling must stop at the first terminal observation")
}

func TestPollStopsOnFailedWithVerbatimMessage(t *testing.T) {
	reader := &scriptedReader{script: []Snapshot{
		{Status: domain.JobStatusProcessing},
		{Status: domain.JobStatusFailed, ErrorMessage: "login required"},
	}}
	p := NewPoller(reader, fastPolicy(10), slog.Default())

	result, err := p.Poll(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, "login required", result.ErrorMessage)
	assert.Equal(t, 2, reader.reads)
}

func TestPollStopsImmediatelyOnVerification(t *testing.T) {
	reader := &scriptedReader{script: []Snapshot{
		{Status: domain.JobStatusProcessing},
		{Status: domain.JobStatusPendingVerification, ErrorMessage: "complete the CAPTCHA in the marketplace tab"},
		{Status: domain.JobStatusCompleted},
	}}
	p := NewPoller(reader, fastPolicy(10), slog.Default())

	result, err := p.Poll(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, OutcomeVerificationRequired, result.Outcome)
	assert.Equal(t, "complete the CAPTCHA in the marketplace tab", result.ErrorMessage)
	assert.Equal(t, 2, reader.reads, "polling must not continue past the interrupt")
}

func TestPollBudgetExhaustionIsNotFailure(t *testing.T) {
	reader := &scriptedReader{script: []Snapshot{
		{Status: domain.JobStatusProcessing},
	}}
	p := NewPoller(reader, fastPolicy(5), slog.Default())

	result, err := p.Poll(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, OutcomeStillProcessing, result.Outcome)
	assert.Empty(t, result.ErrorMessage)
	assert.Equal(t, 5, reader.reads)
}

func TestPollHonorsContextCancellation(t *testing.T) {
	reader := &scriptedReader{script: []Snapshot{
		{Status: domain.JobStatusProcessing},
	}}
	p := NewPoller(reader, RetryPolicy{MaxAttempts: 100, Interval: time.Minute}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Poll(ctx, "job-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResumeAfterVerificationCreatesFreshJob(t *testing.T) {
	reader := &scriptedReader{script: []Snapshot{
		{Status: domain.JobStatusQueued},
		{Status: domain.JobStatusCompleted},
	}}
	p := NewPoller(reader, fastPolicy(10), slog.Default())

	var dispatched []string
	dispatch := func(ctx context.Context) (string, error) {
		dispatched = append(dispatched, "job-2")
		return "job-2", nil
	}

	result, err := p.ResumeAfterVerification(context.Background(), dispatch)
	require.NoError(t, err)

	assert.Equal(t, []string{"job-2"}, dispatched, "resume must re-dispatch exactly once")
	assert.Equal(t, "job-2", result.JobID, "resume polls the new job, not the interrupted one")
	assert.Equal(t, OutcomeCompleted, result.Outcome)
}

func TestResumeDoesNotLoopOnSecondVerification(t *testing.T) {
	reader := &scriptedReader{script: []Snapshot{
		{Status: domain.JobStatusPendingVerification, ErrorMessage: "verify again"},
	}}
	p := NewPoller(reader, fastPolicy(10), slog.Default())

	dispatch := func(ctx context.Context) (string, error) {
		return "job-2", nil
	}

	result, err := p.ResumeAfterVerification(context.Background(), dispatch)

	assert.ErrorIs(t, err, domain.ErrVerificationRetryExhausted)
	require.NotNil(t, result)
	assert.Equal(t, OutcomeVerificationRequired, result.Outcome)
}

// pairStore is an in-memory dispatch.Store that mirrors the real
// storage contract for one (listing, platform) pair: any non-terminal
// job counts as active and blocks a second insert.
type pairStore struct {
	jobs []*model.Job
}

func (s *pairStore) GetListing(ctx context.Context, listingID string) (*model.Listing, error) {
	return &model.Listing{ListingID: listingID, UserID: "user-1"}, nil
}

func (s *pairStore) HasPlatformListing(ctx context.Context, listingID, platform string) (bool, error) {
	return false, nil
}

func (s *pairStore) HasActiveJob(ctx context.Context, listingID, platform string) (bool, error) {
	for _, job := range s.jobs {
		if !job.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (s *pairStore) SupersedeVerificationJob(ctx context.Context, listingID, platform string) (bool, error) {
	superseded := false
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusPendingVerification {
			job.Status = domain.JobStatusFailed
			job.ErrorMessage.String = "superseded by retry"
			job.ErrorMessage.Valid = true
			superseded = true
		}
	}
	return superseded, nil
}

func (s *pairStore) IsWorkerLive(ctx context.Context, userID string) (bool, error) {
	return true, nil
}

func (s *pairStore) HasFreshCredential(ctx context.Context, userID, platform string) (bool, error) {
	return true, nil
}

func (s *pairStore) CreateJob(ctx context.Context, job *model.Job) error {
	for _, existing := range s.jobs {
		if existing.Status != domain.JobStatusFailed && !existing.CompletedAt.Valid {
			return domain.ErrDuplicateListing
		}
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func TestResumeAfterVerificationPassesDuplicateGuards(t *testing.T) {
	// The interrupted job still sits in PENDING_VERIFICATION when the
	// user confirms; re-dispatch through the full precondition chain
	// must supersede it, not bounce off the duplicate guard.
	interrupted := &model.Job{
		JobID:     "job-1",
		UserID:    "user-1",
		ListingID: "listing-1",
		Platform:  "poshmark",
		Status:    domain.JobStatusPendingVerification,
	}
	store := &pairStore{jobs: []*model.Job{interrupted}}
	d := dispatch.NewDispatcher(store, nil, slog.Default())

	dispatchFn := func(ctx context.Context) (string, error) {
		job, err := d.Dispatch(ctx, "user-1", "listing-1", "poshmark")
		if err != nil {
			return "", err
		}
		// The extension picks the retry up and finishes it right away.
		job.Status = domain.JobStatusCompleted
		return job.JobID, nil
	}

	reader := &pairStoreReader{store: store}
	p := NewPoller(reader, fastPolicy(10), slog.Default())

	result, err := p.ResumeAfterVerification(context.Background(), dispatchFn)
	require.NoError(t, err, "re-dispatch after verification must not hit the duplicate guard")

	assert.Equal(t, OutcomeCompleted, result.Outcome)
	require.Len(t, store.jobs, 2, "resume must create a fresh job")
	assert.NotEqual(t, "job-1", result.JobID)
	assert.Equal(t, domain.JobStatusFailed, interrupted.Status)
	assert.Equal(t, "superseded by retry", interrupted.ErrorMessage.String)
}

// pairStoreReader reads job status straight out of the pairStore.
type pairStoreReader struct {
	store *pairStore
}

func (r *pairStoreReader) ReadStatus(ctx context.Context, jobID string) (*Snapshot, error) {
	for _, job := range r.store.jobs {
		if job.JobID == jobID {
			return &Snapshot{
				JobID:        job.JobID,
				Status:       job.Status,
				ErrorMessage: job.ErrorMessage.String,
			}, nil
		}
	}
	return nil, domain.ErrJobNotFound
}

func TestNewPollerDefaultsBadPolicy(t *testing.T) {
	p := NewPoller(&scriptedReader{script: []Snapshot{{Status: domain.JobStatusCompleted}}}, RetryPolicy{}, slog.Default())
	assert.Equal(t, DefaultRetryPolicy(), p.policy)
}
