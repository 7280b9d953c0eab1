package handler

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/dto"
	"github.com/crosslist/crosslist-be/internal/api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processingJob(jobID string) *model.Job {
	return &model.Job{
		JobID:     jobID,
		UserID:    "user-1",
		ListingID: "listing-1",
		Platform:  "poshmark",
		Status:    domain.JobStatusProcessing,
	}
}

func TestClaimReturnsNullWhenQueueEmpty(t *testing.T) {
	store := newFakeStore()
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Claim, http.MethodPost, "/api/v1/worker/claim",
		dto.ClaimJobRequest{UserID: "user-1"}, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ClaimJobResponse
	decodeBody(t, w, &resp)
	assert.Nil(t, resp.Job)

	// A claim counts as a heartbeat even when nothing is queued.
	require.Len(t, store.heartbeats, 1)
	assert.Equal(t, heartbeatCall{"user-1", true}, store.heartbeats[0])
}

func TestClaimHandsOutOldestQueuedJob(t *testing.T) {
	store := newFakeStore()
	store.claimQueue = []*model.Job{
		{JobID: "job-1", UserID: "user-1", ListingID: "listing-1", Platform: "poshmark", Status: domain.JobStatusQueued},
	}
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Claim, http.MethodPost, "/api/v1/worker/claim",
		dto.ClaimJobRequest{UserID: "user-1"}, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ClaimJobResponse
	decodeBody(t, w, &resp)
	require.NotNil(t, resp.Job)
	assert.Equal(t, "job-1", resp.Job.JobID)
	assert.Equal(t, "listing-1", resp.Job.ListingID)
	assert.Equal(t, "poshmark", resp.Job.Platform)
}

func TestReportSuccessCompletesJobAndRecordsPlatformListing(t *testing.T) {
	store := newFakeStore()
	store.jobs["job-1"] = processingJob("job-1")
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Report, http.MethodPost, "/api/v1/worker/report", dto.ReportJobRequest{
		JobID:             "job-1",
		Outcome:           "SUCCESS",
		PlatformListingID: "X123",
		PlatformURL:       "http://poshmark.example/items/X123",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, store.transitions, 1)
	tr := store.transitions[0]
	assert.Equal(t, domain.JobStatusProcessing, tr.from)
	assert.Equal(t, domain.JobStatusCompleted, tr.to)
	assert.Equal(t, "X123", tr.fields.PlatformListingID)

	require.Len(t, store.platformListings, 1)
	pl := store.platformListings[0]
	assert.Equal(t, "listing-1", pl.ListingID)
	assert.Equal(t, "poshmark", pl.Platform)
	assert.Equal(t, "X123", pl.PlatformListingID)
}

func TestReportErrorFailsJobWithVerbatimMessage(t *testing.T) {
	store := newFakeStore()
	store.jobs["job-1"] = processingJob("job-1")
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Report, http.MethodPost, "/api/v1/worker/report", dto.ReportJobRequest{
		JobID:   "job-1",
		Outcome: "ERROR",
		Message: "login required",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, store.transitions, 1)
	tr := store.transitions[0]
	assert.Equal(t, domain.JobStatusFailed, tr.to)
	assert.Equal(t, "login required", tr.fields.ErrorMessage)
	assert.Empty(t, store.platformListings)
}

func TestReportVerificationRequiredPausesJob(t *testing.T) {
	store := newFakeStore()
	store.jobs["job-1"] = processingJob("job-1")
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Report, http.MethodPost, "/api/v1/worker/report", dto.ReportJobRequest{
		JobID:   "job-1",
		Outcome: "VERIFICATION_REQUIRED",
		Message: "complete the verification step in your marketplace account",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, store.transitions, 1)
	tr := store.transitions[0]
	assert.Equal(t, domain.JobStatusPendingVerification, tr.to)
	assert.Equal(t, "complete the verification step in your marketplace account", tr.fields.ErrorMessage)
}

func TestReportIsIdempotentForTerminalJob(t *testing.T) {
	store := newFakeStore()
	job := processingJob("job-1")
	job.Status = domain.JobStatusCompleted
	job.CompletedAt = sql.NullTime{Valid: true}
	store.jobs["job-1"] = job
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Report, http.MethodPost, "/api/v1/worker/report", dto.ReportJobRequest{
		JobID:   "job-1",
		Outcome: "ERROR",
		Message: "late failure from a confused extension",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ReportJobResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.Acknowledged)
	assert.True(t, resp.Ignored)

	assert.Empty(t, store.transitions, "a duplicate report must not touch a terminal job")
	assert.Equal(t, domain.JobStatusCompleted, store.jobs["job-1"].Status)
}

func TestReportLosingTransitionRaceIsIgnored(t *testing.T) {
	store := newFakeStore()
	store.jobs["job-1"] = processingJob("job-1")
	store.transitionErr = domain.ErrIllegalTransition
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Report, http.MethodPost, "/api/v1/worker/report", dto.ReportJobRequest{
		JobID:   "job-1",
		Outcome: "ERROR",
		Message: "second report in a race",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ReportJobResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.Ignored)
}

func TestReportProgressOnlyTouchesJob(t *testing.T) {
	store := newFakeStore()
	store.jobs["job-1"] = processingJob("job-1")
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Report, http.MethodPost, "/api/v1/worker/report", dto.ReportJobRequest{
		JobID:   "job-1",
		Outcome: "PROGRESS",
		Message: "filling item form",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"job-1"}, store.touched)
	assert.Empty(t, store.transitions)
}

func TestReportSuccessForUnclaimedJobIsRejected(t *testing.T) {
	store := newFakeStore()
	job := processingJob("job-1")
	job.Status = domain.JobStatusQueued
	store.jobs["job-1"] = job
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Report, http.MethodPost, "/api/v1/worker/report", dto.ReportJobRequest{
		JobID:   "job-1",
		Outcome: "SUCCESS",
	}, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, store.transitions)
}

func TestReportUnknownJob(t *testing.T) {
	store := newFakeStore()
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Report, http.MethodPost, "/api/v1/worker/report", dto.ReportJobRequest{
		JobID:   "nope",
		Outcome: "SUCCESS",
	}, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportInvalidOutcome(t *testing.T) {
	store := newFakeStore()
	h := NewWorkerHandler(testDeps(store, nil))

	w := doJSON(t, h.Report, http.MethodPost, "/api/v1/worker/report", dto.ReportJobRequest{
		JobID:   "job-1",
		Outcome: "DONE",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHeartbeatUpsertsLiveness(t *testing.T) {
	store := newFakeStore()
	h := NewWorkerHandler(testDeps(store, nil))

	connected := true
	w := doJSON(t, h.Heartbeat, http.MethodPost, "/api/v1/worker/heartbeat",
		dto.HeartbeatRequest{UserID: "user-1", Connected: &connected}, nil)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, store.heartbeats, 1)
	assert.Equal(t, heartbeatCall{"user-1", true}, store.heartbeats[0])
}
