package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/model"
	"github.com/crosslist/crosslist-be/internal/api/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore is an in-memory JobStore for handler tests.
type fakeStore struct {
	jobs map[string]*model.Job

	claimQueue []*model.Job
	claimErr   error

	transitions      []transitionCall
	transitionErr    error
	touched          []string
	platformListings []*model.PlatformListing
	deletedListings  [][2]string
	heartbeats       []heartbeatCall
	listed           []model.Job
}

type transitionCall struct {
	jobID  string
	from   domain.JobStatus
	to     domain.JobStatus
	fields storage.TransitionFields
}

type heartbeatCall struct {
	userID    string
	connected bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[string]*model.Job{}}
}

func (f *fakeStore) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeStore) ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error) {
	return f.listed, nil
}

func (f *fakeStore) ClaimOldestQueued(ctx context.Context, userID string) (*model.Job, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.claimQueue) == 0 {
		return nil, domain.ErrNoQueuedJob
	}
	job := f.claimQueue[0]
	f.claimQueue = f.claimQueue[1:]
	job.Status = domain.JobStatusProcessing
	return job, nil
}

func (f *fakeStore) TransitionJob(ctx context.Context, jobID string, from, to domain.JobStatus, fields storage.TransitionFields) error {
	if f.transitionErr != nil {
		return f.transitionErr
	}
	f.transitions = append(f.transitions, transitionCall{jobID, from, to, fields})
	if job, ok := f.jobs[jobID]; ok {
		job.Status = to
	}
	return nil
}

func (f *fakeStore) TouchJob(ctx context.Context, jobID string) error {
	f.touched = append(f.touched, jobID)
	return nil
}

func (f *fakeStore) UpsertPlatformListing(ctx context.Context, pl *model.PlatformListing) error {
	f.platformListings = append(f.platformListings, pl)
	return nil
}

func (f *fakeStore) DeletePlatformListing(ctx context.Context, listingID, platform string) error {
	f.deletedListings = append(f.deletedListings, [2]string{listingID, platform})
	return nil
}

func (f *fakeStore) UpsertHeartbeat(ctx context.Context, userID string, connected bool) error {
	f.heartbeats = append(f.heartbeats, heartbeatCall{userID, connected})
	return nil
}

// fakeDispatcher scripts the dispatcher's answer.
type fakeDispatcher struct {
	job *model.Job
	err error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, userID, listingID, platform string) (*model.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func testDeps(store *fakeStore, dispatcher JobDispatcher) *Dependencies {
	return &Dependencies{
		Logger:     slog.Default(),
		Store:      store,
		Dispatcher: dispatcher,
	}
}

func doJSON(t *testing.T, h gin.HandlerFunc, method, path string, body interface{}, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params

	h(c)
	c.Writer.WriteHeaderNow()
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}
