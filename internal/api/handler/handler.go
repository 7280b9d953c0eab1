package handler

import (
	"context"
	"log/slog"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/model"
	"github.com/crosslist/crosslist-be/internal/api/storage"
	"github.com/crosslist/crosslist-be/internal/dispatch"
)

// JobStore is the storage surface the handlers use.
type JobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error)
	ClaimOldestQueued(ctx context.Context, userID string) (*model.Job, error)
	TransitionJob(ctx context.Context, jobID string, from, to domain.JobStatus, fields storage.TransitionFields) error
	TouchJob(ctx context.Context, jobID string) error
	UpsertPlatformListing(ctx context.Context, pl *model.PlatformListing) error
	DeletePlatformListing(ctx context.Context, listingID, platform string) error
	UpsertHeartbeat(ctx context.Context, userID string, connected bool) error
}

// JobDispatcher creates jobs behind the precondition gate.
type JobDispatcher interface {
	Dispatch(ctx context.Context, userID, listingID, platform string) (*model.Job, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	Store      JobStore
	Dispatcher JobDispatcher
	Events     dispatch.EventPublisher
}

// JobHandler handles caller-facing job requests
type JobHandler struct {
	logger     *slog.Logger
	store      JobStore
	dispatcher JobDispatcher
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:     deps.Logger,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
	}
}

// WorkerHandler handles the extension-facing claim/report/heartbeat protocol
type WorkerHandler struct {
	logger *slog.Logger
	store  JobStore
	events dispatch.EventPublisher
}

// NewWorkerHandler creates a new WorkerHandler instance
func NewWorkerHandler(deps *Dependencies) *WorkerHandler {
	return &WorkerHandler{
		logger: deps.Logger,
		store:  deps.Store,
		events: deps.Events,
	}
}
