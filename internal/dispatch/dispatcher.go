package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/model"
	"github.com/google/uuid"
)

// credentialPlatforms are the marketplaces posted through stored API
// credentials rather than the extension's browser session. Dispatch to
// these additionally requires a credential fresher than the staleness
// threshold.
var credentialPlatforms = map[string]bool{
	"etsy":    true,
	"shopify": true,
}

// PlatformRequiresCredential reports whether dispatch to the platform
// needs a stored credential on top of extension liveness.
func PlatformRequiresCredential(platform string) bool {
	return credentialPlatforms[platform]
}

// Store is the slice of storage the dispatcher needs.
type Store interface {
	GetListing(ctx context.Context, listingID string) (*model.Listing, error)
	HasPlatformListing(ctx context.Context, listingID, platform string) (bool, error)
	HasActiveJob(ctx context.Context, listingID, platform string) (bool, error)
	SupersedeVerificationJob(ctx context.Context, listingID, platform string) (bool, error)
	IsWorkerLive(ctx context.Context, userID string) (bool, error)
	HasFreshCredential(ctx context.Context, userID, platform string) (bool, error)
	CreateJob(ctx context.Context, job *model.Job) error
}

// EventPublisher publishes job lifecycle events. Failures are logged by
// the dispatcher, never surfaced to the caller.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, routingKey string, event interface{}) error
}

// Dispatcher gates and creates cross-listing jobs. It returns as soon as
// the job row exists; execution is the remote worker's business.
type Dispatcher struct {
	store  Store
	events EventPublisher
	logger *slog.Logger
}

func NewDispatcher(store Store, events EventPublisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		events: events,
		logger: logger,
	}
}

// JobEvent is the payload published on job lifecycle routing keys.
type JobEvent struct {
	JobID     string `json:"job_id"`
	UserID    string `json:"user_id"`
	ListingID string `json:"listing_id"`
	Platform  string `json:"platform"`
	Status    string `json:"status"`
}

// Dispatch verifies preconditions in order and creates exactly one
// QUEUED job. Any precondition failure aborts with no job created.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, listingID, platform string) (*model.Job, error) {
	listing, err := d.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.UserID != userID {
		return nil, domain.ErrNotListingOwner
	}

	live, err := d.store.HasPlatformListing(ctx, listingID, platform)
	if err != nil {
		return nil, err
	}
	if live {
		return nil, domain.ErrDuplicateListing
	}

	active, err := d.store.HasActiveJob(ctx, listingID, platform)
	if err != nil {
		return nil, err
	}
	if active {
		// A job paused on verification does not block re-dispatch: the
		// retry supersedes it. QUEUED and PROCESSING jobs still do.
		superseded, err := d.store.SupersedeVerificationJob(ctx, listingID, platform)
		if err != nil {
			return nil, err
		}
		if !superseded {
			return nil, domain.ErrDuplicateListing
		}

		d.logger.Info("Superseded verification job for retry",
			slog.String("listing_id", listingID),
			slog.String("platform", platform),
		)
	}

	workerLive, err := d.store.IsWorkerLive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !workerLive {
		return nil, domain.ErrWorkerOffline
	}

	if PlatformRequiresCredential(platform) {
		fresh, err := d.store.HasFreshCredential(ctx, userID, platform)
		if err != nil {
			return nil, err
		}
		if !fresh {
			return nil, domain.ErrCredentialStale
		}
	}

	now := time.Now()
	job := &model.Job{
		JobID:     uuid.New().String(),
		UserID:    userID,
		ListingID: listingID,
		Platform:  platform,
		Status:    domain.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The unique index still backstops the existence checks above: two
	// near-simultaneous dispatches both passing them resolve here, with
	// the loser getting ErrDuplicateListing.
	if err := d.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	d.logger.Info("Job dispatched",
		slog.String("job_id", job.JobID),
		slog.String("user_id", userID),
		slog.String("listing_id", listingID),
		slog.String("platform", platform),
	)

	d.publishEvent(ctx, "job.dispatched", job)

	return job, nil
}

func (d *Dispatcher) publishEvent(ctx context.Context, routingKey string, job *model.Job) {
	if d.events == nil {
		return
	}

	event := JobEvent{
		JobID:     job.JobID,
		UserID:    job.UserID,
		ListingID: job.ListingID,
		Platform:  job.Platform,
		Status:    string(job.Status),
	}

	if err := d.events.PublishJobEvent(ctx, routingKey, event); err != nil {
		d.logger.Warn("Failed to publish job event",
			slog.String("job_id", job.JobID),
			slog.String("routing_key", routingKey),
			slog.String("error", err.Error()),
		)
	}
}
