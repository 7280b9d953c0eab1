package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrListingNotFound is returned when the listing does not exist or is deleted
	ErrListingNotFound = errors.New("listing not found")

	// ErrNotListingOwner is returned when the listing belongs to another user
	ErrNotListingOwner = errors.New("listing does not belong to user")

	// ErrDuplicateListing is returned when an active job or platform listing
	// already exists for the same (listing, platform) pair
	ErrDuplicateListing = errors.New("listing already posted or posting in progress on this platform")

	// ErrWorkerOffline is returned when the extension has no fresh heartbeat
	ErrWorkerOffline = errors.New("extension not connected")

	// ErrCredentialStale is returned when the stored marketplace credential
	// is missing or older than the staleness threshold
	ErrCredentialStale = errors.New("marketplace credentials missing or stale, reconnect required")

	// ErrIllegalTransition is returned when a status write would violate the
	// state machine, including any write against an already-terminal job
	ErrIllegalTransition = errors.New("illegal job status transition")

	// ErrNoQueuedJob is returned by claim when the user has nothing queued
	ErrNoQueuedJob = errors.New("no queued job")

	// ErrVerificationRetryExhausted is returned by the poller when the
	// single automatic post-verification retry also ends in verification
	ErrVerificationRetryExhausted = errors.New("verification still required after retry")
)
