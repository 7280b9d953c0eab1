package model

import (
	"database/sql"
	"time"

	"github.com/crosslist/crosslist-be/internal/api/domain"
)

// Job is one attempt to post one listing to one platform.
type Job struct {
	JobID             string           `db:"job_id"`
	UserID            string           `db:"user_id"`
	ListingID         string           `db:"listing_id"`
	Platform          string           `db:"platform"`
	Status            domain.JobStatus `db:"status"`
	ErrorMessage      sql.NullString   `db:"error_message"`
	PlatformListingID sql.NullString   `db:"platform_listing_id"`
	PlatformURL       sql.NullString   `db:"platform_url"`
	CreatedAt         time.Time        `db:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at"`
	CompletedAt       sql.NullTime     `db:"completed_at"`
}

// PlatformListing records that a listing is live on a platform. Created
// when a job completes, deleted on delist; lifecycle independent of Job.
type PlatformListing struct {
	ListingID         string    `db:"listing_id"`
	Platform          string    `db:"platform"`
	PlatformListingID string    `db:"platform_listing_id"`
	PlatformURL       string    `db:"platform_url"`
	ListedAt          time.Time `db:"listed_at"`
}

// WorkerLiveness is the per-user heartbeat record for the extension.
type WorkerLiveness struct {
	UserID    string    `db:"user_id"`
	Connected bool      `db:"connected"`
	LastSeen  time.Time `db:"last_seen"`
}

// Listing is the slice of the listing record the dispatcher needs.
type Listing struct {
	ListingID string       `db:"listing_id"`
	UserID    string       `db:"user_id"`
	Title     string       `db:"title"`
	DeletedAt sql.NullTime `db:"deleted_at"`
}

// Credential is a stored marketplace credential for platforms that need
// one (as opposed to session-based browser automation).
type Credential struct {
	UserID    string    `db:"user_id"`
	Platform  string    `db:"platform"`
	UpdatedAt time.Time `db:"updated_at"`
}
