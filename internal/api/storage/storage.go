package storage

import (
	"log/slog"
	"time"

	"github.com/crosslist/crosslist-be/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

const (
	// WorkerFreshnessWindow is how recent a heartbeat must be for the
	// extension to count as reachable. One canonical value for every
	// call site.
	WorkerFreshnessWindow = 3 * time.Minute

	// CredentialMaxAge is the staleness threshold for stored marketplace
	// credentials checked at dispatch.
	CredentialMaxAge = 24 * time.Hour
)

// Storage handles all database access for the cross-listing service.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		logger: logger,
	}
}
