package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertHeartbeat records an extension check-in for the user.
func (s *Storage) UpsertHeartbeat(ctx context.Context, userID string, connected bool) error {
	query := `
		INSERT INTO worker_liveness (user_id, connected, last_seen)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET connected = EXCLUDED.connected,
		    last_seen = NOW()
	`

	_, err := s.db.ExecContext(ctx, query, userID, connected)
	if err != nil {
		return fmt.Errorf("failed to upsert heartbeat: %w", err)
	}

	return nil
}

// IsWorkerLive reports whether the user's extension is reachable:
// connected, with a heartbeat inside the freshness window. A user with
// no liveness row is simply offline.
func (s *Storage) IsWorkerLive(ctx context.Context, userID string) (bool, error) {
	var live bool
	query := `
		SELECT connected AND last_seen > NOW() - make_interval(secs => $2)
		FROM worker_liveness
		WHERE user_id = $1
	`

	err := s.db.GetContext(ctx, &live, query, userID, WorkerFreshnessWindow.Seconds())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check worker liveness: %w", err)
	}

	return live, nil
}

// HasFreshCredential reports whether the user holds a stored credential
// for the platform newer than CredentialMaxAge.
func (s *Storage) HasFreshCredential(ctx context.Context, userID, platform string) (bool, error) {
	var fresh bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM credentials
			WHERE user_id = $1
			  AND platform = $2
			  AND updated_at > NOW() - make_interval(secs => $3)
		)
	`

	err := s.db.GetContext(ctx, &fresh, query, userID, platform, CredentialMaxAge.Seconds())
	if err != nil {
		return false, fmt.Errorf("failed to check credential: %w", err)
	}

	return fresh, nil
}
