package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/model"
)

// GetListing retrieves a listing by id. Soft-deleted listings count as
// not found.
func (s *Storage) GetListing(ctx context.Context, listingID string) (*model.Listing, error) {
	var listing model.Listing
	query := `
		SELECT listing_id, user_id, title, deleted_at
		FROM listings
		WHERE listing_id = $1 AND deleted_at IS NULL
	`

	err := s.db.GetContext(ctx, &listing, query, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return &listing, nil
}

// HasPlatformListing reports whether the listing is already live on the
// platform.
func (s *Storage) HasPlatformListing(ctx context.Context, listingID, platform string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM platform_listings
			WHERE listing_id = $1 AND platform = $2
		)
	`

	err := s.db.GetContext(ctx, &exists, query, listingID, platform)
	if err != nil {
		return false, fmt.Errorf("failed to check platform listing: %w", err)
	}

	return exists, nil
}

// UpsertPlatformListing records that a listing went live on a platform.
// A repeat upsert for the same pair overwrites the marketplace ids,
// which keeps duplicate SUCCESS reports harmless.
func (s *Storage) UpsertPlatformListing(ctx context.Context, pl *model.PlatformListing) error {
	query := `
		INSERT INTO platform_listings (
			listing_id, platform, platform_listing_id, platform_url, listed_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (listing_id, platform) DO UPDATE
		SET platform_listing_id = EXCLUDED.platform_listing_id,
		    platform_url = EXCLUDED.platform_url,
		    listed_at = EXCLUDED.listed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		pl.ListingID, pl.Platform, pl.PlatformListingID, pl.PlatformURL, pl.ListedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert platform listing: %w", err)
	}

	s.logger.Info("Platform listing recorded",
		slog.String("listing_id", pl.ListingID),
		slog.String("platform", pl.Platform),
		slog.String("platform_listing_id", pl.PlatformListingID),
	)

	return nil
}

// DeletePlatformListing removes the live record on delist, freeing the
// (listing, platform) pair for re-dispatch.
func (s *Storage) DeletePlatformListing(ctx context.Context, listingID, platform string) error {
	query := `
		DELETE FROM platform_listings
		WHERE listing_id = $1 AND platform = $2
	`

	_, err := s.db.ExecContext(ctx, query, listingID, platform)
	if err != nil {
		return fmt.Errorf("failed to delete platform listing: %w", err)
	}

	return nil
}
