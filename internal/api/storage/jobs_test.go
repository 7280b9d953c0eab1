package storage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/stretchr/testify/assert"
)

// The transition guard rejects illegal edges before any SQL runs, so
// these cases need no database.
func TestTransitionJobRejectsIllegalEdges(t *testing.T) {
	s := &Storage{logger: slog.Default()}

	tests := []struct {
		name string
		from domain.JobStatus
		to   domain.JobStatus
	}{
		{"terminal completed is immutable", domain.JobStatusCompleted, domain.JobStatusFailed},
		{"terminal failed is immutable", domain.JobStatusFailed, domain.JobStatusCompleted},
		{"queued cannot complete without claim", domain.JobStatusQueued, domain.JobStatusCompleted},
		{"processing cannot revert to queued", domain.JobStatusProcessing, domain.JobStatusQueued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.TransitionJob(context.Background(), "job-1", tt.from, tt.to, TransitionFields{})
			assert.ErrorIs(t, err, domain.ErrIllegalTransition)
		})
	}
}
