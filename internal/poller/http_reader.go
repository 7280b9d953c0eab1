package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/crosslist/crosslist-be/internal/api/domain"
	"github.com/crosslist/crosslist-be/internal/api/dto"
)

// HTTPStatusReader reads job status from the API's status endpoint.
type HTTPStatusReader struct {
	baseURL string
	client  *http.Client
}

func NewHTTPStatusReader(baseURL string) *HTTPStatusReader {
	return &HTTPStatusReader{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *HTTPStatusReader) ReadStatus(ctx context.Context, jobID string) (*Snapshot, error) {
	url := fmt.Sprintf("%s/api/v1/jobs/%s", r.baseURL, jobID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to read job status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrJobNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var body dto.JobStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &Snapshot{
		JobID:        body.JobID,
		Status:       domain.JobStatus(body.Status),
		ErrorMessage: body.ErrorMessage,
	}, nil
}
