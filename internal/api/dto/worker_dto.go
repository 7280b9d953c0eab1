package dto

type ClaimJobRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ClaimJobResponse carries the claimed job, or a null job when the queue
// is empty. The extension keys its automation off Platform and ListingID.
type ClaimJobResponse struct {
	Job *ClaimedJobDTO `json:"job"`
}

type ClaimedJobDTO struct {
	JobID     string `json:"job_id"`
	ListingID string `json:"listing_id"`
	Platform  string `json:"platform"`
}

type ReportJobRequest struct {
	JobID             string `json:"job_id" binding:"required"`
	Outcome           string `json:"outcome" binding:"required"`
	PlatformListingID string `json:"platform_listing_id"`
	PlatformURL       string `json:"platform_url"`
	Message           string `json:"message"`
}

type ReportJobResponse struct {
	Acknowledged bool `json:"acknowledged"`
	Ignored      bool `json:"ignored,omitempty"`
}

type HeartbeatRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	Connected *bool  `json:"connected" binding:"required"`
}
