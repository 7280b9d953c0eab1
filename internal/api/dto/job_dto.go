package dto

type DispatchJobRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ListingID string `json:"listing_id" binding:"required"`
	Platform  string `json:"platform" binding:"required"`
}

type DispatchJobResponse struct {
	JobID string `json:"job_id"`
}

// ErrorResponse is the shared error payload. RequiresReconnect tells the
// client to walk the user through reconnecting the extension or the
// marketplace account before retrying.
type ErrorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message,omitempty"`
	RequiresReconnect bool   `json:"requires_reconnect,omitempty"`
}

type JobStatusResponse struct {
	JobID             string `json:"job_id"`
	Status            string `json:"status"`
	ErrorMessage      string `json:"error_message,omitempty"`
	PlatformListingID string `json:"platform_listing_id,omitempty"`
	PlatformURL       string `json:"platform_url,omitempty"`
}

type ListJobsRequest struct {
	UserID   string `form:"user_id"`
	Platform string `form:"platform"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID        string `json:"job_id"`
	UserID       string `json:"user_id"`
	ListingID    string `json:"listing_id"`
	Platform     string `json:"platform"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
}
