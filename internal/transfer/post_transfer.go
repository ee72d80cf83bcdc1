package transfer

import "github.com/sahilm27/linklater/internal/models"

// PostCreation carries the multipart form fields of a create-post request.
type PostCreation struct {
	Body         string
	Visibility   string
	Status       string
	ScheduledFor string
	IsRepost     bool
	RepostOfURN  string
}

// DispatchStatusResponse is the operator-facing status payload.
type DispatchStatusResponse struct {
	Stats         *models.DispatchStats  `json:"stats"`
	RecentRuns    []*models.DispatchRun  `json:"recent_runs"`
	UpcomingPosts []*models.UpcomingSlot `json:"upcoming_posts"`
}
