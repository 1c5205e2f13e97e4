package graph

// idResponse is returned by both /media and /media_publish
type idResponse struct {
	ID string `json:"id"`
}

// statusResponse is returned by the container status query
type statusResponse struct {
	StatusCode string `json:"status_code"`
}

// errorResponse is the Graph API error envelope
type errorResponse struct {
	Error *APIError `json:"error"`
}

// APIError is the error object the Graph API returns on failure
type APIError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	Subcode   int    `json:"error_subcode"`
	FBTraceID string `json:"fbtrace_id"`
}

// Operation names used in logs and metrics
const (
	OpCreateContainer = "create_container"
	OpContainerStatus = "container_status"
	OpPublish         = "publish"
)

// Fallback messages when the Graph API gives no error.message
const (
	MsgCreateFailed  = "Failed to create media container"
	MsgStatusFailed  = "Failed to query container status"
	MsgPublishFailed = "Failed to publish media"
	MsgNoCreationID  = "No creation_id returned from Graph API"
	MsgNoMediaID     = "No media id returned from publish"
)
