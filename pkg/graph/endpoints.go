package graph

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultEndpoint is the versioned Graph API base
	DefaultEndpoint = "https://graph.facebook.com/v20.0"

	// StatusFields is the field selector for container status queries
	StatusFields = "status_code"
)

// MediaURL is the container creation endpoint for an account
func MediaURL(endpoint, accountID string) string {
	return fmt.Sprintf("%s/%s/media", trimEndpoint(endpoint), url.PathEscape(accountID))
}

// MediaPublishURL is the publish endpoint for an account
func MediaPublishURL(endpoint, accountID string) string {
	return fmt.Sprintf("%s/%s/media_publish", trimEndpoint(endpoint), url.PathEscape(accountID))
}

// ContainerStatusURL is the status query for a container handle
func ContainerStatusURL(endpoint, handle, accessToken string) string {
	params := url.Values{}
	params.Set("fields", StatusFields)
	params.Set("access_token", accessToken)

	return fmt.Sprintf("%s/%s?%s", trimEndpoint(endpoint), url.PathEscape(handle), params.Encode())
}

func trimEndpoint(endpoint string) string {
	return strings.TrimRight(endpoint, "/")
}

// redactURL drops the access token from a URL before it is logged
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	if q.Get("access_token") == "" {
		return u.String()
	}
	q.Set("access_token", "REDACTED")
	redacted := *u
	redacted.RawQuery = q.Encode()
	return redacted.String()
}
