package models

import (
	"net/url"
	"strings"
	"time"

	errs "igpublisher/pkg/errors"
)

// Credentials identify the Instagram account a post is published to
type Credentials struct {
	AccountID   string
	AccessToken string
}

// ContainerStatus is the processing state of a media container
type ContainerStatus string

const (
	StatusInProgress ContainerStatus = "IN_PROGRESS"
	StatusFinished   ContainerStatus = "FINISHED"
	StatusError      ContainerStatus = "ERROR"
)

// ParseContainerStatus normalizes a raw status_code value. Anything that is
// not FINISHED or ERROR counts as still in progress.
func ParseContainerStatus(raw string) ContainerStatus {
	switch ContainerStatus(raw) {
	case StatusFinished:
		return StatusFinished
	case StatusError:
		return StatusError
	default:
		return StatusInProgress
	}
}

// PublishRequest is a single image to publish
type PublishRequest struct {
	ImageURL string `json:"imageUrl"`
	Caption  string `json:"caption,omitempty"`
}

// NewPublishRequest validates the image URL and normalizes the caption
func NewPublishRequest(imageURL, caption string) (PublishRequest, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return PublishRequest{}, errs.Validation("imageUrl is required")
	}
	if !IsValidImageURL(imageURL) {
		return PublishRequest{}, errs.Validation("imageUrl must be a valid http(s) URL")
	}
	return PublishRequest{
		ImageURL: imageURL,
		Caption:  strings.TrimSpace(caption),
	}, nil
}

// HasCaption reports whether a non-blank caption was supplied
func (r PublishRequest) HasCaption() bool {
	return strings.TrimSpace(r.Caption) != ""
}

// IsValidImageURL checks for an absolute http or https URL with a host
func IsValidImageURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// PublishResult describes a successfully published post
type PublishResult struct {
	MediaID     string        `json:"mediaId"`
	ContainerID string        `json:"containerId"`
	Polls       int           `json:"polls"`
	Duration    time.Duration `json:"duration"`
}
