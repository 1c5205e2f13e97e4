package publisher

import (
	"time"

	"igpublisher/pkg/models"
)

// Stage is a step of a publish attempt
type Stage string

const (
	StageResolving  Stage = "resolving"
	StageCreating   Stage = "creating"
	StagePolling    Stage = "polling"
	StagePublishing Stage = "publishing"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Event reports progress of a publish attempt
type Event struct {
	Stage       Stage
	ContainerID string
	Poll        int
	Status      models.ContainerStatus
	MediaID     string
	Err         error
	Elapsed     time.Duration
}

// Observer receives events synchronously on the publishing goroutine
type Observer func(Event)

// Terminal reports whether no further events follow
func (e Event) Terminal() bool {
	return e.Stage == StageDone || e.Stage == StageFailed
}
