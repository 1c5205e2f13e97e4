package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"igpublisher/pkg/publisher"
)

// ProgressPrinter writes one line per publish stage, for terminals where
// the interactive view is off
type ProgressPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewProgressPrinter creates a printer writing to out
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	return &ProgressPrinter{out: out}
}

// Observe renders e. It has the publisher.Observer signature.
func (p *ProgressPrinter) Observe(e publisher.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := Dim(fmt.Sprintf("[%6s]", e.Elapsed.Truncate(100*time.Millisecond)))

	switch e.Stage {
	case publisher.StageResolving:
		fmt.Fprintf(p.out, "%s %s resolving credentials\n", elapsed, Magenta("[AUTH]"))
	case publisher.StageCreating:
		fmt.Fprintf(p.out, "%s %s creating media container\n", elapsed, Magenta("[CREATE]"))
	case publisher.StagePolling:
		fmt.Fprintf(p.out, "%s %s container %s poll #%d: %s\n",
			elapsed, Cyan("[POLL]"), e.ContainerID, e.Poll, Yellow(string(e.Status)))
	case publisher.StagePublishing:
		fmt.Fprintf(p.out, "%s %s publishing container %s\n", elapsed, Magenta("[PUBLISH]"), e.ContainerID)
	case publisher.StageDone:
		fmt.Fprintf(p.out, "%s %s media id %s\n", elapsed, Green("[DONE]"), e.MediaID)
	case publisher.StageFailed:
		fmt.Fprintf(p.out, "%s %s %v\n", elapsed, Red("[FAILED]"), e.Err)
	}
}
