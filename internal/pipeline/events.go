package pipeline

import (
	"context"

	"snaplens/pkg/models"
)

// CaptureSource identifies where a capture event came from.
type CaptureSource string

const (
	SourceCamera  CaptureSource = "camera"
	SourceLibrary CaptureSource = "library"
)

// CaptureEvent is a "photo taken" or "image picked" event from the capture
// collaborator. Each event triggers exactly one pipeline run.
type CaptureEvent struct {
	Asset  *models.ImageAsset
	Source CaptureSource
}

// Start launches a single-consumer loop that drains capture events and runs
// the pipeline once per event. Runs are strictly sequential; the channel's
// one-slot buffer queues at most one capture behind the in-flight run. The
// loop exits when the context is canceled or the channel is closed.
func (o *Orchestrator) Start(ctx context.Context) chan<- CaptureEvent {
	events := make(chan CaptureEvent, 1)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Asset == nil {
					continue
				}

				log := o.log.With().Str("capture_source", string(ev.Source)).Logger()
				if _, err := o.Run(ctx, ev.Asset); err != nil {
					// Stage failures were already notified; the loop keeps
					// consuming so the next capture starts a fresh run.
					log.Warn().Err(err).Msg("capture run failed")
				}
			}
		}
	}()

	return events
}
