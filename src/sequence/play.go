package sequence

import (
	"context"
	"log"
	"time"

	"github.com/jinjor/fm-synth/src/synth"
)

// Sender accepts messages while something else renders.
type Sender interface {
	SendMessage(m synth.Message) error
}

// Play sends every event when its time comes, measured from the call.
// It returns early with the context error when ctx is done.
func Play(ctx context.Context, s Sender, seq Sequence, progress Progress) error {
	tracker := newProgressTracker(seq.Duration(), progress)
	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C
	for _, e := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		if wait := e.At - time.Since(start); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				log.Println("Play() interrupted.")
				return ctx.Err()
			case <-timer.C:
			}
		}
		tracker.update(e.At)
		if err := s.SendMessage(e.Message); err != nil {
			log.Printf("ignored %v: %v\n", e.Message, err)
		}
	}
	tracker.update(seq.Duration())
	return nil
}
