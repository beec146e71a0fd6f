package pipeline

import (
	"mirrord/internal/model"
	"time"
)

// Dedupe drops creation events for a path reported again within window.
// The notification source and the rescan fallback can both report the same
// creation; the executor's exists-check stays the correctness backstop.
func Dedupe(inCh <-chan model.CreationEvent, window time.Duration) <-chan model.CreationEvent {
	outCh := make(chan model.CreationEvent, cap(inCh))

	go func() {
		defer close(outCh)

		lastEmit := make(map[string]time.Time)

		for event := range inCh {
			now := time.Now()

			if last, ok := lastEmit[event.Path]; ok && now.Sub(last) < window {
				continue
			}

			lastEmit[event.Path] = now
			outCh <- event

			if len(lastEmit) > 4096 {
				for path, t := range lastEmit {
					if now.Sub(t) >= window {
						delete(lastEmit, path)
					}
				}
			}
		}
	}()

	return outCh
}
