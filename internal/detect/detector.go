package detect

import (
	"context"
	"mirrord/internal/logger"
	"mirrord/internal/model"
	"os"
	"time"

	"go.uber.org/zap"
)

// Detector decides when a freshly created file has stopped growing. A single
// openability check is not enough: chunked writers leave the file readable
// between chunks, so only an unchanged size across two consecutive polls
// counts as stable.
type Detector struct {
	pollInterval time.Duration
	maxWait      time.Duration

	// Overridable for tests with simulated size sequences.
	sizeFn  func(path string) (int64, error)
	sleepFn func(ctx context.Context, d time.Duration) error
	nowFn   func() time.Time
}

func New(pollInterval, maxWait time.Duration) *Detector {
	return &Detector{
		pollInterval: pollInterval,
		maxWait:      maxWait,
		sizeFn:       probeSize,
		sleepFn:      sleep,
		nowFn:        time.Now,
	}
}

// AwaitStable polls path until its size is unchanged across two consecutive
// polls, or maxWait has elapsed. A file that cannot be opened for reading
// (writer still holds it) counts as still changing, and that time counts
// against maxWait too.
func (d *Detector) AwaitStable(ctx context.Context, path string) model.CompletionResult {
	start := d.nowFn()

	size, err := d.sizeFn(path)
	haveBaseline := err == nil
	if err != nil {
		logger.Log.Debug("file not yet readable",
			zap.String("path", path),
			zap.Error(err))
	}

	for {
		if err := d.sleepFn(ctx, d.pollInterval); err != nil {
			logger.Log.Debug("stability wait abandoned",
				zap.String("path", path),
				zap.Error(err))
			return model.CompletionTimedOut
		}

		if d.nowFn().Sub(start) >= d.maxWait {
			return model.CompletionTimedOut
		}

		newSize, err := d.sizeFn(path)
		if err != nil {
			logger.Log.Debug("file not yet readable",
				zap.String("path", path),
				zap.Error(err))
			haveBaseline = false
			continue
		}

		if haveBaseline && newSize == size {
			return model.CompletionStable
		}

		size = newSize
		haveBaseline = true
	}
}

// probeSize opens the file for reading before taking its size, so a writer
// holding an exclusive lock shows up as an error rather than a stale size.
func probeSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
