package detect

import (
	"context"
	"errors"
	"mirrord/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// simClock drives the detector through a scripted size sequence without real
// sleeping. Each poll advances the clock by the slept duration and consumes
// the next probe result.
type simClock struct {
	now    time.Time
	sizes  []int64
	errs   []error
	probes int
}

func newSim(d *Detector, sizes []int64, errs []error) *simClock {
	sim := &simClock{
		now:   time.Unix(0, 0),
		sizes: sizes,
		errs:  errs,
	}

	d.nowFn = func() time.Time { return sim.now }
	d.sleepFn = func(ctx context.Context, dur time.Duration) error {
		sim.now = sim.now.Add(dur)
		return nil
	}
	d.sizeFn = func(string) (int64, error) {
		i := sim.probes
		if i >= len(sim.sizes) {
			i = len(sim.sizes) - 1
		}
		sim.probes++
		if sim.errs != nil && i < len(sim.errs) && sim.errs[i] != nil {
			return 0, sim.errs[i]
		}
		return sim.sizes[i], nil
	}

	return sim
}

func (s *simClock) elapsed() time.Duration {
	return s.now.Sub(time.Unix(0, 0))
}

func TestAwaitStableUnchangedSize(t *testing.T) {
	d := New(time.Second, 5*time.Second)
	sim := newSim(d, []int64{10, 10}, nil)

	got := d.AwaitStable(context.Background(), "file")

	assert.Equal(t, model.CompletionStable, got)
	assert.Equal(t, time.Second, sim.elapsed())
}

func TestAwaitStableGrowingFileTimesOut(t *testing.T) {
	d := New(time.Second, 5*time.Second)
	sim := newSim(d, []int64{10, 20, 30, 40, 50, 60, 70, 80}, nil)

	got := d.AwaitStable(context.Background(), "file")

	assert.Equal(t, model.CompletionTimedOut, got)
	// Timed out at ~maxWait, not earlier and at most one poll interval later.
	assert.GreaterOrEqual(t, sim.elapsed(), 5*time.Second)
	assert.LessOrEqual(t, sim.elapsed(), 6*time.Second)
}

func TestAwaitStableStabilizesAfterGrowth(t *testing.T) {
	d := New(time.Second, 10*time.Second)
	sim := newSim(d, []int64{10, 20, 30, 30}, nil)

	got := d.AwaitStable(context.Background(), "file")

	assert.Equal(t, model.CompletionStable, got)
	assert.Equal(t, 3*time.Second, sim.elapsed())
}

func TestAwaitStableLockedFileRetries(t *testing.T) {
	d := New(time.Second, 10*time.Second)
	locked := errors.New("permission denied")
	sim := newSim(d, []int64{0, 0, 40, 40}, []error{locked, locked, nil, nil})

	got := d.AwaitStable(context.Background(), "file")

	assert.Equal(t, model.CompletionStable, got)
	assert.Equal(t, 3*time.Second, sim.elapsed())
}

func TestAwaitStableAlwaysLockedTimesOut(t *testing.T) {
	d := New(time.Second, 3*time.Second)
	locked := errors.New("permission denied")
	sim := newSim(d, []int64{0}, []error{locked})

	got := d.AwaitStable(context.Background(), "file")

	assert.Equal(t, model.CompletionTimedOut, got)
	assert.Equal(t, 3*time.Second, sim.elapsed())
}

// A single matching size is not enough after an unreadable poll; the baseline
// resets, so stability needs two consecutive readable polls.
func TestAwaitStableBaselineResetsAfterError(t *testing.T) {
	d := New(time.Second, 10*time.Second)
	locked := errors.New("busy")
	sim := newSim(d, []int64{40, 0, 40, 40}, []error{nil, locked, nil, nil})

	got := d.AwaitStable(context.Background(), "file")

	assert.Equal(t, model.CompletionStable, got)
	assert.Equal(t, 3*time.Second, sim.elapsed())
}

func TestAwaitStableCanceledContext(t *testing.T) {
	d := New(50*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := d.AwaitStable(ctx, "file")
	assert.Equal(t, model.CompletionTimedOut, got)
}
