package orchestrator

import (
	"context"
	"mirrord/internal/config"
	"mirrord/internal/model"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(src, dst string) *config.Config {
	return &config.Config{
		Source:        src,
		Destination:   dst,
		PollInterval:  50 * time.Millisecond,
		MaxWait:       5 * time.Second,
		DedupeWindow:  10 * time.Millisecond,
		BufferSize:    100,
		MaxDispatches: 8,
	}
}

// startOrchestrator runs orch in the background and waits until it reaches
// the watch phase. The returned stop func shuts it down and waits for exit.
func startOrchestrator(t *testing.T, cfg *config.Config) (*Orchestrator, func()) {
	t.Helper()

	orch, err := New(cfg, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- orch.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return orch.Snapshot().Phase == PhaseWatching
	}, 3*time.Second, 10*time.Millisecond, "orchestrator never reached watch phase")

	stop := func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("orchestrator did not stop")
		}
		assert.Equal(t, PhaseStopped, orch.Snapshot().Phase)
	}

	return orch, stop
}

// A fully written file appearing in a fresh subdirectory ends up mirrored
// with identical content.
func TestMirrorsNewFile(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	_, stop := startOrchestrator(t, testConfig(src, dst))
	defer stop()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "dir1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "dir1", "file.txt"), []byte("hello"), 0644))

	mirrored := filepath.Join(dst, "dir1", "file.txt")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(mirrored)
		return err == nil && string(data) == "hello"
	}, 5*time.Second, 20*time.Millisecond)
}

// A slow writer appending in spaced chunks is not copied until it goes quiet,
// and the mirror then holds the full content.
func TestWaitsForSlowWriter(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()

	cfg := testConfig(src, dst)
	// Chunk gap below the poll interval, so every poll pair straddles at
	// least one append while the writer is active.
	cfg.PollInterval = 250 * time.Millisecond
	_, stop := startOrchestrator(t, cfg)
	defer stop()

	path := filepath.Join(src, "big.bin")
	mirrored := filepath.Join(dst, "big.bin")

	f, err := os.Create(path)
	require.NoError(t, err)

	const chunks = 12
	chunk := make([]byte, 4096)
	for i := 0; i < chunks; i++ {
		_, err = f.Write(chunk)
		require.NoError(t, err)
		time.Sleep(80 * time.Millisecond)
	}

	// Still within one poll of the last append: nothing mirrored yet.
	_, statErr := os.Stat(mirrored)
	assert.True(t, os.IsNotExist(statErr), "copied before writer finished")

	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		info, err := os.Stat(mirrored)
		return err == nil && info.Size() == int64(chunks*len(chunk))
	}, 5*time.Second, 20*time.Millisecond)
}

// A destination entry that already exists is left byte-for-byte untouched.
func TestExistingDestinationUntouched(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dst, "dup.txt"), []byte("original"), 0644))

	orch, stop := startOrchestrator(t, testConfig(src, dst))
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(src, "dup.txt"), []byte("replacement"), 0644))

	require.Eventually(t, func() bool {
		return orch.Snapshot().Skipped >= 1
	}, 5*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(filepath.Join(dst, "dup.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), data)
}

// A file that never stops growing past MaxWait is skipped and no partial
// copy appears at the destination.
func TestNeverStabilizingFileSkipped(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()

	cfg := testConfig(src, dst)
	cfg.PollInterval = 50 * time.Millisecond
	cfg.MaxWait = 400 * time.Millisecond
	orch, stop := startOrchestrator(t, cfg)

	path := filepath.Join(src, "stuck.bin")
	f, err := os.Create(path)
	require.NoError(t, err)

	writerDone := make(chan struct{})
	var writerWg sync.WaitGroup
	writerWg.Add(1)
	go func() {
		defer writerWg.Done()
		for {
			select {
			case <-writerDone:
				return
			case <-time.After(20 * time.Millisecond):
				_, _ = f.Write(make([]byte, 512))
			}
		}
	}()

	require.Eventually(t, func() bool {
		return orch.Snapshot().Skipped >= 1
	}, 5*time.Second, 20*time.Millisecond)

	_, statErr := os.Stat(filepath.Join(dst, "stuck.bin"))
	assert.True(t, os.IsNotExist(statErr), "partial file appeared at destination")

	close(writerDone)
	writerWg.Wait()
	require.NoError(t, f.Close())
	stop()
}

// Duplicate creation events for the same path are harmless: the first copy
// wins and the second observes the existing destination.
func TestDuplicateEventsAreIdempotent(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()

	orch, err := New(testConfig(src, dst), nil, nil)
	require.NoError(t, err)

	path := filepath.Join(src, "once.txt")
	require.NoError(t, os.WriteFile(path, []byte("once"), 0644))

	event := model.CreationEvent{Path: path, Timestamp: time.Now()}

	first := orch.handle(context.Background(), event)
	assert.Equal(t, model.OutcomeCopied, first.Outcome)

	second := orch.handle(context.Background(), event)
	assert.Equal(t, model.OutcomeSkippedExists, second.Outcome)

	data, err := os.ReadFile(filepath.Join(dst, "once.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("once"), data)
}

func TestWatcherFailureIsFatal(t *testing.T) {
	src := filepath.Join(t.TempDir(), "missing")
	cfg := testConfig(src, t.TempDir())

	orch, err := New(cfg, nil, nil)
	require.NoError(t, err)

	err = orch.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, PhaseStopped, orch.Snapshot().Phase)
}

type failingBulk struct{ called bool }

func (b *failingBulk) Run(ctx context.Context, src, dst, logDir string) error {
	b.called = true
	return assert.AnError
}

// A bulk pass failure does not prevent the watch phase from starting.
func TestBulkFailureIsNotFatal(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	cfg := testConfig(src, dst)

	bulk := &failingBulk{}
	orch, err := New(cfg, bulk, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- orch.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return orch.Snapshot().Phase == PhaseWatching
	}, 3*time.Second, 10*time.Millisecond)
	assert.True(t, bulk.called)

	cancel()
	require.NoError(t, <-done)
}
