package orchestrator

import (
	"context"
	"mirrord/internal/config"
	"mirrord/internal/detect"
	"mirrord/internal/logger"
	"mirrord/internal/mirror"
	"mirrord/internal/model"
	"mirrord/internal/pipeline"
	"mirrord/internal/watcher"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type Phase string

const (
	PhaseStarting    Phase = "STARTING"
	PhaseBulkSyncing Phase = "BULK_SYNCING"
	PhaseWatching    Phase = "WATCHING"
	PhaseStopping    Phase = "STOPPING"
	PhaseStopped     Phase = "STOPPED"
)

// BulkRunner is the external full-tree copy collaborator invoked once before
// the watch phase.
type BulkRunner interface {
	Run(ctx context.Context, src, dst, logDir string) error
}

// HistorySink records every mirror result. May be nil.
type HistorySink interface {
	Save(result model.MirrorResult) error
}

// Orchestrator drives bulk catch-up and then the watch loop. Each creation
// event gets its own goroutine, so one slow file never stalls the copy of
// unrelated files; the semaphore caps how many run at once.
type Orchestrator struct {
	cfg      *config.Config
	bulk     BulkRunner
	history  HistorySink
	detector *detect.Detector
	executor *mirror.Executor
	sem      *semaphore.Weighted
	wg       sync.WaitGroup

	mu         sync.RWMutex
	phase      Phase
	startedAt  time.Time
	copied     int
	skipped    int
	failed     int
	lastMirror *time.Time
}

func New(cfg *config.Config, bulk BulkRunner, history HistorySink) (*Orchestrator, error) {
	executor, err := mirror.NewExecutor(cfg.Source, cfg.Destination)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:       cfg,
		bulk:      bulk,
		history:   history,
		detector:  detect.New(cfg.PollInterval, cfg.MaxWait),
		executor:  executor,
		sem:       semaphore.NewWeighted(cfg.MaxDispatches),
		phase:     PhaseStarting,
		startedAt: time.Now(),
	}, nil
}

// Run blocks until ctx is canceled. A bulk pass failure is logged and the
// watch phase starts anyway; a watcher registration failure is fatal.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.setPhase(PhaseBulkSyncing)
	if o.bulk != nil {
		if err := o.bulk.Run(ctx, o.cfg.Source, o.cfg.Destination, o.cfg.LogDir); err != nil {
			logger.Log.Warn("bulk copy failed, continuing to watch phase",
				zap.Error(err))
		}
	}

	w, err := watcher.New(o.cfg.BufferSize, o.cfg.RescanInterval)
	if err != nil {
		o.setPhase(PhaseStopped)
		return err
	}
	if err := w.Watch(o.cfg.Source); err != nil {
		o.setPhase(PhaseStopped)
		return err
	}

	o.setPhase(PhaseWatching)
	logger.Log.Info("watch phase started",
		zap.String("source", o.cfg.Source),
		zap.String("destination", o.cfg.Destination))

	filteredCh := pipeline.Filter(w.Events(), o.cfg.IgnoreList)
	eventCh := pipeline.Dedupe(filteredCh, o.cfg.DedupeWindow)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop

		case event, ok := <-eventCh:
			if !ok {
				break loop
			}
			o.dispatch(ctx, event)
		}
	}

	o.setPhase(PhaseStopping)
	w.Stop()

	// In-flight dispatches drain on their own; each is bounded by MaxWait.
	o.wg.Wait()

	o.setPhase(PhaseStopped)
	logger.Log.Info("orchestrator stopped")
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, event model.CreationEvent) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.sem.Release(1)

		o.record(o.handle(ctx, event))
	}()
}

func (o *Orchestrator) handle(ctx context.Context, event model.CreationEvent) model.MirrorResult {
	dst := o.executor.DestFor(event.Path)
	result := model.MirrorResult{
		Event:   event,
		SrcPath: event.Path,
		DstPath: dst,
	}

	// Directories carry no completion signal; mirror them immediately.
	if !event.IsDir {
		if o.detector.AwaitStable(ctx, event.Path) == model.CompletionTimedOut {
			result.Outcome = model.OutcomeSkippedTimedOut
			logger.Log.Warn("file never stabilized, skipping",
				zap.String("path", event.Path),
				zap.Duration("max_wait", o.cfg.MaxWait))
			return result
		}
	}

	result.Outcome, result.Err = o.executor.Copy(event.Path, dst, event.IsDir)

	switch result.Outcome {
	case model.OutcomeCopied:
		logger.Log.Info("mirrored",
			zap.String("src", result.SrcPath),
			zap.String("dst", result.DstPath))
	case model.OutcomeSkippedExists:
		logger.Log.Debug("destination already exists, skipping",
			zap.String("dst", result.DstPath))
	case model.OutcomeFailed:
		logger.Log.Error("mirror failed",
			zap.String("src", result.SrcPath),
			zap.String("dst", result.DstPath),
			zap.Error(result.Err))
	}

	return result
}

func (o *Orchestrator) record(result model.MirrorResult) {
	if o.history != nil {
		if err := o.history.Save(result); err != nil {
			logger.Log.Warn("failed to save history",
				zap.Error(err))
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()
	o.lastMirror = &now

	switch result.Outcome {
	case model.OutcomeCopied:
		o.copied++
	case model.OutcomeFailed:
		o.failed++
	default:
		o.skipped++
	}
}

func (o *Orchestrator) setPhase(phase Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phase = phase
}

type Snapshot struct {
	Phase       Phase      `json:"phase"`
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
	StartedAt   time.Time  `json:"started_at"`
	Copied      int        `json:"copied"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	LastMirror  *time.Time `json:"last_mirror,omitempty"`
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return Snapshot{
		Phase:       o.phase,
		Source:      o.cfg.Source,
		Destination: o.cfg.Destination,
		StartedAt:   o.startedAt,
		Copied:      o.copied,
		Skipped:     o.skipped,
		Failed:      o.failed,
		LastMirror:  o.lastMirror,
	}
}
