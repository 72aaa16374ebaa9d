// Package assessment implements the document-assessment pipeline: a durable
// task queue consumer that extracts text, calls the remote AI-detection
// service, and drives the Task/Document/Result state machines.
package assessment

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/interfaces"
	"github.com/bobmcallan/assessor/internal/storage"
)

// Config tunes Worker scheduling. Mirrors common.AssessmentConfig's accessor
// shape so callers can pass that struct's Get* methods through directly.
type Config struct {
	PollInterval       time.Duration
	LeaseDuration      time.Duration
	BackoffBase        time.Duration
	BackoffCap         time.Duration
	MaxAttempts        int
	MaxConcurrentTasks int
}

// ConfigFromCommon adapts common.AssessmentConfig to Config.
func ConfigFromCommon(c *common.AssessmentConfig) Config {
	return Config{
		PollInterval:       c.GetPollInterval(),
		LeaseDuration:      c.GetLeaseDuration(),
		BackoffBase:        c.GetBackoffBase(),
		BackoffCap:         c.GetBackoffCap(),
		MaxAttempts:        c.GetMaxAttempts(),
		MaxConcurrentTasks: c.GetMaxConcurrentTasks(),
	}
}

// Worker claims tasks from a TaskStore, runs each through the assessment
// pipeline (extract, admit, detect, persist), and advances the Task,
// Document and Result state machines. A safeGo-style panic-recovered
// goroutine launcher drives a bounded pool of processLoop goroutines.
type Worker struct {
	tasks     interfaces.TaskStore
	documents interfaces.DocumentStore
	results   interfaces.ResultStore
	blobs     storage.BlobStore
	extractor interfaces.TextExtractor
	detector  interfaces.DetectorClient
	quota     interfaces.QuotaLedger
	logger    *common.Logger
	config    Config
	hub       *EventHub

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker assembles a Worker from its collaborators.
func NewWorker(
	tasks interfaces.TaskStore,
	documents interfaces.DocumentStore,
	results interfaces.ResultStore,
	blobs storage.BlobStore,
	extractor interfaces.TextExtractor,
	detector interfaces.DetectorClient,
	quota interfaces.QuotaLedger,
	logger *common.Logger,
	config Config,
) *Worker {
	return &Worker{
		tasks:     tasks,
		documents: documents,
		results:   results,
		blobs:     blobs,
		extractor: extractor,
		detector:  detector,
		quota:     quota,
		logger:    logger,
		config:    config,
		hub:       NewEventHub(logger),
	}
}

// Hub returns the worker's event hub for external WebSocket registration.
func (w *Worker) Hub() *EventHub {
	return w.hub
}

// safeGo launches fn in a goroutine, recovering and logging any panic so
// one task's defect never takes down the whole pool.
func (w *Worker) safeGo(name string, fn func()) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in assessment worker goroutine")
			}
		}()
		fn()
	}()
}

// Start resets orphaned in-flight tasks and launches the event hub plus a
// bounded pool of processLoop goroutines. Safe to call multiple times —
// stops any existing loops first.
func (w *Worker) Start() {
	if w.cancel != nil {
		w.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	if count, err := w.tasks.ResetOrphaned(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to reset orphaned tasks")
	} else if count > 0 {
		w.logger.Info().Int("count", count).Msg("Reset orphaned tasks to pending")
	}

	w.safeGo("event-hub", func() { w.hub.Run() })

	maxConc := w.config.MaxConcurrentTasks
	if maxConc <= 0 {
		maxConc = 5
	}
	for i := 0; i < maxConc; i++ {
		name := fmt.Sprintf("processor-%d", i)
		w.safeGo(name, func() { w.processLoop(ctx) })
	}

	w.logger.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int("max_concurrent", maxConc).
		Msg("Assessment worker started")
}

// Stop cancels all processLoop goroutines and the event hub, then waits for
// them to exit. Graceful: an in-flight task finishes or lease-expires, it is
// never force-canceled mid HTTP call.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.hub.Stop()
	w.wg.Wait()
	w.logger.Info().Msg("Assessment worker stopped")
}

// processLoop claims and executes tasks until ctx is canceled, sleeping for
// PollInterval whenever the queue is empty or a claim fails.
func (w *Worker) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := w.tasks.ClaimNext(ctx, w.config.LeaseDuration)
		if err != nil {
			w.logger.Warn().Err(err).Msg("Claim failed, treating as no work")
			if !sleepOrDone(ctx, w.config.PollInterval) {
				return
			}
			continue
		}
		if task == nil {
			if !sleepOrDone(ctx, w.config.PollInterval) {
				return
			}
			continue
		}

		w.runStep(ctx, task)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
