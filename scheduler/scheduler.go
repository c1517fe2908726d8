// Copyright 2026 Rui Dias
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/rpad300/docpipe/core"
	"github.com/rpad300/docpipe/ingestion"
	"github.com/rpad300/docpipe/storage"
)

const (
	defaultInterval        = 30 * time.Second
	defaultStuckTimeout    = 15 * time.Minute
	defaultProviderCeiling = 2
)

// ContentSource resolves the raw content for a pending document. The
// scheduler only stores document metadata; the content itself lives
// wherever the caller keeps it (usually a file named by doc.Filename).
type ContentSource func(ctx context.Context, doc *core.Document) (ingestion.Input, error)

// Scheduler polls for pending documents and dispatches them to the
// ingestion coordinator on a worker pool. It caps concurrent jobs per
// provider and sweeps documents stuck in processing back to pending.
type Scheduler struct {
	documents   storage.DocumentRepository
	coordinator *ingestion.Coordinator
	source      ContentSource
	pool        *ants.Pool
	clock       Clock
	interval    time.Duration
	stuckAfter  time.Duration
	ceiling     int
	inflight    inflightCounter
	dispatched  dispatchSet
	running     atomic.Bool
	stop        chan struct{}
	loopWG      sync.WaitGroup
	jobs        sync.WaitGroup
	logger      *slog.Logger

	submitted atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
	deferred  atomic.Uint64
	recovered atomic.Uint64
	skipped   atomic.Uint64
}

// inflightCounter tracks in-flight jobs per provider name.
type inflightCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *inflightCounter) tryAcquire(provider string, ceiling int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if c.counts[provider] >= ceiling {
		return false
	}
	c.counts[provider]++
	return true
}

func (c *inflightCounter) release(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[provider] > 0 {
		c.counts[provider]--
	}
}

// dispatchSet records documents handed to the worker pool. The coordinator
// only claims a document once its job starts running, so a queued job would
// otherwise leave its document pending and visible to the next poll pass.
// An ID stays in the set until the job finishes and the new status is
// persisted.
type dispatchSet struct {
	mu  sync.Mutex
	ids map[core.ID]struct{}
}

func (d *dispatchSet) tryAdd(id core.ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ids == nil {
		d.ids = make(map[core.ID]struct{})
	}
	if _, ok := d.ids[id]; ok {
		return false
	}
	d.ids[id] = struct{}{}
	return true
}

func (d *dispatchSet) remove(id core.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.ids, id)
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithInterval sets the polling interval. Default is 30s.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return errors.New("interval must be positive")
		}
		s.interval = d
		return nil
	}
}

// WithStuckTimeout sets how long a document may sit in processing with no
// local claim before the sweep returns it to pending. Default is 15m.
func WithStuckTimeout(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return errors.New("stuck timeout must be positive")
		}
		s.stuckAfter = d
		return nil
	}
}

// WithProviderCeiling caps concurrent jobs per provider. Default is 2.
func WithProviderCeiling(n int) Option {
	return func(s *Scheduler) error {
		if n < 1 {
			return errors.New("provider ceiling must be at least 1")
		}
		s.ceiling = n
		return nil
	}
}

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Scheduler) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithClock sets the time source used by the stuck sweep.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) error {
		if clock == nil {
			return errors.New("clock must not be nil")
		}
		s.clock = clock
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a scheduler.
func New(
	documents storage.DocumentRepository,
	coordinator *ingestion.Coordinator,
	source ContentSource,
	opts ...Option,
) (*Scheduler, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if coordinator == nil {
		return nil, ErrCoordinatorRequired
	}
	if source == nil {
		return nil, ErrContentSourceRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		documents:   documents,
		coordinator: coordinator,
		source:      source,
		pool:        pool,
		clock:       systemClock{},
		interval:    defaultInterval,
		stuckAfter:  defaultStuckTimeout,
		ceiling:     defaultProviderCeiling,
		logger:      slog.Default().With("component", "scheduler"),
	}
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.pool.Release()
			return nil, optErr
		}
	}
	return s, nil
}

// Stats is a snapshot of the scheduler's counters.
type Stats struct {
	Submitted uint64 // jobs handed to the worker pool
	Processed uint64 // documents completed
	Failed    uint64 // documents marked failed
	Deferred  uint64 // transient failures, document left pending
	Recovered uint64 // stuck documents swept back to pending
	Skipped   uint64 // pending documents deferred by the provider ceiling
}

// Stats returns a snapshot of the scheduler's counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Submitted: s.submitted.Load(),
		Processed: s.processed.Load(),
		Failed:    s.failed.Load(),
		Deferred:  s.deferred.Load(),
		Recovered: s.recovered.Load(),
		Skipped:   s.skipped.Load(),
	}
}

// PollOnce runs one scheduling pass: sweep stuck documents, then submit
// pending documents up to the per-provider ceiling. Returns the number of
// jobs submitted.
func (s *Scheduler) PollOnce(ctx context.Context) (int, error) {
	s.sweepStuck(ctx)

	pending := core.StatusPending
	docs, err := s.documents.ListDocuments(ctx, &pending)
	if err != nil {
		return 0, err
	}

	submitted := 0
	for _, doc := range docs {
		if s.coordinator.Claimed(doc.Id) {
			continue
		}
		if !s.dispatched.tryAdd(doc.Id) {
			continue
		}
		if !s.inflight.tryAcquire(doc.Provider, s.ceiling) {
			s.dispatched.remove(doc.Id)
			s.skipped.Add(1)
			continue
		}

		s.jobs.Add(1)
		err := s.pool.Submit(func() {
			defer s.jobs.Done()
			defer s.dispatched.remove(doc.Id)
			defer s.inflight.release(doc.Provider)
			s.runJob(doc)
		})
		if err != nil {
			s.jobs.Done()
			s.dispatched.remove(doc.Id)
			s.inflight.release(doc.Provider)
			s.logger.Error("submitting job failed", "id", doc.Id, "err", err)
			continue
		}
		submitted++
		s.submitted.Add(1)
	}
	return submitted, nil
}

// runJob resolves a document's content and runs it through the pipeline.
// The job carries its own context: a poll pass finishing must not cancel
// work already dispatched.
func (s *Scheduler) runJob(doc *core.Document) {
	ctx := context.Background()

	in, err := s.source(ctx, doc)
	if err != nil {
		s.failed.Add(1)
		s.logger.Error("resolving document content failed", "id", doc.Id, "filename", doc.Filename, "err", err)
		if setErr := s.documents.SetDocumentStatus(ctx, doc.Id, core.StatusFailed, err.Error()); setErr != nil {
			s.logger.Error("failed to mark document failed", "id", doc.Id, "err", setErr)
		}
		return
	}

	_, err = s.coordinator.ProcessDocument(ctx, doc, in)
	switch {
	case err == nil:
		s.processed.Add(1)
	case errors.Is(err, ingestion.ErrAlreadyProcessing):
		// Another job picked it up between the poll and now.
	case errors.Is(err, ingestion.ErrAllChunksFailed):
		s.failed.Add(1)
	default:
		// The coordinator already decided pending vs failed; the
		// counters just mirror that split.
		if doc.Status == core.StatusFailed {
			s.failed.Add(1)
		} else {
			s.deferred.Add(1)
		}
	}
}

// sweepStuck returns processing documents with no local claim and a stale
// UpdatedAt to pending. These are leftovers from a crashed or interrupted
// run.
func (s *Scheduler) sweepStuck(ctx context.Context) {
	processing := core.StatusProcessing
	docs, err := s.documents.ListDocuments(ctx, &processing)
	if err != nil {
		s.logger.Error("listing processing documents failed", "err", err)
		return
	}

	now := s.clock.Now()
	for _, doc := range docs {
		if s.coordinator.Claimed(doc.Id) {
			continue
		}
		if now.Sub(doc.UpdatedAt) < s.stuckAfter {
			continue
		}
		if err := s.documents.SetDocumentStatus(ctx, doc.Id, core.StatusPending, ""); err != nil {
			s.logger.Error("recovering stuck document failed", "id", doc.Id, "err", err)
			continue
		}
		s.recovered.Add(1)
		s.logger.Warn("recovered stuck document",
			"id", doc.Id,
			"filename", doc.Filename,
			"stuck_for", now.Sub(doc.UpdatedAt).String())
	}
}

// Start launches the polling loop. Stop halts it.
func (s *Scheduler) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	s.stop = make(chan struct{})
	s.loopWG.Add(1)
	go s.loop()
	s.logger.Info("scheduler started", "interval", s.interval.String())
	return nil
}

func (s *Scheduler) loop() {
	defer s.loopWG.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if _, err := s.PollOnce(context.Background()); err != nil {
				s.logger.Error("poll pass failed", "err", err)
			}
		}
	}
}

// Stop halts the polling loop. In-flight jobs run to completion.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stop)
	s.loopWG.Wait()
	s.logger.Info("scheduler stopped")
}

// Drain blocks until all dispatched jobs have finished.
func (s *Scheduler) Drain() {
	s.jobs.Wait()
}

// Release stops the scheduler, waits for in-flight jobs and frees the
// worker pool. The scheduler should not be used after calling Release.
func (s *Scheduler) Release() {
	s.Stop()
	s.jobs.Wait()
	if s.pool != nil {
		s.pool.Release()
	}
}
