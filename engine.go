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


package docpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rpad300/docpipe/ai"
	"github.com/rpad300/docpipe/ai/openai"
	"github.com/rpad300/docpipe/core"
	"github.com/rpad300/docpipe/ingestion"
	"github.com/rpad300/docpipe/scheduler"
	"github.com/rpad300/docpipe/storage"
	"github.com/rpad300/docpipe/storage/badger"
)

// imageMIMEs maps file extensions to the MIME type sent to the vision
// model. Anything else is treated as text.
var imageMIMEs = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Engine wires the storage backend, the model provider and the two
// coordinators behind one handle.
type Engine struct {
	backend        *badger.Backend
	documentRepo   storage.DocumentRepository
	knowledgeRepo  storage.KnowledgeRepository
	checkpointRepo storage.CheckpointRepository
	provider       ai.ModelProvider
	coordinator    *ingestion.Coordinator
	synthesizer    *ingestion.Synthesizer
	sched          *scheduler.Scheduler
	contentDir     string
	logger         *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig        *ai.Config
	provider        ai.ModelProvider
	contentDir      string
	coordinatorOpts []ingestion.Option
	synthesizerOpts []ingestion.SynthesizerOption
	schedulerOpts   []scheduler.Option
}

// WithAIConfig sets the model provider configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built provider instead of constructing the
// default OpenAI-compatible one. Useful for tests.
func WithProvider(provider ai.ModelProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithContentDir sets the directory document filenames resolve against
// when the scheduler re-reads content. Default is the working directory.
func WithContentDir(dir string) EngineOption {
	return func(o *engineOptions) {
		o.contentDir = dir
	}
}

// WithCoordinatorOptions forwards options to the ingestion coordinator.
func WithCoordinatorOptions(opts ...ingestion.Option) EngineOption {
	return func(o *engineOptions) {
		o.coordinatorOpts = append(o.coordinatorOpts, opts...)
	}
}

// WithSynthesizerOptions forwards options to the synthesizer.
func WithSynthesizerOptions(opts ...ingestion.SynthesizerOption) EngineOption {
	return func(o *engineOptions) {
		o.synthesizerOpts = append(o.synthesizerOpts, opts...)
	}
}

// WithSchedulerOptions forwards options to the scheduler.
func WithSchedulerOptions(opts ...scheduler.Option) EngineOption {
	return func(o *engineOptions) {
		o.schedulerOpts = append(o.schedulerOpts, opts...)
	}
}

// New opens the storage backend at filePath (in-memory when empty) and
// wires the full pipeline on top of it.
func New(filePath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, filePath == "")
	if err != nil {
		return nil, err
	}

	documentRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	knowledgeRepo, err := badger.NewKnowledgeRepository(backend)
	if err != nil {
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	checkpointRepo := badger.NewCheckpointRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			knowledgeRepo.Close()
			documentRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	coordinatorOpts := append(
		[]ingestion.Option{ingestion.WithModel(options.aiConfig.Model)},
		options.coordinatorOpts...,
	)
	coordinator, err := ingestion.NewCoordinator(documentRepo, knowledgeRepo, provider, coordinatorOpts...)
	if err != nil {
		provider.Close()
		knowledgeRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	synthesizer, err := ingestion.NewSynthesizer(documentRepo, knowledgeRepo, checkpointRepo, provider,
		options.synthesizerOpts...)
	if err != nil {
		provider.Close()
		knowledgeRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	source := fileContentSource(options.contentDir)
	sched, err := scheduler.New(documentRepo, coordinator, source, options.schedulerOpts...)
	if err != nil {
		provider.Close()
		knowledgeRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend:        backend,
		documentRepo:   documentRepo,
		knowledgeRepo:  knowledgeRepo,
		checkpointRepo: checkpointRepo,
		provider:       provider,
		coordinator:    coordinator,
		synthesizer:    synthesizer,
		sched:          sched,
		contentDir:     options.contentDir,
		logger:         slog.Default(),
	}, nil
}

// fileContentSource reads document content from disk, resolving relative
// filenames against dir.
func fileContentSource(dir string) scheduler.ContentSource {
	return func(ctx context.Context, doc *core.Document) (ingestion.Input, error) {
		path := doc.Filename
		if dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return ReadInput(path)
	}
}

// ReadInput loads a file as an ingestion input, routing images to the
// vision path by extension.
func ReadInput(path string) (ingestion.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingestion.Input{}, err
	}

	in := ingestion.Input{Filename: filepath.Base(path)}
	if mime, ok := imageMIMEs[strings.ToLower(filepath.Ext(path))]; ok {
		in.Image = data
		in.ImageMIME = mime
	} else {
		in.Text = string(data)
	}
	return in, nil
}

// ProcessOne ingests a single input end to end.
func (e *Engine) ProcessOne(ctx context.Context, in ingestion.Input) (*ingestion.Outcome, error) {
	return e.coordinator.ProcessOne(ctx, in)
}

// ProcessFile reads a file from disk and ingests it.
func (e *Engine) ProcessFile(ctx context.Context, path string) (*ingestion.Outcome, error) {
	in, err := ReadInput(path)
	if err != nil {
		return nil, err
	}
	return e.coordinator.ProcessOne(ctx, in)
}

// BatchReport summarizes a ProcessBatch call.
type BatchReport struct {
	Processed  int
	Duplicates int
	Failed     int
	Errors     map[string]error // path -> error for the failed inputs
	Synthesis  *ingestion.SynthesisReport
}

// ProcessBatch ingests a list of files, then runs one cross-document
// synthesis pass over the newly completed documents. One file's failure
// is recorded and does not stop the batch; a synthesis failure is
// logged and leaves report.Synthesis nil, since the documents are
// already persisted and the next pass will pick them up.
func (e *Engine) ProcessBatch(ctx context.Context, paths []string) (*BatchReport, error) {
	report := &BatchReport{Errors: make(map[string]error)}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome, err := e.ProcessFile(ctx, path)
		if err != nil {
			report.Failed++
			report.Errors[path] = err
			e.logger.Error("batch item failed", "path", path, "err", err)
			continue
		}
		if outcome.Duplicate {
			report.Duplicates++
			continue
		}
		report.Processed++
	}

	if report.Processed > 0 {
		synth, err := e.synthesizer.Synthesize(ctx)
		if err != nil {
			e.logger.Error("batch synthesis failed", "err", err)
		} else {
			report.Synthesis = synth
		}
	}
	return report, nil
}

// Reprocess clears a document's derived knowledge and runs it through
// the pipeline again. The reference is a document ID or a filename.
func (e *Engine) Reprocess(ctx context.Context, idOrName string) (*ingestion.Outcome, error) {
	doc, err := e.resolveDocument(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	path := doc.Filename
	if e.contentDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(e.contentDir, path)
	}
	in, err := ReadInput(path)
	if err != nil {
		return nil, fmt.Errorf("reading content for %s: %w", doc.Filename, err)
	}
	return e.coordinator.Reprocess(ctx, doc, in)
}

func (e *Engine) resolveDocument(ctx context.Context, idOrName string) (*core.Document, error) {
	if id, err := strconv.ParseUint(idOrName, 10, 64); err == nil {
		doc, err := e.documentRepo.GetDocument(ctx, core.ID(id))
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		// Fall through: a numeric filename is still a filename.
	}
	return e.documentRepo.FindDocumentByName(ctx, idOrName)
}

// Synthesize runs one cross-document batch pass.
func (e *Engine) Synthesize(ctx context.Context) (*ingestion.SynthesisReport, error) {
	return e.synthesizer.Synthesize(ctx)
}

// StartPolling launches the background scheduler loop.
func (e *Engine) StartPolling() error {
	return e.sched.Start()
}

// StopPolling halts the scheduler loop; in-flight jobs finish.
func (e *Engine) StopPolling() {
	e.sched.Stop()
}

// PollOnce runs a single scheduling pass, mainly for tests and one-shot
// CLI invocations.
func (e *Engine) PollOnce(ctx context.Context) (int, error) {
	return e.sched.PollOnce(ctx)
}

// SchedulerStats returns the scheduler's counters.
func (e *Engine) SchedulerStats() scheduler.Stats {
	return e.sched.Stats()
}

// Documents exposes the document repository.
func (e *Engine) Documents() storage.DocumentRepository {
	return e.documentRepo
}

// Knowledge exposes the knowledge repository.
func (e *Engine) Knowledge() storage.KnowledgeRepository {
	return e.knowledgeRepo
}

// Close releases the scheduler, the provider, the repositories and the
// backend, in that order.
func (e *Engine) Close() error {
	e.sched.Release()

	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing model provider", "err", err)
	}

	if err := e.knowledgeRepo.Close(); err != nil {
		e.logger.Error("error closing knowledge repository", "err", err)
		return err
	}
	if err := e.documentRepo.Close(); err != nil {
		e.logger.Error("error closing document repository", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
