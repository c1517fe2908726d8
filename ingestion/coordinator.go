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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rpad300/docpipe/ai"
	"github.com/rpad300/docpipe/chunk"
	"github.com/rpad300/docpipe/core"
	"github.com/rpad300/docpipe/dedup"
	"github.com/rpad300/docpipe/recovery"
	"github.com/rpad300/docpipe/storage"
)

const (
	defaultMinConfidence    = 0.4
	defaultMinContentLength = 20
	defaultMaxAttempts      = 3
	defaultBaseDelay        = 2 * time.Second
)

// Coordinator drives one document through the extraction pipeline:
// chunk, call the model per chunk, recover structure from the raw
// responses, merge, filter, dedupe, persist, post-process.
type Coordinator struct {
	documents     storage.DocumentRepository
	knowledge     storage.KnowledgeRepository
	provider      ai.ModelProvider
	chunker       *chunk.Chunker
	rec           *recovery.Recovery
	model         string
	minConfidence float64
	minContent    int
	maxAttempts   int
	baseDelay     time.Duration
	claims        claimSet
	logger        *slog.Logger
}

// claimSet tracks which document IDs are owned by an in-flight job.
// A second job for a claimed document is rejected, never queued.
type claimSet struct {
	mu  sync.Mutex
	ids map[core.ID]struct{}
}

func (s *claimSet) acquire(id core.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids == nil {
		s.ids = make(map[core.ID]struct{})
	}
	if _, claimed := s.ids[id]; claimed {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *claimSet) release(id core.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

func (s *claimSet) contains(id core.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, claimed := s.ids[id]
	return claimed
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithChunker sets a custom content chunker.
// Default is chunk.New(chunk.DefaultMaxChars).
func WithChunker(c *chunk.Chunker) Option {
	return func(coord *Coordinator) error {
		if c == nil {
			return errors.New("chunker must not be nil")
		}
		coord.chunker = c
		return nil
	}
}

// WithModel records the model identifier on processed documents.
func WithModel(model string) Option {
	return func(coord *Coordinator) error {
		coord.model = model
		return nil
	}
}

// WithMinConfidence sets the confidence threshold below which extracted
// entries are dropped. Entries without a confidence score are kept.
// Default is 0.4.
func WithMinConfidence(min float64) Option {
	return func(coord *Coordinator) error {
		if min < 0 || min > 1 {
			return errors.New("min confidence must be between 0 and 1")
		}
		coord.minConfidence = min
		return nil
	}
}

// WithMinContentLength sets the minimum input length in bytes; shorter
// inputs short-circuit with ErrEmptyInput. Default is 20.
func WithMinContentLength(n int) Option {
	return func(coord *Coordinator) error {
		if n < 0 {
			n = 0
		}
		coord.minContent = n
		return nil
	}
}

// WithRetry sets the per-chunk model call retry policy.
// Default is 3 attempts with a 2s base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(coord *Coordinator) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		coord.maxAttempts = maxAttempts
		coord.baseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(coord *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		coord.logger = logger
		return nil
	}
}

// NewCoordinator creates an extraction coordinator.
func NewCoordinator(
	documents storage.DocumentRepository,
	knowledge storage.KnowledgeRepository,
	provider ai.ModelProvider,
	opts ...Option,
) (*Coordinator, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if knowledge == nil {
		return nil, ErrKnowledgeRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	c := &Coordinator{
		documents:     documents,
		knowledge:     knowledge,
		provider:      provider,
		chunker:       chunk.New(chunk.DefaultMaxChars),
		rec:           recovery.New(),
		minConfidence: defaultMinConfidence,
		minContent:    defaultMinContentLength,
		maxAttempts:   defaultMaxAttempts,
		baseDelay:     defaultBaseDelay,
		logger:        slog.Default().With("component", "coordinator"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Input is one piece of content to ingest. Text inputs are chunked;
// an image input goes to the provider's vision model in one call.
type Input struct {
	Filename  string
	Text      string
	Image     []byte
	ImageMIME string
}

// Outcome reports what one pipeline run did.
type Outcome struct {
	Document     *core.Document
	Result       *core.ExtractionResult
	Tier         recovery.Tier // highest recovery tier any chunk needed
	Chunks       int
	FailedChunks int
	Duplicate    bool // content hash matched an existing document; nothing ran
	Resolved     int  // open questions resolved in post-processing
	Completed    int  // open action items completed in post-processing
}

// ProcessOne ingests a single input end to end. Content whose hash matches
// an existing document is skipped: the outcome carries the existing
// document with Duplicate set and no model call is made.
func (c *Coordinator) ProcessOne(ctx context.Context, in Input) (*Outcome, error) {
	text := strings.TrimSpace(in.Text)
	hasImage := len(in.Image) > 0

	if len(text) < c.minContent && !hasImage {
		return nil, fmt.Errorf("%w: %d bytes", ErrEmptyInput, len(text))
	}

	hash := core.HashContent(text)
	if text == "" {
		hash = core.HashBytes(in.Image)
	}

	existing, err := c.documents.FindDocumentByHash(ctx, hash)
	if err == nil {
		c.logger.Info("skipping duplicate content",
			"filename", in.Filename,
			"existing_id", existing.Id,
			"existing_filename", existing.Filename)
		return &Outcome{Document: existing, Duplicate: true}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	doc, err := c.documents.CreateDocument(ctx, &core.Document{
		Filename:    in.Filename,
		ContentHash: hash,
		Provider:    c.provider.Name(),
		Model:       c.model,
		Status:      core.StatusPending,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateContent, in.Filename)
		}
		return nil, err
	}

	in.Text = text
	return c.ProcessDocument(ctx, doc, in)
}

// ProcessDocument runs the pipeline for an already-created document. The
// scheduler uses this entry point after resolving the document's content.
// A document already claimed by another job is rejected with
// ErrAlreadyProcessing.
//
// Transient provider failures leave the document pending so a later pass
// can retry it; any other failure marks the document failed with the error
// message.
func (c *Coordinator) ProcessDocument(ctx context.Context, doc *core.Document, in Input) (*Outcome, error) {
	if !c.claims.acquire(doc.Id) {
		return nil, fmt.Errorf("%w: document %d", ErrAlreadyProcessing, doc.Id)
	}
	defer c.claims.release(doc.Id)

	if err := c.documents.SetDocumentStatus(ctx, doc.Id, core.StatusProcessing, ""); err != nil {
		return nil, err
	}
	doc.Status = core.StatusProcessing

	outcome, err := c.extract(ctx, doc, in)
	if err != nil {
		if isTransient(err) {
			c.logger.Warn("transient failure, returning document to pending",
				"id", doc.Id, "err", err)
			if setErr := c.documents.SetDocumentStatus(ctx, doc.Id, core.StatusPending, ""); setErr != nil {
				c.logger.Error("failed to return document to pending", "id", doc.Id, "err", setErr)
			}
			return nil, err
		}

		c.logger.Error("document failed", "id", doc.Id, "err", err)
		if setErr := c.documents.SetDocumentStatus(ctx, doc.Id, core.StatusFailed, err.Error()); setErr != nil {
			c.logger.Error("failed to mark document failed", "id", doc.Id, "err", setErr)
		}
		doc.Status = core.StatusFailed
		doc.Error = err.Error()
		return nil, err
	}

	return outcome, nil
}

// Claimed reports whether a document is owned by an in-flight job.
func (c *Coordinator) Claimed(id core.ID) bool {
	return c.claims.contains(id)
}

// isTransient reports whether the pipeline should hand the document back
// for a later retry instead of failing it.
func isTransient(err error) bool {
	return errors.Is(err, ai.ErrProviderUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// extract runs chunking, model calls, recovery, merge and persistence.
func (c *Coordinator) extract(ctx context.Context, doc *core.Document, in Input) (*Outcome, error) {
	var (
		results      []*core.ExtractionResult
		maxTier      recovery.Tier
		failed       int
		transientErr error
		chunkCount   int
	)

	collect := func(raw string, label string) {
		res, err := c.rec.Recover(raw)
		if err != nil {
			failed++
			c.logger.Warn("recovery failed", "id", doc.Id, "chunk", label, "err", err)
			return
		}
		if res.Tier > maxTier {
			maxTier = res.Tier
		}
		if res.Tier > recovery.TierDirect {
			c.logger.Info("recovered via fallback tier",
				"id", doc.Id, "chunk", label, "tier", res.Tier.String())
		}
		results = append(results, res.Extraction)
	}

	if len(in.Image) > 0 {
		chunkCount = 1
		var raw string
		err := retryWithBackoff(ctx, c.logger, c.maxAttempts, c.baseDelay, func() error {
			var callErr error
			raw, callErr = c.provider.GenerateVision(ctx, extractionSystemPrompt, in.Image, in.ImageMIME)
			return callErr
		})
		if err != nil {
			if isTransient(err) {
				transientErr = err
			}
			failed++
			c.logger.Warn("vision call failed", "id", doc.Id, "err", err)
		} else {
			collect(raw, "image")
		}
	} else {
		chunks := c.chunker.Split(in.Text)
		chunkCount = len(chunks)
		for _, ch := range chunks {
			prompt := buildChunkPrompt(doc.Filename, ch)

			var raw string
			err := retryWithBackoff(ctx, c.logger, c.maxAttempts, c.baseDelay, func() error {
				var callErr error
				raw, callErr = c.provider.GenerateText(ctx, extractionSystemPrompt, prompt)
				return callErr
			})
			if err != nil {
				if isTransient(err) {
					transientErr = err
				}
				failed++
				c.logger.Warn("model call failed for chunk",
					"id", doc.Id, "chunk", ch.Index, "err", err)
				continue
			}
			collect(raw, fmt.Sprintf("%d/%d", ch.Index+1, ch.Total))
		}
	}

	if len(results) == 0 {
		if transientErr != nil {
			return nil, transientErr
		}
		return nil, ErrAllChunksFailed
	}

	merged := Merge(results...)
	merged = FilterByConfidence(merged, c.minConfidence)
	merged = dedup.Result(merged, nil)

	if merged.Empty() {
		return nil, errors.New("extraction produced no content")
	}

	if err := c.persist(ctx, doc, merged); err != nil {
		return nil, err
	}

	resolved, completed := c.postProcess(ctx, merged)

	if err := c.documents.SetDocumentStatus(ctx, doc.Id, core.StatusCompleted, ""); err != nil {
		return nil, err
	}
	doc.Status = core.StatusCompleted
	doc.Extraction = merged

	c.logger.Info("document completed",
		"id", doc.Id,
		"filename", doc.Filename,
		"chunks", chunkCount,
		"failed_chunks", failed,
		"items", merged.ItemCount(),
		"tier", maxTier.String())

	return &Outcome{
		Document:     doc,
		Result:       merged,
		Tier:         maxTier,
		Chunks:       chunkCount,
		FailedChunks: failed,
		Resolved:     resolved,
		Completed:    completed,
	}, nil
}

// persist writes the merged result onto the document and into the
// knowledge log. The extraction blob is the document's primary record,
// so its write is fatal; the knowledge-log appends are best effort. A
// failed append loses that collection's rows but never aborts the other
// collections or fails the document, since the full result is already
// stored on the document itself.
func (c *Coordinator) persist(ctx context.Context, doc *core.Document, merged *core.ExtractionResult) error {
	if err := c.documents.SaveExtraction(ctx, doc.Id, merged); err != nil {
		return err
	}

	if _, err := c.knowledge.AppendFacts(ctx, doc.Id, merged.Facts); err != nil {
		c.logger.Warn("appending facts failed", "id", doc.Id, "err", err)
	}
	if _, err := c.knowledge.AppendRelationships(ctx, doc.Id, merged.Relationships); err != nil {
		c.logger.Warn("appending relationships failed", "id", doc.Id, "err", err)
	}
	if _, err := c.knowledge.AppendPeople(ctx, doc.Id, merged.People); err != nil {
		c.logger.Warn("appending people failed", "id", doc.Id, "err", err)
	}
	if _, err := c.knowledge.AddQuestions(ctx, doc.Id, merged.Questions); err != nil {
		c.logger.Warn("adding questions failed", "id", doc.Id, "err", err)
	}
	if _, err := c.knowledge.AppendActionItems(ctx, doc.Id, merged.ActionItems); err != nil {
		c.logger.Warn("appending action items failed", "id", doc.Id, "err", err)
	}
	return nil
}

// Reprocess clears a document's derived knowledge and runs the pipeline
// again over the given content.
func (c *Coordinator) Reprocess(ctx context.Context, doc *core.Document, in Input) (*Outcome, error) {
	if c.claims.contains(doc.Id) {
		return nil, fmt.Errorf("%w: document %d", ErrAlreadyProcessing, doc.Id)
	}
	if err := c.knowledge.ClearDocument(ctx, doc.Id); err != nil {
		return nil, err
	}
	if err := c.documents.SaveExtraction(ctx, doc.Id, nil); err != nil {
		return nil, err
	}
	return c.ProcessDocument(ctx, doc, in)
}
