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
	"log/slog"
	"sync/atomic"

	"github.com/rpad300/docpipe/ai"
	"github.com/rpad300/docpipe/core"
	"github.com/rpad300/docpipe/dedup"
	"github.com/rpad300/docpipe/recovery"
	"github.com/rpad300/docpipe/storage"
)

const (
	// synthesisCheckpoint names the watermark recording the highest
	// document ID a completed synthesis pass has seen.
	synthesisCheckpoint = "synthesis"

	defaultGroupSize  = 5
	defaultFactWindow = 200
)

// Synthesizer runs the cross-document batch pass: it re-reads completed
// extractions in groups, asks the model for net-new cross-document
// knowledge, and tries to resolve open questions from the accumulated
// fact set. Groups run sequentially because each group's prompt carries
// the findings of the groups before it.
type Synthesizer struct {
	documents   storage.DocumentRepository
	knowledge   storage.KnowledgeRepository
	checkpoints storage.CheckpointRepository
	provider    ai.ModelProvider
	rec         *recovery.Recovery
	groupSize   int
	factWindow  int
	running     atomic.Bool
	logger      *slog.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer) error

// WithGroupSize sets how many documents feed one synthesis prompt.
// Default is 5.
func WithGroupSize(n int) SynthesizerOption {
	return func(s *Synthesizer) error {
		if n < 1 {
			return errors.New("group size must be at least 1")
		}
		s.groupSize = n
		return nil
	}
}

// WithFactWindow sets how many recently persisted fact keys seed the
// dedup step. Default is 200.
func WithFactWindow(n int) SynthesizerOption {
	return func(s *Synthesizer) error {
		if n < 0 {
			n = 0
		}
		s.factWindow = n
		return nil
	}
}

// WithSynthesizerLogger sets a custom logger.
func WithSynthesizerLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSynthesizer creates a synthesis coordinator.
func NewSynthesizer(
	documents storage.DocumentRepository,
	knowledge storage.KnowledgeRepository,
	checkpoints storage.CheckpointRepository,
	provider ai.ModelProvider,
	opts ...SynthesizerOption,
) (*Synthesizer, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if knowledge == nil {
		return nil, ErrKnowledgeRepositoryRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	s := &Synthesizer{
		documents:   documents,
		knowledge:   knowledge,
		checkpoints: checkpoints,
		provider:    provider,
		rec:         recovery.New(),
		groupSize:   defaultGroupSize,
		factWindow:  defaultFactWindow,
		logger:      slog.Default().With("component", "synthesizer"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SynthesisReport summarizes one synthesis pass.
type SynthesisReport struct {
	Documents      int
	Groups         int
	FailedGroups   int
	FactsAdded     int
	RelsAdded      int
	Resolved       int
	LastDocumentId core.ID
}

// Synthesize runs one batch pass over completed documents newer than the
// checkpoint. Only one pass may run at a time; a concurrent call returns
// ErrSynthesisRunning. One group's failure is logged and skipped, never
// fatal to the pass.
func (s *Synthesizer) Synthesize(ctx context.Context) (*SynthesisReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSynthesisRunning
	}
	defer s.running.Store(false)

	checkpoint, err := s.checkpoints.LoadCheckpoint(ctx, synthesisCheckpoint)
	if err != nil {
		return nil, err
	}
	var watermark core.ID
	if checkpoint != nil {
		watermark = checkpoint.LastDocumentId
	}

	completed := core.StatusCompleted
	docs, err := s.documents.ListDocuments(ctx, &completed)
	if err != nil {
		return nil, err
	}

	// Keep only documents past the watermark that carry an extraction.
	pending := docs[:0:0]
	for _, doc := range docs {
		if doc.Id > watermark && doc.Extraction != nil {
			pending = append(pending, doc)
		}
	}

	report := &SynthesisReport{Documents: len(pending), LastDocumentId: watermark}
	if len(pending) == 0 {
		s.logger.Debug("synthesis: nothing new to process")
		return report, nil
	}

	seed, err := s.seedKeys(ctx)
	if err != nil {
		return nil, err
	}

	var priorFindings []string
	for start := 0; start < len(pending); start += s.groupSize {
		end := min(start+s.groupSize, len(pending))
		group := pending[start:end]
		report.Groups++

		findings, err := s.processGroup(ctx, group, priorFindings, seed, report)
		if err != nil {
			report.FailedGroups++
			s.logger.Warn("synthesis group failed",
				"group", report.Groups, "err", err)
			continue
		}
		priorFindings = append(priorFindings, findings...)
	}

	if resolved, err := s.resolveOpenQuestions(ctx); err != nil {
		s.logger.Warn("synthesis: question resolution failed", "err", err)
	} else {
		report.Resolved = resolved
	}

	report.LastDocumentId = pending[len(pending)-1].Id
	if err := s.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		Name:           synthesisCheckpoint,
		LastDocumentId: report.LastDocumentId,
	}); err != nil {
		return report, err
	}

	s.logger.Info("synthesis pass finished",
		"documents", report.Documents,
		"groups", report.Groups,
		"failed_groups", report.FailedGroups,
		"facts_added", report.FactsAdded,
		"resolved", report.Resolved)
	return report, nil
}

// seedKeys loads the recent-fact window used to drop already-known facts.
func (s *Synthesizer) seedKeys(ctx context.Context) (map[string]struct{}, error) {
	keys, err := s.knowledge.RecentFactKeys(ctx, s.factWindow)
	if err != nil {
		return nil, err
	}
	seed := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		seed[key] = struct{}{}
	}
	return seed, nil
}

// processGroup sends one group of documents to the model and persists the
// net-new knowledge it returns. Returns the group's fact contents so later
// groups can build on them.
func (s *Synthesizer) processGroup(
	ctx context.Context,
	group []*core.Document,
	priorFindings []string,
	seed map[string]struct{},
	report *SynthesisReport,
) ([]string, error) {
	prompt := buildSynthesisPrompt(group, priorFindings)

	raw, err := s.provider.GenerateText(ctx, synthesisSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	res, err := s.rec.Recover(raw)
	if err != nil {
		return nil, err
	}

	result := res.Extraction
	result.Facts = dedup.Facts(result.Facts, seed)
	result.Relationships = dedup.Relationships(result.Relationships)

	// Synthesis findings attach to the newest document of the group.
	docID := group[len(group)-1].Id

	inserted, err := s.knowledge.AppendFacts(ctx, docID, result.Facts)
	if err != nil {
		return nil, err
	}
	report.FactsAdded += inserted

	relsInserted, err := s.knowledge.AppendRelationships(ctx, docID, result.Relationships)
	if err != nil {
		return nil, err
	}
	report.RelsAdded += relsInserted

	findings := make([]string, 0, len(result.Facts))
	for _, f := range result.Facts {
		seed[dedup.NormalizeKey(f.Content)] = struct{}{}
		findings = append(findings, f.Content)
	}
	return findings, nil
}

// resolveOpenQuestions prompts the model with the accumulated fact window
// and the open questions, applying any answers it returns.
func (s *Synthesizer) resolveOpenQuestions(ctx context.Context) (int, error) {
	open, err := s.knowledge.OpenQuestions(ctx)
	if err != nil {
		return 0, err
	}
	if len(open) == 0 {
		return 0, nil
	}

	factKeys, err := s.knowledge.RecentFactKeys(ctx, s.factWindow)
	if err != nil {
		return 0, err
	}
	if len(factKeys) == 0 {
		return 0, nil
	}

	questions := make([]core.Question, 0, len(open))
	index := make(map[string]core.ID, len(open))
	for _, entry := range open {
		q, err := entry.DecodeQuestion()
		if err != nil {
			s.logger.Warn("skipping undecodable question entry", "id", entry.Id, "err", err)
			continue
		}
		questions = append(questions, *q)
		index[entry.Key] = entry.Id
	}
	if len(questions) == 0 {
		return 0, nil
	}

	raw, err := s.provider.GenerateText(ctx, resolutionSystemPrompt, buildResolutionPrompt(factKeys, questions))
	if err != nil {
		return 0, err
	}

	res, err := s.rec.Recover(raw)
	if err != nil {
		if errors.Is(err, recovery.ErrUnrecoverable) {
			// The model answered nothing; that is a valid outcome.
			return 0, nil
		}
		return 0, err
	}

	resolved := 0
	for _, q := range res.Extraction.Questions {
		if q.Answer == "" {
			continue
		}
		id, ok := index[dedup.NormalizeKey(q.Content)]
		if !ok {
			continue
		}
		if err := s.knowledge.ResolveQuestion(ctx, id, q.Answer); err != nil {
			s.logger.Warn("resolving question failed", "id", id, "err", err)
			continue
		}
		resolved++
	}
	return resolved, nil
}
