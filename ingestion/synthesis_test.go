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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpad300/docpipe/ai"
	"github.com/rpad300/docpipe/ai/mock"
	"github.com/rpad300/docpipe/core"
	"github.com/rpad300/docpipe/storage"
	"github.com/rpad300/docpipe/storage/badger"
)

type synthFixture struct {
	synthesizer *Synthesizer
	documents   storage.DocumentRepository
	knowledge   storage.KnowledgeRepository
	checkpoints storage.CheckpointRepository
}

func newSynthFixture(t *testing.T, provider ai.ModelProvider, opts ...SynthesizerOption) *synthFixture {
	t.Helper()

	docRepo, knowledgeRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		knowledgeRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	checkpoints := badger.NewCheckpointRepository(backend)
	s, err := NewSynthesizer(docRepo, knowledgeRepo, checkpoints, provider, opts...)
	require.NoError(t, err)

	return &synthFixture{
		synthesizer: s,
		documents:   docRepo,
		knowledge:   knowledgeRepo,
		checkpoints: checkpoints,
	}
}

// addCompletedDocument stores a completed document with an extraction, the
// shape synthesis reads from.
func (f *synthFixture) addCompletedDocument(t *testing.T, name string, facts ...string) *core.Document {
	t.Helper()
	ctx := context.Background()

	extraction := &core.ExtractionResult{Summary: "summary of " + name}
	for _, content := range facts {
		extraction.Facts = append(extraction.Facts, core.Fact{Content: content})
	}

	doc, err := f.documents.CreateDocument(ctx, &core.Document{
		Filename:    name,
		ContentHash: core.HashContent(name),
		Provider:    "mock",
		Status:      core.StatusPending,
	})
	require.NoError(t, err)
	require.NoError(t, f.documents.SaveExtraction(ctx, doc.Id, extraction))
	require.NoError(t, f.documents.SetDocumentStatus(ctx, doc.Id, core.StatusCompleted, ""))

	_, err = f.knowledge.AppendFacts(ctx, doc.Id, extraction.Facts)
	require.NoError(t, err)
	return doc
}

func TestSynthesizeAddsOnlyNetNewFacts(t *testing.T) {
	provider := mock.NewProviderWithResponse(`{
		"facts": [
			{"content": "Budget is 50k"},
			{"content": "Both documents reference the same vendor"}
		]
	}`)
	f := newSynthFixture(t, provider)

	f.addCompletedDocument(t, "a.txt", "Budget is 50k")
	last := f.addCompletedDocument(t, "b.txt", "Vendor selected in March")

	report, err := f.synthesizer.Synthesize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 1, report.Groups)
	assert.Zero(t, report.FailedGroups)
	// "Budget is 50k" is already in the fact log, so only the
	// cross-document fact lands.
	assert.Equal(t, 1, report.FactsAdded)
	assert.Equal(t, last.Id, report.LastDocumentId)

	keys, err := f.knowledge.RecentFactKeys(context.Background(), 10)
	require.NoError(t, err)
	assert.Contains(t, keys, "both documents reference the same vendor")
}

func TestSynthesizeAdvancesCheckpoint(t *testing.T) {
	provider := mock.NewProviderWithResponse(`{"facts": [{"content": "cross-document insight"}]}`)
	f := newSynthFixture(t, provider)

	f.addCompletedDocument(t, "a.txt", "fact one")
	f.addCompletedDocument(t, "b.txt", "fact two")

	ctx := context.Background()
	_, err := f.synthesizer.Synthesize(ctx)
	require.NoError(t, err)
	callsAfterFirst := provider.CallCount()
	require.NotZero(t, callsAfterFirst)

	// No new completed documents: the second pass is a no-op.
	report, err := f.synthesizer.Synthesize(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Documents)
	assert.Zero(t, report.Groups)
	assert.Equal(t, callsAfterFirst, provider.CallCount())

	checkpoint, err := f.checkpoints.LoadCheckpoint(ctx, synthesisCheckpoint)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.NotZero(t, checkpoint.LastDocumentId)
}

func TestSynthesizeRejectsConcurrentPass(t *testing.T) {
	provider := mock.NewProvider()
	f := newSynthFixture(t, provider)

	f.synthesizer.running.Store(true)
	defer f.synthesizer.running.Store(false)

	_, err := f.synthesizer.Synthesize(context.Background())
	require.ErrorIs(t, err, ErrSynthesisRunning)
}

func TestSynthesizeGroupFailureDoesNotAbortPass(t *testing.T) {
	provider := mock.NewProvider()
	call := 0
	provider.GenerateTextFunc = func(ctx context.Context, system, user string) (string, error) {
		call++
		if call == 1 {
			return "", fmt.Errorf("%w: timeout", ai.ErrProviderUnavailable)
		}
		return `{"facts": [{"content": "insight from the second group"}]}`, nil
	}
	f := newSynthFixture(t, provider, WithGroupSize(1))

	f.addCompletedDocument(t, "a.txt", "fact one")
	last := f.addCompletedDocument(t, "b.txt", "fact two")

	report, err := f.synthesizer.Synthesize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Groups)
	assert.Equal(t, 1, report.FailedGroups)
	assert.Equal(t, 1, report.FactsAdded)
	assert.Equal(t, last.Id, report.LastDocumentId)
}

func TestSynthesizeResolvesOpenQuestions(t *testing.T) {
	provider := mock.NewProvider()
	call := 0
	provider.GenerateTextFunc = func(ctx context.Context, system, user string) (string, error) {
		call++
		if call == 1 {
			// group synthesis call
			return `{"facts": [{"content": "launch moved to May"}]}`, nil
		}
		// resolution call
		return `{"questions": [{"content": "When is the launch?", "status": "resolved", "answer": "May"}]}`, nil
	}
	f := newSynthFixture(t, provider)

	doc := f.addCompletedDocument(t, "a.txt", "the launch date shifted")
	ctx := context.Background()
	_, err := f.knowledge.AddQuestions(ctx, doc.Id, []core.Question{
		{Content: "When is the launch?"},
	})
	require.NoError(t, err)

	report, err := f.synthesizer.Synthesize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resolved)

	open, err := f.knowledge.OpenQuestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestSynthesizeTreatsUnansweredResolutionAsNoop(t *testing.T) {
	provider := mock.NewProvider()
	call := 0
	provider.GenerateTextFunc = func(ctx context.Context, system, user string) (string, error) {
		call++
		if call == 1 {
			return `{"facts": [{"content": "something new"}]}`, nil
		}
		return "ok", nil // no structure at all
	}
	f := newSynthFixture(t, provider)

	doc := f.addCompletedDocument(t, "a.txt", "a known fact")
	ctx := context.Background()
	_, err := f.knowledge.AddQuestions(ctx, doc.Id, []core.Question{
		{Content: "Why did costs rise?"},
	})
	require.NoError(t, err)

	report, err := f.synthesizer.Synthesize(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Resolved)

	open, err := f.knowledge.OpenQuestions(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestNewSynthesizerValidatesDependencies(t *testing.T) {
	provider := mock.NewProvider()
	docRepo, knowledgeRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		knowledgeRepo.Close()
		docRepo.Close()
		backend.Close()
	})
	checkpoints := badger.NewCheckpointRepository(backend)

	_, err = NewSynthesizer(nil, knowledgeRepo, checkpoints, provider)
	require.True(t, errors.Is(err, ErrDocumentRepositoryRequired))

	_, err = NewSynthesizer(docRepo, nil, checkpoints, provider)
	require.True(t, errors.Is(err, ErrKnowledgeRepositoryRequired))

	_, err = NewSynthesizer(docRepo, knowledgeRepo, nil, provider)
	require.True(t, errors.Is(err, ErrCheckpointRepositoryRequired))

	_, err = NewSynthesizer(docRepo, knowledgeRepo, checkpoints, nil)
	require.True(t, errors.Is(err, ErrProviderRequired))
}
