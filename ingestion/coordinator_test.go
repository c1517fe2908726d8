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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpad300/docpipe/ai"
	"github.com/rpad300/docpipe/ai/mock"
	"github.com/rpad300/docpipe/chunk"
	"github.com/rpad300/docpipe/core"
	"github.com/rpad300/docpipe/storage"
	"github.com/rpad300/docpipe/storage/badger"
)

func newTestCoordinator(t *testing.T, provider ai.ModelProvider, opts ...Option) (*Coordinator, storage.DocumentRepository, storage.KnowledgeRepository) {
	t.Helper()

	docRepo, knowledgeRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		knowledgeRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	opts = append([]Option{WithRetry(1, 0), WithModel("test-model")}, opts...)
	c, err := NewCoordinator(docRepo, knowledgeRepo, provider, opts...)
	require.NoError(t, err)
	return c, docRepo, knowledgeRepo
}

func TestProcessOneHappyPath(t *testing.T) {
	provider := mock.NewProviderWithResponse(`{
		"facts": [{"content": "Budget approved at 50k", "category": "finance", "confidence": 0.9}],
		"people": [{"name": "Ana Costa", "role": "PM", "confidence": 0.8}],
		"summary": "Budget meeting notes"
	}`)
	c, docRepo, knowledgeRepo := newTestCoordinator(t, provider)

	ctx := context.Background()
	outcome, err := c.ProcessOne(ctx, Input{
		Filename: "meeting.txt",
		Text:     "The budget was approved at 50k by Ana Costa, the project manager.",
	})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.False(t, outcome.Duplicate)
	assert.Equal(t, 1, outcome.Chunks)
	assert.Zero(t, outcome.FailedChunks)
	require.NotNil(t, outcome.Result)
	assert.Len(t, outcome.Result.Facts, 1)

	stored, err := docRepo.GetDocument(ctx, outcome.Document.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.Status)
	assert.Equal(t, "mock", stored.Provider)
	assert.Equal(t, "test-model", stored.Model)
	require.NotNil(t, stored.Extraction)
	assert.Equal(t, "Budget meeting notes", stored.Extraction.Summary)

	keys, err := knowledgeRepo.RecentFactKeys(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"budget approved at 50k"}, keys)
}

func TestProcessOneRejectsEmptyInput(t *testing.T) {
	provider := mock.NewProvider()
	c, _, _ := newTestCoordinator(t, provider)

	_, err := c.ProcessOne(context.Background(), Input{Filename: "empty.txt", Text: "   \n  "})
	require.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, provider.CallCount())
}

func TestProcessOneSkipsDuplicateContent(t *testing.T) {
	provider := mock.NewProviderWithResponse(`{"facts": [{"content": "same thing"}]}`)
	c, _, _ := newTestCoordinator(t, provider)

	ctx := context.Background()
	first, err := c.ProcessOne(ctx, Input{Filename: "a.txt", Text: "identical content about the project rollout"})
	require.NoError(t, err)
	callsAfterFirst := provider.CallCount()

	// Same content, different filename and whitespace
	second, err := c.ProcessOne(ctx, Input{Filename: "b.txt", Text: "identical   content about the\nproject rollout"})
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Document.Id, second.Document.Id)
	assert.Equal(t, callsAfterFirst, provider.CallCount())
}

func TestThreeChunkMerge(t *testing.T) {
	// 150,000 characters with maxChars 60,000 must produce 3 chunks.
	sentence := "The quarterly report covers revenue, costs and headcount. " // 59 chars
	text := strings.Repeat(sentence, 2600)
	require.GreaterOrEqual(t, len(text), 150000)

	provider := mock.NewProvider()
	call := 0
	provider.GenerateTextFunc = func(ctx context.Context, system, user string) (string, error) {
		call++
		// Chunks 1 and 2 share a fact; the merge must collapse it.
		switch call {
		case 1:
			return `{"facts": [{"content": "Revenue grew 10 percent"}, {"content": "Headcount is flat"}]}`, nil
		case 2:
			return `{"facts": [{"content": "Revenue grew 10 percent"}, {"content": "Costs fell 5 percent"}]}`, nil
		default:
			return `{"facts": [{"content": "Hiring resumes in Q3"}]}`, nil
		}
	}

	c, _, _ := newTestCoordinator(t, provider, WithChunker(chunk.New(60000)))

	outcome, err := c.ProcessOne(context.Background(), Input{Filename: "report.txt", Text: text})
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Chunks)
	assert.Equal(t, 3, provider.CallCount())

	contents := make([]string, 0, len(outcome.Result.Facts))
	for _, f := range outcome.Result.Facts {
		contents = append(contents, f.Content)
	}
	assert.ElementsMatch(t, []string{
		"Revenue grew 10 percent",
		"Headcount is flat",
		"Costs fell 5 percent",
		"Hiring resumes in Q3",
	}, contents)
}

func TestFailedChunkIsOmittedNotFatal(t *testing.T) {
	sentence := "Operations summary line for the weekly report rotation. " // 57 chars
	text := strings.Repeat(sentence, 2700)

	provider := mock.NewProvider()
	call := 0
	provider.GenerateTextFunc = func(ctx context.Context, system, user string) (string, error) {
		call++
		if call == 2 {
			return "ok", nil // unrecoverable response
		}
		return fmt.Sprintf(`{"facts": [{"content": "fact from call %d"}]}`, call), nil
	}

	c, docRepo, _ := newTestCoordinator(t, provider, WithChunker(chunk.New(60000)))

	outcome, err := c.ProcessOne(context.Background(), Input{Filename: "weekly.txt", Text: text})
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Chunks)
	assert.Equal(t, 1, outcome.FailedChunks)
	assert.Len(t, outcome.Result.Facts, 2)

	stored, err := docRepo.GetDocument(context.Background(), outcome.Document.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.Status)
}

func TestAllChunksFailedMarksDocumentFailed(t *testing.T) {
	provider := mock.NewProviderWithResponse("ok")
	c, docRepo, _ := newTestCoordinator(t, provider)

	ctx := context.Background()
	_, err := c.ProcessOne(ctx, Input{Filename: "bad.txt", Text: "some document content long enough to pass the gate"})
	require.ErrorIs(t, err, ErrAllChunksFailed)

	docs, err := docRepo.ListDocuments(ctx, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, core.StatusFailed, docs[0].Status)
	assert.NotEmpty(t, docs[0].Error)
}

func TestTransientFailureReturnsDocumentToPending(t *testing.T) {
	provider := mock.NewProvider()
	provider.GenerateTextFunc = func(ctx context.Context, system, user string) (string, error) {
		return "", fmt.Errorf("%w: connection refused", ai.ErrProviderUnavailable)
	}
	c, docRepo, _ := newTestCoordinator(t, provider)

	ctx := context.Background()
	_, err := c.ProcessOne(ctx, Input{Filename: "later.txt", Text: "content that should be retried on the next pass"})
	require.ErrorIs(t, err, ai.ErrProviderUnavailable)

	docs, err := docRepo.ListDocuments(ctx, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, core.StatusPending, docs[0].Status)
	assert.Empty(t, docs[0].Error)
}

func TestClaimedDocumentIsRejected(t *testing.T) {
	provider := mock.NewProviderWithResponse(`{"facts": [{"content": "x"}]}`)
	c, docRepo, _ := newTestCoordinator(t, provider)

	ctx := context.Background()
	doc, err := docRepo.CreateDocument(ctx, &core.Document{
		Filename:    "claimed.txt",
		ContentHash: core.HashContent("claimed content"),
		Provider:    "mock",
		Status:      core.StatusPending,
	})
	require.NoError(t, err)

	require.True(t, c.claims.acquire(doc.Id))
	defer c.claims.release(doc.Id)

	_, err = c.ProcessDocument(ctx, doc, Input{Filename: doc.Filename, Text: "claimed content"})
	require.ErrorIs(t, err, ErrAlreadyProcessing)
	assert.Zero(t, provider.CallCount())
}

func TestConfidenceFilterDropsScoredItemsBelowThreshold(t *testing.T) {
	provider := mock.NewProviderWithResponse(`{
		"facts": [
			{"content": "solid fact", "confidence": 0.9},
			{"content": "shaky fact", "confidence": 0.2},
			{"content": "unscored fact"}
		]
	}`)
	c, _, _ := newTestCoordinator(t, provider, WithMinConfidence(0.4))

	outcome, err := c.ProcessOne(context.Background(), Input{
		Filename: "scores.txt",
		Text:     "document text that produces mixed-confidence extractions",
	})
	require.NoError(t, err)

	contents := make([]string, 0, len(outcome.Result.Facts))
	for _, f := range outcome.Result.Facts {
		contents = append(contents, f.Content)
	}
	assert.ElementsMatch(t, []string{"solid fact", "unscored fact"}, contents)
}

// relationshipWriteFailingRepo fails every relationship append while
// delegating everything else to the real repository.
type relationshipWriteFailingRepo struct {
	storage.KnowledgeRepository
	err error
}

func (r *relationshipWriteFailingRepo) AppendRelationships(ctx context.Context, docID core.ID, rels []core.Relationship) (int, error) {
	return 0, r.err
}

func TestKnowledgeWriteFailureDoesNotFailDocument(t *testing.T) {
	provider := mock.NewProviderWithResponse(`{
		"facts": [{"content": "the vendor contract was signed"}],
		"relationships": [{"from": "Acme", "to": "Initech", "type": "supplies"}],
		"people": [{"name": "Joana Martins", "role": "buyer"}],
		"questions": [{"content": "When does the contract renew?"}]
	}`)

	docRepo, knowledgeRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		knowledgeRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	flaky := &relationshipWriteFailingRepo{
		KnowledgeRepository: knowledgeRepo,
		err:                 errors.New("disk full"),
	}
	c, err := NewCoordinator(docRepo, flaky, provider, WithRetry(1, 0))
	require.NoError(t, err)

	ctx := context.Background()
	outcome, err := c.ProcessOne(ctx, Input{
		Filename: "contract.txt",
		Text:     "Acme signed the supply contract with Initech last week.",
	})
	require.NoError(t, err)

	// The failed relationship write is logged and skipped; everything
	// else lands and the document completes.
	stored, err := docRepo.GetDocument(ctx, outcome.Document.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.Status)
	assert.Empty(t, stored.Error)
	require.NotNil(t, stored.Extraction)
	assert.Len(t, stored.Extraction.Relationships, 1)

	keys, err := knowledgeRepo.RecentFactKeys(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"the vendor contract was signed"}, keys)

	open, err := knowledgeRepo.OpenQuestions(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestPostProcessResolvesMatchingOpenQuestion(t *testing.T) {
	provider := mock.NewProviderWithResponse(`{
		"facts": [{"content": "the rollout finishes in June"}],
		"questions": [{"content": "Who owns the rollout plan?", "status": "resolved", "answer": "Rui owns it"}]
	}`)
	c, _, knowledgeRepo := newTestCoordinator(t, provider)

	ctx := context.Background()
	_, err := knowledgeRepo.AddQuestions(ctx, 999, []core.Question{
		{Content: "Who owns the rollout plan?"},
	})
	require.NoError(t, err)

	outcome, err := c.ProcessOne(ctx, Input{
		Filename: "followup.txt",
		Text:     "Rui confirmed ownership of the rollout plan during standup.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Resolved)

	open, err := knowledgeRepo.OpenQuestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestReprocessClearsDerivedKnowledge(t *testing.T) {
	provider := mock.NewProvider()
	call := 0
	provider.GenerateTextFunc = func(ctx context.Context, system, user string) (string, error) {
		call++
		if call == 1 {
			return `{"facts": [{"content": "old fact"}]}`, nil
		}
		return `{"facts": [{"content": "new fact"}]}`, nil
	}
	c, docRepo, knowledgeRepo := newTestCoordinator(t, provider)

	ctx := context.Background()
	outcome, err := c.ProcessOne(ctx, Input{
		Filename: "evolving.txt",
		Text:     "first version of a document about the migration plan",
	})
	require.NoError(t, err)

	doc, err := docRepo.GetDocument(ctx, outcome.Document.Id)
	require.NoError(t, err)

	_, err = c.Reprocess(ctx, doc, Input{Filename: doc.Filename, Text: "first version of a document about the migration plan"})
	require.NoError(t, err)

	keys, err := knowledgeRepo.RecentFactKeys(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new fact"}, keys)
}

func TestMergeCombinesAndDedupes(t *testing.T) {
	a := &core.ExtractionResult{
		Facts:   []core.Fact{{Content: "shared"}, {Content: "only a"}},
		Summary: "part one",
	}
	b := &core.ExtractionResult{
		Facts:   []core.Fact{{Content: "shared"}, {Content: "only b"}},
		Summary: "part two",
	}

	merged := Merge(a, b)
	assert.Len(t, merged.Facts, 4) // Merge concatenates; dedup is a later stage
	assert.Equal(t, "part one\n\npart two", merged.Summary)
}
