package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/rpad300/docpipe/core"
	"github.com/rpad300/docpipe/storage"
)

func newTestDocument(name, content string) *core.Document {
	return &core.Document{
		Filename:    name,
		ContentHash: core.HashContent(content),
		Provider:    "mock",
		Model:       "test-model",
		Status:      core.StatusPending,
	}
}

func TestDocumentBasics(t *testing.T) {
	docRepo, knowledgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		knowledgeRepo.Close()
		docRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	created, err := docRepo.CreateDocument(ctx, newTestDocument("notes.txt", "meeting notes"))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	if created.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set")
	}

	retrieved, err := docRepo.GetDocument(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Filename != "notes.txt" {
		t.Fatalf("Expected 'notes.txt', got '%s'", retrieved.Filename)
	}
	if retrieved.Status != core.StatusPending {
		t.Fatalf("Expected pending status, got %s", retrieved.Status)
	}
}

func TestDocumentHashIndex(t *testing.T) {
	docRepo, knowledgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { knowledgeRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	created, err := docRepo.CreateDocument(ctx, newTestDocument("a.txt", "shared content"))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	found, err := docRepo.FindDocumentByHash(ctx, core.HashContent("shared content"))
	if err != nil {
		t.Fatalf("Failed to find by hash: %v", err)
	}
	if found.Id != created.Id {
		t.Fatalf("Expected ID %d, got %d", created.Id, found.Id)
	}

	// Whitespace-normalized content maps to the same hash
	found, err = docRepo.FindDocumentByHash(ctx, core.HashContent("shared    content"))
	if err != nil {
		t.Fatalf("Failed to find by normalized hash: %v", err)
	}
	if found.Id != created.Id {
		t.Fatalf("Expected ID %d, got %d", created.Id, found.Id)
	}

	// A second document with the same content is rejected
	_, err = docRepo.CreateDocument(ctx, newTestDocument("b.txt", "shared content"))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	_, err = docRepo.FindDocumentByHash(ctx, core.HashContent("other content"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestDocumentNameIndex(t *testing.T) {
	docRepo, knowledgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { knowledgeRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	first, err := docRepo.CreateDocument(ctx, newTestDocument("report.txt", "first version"))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	second, err := docRepo.CreateDocument(ctx, newTestDocument("report.txt", "second version"))
	if err != nil {
		t.Fatalf("Failed to create second document: %v", err)
	}
	if second.Id == first.Id {
		t.Fatal("Expected distinct IDs")
	}

	// Name lookup returns the most recently created document
	found, err := docRepo.FindDocumentByName(ctx, "report.txt")
	if err != nil {
		t.Fatalf("Failed to find by name: %v", err)
	}
	if found.Id != second.Id {
		t.Fatalf("Expected ID %d, got %d", second.Id, found.Id)
	}
}

func TestDocumentStatusTransitions(t *testing.T) {
	docRepo, knowledgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { knowledgeRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	doc, err := docRepo.CreateDocument(ctx, newTestDocument("notes.txt", "content"))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	if err := docRepo.SetDocumentStatus(ctx, doc.Id, core.StatusProcessing, ""); err != nil {
		t.Fatalf("Failed to set processing: %v", err)
	}

	if err := docRepo.SetDocumentStatus(ctx, doc.Id, core.StatusFailed, "model exploded"); err != nil {
		t.Fatalf("Failed to set failed: %v", err)
	}

	retrieved, err := docRepo.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Status != core.StatusFailed {
		t.Fatalf("Expected failed status, got %s", retrieved.Status)
	}
	if retrieved.Error != "model exploded" {
		t.Fatalf("Expected error message, got '%s'", retrieved.Error)
	}

	// Returning to pending clears the failure message
	if err := docRepo.SetDocumentStatus(ctx, doc.Id, core.StatusPending, ""); err != nil {
		t.Fatalf("Failed to reset to pending: %v", err)
	}
	retrieved, err = docRepo.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Error != "" {
		t.Fatalf("Expected cleared error, got '%s'", retrieved.Error)
	}

	err = docRepo.SetDocumentStatus(ctx, core.ID(9999), core.StatusFailed, "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestDocumentSaveExtraction(t *testing.T) {
	docRepo, knowledgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { knowledgeRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	doc, err := docRepo.CreateDocument(ctx, newTestDocument("notes.txt", "content"))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	result := &core.ExtractionResult{
		Facts:   []core.Fact{{Content: "budget approved", Confidence: 0.9}},
		Summary: "short meeting",
	}
	if err := docRepo.SaveExtraction(ctx, doc.Id, result); err != nil {
		t.Fatalf("Failed to save extraction: %v", err)
	}

	retrieved, err := docRepo.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Extraction == nil {
		t.Fatal("Expected extraction to be stored")
	}
	if len(retrieved.Extraction.Facts) != 1 {
		t.Fatalf("Expected 1 fact, got %d", len(retrieved.Extraction.Facts))
	}
	if retrieved.Extraction.Summary != "short meeting" {
		t.Fatalf("Expected summary, got '%s'", retrieved.Extraction.Summary)
	}
}

func TestListDocumentsByStatus(t *testing.T) {
	docRepo, knowledgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { knowledgeRepo.Close(); docRepo.Close(); backend.Close() }()

	ctx := context.Background()

	for i, content := range []string{"one", "two", "three"} {
		doc, err := docRepo.CreateDocument(ctx, newTestDocument("doc.txt", content))
		if err != nil {
			t.Fatalf("Failed to create document %d: %v", i, err)
		}
		if i == 0 {
			if err := docRepo.SetDocumentStatus(ctx, doc.Id, core.StatusCompleted, ""); err != nil {
				t.Fatalf("Failed to complete document: %v", err)
			}
		}
	}

	all, err := docRepo.ListDocuments(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(all))
	}
	// BigEndian keys keep insertion order
	for i := 1; i < len(all); i++ {
		if all[i].Id <= all[i-1].Id {
			t.Fatalf("Expected ascending IDs, got %d after %d", all[i].Id, all[i-1].Id)
		}
	}

	pending := core.StatusPending
	pendingDocs, err := docRepo.ListDocuments(ctx, &pending)
	if err != nil {
		t.Fatalf("Failed to list pending documents: %v", err)
	}
	if len(pendingDocs) != 2 {
		t.Fatalf("Expected 2 pending documents, got %d", len(pendingDocs))
	}
}
