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


package storage

import (
	"context"

	"github.com/rpad300/docpipe/core"
)

// Repository provides common storage operations shared across all
// repositories. Implementations must be thread-safe and support concurrent
// access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents and their
// processing state.
type DocumentRepository interface {
	Repository

	// CreateDocument adds a new document to storage.
	// Generates a new ID from sequence and sets CreatedAt/UpdatedAt.
	// Returns ErrDuplicateKey if a document with the same content hash
	// already exists.
	CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// FindDocumentByHash retrieves a document by its content hash.
	// Returns ErrNotFound if no document has that hash.
	FindDocumentByHash(ctx context.Context, hash string) (*core.Document, error)

	// FindDocumentByName retrieves the most recently created document with
	// the given filename. Returns ErrNotFound if no document matches.
	FindDocumentByName(ctx context.Context, name string) (*core.Document, error)

	// ListDocuments retrieves documents ordered by ID ascending.
	// A nil status returns every document; otherwise only documents in
	// that status are returned.
	ListDocuments(ctx context.Context, status *core.DocumentStatus) ([]*core.Document, error)

	// SetDocumentStatus updates a document's status, its UpdatedAt
	// timestamp and the failure message (empty clears it).
	// Returns ErrNotFound if the document doesn't exist.
	SetDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus, errMsg string) error

	// SaveExtraction stores the merged extraction result on a document.
	// Returns ErrNotFound if the document doesn't exist.
	SaveExtraction(ctx context.Context, id core.ID, result *core.ExtractionResult) error
}

// KnowledgeRepository provides operations for the append-only knowledge
// log derived from processed documents.
type KnowledgeRepository interface {
	Repository

	// AppendFacts adds facts extracted from a document. Facts whose
	// normalized key already exists in the log are skipped.
	// Returns the number actually inserted.
	AppendFacts(ctx context.Context, docID core.ID, facts []core.Fact) (int, error)

	// AppendRelationships adds relationships keyed by their (from, type,
	// to) tuple. Re-creating an existing relationship is a no-op.
	// Returns the number actually inserted.
	AppendRelationships(ctx context.Context, docID core.ID, rels []core.Relationship) (int, error)

	// AppendPeople adds people keyed by normalized name, skipping names
	// already present. Returns the number actually inserted.
	AppendPeople(ctx context.Context, docID core.ID, people []core.Person) (int, error)

	// AddQuestions adds questions extracted from a document, skipping
	// duplicates by normalized content. Returns the number inserted.
	AddQuestions(ctx context.Context, docID core.ID, questions []core.Question) (int, error)

	// AppendActionItems adds action items, skipping duplicates by
	// normalized content. Returns the number inserted.
	AppendActionItems(ctx context.Context, docID core.ID, items []core.ActionItem) (int, error)

	// RecentFactKeys returns the normalized keys of the most recently
	// inserted facts, newest first, up to limit. Synthesis seeds its
	// deduplication with this window.
	RecentFactKeys(ctx context.Context, limit int) ([]string, error)

	// OpenQuestions returns every question entry still in open status,
	// ordered by insertion.
	OpenQuestions(ctx context.Context) ([]*core.KnowledgeEntry, error)

	// ResolveQuestion marks a question entry resolved with the answer.
	// Returns ErrNotFound if the entry doesn't exist.
	ResolveQuestion(ctx context.Context, id core.ID, answer string) error

	// OpenActionItems returns every action item entry still open, ordered
	// by insertion.
	OpenActionItems(ctx context.Context) ([]*core.KnowledgeEntry, error)

	// CompleteActionItem marks an action item entry done.
	// Returns ErrNotFound if the entry doesn't exist.
	CompleteActionItem(ctx context.Context, id core.ID) error

	// ClearDocument removes every knowledge entry derived from a document
	// so the document can be reprocessed from scratch.
	ClearDocument(ctx context.Context, docID core.ID) error
}

// CheckpointRepository provides operations for persisting processor
// checkpoints.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint by name.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint with the given name.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)
}
