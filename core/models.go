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


package core

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated from database sequences or content-based hashing.
type ID uint64

// HashContent computes the deduplication key for document content: a
// BLAKE2b-256 hex digest over whitespace-normalized text. Two inputs with
// equal hashes are treated as the same logical document regardless of
// filename.
func HashContent(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(normalized))
	return hex.EncodeToString(h.Sum(nil))
}

// HashBytes computes the deduplication key for binary content (images)
// without whitespace normalization.
func HashBytes(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentStatus tracks a document through the processing lifecycle.
type DocumentStatus int

const (
	// StatusPending means the document is discovered but not yet claimed.
	StatusPending DocumentStatus = iota + 1
	// StatusProcessing means a job currently owns the document.
	StatusProcessing
	// StatusCompleted means extraction finished and the result is stored.
	StatusCompleted
	// StatusFailed means extraction failed; Error carries the message.
	StatusFailed
)

// String returns the lowercase name used in logs and CLI output.
func (s DocumentStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseDocumentStatus converts a status name back to its enum value.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "processing":
		return StatusProcessing, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	default:
		return 0, ErrInvalidStatus
	}
}

// Document represents one ingested input (a file, a transcript) and its
// processing state. The Extraction field holds the merged result once the
// document completes; it is nil until then.
type Document struct {
	Id          ID
	Filename    string
	ContentHash string
	Provider    string // model provider identity, used for admission bucketing
	Model       string
	Status      DocumentStatus
	Error       string // failure message when Status == StatusFailed
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Extraction  *ExtractionResult
}

// ExtractionResult is the structured knowledge recovered from model output.
// It is produced fresh per chunk, merged into one result per document, and
// merged again across a synthesis batch. JSON tags match the schema the
// model is asked to emit.
type ExtractionResult struct {
	Facts         []Fact         `json:"facts,omitempty"`
	Decisions     []Decision     `json:"decisions,omitempty"`
	Questions     []Question     `json:"questions,omitempty"`
	Risks         []Risk         `json:"risks,omitempty"`
	ActionItems   []ActionItem   `json:"action_items,omitempty"`
	People        []Person       `json:"people,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	Coverage      Coverage       `json:"coverage,omitzero"`
}

// Empty reports whether the result carries no extracted knowledge at all.
// A bare summary still counts as content.
func (r *ExtractionResult) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.Facts) == 0 &&
		len(r.Decisions) == 0 &&
		len(r.Questions) == 0 &&
		len(r.Risks) == 0 &&
		len(r.ActionItems) == 0 &&
		len(r.People) == 0 &&
		len(r.Relationships) == 0 &&
		r.Summary == ""
}

// ItemCount returns the total number of extracted entries across all
// collections, used for coverage reporting.
func (r *ExtractionResult) ItemCount() int {
	if r == nil {
		return 0
	}
	return len(r.Facts) + len(r.Decisions) + len(r.Questions) +
		len(r.Risks) + len(r.ActionItems) + len(r.People) + len(r.Relationships)
}

// Coverage estimates how much of the source the extraction captured.
type Coverage struct {
	ItemsFound     int     `json:"items_found"`
	EstimatedTotal int     `json:"estimated_total"`
	Confidence     float64 `json:"confidence"`
}

// Fact is a standalone statement of knowledge extracted from a document.
type Fact struct {
	Content    string  `json:"content"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Decision records a choice that was made, by whom and why.
type Decision struct {
	Content    string  `json:"content"`
	Rationale  string  `json:"rationale,omitempty"`
	DecidedBy  string  `json:"decided_by,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Question.Status values.
const (
	QuestionOpen     = "open"
	QuestionResolved = "resolved"
)

// Question is an open point raised in a document. Synthesis and
// post-processing may later resolve it with an answer.
type Question struct {
	Content    string  `json:"content"`
	Context    string  `json:"context,omitempty"`
	Priority   string  `json:"priority,omitempty"`
	Status     string  `json:"status,omitempty"`
	Answer     string  `json:"answer,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Risk is a potential problem identified in a document.
type Risk struct {
	Content    string  `json:"content"`
	Severity   string  `json:"severity,omitempty"`
	Mitigation string  `json:"mitigation,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ActionItem.Status values.
const (
	ActionOpen = "open"
	ActionDone = "done"
)

// ActionItem is a task assigned to someone in a document.
type ActionItem struct {
	Content    string  `json:"content"`
	Owner      string  `json:"owner,omitempty"`
	Status     string  `json:"status,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Person is someone mentioned in a document.
type Person struct {
	Name         string  `json:"name"`
	Role         string  `json:"role,omitempty"`
	Organization string  `json:"organization,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// Relationship links two extracted entities across documents.
type Relationship struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Kind       string  `json:"type,omitempty"`
	Context    string  `json:"context,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Tuple returns a string representation of the relationship as
// "(From,Kind,To)". This is used for generating deterministic IDs so that
// re-creating an existing relationship is a no-op.
func (r *Relationship) Tuple() string {
	return "(" + r.From + "," + r.Kind + "," + r.To + ")"
}

// Checkpoint records a processor's high-water mark so a later run can
// resume where the previous one stopped.
type Checkpoint struct {
	Name           string
	LastDocumentId ID
	UpdatedAt      time.Time
}

// KnowledgeEntry kinds.
const (
	KindFact         = "fact"
	KindQuestion     = "question"
	KindActionItem   = "action_item"
	KindPerson       = "person"
	KindRelationship = "relationship"
)

// KnowledgeEntry is one persisted row of the knowledge log. The typed
// entity travels as a JSON payload; Key holds its normalized deduplication
// key so appends can detect duplicates without decoding payloads, and
// Status/Answer track the open/resolved lifecycle for questions and action
// items.
type KnowledgeEntry struct {
	Id         ID
	DocumentId ID
	Kind       string
	Key        string
	Status     string
	Answer     string
	Payload    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewKnowledgeEntry builds an entry of the given kind with the entity
// encoded as its payload.
func NewKnowledgeEntry(docID ID, kind, key string, entity any) (*KnowledgeEntry, error) {
	payload, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	return &KnowledgeEntry{
		DocumentId: docID,
		Kind:       kind,
		Key:        key,
		Payload:    string(payload),
	}, nil
}

// DecodeQuestion decodes the payload of a question entry.
func (e *KnowledgeEntry) DecodeQuestion() (*Question, error) {
	var q Question
	if err := json.Unmarshal([]byte(e.Payload), &q); err != nil {
		return nil, err
	}
	if e.Status != "" {
		q.Status = e.Status
	}
	if e.Answer != "" {
		q.Answer = e.Answer
	}
	return &q, nil
}

// DecodeActionItem decodes the payload of an action item entry.
func (e *KnowledgeEntry) DecodeActionItem() (*ActionItem, error) {
	var a ActionItem
	if err := json.Unmarshal([]byte(e.Payload), &a); err != nil {
		return nil, err
	}
	if e.Status != "" {
		a.Status = e.Status
	}
	return &a, nil
}

// DecodeFact decodes the payload of a fact entry.
func (e *KnowledgeEntry) DecodeFact() (*Fact, error) {
	var f Fact
	if err := json.Unmarshal([]byte(e.Payload), &f); err != nil {
		return nil, err
	}
	return &f, nil
}
