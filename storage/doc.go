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


// Package storage provides the storage abstraction layer for docpipe.
//
// This package defines repository interfaces that decouple storage
// implementation from pipeline logic, so different backends (BadgerDB,
// in-memory, etc.) can be used interchangeably.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - DocumentRepository: documents and their processing lifecycle
//   - KnowledgeRepository: the append-only knowledge log derived from
//     processed documents (facts, questions, action items, people,
//     relationships)
//   - CheckpointRepository: synthesis watermarks
//
// Public constructors in backend packages return these INTERFACES to
// prevent accidental coupling to a specific database.
//
// # Usage
//
// Create repositories over a shared backend:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	docs, err := badger.NewDocumentRepository(backend)
//	knowledge, err := badger.NewKnowledgeRepository(backend)
//
// Tests use the in-memory mode:
//
//	docs, knowledge, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines. The scheduler runs several
// extraction jobs against the same repositories at once.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and
// timeout support.
package storage
