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

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrKnowledgeRepositoryRequired is returned when a knowledge repository is not provided.
	ErrKnowledgeRepositoryRequired = errors.New("knowledge repository required")

	// ErrCheckpointRepositoryRequired is returned when a checkpoint repository is not provided.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrProviderRequired is returned when a model provider is not provided.
	ErrProviderRequired = errors.New("model provider required")

	// ErrEmptyInput is returned when the input content is below the minimum
	// length threshold. No model call is made.
	ErrEmptyInput = errors.New("input content below minimum length")

	// ErrAlreadyProcessing is returned when a document is claimed by
	// another job. The caller should skip, not queue.
	ErrAlreadyProcessing = errors.New("document already being processed")

	// ErrDuplicateContent is returned when the content hash matches an
	// existing document.
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrAllChunksFailed is returned when no chunk produced a recoverable
	// result.
	ErrAllChunksFailed = errors.New("every chunk failed extraction")

	// ErrSynthesisRunning is returned when a synthesis pass is requested
	// while another is in flight.
	ErrSynthesisRunning = errors.New("synthesis already running")

	// ErrInvalidMaxAttempts is returned when retry is configured with a
	// non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than zero")
)
