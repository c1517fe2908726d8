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


package scheduler

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when no document repository is provided.
	ErrDocumentRepositoryRequired = errors.New("document repository is required")

	// ErrCoordinatorRequired is returned when no ingestion coordinator is provided.
	ErrCoordinatorRequired = errors.New("ingestion coordinator is required")

	// ErrContentSourceRequired is returned when no content source is provided.
	ErrContentSourceRequired = errors.New("content source is required")

	// ErrAlreadyStarted is returned when Start is called on a running scheduler.
	ErrAlreadyStarted = errors.New("scheduler already started")
)
