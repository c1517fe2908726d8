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


package ai

import "context"

// ModelProvider is the language-model abstraction the ingestion pipeline
// calls. Implementations must be safe for concurrent use: the scheduler may
// run several extraction jobs against the same provider at once.
type ModelProvider interface {
	// Name identifies the provider for recording on processed documents,
	// e.g. "openai" or "mock".
	Name() string

	// GenerateText sends a system and user prompt to the model and returns
	// the raw response text. The response is NOT parsed or repaired here;
	// callers hand it to the recovery cascade. Transient failures
	// (connection refused, timeouts, rate limits) wrap
	// ErrProviderUnavailable so callers can requeue instead of failing.
	GenerateText(ctx context.Context, system, user string) (string, error)

	// GenerateVision sends a system prompt plus an image to a multimodal
	// model and returns the raw response text. Providers without a vision
	// model return an error for every call.
	GenerateVision(ctx context.Context, system string, image []byte, mimeType string) (string, error)

	// Close releases resources held by the provider.
	// After Close is called, the provider should not be used.
	Close() error
}
