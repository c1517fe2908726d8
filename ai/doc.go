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


// Package ai defines the language-model abstraction used by the ingestion
// pipeline.
//
// The pipeline never calls a model API directly. It depends on the
// ModelProvider interface, which turns a system/user prompt pair (or an
// image) into raw response text. Parsing and repairing that text is the
// recovery package's job; providers return it verbatim.
//
// # Implementation Packages
//
// Two implementation sub-packages are included:
//
//   - ai/openai: production implementation for OpenAI-compatible chat APIs
//     (OpenAI, Ollama, LocalAI, vLLM) built on langchaingo
//   - ai/mock: test doubles for unit testing without a live model
//
// # Constructor Return Type Pattern
//
// Production constructors (openai.NewProvider) return the ModelProvider
// INTERFACE to enforce abstraction and keep callers decoupled from a
// specific API. Test constructors (mock.NewProvider) return the CONCRETE
// type so tests can inject behavior through function fields and assert on
// call counts.
//
// # Error Contract
//
// Providers distinguish transient from permanent failures. A failure to
// reach the service at all wraps ErrProviderUnavailable; the scheduler
// requeues such jobs rather than marking the document failed. A response
// that arrives but cannot be parsed is NOT a provider error; it flows into
// the recovery cascade.
//
// # Usage Example
//
//	cfg := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434/v1"),
//	    ai.WithModel("qwen2.5:7b"),
//	)
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	raw, err := provider.GenerateText(ctx, systemPrompt, documentText)
package ai
