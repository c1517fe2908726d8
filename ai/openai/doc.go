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


// Package openai implements ai.ModelProvider for OpenAI-compatible chat
// APIs (OpenAI, Ollama, LocalAI, vLLM) using langchaingo clients.
//
// Responses are returned as raw text; the caller's recovery cascade is
// responsible for turning them into structured data. Transport failures
// wrap ai.ErrProviderUnavailable so the scheduler can requeue the work.
// Vision support is optional and only active when the config names a
// vision model.
package openai
