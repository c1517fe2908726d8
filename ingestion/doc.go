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


// Package ingestion orchestrates the extraction pipeline.
//
// Two coordinators live here. The Coordinator drives one document end to
// end:
//
//	chunk -> [per chunk: model call -> recover] -> merge -> filter ->
//	dedupe -> persist -> post-process
//
// A single chunk's failure is logged and its contribution omitted; the
// document fails only when every chunk fails or the merged result carries
// nothing at all. Content-hash idempotency is enforced at the entry point:
// input whose hash matches an existing document is skipped, not re-queued.
//
// The Synthesizer runs the cross-document batch pass: groups of completed
// extractions are re-analyzed together with prior findings from the same
// run, deduplication is seeded with the window of already-persisted fact
// keys so only net-new knowledge lands, and open questions are re-examined
// against the accumulated fact set.
//
// Both coordinators treat the model as an unreliable collaborator: raw
// responses go through the recovery cascade, and transient provider
// failures put a document back to pending instead of failing it.
package ingestion
