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

import (
	"fmt"
	"strings"

	"github.com/rpad300/docpipe/chunk"
	"github.com/rpad300/docpipe/core"
)

// extractionSystemPrompt instructs the model to emit the extraction schema.
// The recovery cascade tolerates deviations, so the prompt aims for the
// happy path rather than enforcing strictness.
const extractionSystemPrompt = `You are a knowledge extraction engine. Analyze the document and return ONLY a JSON object with this structure:

{
  "facts": [{"content": "...", "category": "...", "confidence": 0.0}],
  "decisions": [{"content": "...", "rationale": "...", "decided_by": "...", "confidence": 0.0}],
  "questions": [{"content": "...", "context": "...", "priority": "...", "status": "open", "confidence": 0.0}],
  "risks": [{"content": "...", "severity": "...", "mitigation": "...", "confidence": 0.0}],
  "action_items": [{"content": "...", "owner": "...", "status": "open", "confidence": 0.0}],
  "people": [{"name": "...", "role": "...", "organization": "...", "confidence": 0.0}],
  "relationships": [{"from": "...", "to": "...", "type": "...", "context": "...", "confidence": 0.0}],
  "summary": "...",
  "coverage": {"items_found": 0, "estimated_total": 0, "confidence": 0.0}
}

Rules:
- confidence is a number from 0.0 to 1.0
- omit collections that have no entries
- do not add commentary before or after the JSON`

// buildChunkPrompt wraps one chunk of document text for extraction. Multi-
// chunk documents get part numbering so the model knows the text may start
// or end mid-thought.
func buildChunkPrompt(filename string, c chunk.Chunk) string {
	var b strings.Builder
	if c.Total > 1 {
		fmt.Fprintf(&b, "Document %q, part %d of %d. The text may begin or end mid-sentence; extract what is present.\n\n",
			filename, c.Index+1, c.Total)
	} else {
		fmt.Fprintf(&b, "Document %q.\n\n", filename)
	}
	b.WriteString(c.Text)
	return b.String()
}

// synthesisSystemPrompt drives the cross-document batch pass.
const synthesisSystemPrompt = `You are a knowledge synthesis engine. You receive summaries and facts extracted from several documents plus findings from earlier in this run. Return ONLY a JSON object in the extraction schema (facts, relationships, summary) containing NEW cross-document knowledge: connections, contradictions, and conclusions that no single document states on its own. Do not restate facts you were given.`

// buildSynthesisPrompt assembles one group's input: the group's document
// summaries and facts, then findings carried forward from earlier groups.
func buildSynthesisPrompt(docs []*core.Document, priorFindings []string) string {
	var b strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&b, "## %s\n", doc.Filename)
		if doc.Extraction == nil {
			continue
		}
		if doc.Extraction.Summary != "" {
			b.WriteString(doc.Extraction.Summary)
			b.WriteString("\n")
		}
		for _, f := range doc.Extraction.Facts {
			fmt.Fprintf(&b, "- %s\n", f.Content)
		}
		b.WriteString("\n")
	}
	if len(priorFindings) > 0 {
		b.WriteString("## Findings so far in this run\n")
		for _, finding := range priorFindings {
			fmt.Fprintf(&b, "- %s\n", finding)
		}
	}
	return b.String()
}

// resolutionSystemPrompt asks the model to answer open questions from the
// accumulated fact set, in the questions shape of the extraction schema.
const resolutionSystemPrompt = `You are given a list of known facts and a list of open questions. Return ONLY a JSON object of the form {"questions": [{"content": "...", "status": "resolved", "answer": "..."}]} containing ONLY the questions that the facts answer, copied verbatim into "content" with the answer filled in. If no question can be answered, return {"questions": []}.`

// buildResolutionPrompt lists facts then open questions.
func buildResolutionPrompt(factKeys []string, questions []core.Question) string {
	var b strings.Builder
	b.WriteString("## Known facts\n")
	for _, key := range factKeys {
		fmt.Fprintf(&b, "- %s\n", key)
	}
	b.WriteString("\n## Open questions\n")
	for _, q := range questions {
		fmt.Fprintf(&b, "- %s\n", q.Content)
	}
	return b.String()
}
