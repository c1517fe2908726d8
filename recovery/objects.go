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


package recovery

import (
	"encoding/json"
	"strings"

	"github.com/rpad300/docpipe/core"
)

// objectScan is the third tier: it scans the text for any brace-balanced
// object and classifies each by the fields it carries, with no assumption
// about the surrounding structure. Objects that fail to parse are stepped
// into, so items survive even when their container is mangled.
func objectScan(text string) *core.ExtractionResult {
	result := &core.ExtractionResult{}
	found := false

	i := 0
	for i < len(text) {
		start := strings.IndexByte(text[i:], '{')
		if start < 0 {
			break
		}
		start += i

		end := matchDelim(text, start)
		if end < 0 {
			// Unbalanced tail; look for complete objects inside it.
			i = start + 1
			continue
		}

		span := text[start : end+1]
		if classifyObject(result, span) {
			found = true
			i = end + 1
			continue
		}
		// Not classifiable as a whole; descend into it.
		i = start + 1
	}

	if !found {
		return nil
	}
	normalizeResult(result)
	return result
}

// classifyObject parses one object and routes it into a collection by the
// fields it contains: content+category is a fact, content+priority/context
// a question, content+severity a risk, content+rationale a decision,
// name+role/organization a person. Reports whether the object was placed.
func classifyObject(r *core.ExtractionResult, span string) bool {
	var obj map[string]json.RawMessage
	if json.Unmarshal([]byte(span), &obj) != nil {
		if json.Unmarshal([]byte(sanitizeJSON(span)), &obj) != nil {
			return false
		}
	}

	str := func(key string) string {
		raw, ok := obj[key]
		if !ok {
			return ""
		}
		var v string
		if json.Unmarshal(raw, &v) != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}
	num := func(key string) float64 {
		raw, ok := obj[key]
		if !ok {
			return 0
		}
		var v float64
		if json.Unmarshal(raw, &v) != nil {
			return 0
		}
		return v
	}
	has := func(key string) bool {
		_, ok := obj[key]
		return ok
	}

	if content := str("content"); content != "" {
		switch {
		case has("category"):
			r.Facts = append(r.Facts, core.Fact{
				Content:    content,
				Category:   str("category"),
				Confidence: num("confidence"),
			})
		case has("priority") || has("context"):
			r.Questions = append(r.Questions, core.Question{
				Content:    content,
				Context:    str("context"),
				Priority:   str("priority"),
				Status:     str("status"),
				Answer:     str("answer"),
				Confidence: num("confidence"),
			})
		case has("severity"):
			r.Risks = append(r.Risks, core.Risk{
				Content:    content,
				Severity:   str("severity"),
				Mitigation: str("mitigation"),
				Confidence: num("confidence"),
			})
		case has("rationale") || has("decided_by"):
			r.Decisions = append(r.Decisions, core.Decision{
				Content:    content,
				Rationale:  str("rationale"),
				DecidedBy:  str("decided_by"),
				Confidence: num("confidence"),
			})
		case has("owner"):
			r.ActionItems = append(r.ActionItems, core.ActionItem{
				Content:    content,
				Owner:      str("owner"),
				Status:     str("status"),
				Confidence: num("confidence"),
			})
		default:
			// Bare content with no distinguishing field reads as a fact.
			r.Facts = append(r.Facts, core.Fact{
				Content:    content,
				Confidence: num("confidence"),
			})
		}
		return true
	}

	if name := str("name"); name != "" && (has("role") || has("organization")) {
		r.People = append(r.People, core.Person{
			Name:         name,
			Role:         str("role"),
			Organization: str("organization"),
			Confidence:   num("confidence"),
		})
		return true
	}

	return false
}
