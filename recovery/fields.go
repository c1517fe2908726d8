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
	"regexp"
	"strings"

	"github.com/rpad300/docpipe/core"
)

// resultFields are the top-level array fields of the extraction schema, in
// schema order.
var resultFields = []string{
	"facts",
	"decisions",
	"questions",
	"risks",
	"action_items",
	"people",
	"relationships",
}

var fieldHeadREs = buildFieldHeadREs()

func buildFieldHeadREs() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(resultFields))
	for _, field := range resultFields {
		res[field] = regexp.MustCompile(`"?` + field + `"?\s*:\s*\[`)
	}
	return res
}

// fieldExtract is the second tier: each top-level array field is located
// and parsed independently, so one mangled collection cannot take down the
// rest. Objects that fail a whole-object parse fall back to a regex
// extraction of their primary text field.
func fieldExtract(text string) *core.ExtractionResult {
	result := &core.ExtractionResult{}
	found := false

	for _, field := range resultFields {
		body, ok := arrayBody(text, field)
		if !ok {
			continue
		}
		for _, span := range scanBalancedObjects(body) {
			if addFieldObject(result, field, span) {
				found = true
			}
		}
	}

	if summary := extractStringField(text, "summary"); summary != "" {
		result.Summary = summary
		found = true
	}

	if !found {
		return nil
	}
	normalizeResult(result)
	return result
}

// arrayBody returns the raw contents of the named field's array, tolerating
// a missing closing bracket by taking everything to the end of the text.
func arrayBody(text, field string) (string, bool) {
	loc := fieldHeadREs[field].FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	open := loc[1] - 1 // the '['
	if end := matchDelim(text, open); end > open {
		return text[open+1 : end], true
	}
	return text[open+1:], true
}

// scanBalancedObjects returns every top-level brace-balanced object span in
// the text. An unclosed trailing object is returned as-is; the sanitizer
// balances it at parse time.
func scanBalancedObjects(text string) []string {
	var spans []string
	i := 0
	for i < len(text) {
		start := strings.IndexByte(text[i:], '{')
		if start < 0 {
			break
		}
		start += i
		end := matchDelim(text, start)
		if end < 0 {
			spans = append(spans, text[start:])
			break
		}
		spans = append(spans, text[start:end+1])
		i = end + 1
	}
	return spans
}

// parseInto unmarshals an object span into v, retrying once on the
// sanitized span. Reports whether the parse succeeded.
func parseInto(span string, v any) bool {
	if json.Unmarshal([]byte(span), v) == nil {
		return true
	}
	return json.Unmarshal([]byte(sanitizeJSON(span)), v) == nil
}

// addFieldObject parses one object span into the collection it was found
// under. Reports whether anything was added.
func addFieldObject(r *core.ExtractionResult, field, span string) bool {
	switch field {
	case "facts":
		var v core.Fact
		if parseInto(span, &v) && v.Content != "" {
			r.Facts = append(r.Facts, v)
			return true
		}
		if content := extractStringField(span, "content"); content != "" {
			r.Facts = append(r.Facts, core.Fact{Content: content})
			return true
		}

	case "decisions":
		var v core.Decision
		if parseInto(span, &v) && v.Content != "" {
			r.Decisions = append(r.Decisions, v)
			return true
		}
		if content := extractStringField(span, "content"); content != "" {
			r.Decisions = append(r.Decisions, core.Decision{Content: content})
			return true
		}

	case "questions":
		var v core.Question
		if parseInto(span, &v) && v.Content != "" {
			r.Questions = append(r.Questions, v)
			return true
		}
		if content := extractStringField(span, "content"); content != "" {
			r.Questions = append(r.Questions, core.Question{Content: content})
			return true
		}

	case "risks":
		var v core.Risk
		if parseInto(span, &v) && v.Content != "" {
			r.Risks = append(r.Risks, v)
			return true
		}
		if content := extractStringField(span, "content"); content != "" {
			r.Risks = append(r.Risks, core.Risk{Content: content})
			return true
		}

	case "action_items":
		var v core.ActionItem
		if parseInto(span, &v) && v.Content != "" {
			r.ActionItems = append(r.ActionItems, v)
			return true
		}
		if content := extractStringField(span, "content"); content != "" {
			r.ActionItems = append(r.ActionItems, core.ActionItem{Content: content})
			return true
		}

	case "people":
		var v core.Person
		if parseInto(span, &v) && v.Name != "" {
			r.People = append(r.People, v)
			return true
		}
		if name := extractStringField(span, "name"); name != "" {
			r.People = append(r.People, core.Person{Name: name})
			return true
		}

	case "relationships":
		// No single primary field can stand in for a relationship, so the
		// lenient fallback does not apply here.
		var v core.Relationship
		if parseInto(span, &v) && v.From != "" && v.To != "" {
			r.Relationships = append(r.Relationships, v)
			return true
		}
	}
	return false
}

// Precompiled extractors for the string fields the lenient paths fall back
// to. Built up front so concurrent recoveries never race on the map.
var stringFieldREs = map[string]*regexp.Regexp{
	"content": compileStringFieldRE("content"),
	"name":    compileStringFieldRE("name"),
	"summary": compileStringFieldRE("summary"),
}

func compileStringFieldRE(name string) *regexp.Regexp {
	return regexp.MustCompile(`"` + name + `"\s*:\s*("(?:[^"\\]|\\.)*")`)
}

// extractStringField regex-extracts a quoted string field by name, decoding
// JSON escapes. Returns "" when absent or malformed.
func extractStringField(text, name string) string {
	re := stringFieldREs[name]
	if re == nil {
		return ""
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	var value string
	if err := json.Unmarshal([]byte(m[1]), &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
