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

// Delimited reasoning blocks some models emit before the answer.
var reasoningBlockRE = regexp.MustCompile(`(?is)<(think|thinking|reasoning)>.*?</(think|thinking|reasoning)>`)

// directParse is the first tier: strip reasoning blocks, markdown fences
// and any conversational preamble, locate the outermost brace-delimited
// span, and parse it. If parsing fails, one sanitization pass is applied
// and the parse retried once.
func directParse(text string) *core.ExtractionResult {
	cleaned := reasoningBlockRE.ReplaceAllString(text, "")
	cleaned = stripFences(cleaned)

	span := braceSpan(cleaned)
	if span == "" {
		return nil
	}

	if result := parseExtraction(span); result != nil {
		return result
	}
	return parseExtraction(sanitizeJSON(span))
}

// stripFences removes markdown code fences wrapping the payload.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// braceSpan returns the outermost brace-delimited span: from the first '{'
// through the matching close if one exists, otherwise through the last '}'
// in the text, otherwise to the end (a later sanitization pass balances
// unclosed braces). Returns "" when the text contains no '{' at all.
func braceSpan(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	if end := matchDelim(s, start); end > start {
		return s[start : end+1]
	}
	if end := strings.LastIndexByte(s, '}'); end > start {
		return s[start : end+1]
	}
	return s[start:]
}

// matchDelim finds the offset of the bracket or brace closing the one at
// open, tracking strings and escapes. Returns -1 when unbalanced.
func matchDelim(s string, open int) int {
	opener := s[open]
	var closer byte
	switch opener {
	case '{':
		closer = '}'
	case '[':
		closer = ']'
	default:
		return -1
	}

	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseExtraction unmarshals a candidate span into the result schema.
// Returns nil on any parse error.
func parseExtraction(span string) *core.ExtractionResult {
	var result core.ExtractionResult
	if err := json.Unmarshal([]byte(span), &result); err != nil {
		return nil
	}
	normalizeResult(&result)
	return &result
}

// normalizeResult fills in defaults the model tends to omit: questions open
// unless answered, action items open unless marked done.
func normalizeResult(r *core.ExtractionResult) {
	for i := range r.Questions {
		if r.Questions[i].Status == "" {
			if r.Questions[i].Answer != "" {
				r.Questions[i].Status = core.QuestionResolved
			} else {
				r.Questions[i].Status = core.QuestionOpen
			}
		}
	}
	for i := range r.ActionItems {
		if r.ActionItems[i].Status == "" {
			r.ActionItems[i].Status = core.ActionOpen
		}
	}
}
