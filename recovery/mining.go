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
	"regexp"
	"strings"
	"unicode"

	"github.com/rpad300/docpipe/core"
)

// Confidence assigned to facts synthesized from plain prose. Deliberately
// low so downstream confidence filters can drop them.
const (
	minedConfidence      = 0.3
	minedQuoteConfidence = 0.4
	minQuotedPhrase      = 15
	minDeclarative       = 30
	maxMinedFacts        = 25
)

var (
	bulletRE = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
	quotedRE = regexp.MustCompile(`"([^"\n]{15,})"`)
)

// metaMarkers flag sentences that talk about the extraction itself rather
// than the source content (refusals, format apologies, schema chatter).
var metaMarkers = []string{
	"json",
	"schema",
	"extract",
	"parse",
	"format",
	"as an ai",
	"i cannot",
	"i can't",
	"i'm unable",
	"i am unable",
	"i'm sorry",
	"i apologize",
	"the requested structure",
}

// domainNouns mark sentences likely to carry real knowledge about the
// subject matter rather than filler.
var domainNouns = []string{
	"project", "meeting", "decision", "deadline", "team", "system",
	"release", "budget", "customer", "client", "risk", "plan", "schedule",
	"contract", "requirement", "milestone", "launch", "design", "issue",
	"report", "survey", "process", "agreement",
}

// mineProse is the fourth and last tier, for responses with no JSON-like
// structure at all (typically a vision model describing an image). It
// synthesizes low-confidence facts from headings, bulleted or numbered
// lines, substantial quoted phrases, and declarative sentences that mention
// domain nouns. Sentences that read as meta-commentary about the
// extraction are excluded.
func mineProse(text string) *core.ExtractionResult {
	seen := make(map[string]struct{})
	var facts []core.Fact

	add := func(content, category string, confidence float64) {
		content = strings.TrimSpace(content)
		if content == "" || isMetaCommentary(content) {
			return
		}
		key := strings.ToLower(strings.Join(strings.Fields(content), " "))
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		facts = append(facts, core.Fact{
			Content:    content,
			Category:   category,
			Confidence: confidence,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := bulletRE.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); len(item) >= minQuotedPhrase {
				add(item, "item", minedConfidence)
			}
			continue
		}

		if isHeading(line) {
			add(strings.TrimRight(strings.TrimLeft(line, "# "), ":"), "heading", minedConfidence)
		}
	}

	for _, m := range quotedRE.FindAllStringSubmatch(text, -1) {
		add(m[1], "quote", minedQuoteConfidence)
	}

	for _, sentence := range splitSentences(text) {
		if len(sentence) < minDeclarative || !strings.HasSuffix(sentence, ".") {
			continue
		}
		if containsDomainNoun(sentence) {
			add(sentence, "statement", minedConfidence)
		}
	}

	if len(facts) == 0 {
		return nil
	}
	if len(facts) > maxMinedFacts {
		facts = facts[:maxMinedFacts]
	}

	return &core.ExtractionResult{
		Facts: facts,
		Coverage: core.Coverage{
			ItemsFound:     len(facts),
			EstimatedTotal: len(facts),
			Confidence:     minedConfidence,
		},
	}
}

// isHeading recognizes short title-like lines: markdown headings, lines
// ending in a colon, or short capitalized lines without terminal
// punctuation.
func isHeading(line string) bool {
	if strings.HasPrefix(line, "#") {
		return len(strings.TrimLeft(line, "# ")) > 2
	}
	if len(line) > 80 {
		return false
	}
	if strings.HasSuffix(line, ":") {
		return len(line) > 3
	}
	r := []rune(line)
	last := r[len(r)-1]
	if last == '.' || last == '!' || last == '?' || last == ',' {
		return false
	}
	return unicode.IsUpper(r[0]) && len(strings.Fields(line)) >= 2
}

func isMetaCommentary(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, marker := range metaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func containsDomainNoun(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, noun := range domainNouns {
		if strings.Contains(lower, noun) {
			return true
		}
	}
	return false
}

// splitSentences breaks text into trimmed sentences, keeping the terminal
// punctuation attached.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && !isJSONSpace(text[i+1]) {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			sentences = append(sentences, strings.Join(strings.Fields(s), " "))
		}
		start = i + 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, strings.Join(strings.Fields(s), " "))
	}
	return sentences
}
