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


// Package dedup removes duplicate extracted entities within one merge unit.
// Text-bearing entities deduplicate on an exact normalized content key;
// people deduplicate by fuzzy name-token matching. Every operation is
// idempotent: applying it twice yields the same set as applying it once.
package dedup

import (
	"strings"

	"github.com/rpad300/docpipe/core"
)

// NormalizeKey produces the exact-match deduplication key for text content:
// lowercased, trimmed, with runs of whitespace collapsed to single spaces.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// byKey keeps the first occurrence per normalized key, preserving order.
// Entries whose key is empty are dropped.
func byKey[T any](items []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, item := range items {
		k := NormalizeKey(key(item))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Facts removes facts whose normalized content already appeared, keeping
// the first occurrence. When seed is non-nil, facts whose key is present in
// seed are dropped too; synthesis uses this to add only net-new knowledge.
func Facts(items []core.Fact, seed map[string]struct{}) []core.Fact {
	deduped := byKey(items, func(f core.Fact) string { return f.Content })
	if len(seed) == 0 {
		return deduped
	}
	out := deduped[:0:0]
	for _, f := range deduped {
		if _, exists := seed[NormalizeKey(f.Content)]; exists {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Decisions removes duplicate decisions by normalized content.
func Decisions(items []core.Decision) []core.Decision {
	return byKey(items, func(d core.Decision) string { return d.Content })
}

// Questions removes duplicate questions by normalized content.
func Questions(items []core.Question) []core.Question {
	return byKey(items, func(q core.Question) string { return q.Content })
}

// Risks removes duplicate risks by normalized content.
func Risks(items []core.Risk) []core.Risk {
	return byKey(items, func(r core.Risk) string { return r.Content })
}

// ActionItems removes duplicate action items by normalized content.
func ActionItems(items []core.ActionItem) []core.ActionItem {
	return byKey(items, func(a core.ActionItem) string { return a.Content })
}

// Relationships removes duplicate relationships by their (from, type, to)
// tuple.
func Relationships(items []core.Relationship) []core.Relationship {
	return byKey(items, func(r core.Relationship) string { return r.Tuple() })
}

// People merges entries that refer to the same person. Two entries match
// when their normalized names share at least two tokens, or when either
// name is a single token equal to a token of the other. On a match the
// longer display name wins and missing role/organization fields are filled
// in from the other entry.
func People(items []core.Person) []core.Person {
	var merged []core.Person
	for _, candidate := range items {
		if strings.TrimSpace(candidate.Name) == "" {
			continue
		}

		matched := false
		for i := range merged {
			if !sameName(merged[i].Name, candidate.Name) {
				continue
			}
			merged[i] = mergePerson(merged[i], candidate)
			matched = true
			break
		}
		if !matched {
			merged = append(merged, candidate)
		}
	}
	return merged
}

// nameTokens normalizes a person name (removing '.', '_' and '-'), and
// splits it into tokens longer than one character.
func nameTokens(name string) []string {
	cleaned := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(name)
	fields := strings.Fields(strings.ToLower(cleaned))
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// sameName reports whether two names plausibly refer to the same person.
func sameName(a, b string) bool {
	ta, tb := nameTokens(a), nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}

	shared := 0
	for _, t := range ta {
		for _, u := range tb {
			if t == u {
				shared++
				break
			}
		}
	}
	if shared >= 2 {
		return true
	}

	// A lone token matching any token of the other name is enough:
	// "Marta" matches "Marta Silva".
	if len(ta) == 1 && shared == 1 {
		return true
	}
	if len(tb) == 1 && shared == 1 {
		return true
	}
	return false
}

// mergePerson combines two entries for the same person: longer display
// name, first non-empty role and organization, highest confidence.
func mergePerson(a, b core.Person) core.Person {
	out := a
	if len(strings.TrimSpace(b.Name)) > len(strings.TrimSpace(a.Name)) {
		out.Name = b.Name
	}
	if out.Role == "" {
		out.Role = b.Role
	}
	if out.Organization == "" {
		out.Organization = b.Organization
	}
	if b.Confidence > out.Confidence {
		out.Confidence = b.Confidence
	}
	return out
}

// Result deduplicates every collection of a merged extraction result in
// place and returns it. seedFacts may carry normalized keys of facts that
// are already persisted.
func Result(r *core.ExtractionResult, seedFacts map[string]struct{}) *core.ExtractionResult {
	if r == nil {
		return nil
	}
	r.Facts = Facts(r.Facts, seedFacts)
	r.Decisions = Decisions(r.Decisions)
	r.Questions = Questions(r.Questions)
	r.Risks = Risks(r.Risks)
	r.ActionItems = ActionItems(r.ActionItems)
	r.People = People(r.People)
	r.Relationships = Relationships(r.Relationships)
	return r
}
