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
	"strings"

	"github.com/rpad300/docpipe/core"
)

// Merge combines per-chunk extraction results into one result for the
// document. Collections concatenate in chunk order (deduplication happens
// afterwards), summaries join into one text, and coverage counters sum.
func Merge(results ...*core.ExtractionResult) *core.ExtractionResult {
	merged := &core.ExtractionResult{}
	var summaries []string
	var confidences []float64

	for _, r := range results {
		if r == nil {
			continue
		}
		merged.Facts = append(merged.Facts, r.Facts...)
		merged.Decisions = append(merged.Decisions, r.Decisions...)
		merged.Questions = append(merged.Questions, r.Questions...)
		merged.Risks = append(merged.Risks, r.Risks...)
		merged.ActionItems = append(merged.ActionItems, r.ActionItems...)
		merged.People = append(merged.People, r.People...)
		merged.Relationships = append(merged.Relationships, r.Relationships...)

		if s := strings.TrimSpace(r.Summary); s != "" {
			summaries = append(summaries, s)
		}
		merged.Coverage.ItemsFound += r.Coverage.ItemsFound
		merged.Coverage.EstimatedTotal += r.Coverage.EstimatedTotal
		if r.Coverage.Confidence > 0 {
			confidences = append(confidences, r.Coverage.Confidence)
		}
	}

	merged.Summary = strings.Join(summaries, "\n\n")
	if len(confidences) > 0 {
		var sum float64
		for _, c := range confidences {
			sum += c
		}
		merged.Coverage.Confidence = sum / float64(len(confidences))
	}
	return merged
}

// FilterByConfidence drops entries whose confidence is set and below min.
// Entries with no confidence (zero) are kept; an absent score is not
// evidence of a bad extraction.
func FilterByConfidence(r *core.ExtractionResult, min float64) *core.ExtractionResult {
	if r == nil || min <= 0 {
		return r
	}

	keep := func(confidence float64) bool {
		return confidence == 0 || confidence >= min
	}

	facts := r.Facts[:0:0]
	for _, f := range r.Facts {
		if keep(f.Confidence) {
			facts = append(facts, f)
		}
	}
	r.Facts = facts

	decisions := r.Decisions[:0:0]
	for _, d := range r.Decisions {
		if keep(d.Confidence) {
			decisions = append(decisions, d)
		}
	}
	r.Decisions = decisions

	questions := r.Questions[:0:0]
	for _, q := range r.Questions {
		if keep(q.Confidence) {
			questions = append(questions, q)
		}
	}
	r.Questions = questions

	risks := r.Risks[:0:0]
	for _, risk := range r.Risks {
		if keep(risk.Confidence) {
			risks = append(risks, risk)
		}
	}
	r.Risks = risks

	items := r.ActionItems[:0:0]
	for _, item := range r.ActionItems {
		if keep(item.Confidence) {
			items = append(items, item)
		}
	}
	r.ActionItems = items

	people := r.People[:0:0]
	for _, p := range r.People {
		if keep(p.Confidence) {
			people = append(people, p)
		}
	}
	r.People = people

	rels := r.Relationships[:0:0]
	for _, rel := range r.Relationships {
		if keep(rel.Confidence) {
			rels = append(rels, rel)
		}
	}
	r.Relationships = rels

	return r
}
