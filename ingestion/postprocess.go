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
	"context"

	"github.com/rpad300/docpipe/core"
	"github.com/rpad300/docpipe/dedup"
)

// postProcess closes the loop on previously stored knowledge: an open
// question whose normalized content matches a newly answered question (or
// a new fact) gets resolved, and an open action item matching a newly
// completed one gets marked done. Failures here are logged, never fatal;
// the document is already persisted.
func (c *Coordinator) postProcess(ctx context.Context, merged *core.ExtractionResult) (resolved, completed int) {
	open, err := c.knowledge.OpenQuestions(ctx)
	if err != nil {
		c.logger.Warn("post-process: listing open questions failed", "err", err)
	} else if len(open) > 0 {
		index := make(map[string]core.ID, len(open))
		for _, entry := range open {
			index[entry.Key] = entry.Id
		}

		resolve := func(key, answer string) {
			id, ok := index[key]
			if !ok {
				return
			}
			if err := c.knowledge.ResolveQuestion(ctx, id, answer); err != nil {
				c.logger.Warn("post-process: resolving question failed", "id", id, "err", err)
				return
			}
			delete(index, key)
			resolved++
		}

		for _, q := range merged.Questions {
			if q.Status == core.QuestionResolved && q.Answer != "" {
				resolve(dedup.NormalizeKey(q.Content), q.Answer)
			}
		}
		for _, f := range merged.Facts {
			resolve(dedup.NormalizeKey(f.Content), f.Content)
		}
	}

	openItems, err := c.knowledge.OpenActionItems(ctx)
	if err != nil {
		c.logger.Warn("post-process: listing open action items failed", "err", err)
		return resolved, completed
	}
	if len(openItems) == 0 {
		return resolved, completed
	}

	itemIndex := make(map[string]core.ID, len(openItems))
	for _, entry := range openItems {
		itemIndex[entry.Key] = entry.Id
	}
	for _, item := range merged.ActionItems {
		if item.Status != core.ActionDone {
			continue
		}
		id, ok := itemIndex[dedup.NormalizeKey(item.Content)]
		if !ok {
			continue
		}
		if err := c.knowledge.CompleteActionItem(ctx, id); err != nil {
			c.logger.Warn("post-process: completing action item failed", "id", id, "err", err)
			continue
		}
		delete(itemIndex, dedup.NormalizeKey(item.Content))
		completed++
	}

	return resolved, completed
}
