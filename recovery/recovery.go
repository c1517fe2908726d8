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
	"errors"
	"log/slog"
	"strings"

	"github.com/rpad300/docpipe/core"
)

// ErrUnrecoverable is returned when every strategy in the cascade produced
// nothing. Callers use it to distinguish "could not parse" from a valid
// response that simply had nothing to extract.
var ErrUnrecoverable = errors.New("no strategy recovered a result")

// Tier identifies which strategy in the cascade produced a result.
type Tier int

const (
	// TierDirect is a structural parse of the response, with one
	// sanitization retry.
	TierDirect Tier = iota + 1
	// TierFields extracts each top-level array field independently.
	TierFields
	// TierObjects scans for any brace-balanced object and classifies it.
	TierObjects
	// TierMining synthesizes low-confidence facts from plain prose.
	TierMining
)

// String returns the tier name used in logs.
func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierFields:
		return "fields"
	case TierObjects:
		return "objects"
	case TierMining:
		return "mining"
	default:
		return "none"
	}
}

// Result is a recovered extraction tagged with the tier that produced it.
type Result struct {
	Extraction *core.ExtractionResult
	Tier       Tier
}

// strategy is one entry in the ordered cascade. run returns nil when the
// strategy could not recover anything from the text.
type strategy struct {
	tier Tier
	run  func(text string) *core.ExtractionResult
}

// Recovery converts raw model output into a structured extraction result by
// trying an ordered list of strategies until one produces a non-empty
// result. Recover is deterministic and has no side effects beyond logging.
type Recovery struct {
	strategies []strategy
	logger     *slog.Logger
}

// Option configures a Recovery.
type Option func(*Recovery)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recovery) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// New creates a Recovery with the full four-tier cascade.
func New(opts ...Option) *Recovery {
	r := &Recovery{
		strategies: []strategy{
			{TierDirect, directParse},
			{TierFields, fieldExtract},
			{TierObjects, objectScan},
			{TierMining, mineProse},
		},
		logger: slog.Default().With("component", "recovery"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recover runs the cascade over raw model output. The first strategy whose
// result is non-empty wins and its tier is reported for observability.
// Returns ErrUnrecoverable when every tier comes up empty.
func (r *Recovery) Recover(raw string) (*Result, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrUnrecoverable
	}

	for _, s := range r.strategies {
		extraction := s.run(text)
		if extraction.Empty() {
			continue
		}
		r.logger.Debug("recovered extraction",
			"tier", s.tier.String(),
			"items", extraction.ItemCount())
		return &Result{Extraction: extraction, Tier: s.tier}, nil
	}

	r.logger.Debug("all recovery tiers exhausted", "length", len(text))
	return nil, ErrUnrecoverable
}
