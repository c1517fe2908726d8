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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverDirectParse(t *testing.T) {
	r := New()

	res, err := r.Recover(`{"facts": [{"content": "launch moved to March", "category": "schedule", "confidence": 0.9}], "summary": "planning sync"}`)

	require.NoError(t, err)
	assert.Equal(t, TierDirect, res.Tier)
	require.Len(t, res.Extraction.Facts, 1)
	assert.Equal(t, "launch moved to March", res.Extraction.Facts[0].Content)
	assert.Equal(t, "planning sync", res.Extraction.Summary)
}

func TestRecoverStripsConversationalWrapper(t *testing.T) {
	r := New()
	raw := "Sure! Here is what I found in the transcript:\n```json\n" +
		`{"facts": [{"content": "budget approved"}]}` + "\n```\nLet me know if you need more."

	res, err := r.Recover(raw)

	require.NoError(t, err)
	assert.Equal(t, TierDirect, res.Tier)
	require.Len(t, res.Extraction.Facts, 1)
	assert.Equal(t, "budget approved", res.Extraction.Facts[0].Content)
}

func TestRecoverStripsReasoningBlock(t *testing.T) {
	r := New()
	raw := "<think>The user wants facts. I see one about the vendor {maybe}.</think>" +
		`{"facts": [{"content": "vendor contract renewed"}]}`

	res, err := r.Recover(raw)

	require.NoError(t, err)
	assert.Equal(t, TierDirect, res.Tier)
	require.Len(t, res.Extraction.Facts, 1)
	assert.Equal(t, "vendor contract renewed", res.Extraction.Facts[0].Content)
}

func TestRecoverTrailingCommas(t *testing.T) {
	// Malformed response with trailing separators is repaired by the
	// tier-one sanitization pass.
	r := New()

	res, err := r.Recover(`{"facts": [{"content": "A" ,}],}`)

	require.NoError(t, err)
	assert.Equal(t, TierDirect, res.Tier)
	require.Len(t, res.Extraction.Facts, 1)
	assert.Equal(t, "A", res.Extraction.Facts[0].Content)
}

func TestRecoverFieldExtraction(t *testing.T) {
	// The decisions array is mangled beyond repair but facts and people
	// arrays are intact, so the field tier salvages those.
	r := New()
	raw := `"facts": [{"content": "release slipped a week"}]
"decisions": [{{{"content" broken beyond help
"people": [{"name": "Marta Silva", "role": "PM"}]`

	res, err := r.Recover(raw)

	require.NoError(t, err)
	assert.Equal(t, TierFields, res.Tier)
	require.Len(t, res.Extraction.Facts, 1)
	assert.Equal(t, "release slipped a week", res.Extraction.Facts[0].Content)
	require.Len(t, res.Extraction.People, 1)
	assert.Equal(t, "Marta Silva", res.Extraction.People[0].Name)
}

func TestRecoverFieldExtractionLenientFallback(t *testing.T) {
	r := New()
	// The object has a broken numeric field, but the content string is
	// recoverable by regex.
	raw := `"facts": [{"content": "two sites merged", "confidence": 0..9}]`

	res, err := r.Recover(raw)

	require.NoError(t, err)
	require.NotEmpty(t, res.Extraction.Facts)
	assert.Equal(t, "two sites merged", res.Extraction.Facts[0].Content)
}

func TestRecoverObjectScanClassification(t *testing.T) {
	r := New()
	// No recognizable top-level fields; loose objects are classified by
	// their keys.
	raw := `results follow {"content": "db migration done", "category": "ops"} and
{"content": "who owns rollback", "priority": "high"} and
{"name": "Rui Dias", "role": "Lead"} end`

	res, err := r.Recover(raw)

	require.NoError(t, err)
	assert.Equal(t, TierObjects, res.Tier)
	require.Len(t, res.Extraction.Facts, 1)
	assert.Equal(t, "db migration done", res.Extraction.Facts[0].Content)
	require.Len(t, res.Extraction.Questions, 1)
	assert.Equal(t, "who owns rollback", res.Extraction.Questions[0].Content)
	require.Len(t, res.Extraction.People, 1)
	assert.Equal(t, "Rui Dias", res.Extraction.People[0].Name)
}

func TestRecoverMinesProseWithoutJSON(t *testing.T) {
	// No JSON at all, but a quoted sentence of 15+ chars and a
	// declarative clause must still yield at least one fact.
	r := New()
	raw := `The whiteboard in the photo reads "migration window is next Tuesday".
The team agreed the rollout plan needs a second reviewer before launch.`

	res, err := r.Recover(raw)

	require.NoError(t, err)
	assert.Equal(t, TierMining, res.Tier)
	require.NotEmpty(t, res.Extraction.Facts)

	contents := make([]string, 0, len(res.Extraction.Facts))
	for _, f := range res.Extraction.Facts {
		contents = append(contents, f.Content)
		assert.LessOrEqual(t, f.Confidence, 0.5, "mined facts must be low confidence")
	}
	assert.Contains(t, contents, "migration window is next Tuesday")
}

func TestRecoverMiningExcludesMetaCommentary(t *testing.T) {
	r := New()
	raw := `I cannot produce the requested structure for this meeting input.
The project deadline was moved to the fifteenth of September.`

	res, err := r.Recover(raw)

	require.NoError(t, err)
	for _, f := range res.Extraction.Facts {
		assert.NotContains(t, f.Content, "cannot")
	}
}

func TestRecoverFailureSentinel(t *testing.T) {
	r := New()

	tests := []string{
		"",
		"   \n\t  ",
		"ok",
	}
	for _, raw := range tests {
		res, err := r.Recover(raw)
		assert.ErrorIs(t, err, ErrUnrecoverable, "input %q", raw)
		assert.Nil(t, res)
	}
}

func TestRecoverMonotonicity(t *testing.T) {
	// If the direct tier succeeds, the full cascade returns exactly the
	// direct tier's result.
	raw := `{"facts": [{"content": "só um facto", "confidence": 0.7}], "summary": "s"}`

	direct := directParse(raw)
	require.NotNil(t, direct)

	res, err := New().Recover(raw)
	require.NoError(t, err)
	assert.Equal(t, TierDirect, res.Tier)
	assert.Equal(t, direct, res.Extraction)
}

func TestRecoverDefaultsQuestionStatus(t *testing.T) {
	r := New()

	res, err := r.Recover(`{"questions": [{"content": "open one"}, {"content": "answered one", "answer": "yes"}]}`)

	require.NoError(t, err)
	require.Len(t, res.Extraction.Questions, 2)
	assert.Equal(t, "open", res.Extraction.Questions[0].Status)
	assert.Equal(t, "resolved", res.Extraction.Questions[1].Status)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "direct", TierDirect.String())
	assert.Equal(t, "mining", TierMining.String())
	assert.Equal(t, "none", Tier(0).String())
}
