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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseable asserts the sanitized text is valid JSON and returns it decoded.
func parseable(t *testing.T, raw string) map[string]any {
	t.Helper()
	sanitized := sanitizeJSON(raw)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(sanitized), &v), "sanitized: %s", sanitized)
	return v
}

func TestSanitizeTrailingSeparators(t *testing.T) {
	v := parseable(t, `{"facts": [{"content": "A" ,}],}`)
	facts := v["facts"].([]any)
	require.Len(t, facts, 1)
	assert.Equal(t, "A", facts[0].(map[string]any)["content"])
}

func TestSanitizeUnquotedKeys(t *testing.T) {
	v := parseable(t, `{content: "x", type": "fact"}`)
	assert.Equal(t, "x", v["content"])
	assert.Equal(t, "fact", v["type"])
}

func TestSanitizeLeadingZeros(t *testing.T) {
	v := parseable(t, `{"count": 007, "score": 0.5}`)
	assert.Equal(t, float64(7), v["count"])
	assert.Equal(t, 0.5, v["score"])
}

func TestSanitizeNonFiniteNumbers(t *testing.T) {
	v := parseable(t, `{"confidence": NaN, "total": Infinity}`)
	assert.Nil(t, v["confidence"])
	assert.Nil(t, v["total"])
}

func TestSanitizeRawNewlinesInStrings(t *testing.T) {
	v := parseable(t, "{\"summary\": \"line one\nline two\ttabbed\"}")
	assert.Equal(t, "line one\nline two\ttabbed", v["summary"])
}

func TestSanitizeControlCharacters(t *testing.T) {
	v := parseable(t, "{\"content\": \"ok\x07value\"}")
	assert.Equal(t, "okvalue", v["content"])
}

func TestSanitizeBalancesBrackets(t *testing.T) {
	v := parseable(t, `{"facts": [{"content": "cut off"`)
	facts := v["facts"].([]any)
	require.Len(t, facts, 1)
	assert.Equal(t, "cut off", facts[0].(map[string]any)["content"])
}

func TestSanitizeLeavesStringContentAlone(t *testing.T) {
	// Tokens that look repairable must not be touched inside strings.
	v := parseable(t, `{"content": "use 007, NaN and {braces} as-is"}`)
	assert.Equal(t, "use 007, NaN and {braces} as-is", v["content"])
}

func TestSanitizeValidInputUnchanged(t *testing.T) {
	in := `{"facts":[{"content":"a","confidence":0.9}],"summary":"s"}`
	assert.Equal(t, in, sanitizeJSON(in))
}
