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
)

// sanitizeJSON attempts to fix the malformations models commonly produce:
// control characters, literal newlines and tabs inside string values,
// unquoted or half-quoted keys, numbers with spurious leading zeros,
// non-finite numeric tokens, trailing separators before closing brackets,
// and unclosed brackets or braces. It is a best-effort pass; the caller
// retries the parse exactly once on its output.
func sanitizeJSON(s string) string {
	s = stripControlChars(s)
	s = escapeRawWhitespaceInStrings(s)
	s = quoteUnquotedKeys(s)
	s = mapOutsideStrings(s, fixNumericTokens)
	s = mapOutsideStrings(s, removeTrailingSeparators)
	s = balanceBrackets(s)
	return s
}

// stripControlChars removes control bytes other than newline, carriage
// return and tab (those are handled by the string-escaping pass).
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// escapeRawWhitespaceInStrings replaces literal newlines, carriage returns
// and tabs found inside string values with their JSON escapes.
func escapeRawWhitespaceInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		if escaped {
			escaped = false
			b.WriteByte(c)
			continue
		}

		switch c {
		case '\\':
			escaped = true
			b.WriteByte(c)
		case '"':
			inString = false
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// quoteUnquotedKeys repairs object keys that lost one or both quotes.
// Handles both `key:` and the half-quoted `key":` form.
func quoteUnquotedKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 32)

	inString := false
	escaped := false
	i := 0
	for i < len(s) {
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
			b.WriteByte(c)
			i++
			continue
		}

		if c == '"' {
			inString = true
			b.WriteByte(c)
			i++
			continue
		}

		if c != '{' && c != ',' {
			b.WriteByte(c)
			i++
			continue
		}

		// After { or , an identifier followed by ':' is an unquoted key.
		b.WriteByte(c)
		i++
		for i < len(s) && isJSONSpace(s[i]) {
			b.WriteByte(s[i])
			i++
		}
		if i >= len(s) || !isIdentStart(s[i]) {
			continue
		}

		j := i
		for j < len(s) && isIdentChar(s[j]) {
			j++
		}
		k := j
		for k < len(s) && isJSONSpace(s[k]) {
			k++
		}

		switch {
		case k < len(s) && s[k] == ':':
			// Fully unquoted key.
			b.WriteByte('"')
			b.WriteString(s[i:j])
			b.WriteByte('"')
			i = j
		case k+1 < len(s) && s[k] == '"' && s[k+1] == ':':
			// Missing opening quote; the closing quote is already there.
			b.WriteByte('"')
			b.WriteString(s[i:j])
			i = j
		default:
			// Not a key (e.g. a bare literal); copy as-is.
			b.WriteString(s[i:j])
			i = j
		}
	}
	return b.String()
}

var (
	leadingZeroRE = regexp.MustCompile(`([:\[,]\s*-?)0+([0-9])`)
	nonFiniteRE   = regexp.MustCompile(`(?i)(:\s*)-?(?:nan|infinity|inf)\b`)
	trailingSepRE = regexp.MustCompile(`,(\s*[}\]])`)
)

// fixNumericTokens rewrites numbers with spurious leading zeros and
// replaces non-finite numeric tokens with null.
func fixNumericTokens(seg string) string {
	seg = leadingZeroRE.ReplaceAllString(seg, "${1}${2}")
	return nonFiniteRE.ReplaceAllString(seg, "${1}null")
}

// removeTrailingSeparators drops commas left dangling before a closing
// bracket or brace, repeatedly so stacked separators also disappear.
func removeTrailingSeparators(seg string) string {
	for {
		next := trailingSepRE.ReplaceAllString(seg, "$1")
		if next == seg {
			return next
		}
		seg = next
	}
}

// mapOutsideStrings applies f to every maximal segment of s that lies
// outside string literals, leaving string contents untouched.
func mapOutsideStrings(s string, f func(string) string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	segStart := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				// String literal copied verbatim, quotes included.
				inString = false
				b.WriteString(s[segStart : i+1])
				segStart = i + 1
			}
			continue
		}
		if c == '"' {
			b.WriteString(f(s[segStart:i]))
			inString = true
			segStart = i
		}
	}
	if inString {
		// Unterminated string; copy the rest verbatim.
		b.WriteString(s[segStart:])
	} else {
		b.WriteString(f(s[segStart:]))
	}
	return b.String()
}

// balanceBrackets appends the closers for any brackets or braces left open
// at the end of the text, closing an unterminated string first.
func balanceBrackets(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
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
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if !inString && len(stack) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(stack) + 1)
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
