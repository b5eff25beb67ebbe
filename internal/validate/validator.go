package validate

import (
	"strings"

	"github.com/askdb/askdb/internal/generate"
)

// ReasonCode classifies a validation verdict
type ReasonCode string

const (
	ReasonAdmitted         ReasonCode = "Admitted"
	ReasonNoStatementFound ReasonCode = "NoStatementFound"
	ReasonNotReadOnly      ReasonCode = "NotReadOnly"
	ReasonForbiddenKeyword ReasonCode = "ForbiddenKeyword"
	ReasonMultiStatement   ReasonCode = "MultiStatement"
)

// Verdict is the validator's decision for one candidate query. Exactly one
// verdict is produced per candidate; the same text always yields the same
// verdict.
type Verdict struct {
	Admitted       bool       `json:"admitted"`
	Reason         ReasonCode `json:"reason"`
	MatchedPattern string     `json:"matched_pattern,omitempty"`
}

// denylist holds the keywords that unconditionally disqualify a candidate:
// data modification, schema and privilege changes, statement chaining, and
// file or system access. Matching is token-based, so substrings inside
// identifiers (dropout_rate, created_at) never trigger.
var denylist = map[string]struct{}{
	// data-modifying
	"insert":   {},
	"update":   {},
	"delete":   {},
	"merge":    {},
	"replace":  {},
	"truncate": {},
	"upsert":   {},
	// schema-altering
	"drop":   {},
	"alter":  {},
	"create": {},
	// privilege-altering
	"grant":  {},
	"revoke": {},
	// session, database and extension administration
	"attach":  {},
	"detach":  {},
	"vacuum":  {},
	"pragma":  {},
	"set":     {},
	"reset":   {},
	"install": {},
	"load":    {},
	"use":     {},
	// procedural execution
	"exec":    {},
	"execute": {},
	"call":    {},
	// file and system access
	"copy":              {},
	"export":            {},
	"import":            {},
	"read_csv":          {},
	"read_csv_auto":     {},
	"read_parquet":      {},
	"read_json":         {},
	"read_json_auto":    {},
	"read_json_objects": {},
	"read_text":         {},
	"read_blob":         {},
	"glob":              {},
}

// Validate classifies a candidate query as admitted or rejected. It is a pure
// function over the candidate's text: no network, no state across calls, and
// it never corrects or rewrites the query. Policy is applied in order with
// first match winning; ambiguous input is rejected, not fixed.
func Validate(candidate generate.CandidateQuery) Verdict {
	// 1. No parseable statement was extracted
	if !candidate.Found || strings.TrimSpace(candidate.ExtractedSQL) == "" {
		return Verdict{Admitted: false, Reason: ReasonNoStatementFound}
	}

	normalized := Normalize(candidate.ExtractedSQL)

	// 2. Must begin with the read-only retrieval keyword
	if !strings.HasPrefix(normalized, "select") || !boundaryAt(normalized, len("select")) {
		return Verdict{Admitted: false, Reason: ReasonNotReadOnly}
	}

	// 3. Denylist scan. The normalized text catches keywords hidden by
	// whitespace tricks; the raw text catches keywords hidden in comments
	// or string-literal-looking spans. The generator's output is untrusted
	// text, not a parsed AST, so literals are scanned too.
	for _, text := range []string{normalized, strings.ToLower(candidate.ExtractedSQL)} {
		if match, found := scanDenylist(text); found {
			return Verdict{
				Admitted:       false,
				Reason:         ReasonForbiddenKeyword,
				MatchedPattern: match,
			}
		}
	}

	// 4. A single statement-terminating boundary at most
	if count, trailing := scanTerminators(normalized); count > 1 || trailing {
		return Verdict{Admitted: false, Reason: ReasonMultiStatement}
	}

	// 5. Admitted
	return Verdict{Admitted: true, Reason: ReasonAdmitted}
}

// Normalize lowercases the statement, strips SQL comments, and collapses all
// whitespace runs to single spaces.
func Normalize(sql string) string {
	stripped := stripComments(sql)

	return strings.ToLower(strings.Join(strings.Fields(stripped), " "))
}

// stripComments removes -- line comments and /* */ block comments. Comment
// markers inside quoted spans are passed through untouched, so a literal
// containing "--" cannot swallow the text after it. An unterminated block
// comment swallows the rest of the text, which is the conservative reading
// for untrusted input.
func stripComments(sql string) string {
	var sb strings.Builder

	inSingle := false
	inDouble := false

	for i := 0; i < len(sql); {
		if !inSingle && !inDouble {
			if strings.HasPrefix(sql[i:], "--") {
				end := strings.IndexByte(sql[i:], '\n')
				if end < 0 {
					break
				}

				i += end
				continue
			}

			if strings.HasPrefix(sql[i:], "/*") {
				end := strings.Index(sql[i:], "*/")
				if end < 0 {
					break
				}

				i += end + len("*/")
				sb.WriteByte(' ')
				continue
			}
		}

		switch sql[i] {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		}

		sb.WriteByte(sql[i])
		i++
	}

	return sb.String()
}

// scanDenylist walks the text token by token and reports the first
// denylisted keyword. Tokens are maximal runs of identifier characters, so
// matching is keyword-boundary-aware.
func scanDenylist(text string) (string, bool) {
	start := -1

	for i := 0; i <= len(text); i++ {
		if i < len(text) && isWordChar(text[i]) {
			if start < 0 {
				start = i
			}

			continue
		}

		if start >= 0 {
			token := text[start:i]
			if _, bad := denylist[token]; bad {
				return token, true
			}

			start = -1
		}
	}

	return "", false
}

// isWordChar reports whether b belongs to an identifier token
func isWordChar(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// boundaryAt reports whether position i in text sits on a token boundary
func boundaryAt(text string, i int) bool {
	if i >= len(text) {
		return true
	}

	return !isWordChar(text[i])
}

// scanTerminators counts statement-terminating semicolons outside quoted
// spans and reports whether any content follows the first one. Quote tracking
// matches the extractor's scanner: single quotes delimit literals, double
// quotes delimit identifiers.
func scanTerminators(normalized string) (count int, trailing bool) {
	inSingle := false
	inDouble := false

	for i := 0; i < len(normalized); i++ {
		switch normalized[i] {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case ';':
			if !inSingle && !inDouble {
				if count == 0 {
					trailing = strings.TrimSpace(normalized[i+1:]) != ""
				}

				count++
			}
		}
	}

	return count, trailing
}
