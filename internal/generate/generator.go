package generate

import (
	"context"
	"regexp"
	"strings"

	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/oracle"
	"github.com/askdb/askdb/internal/prompt"
	"github.com/askdb/askdb/internal/schema"
)

// CandidateQuery is the generator's output for one question. ExtractedSQL is
// empty and Found is false when no parseable single statement was located in
// the oracle's response - a distinct state, not an error of convenience.
type CandidateQuery struct {
	RawText      string `json:"raw_text"`
	ExtractedSQL string `json:"extracted_sql"`
	Found        bool   `json:"found"`
	Attempts     int    `json:"attempts"`
}

// Generator sends composed prompts to the oracle and extracts a single
// statement from its free-form output.
type Generator struct {
	oracle      oracle.Service
	composer    *prompt.Composer
	maxAttempts int
	logger      *logging.Logger
}

// NewGenerator creates a generator. maxAttempts caps oracle calls per
// question and is clamped to [1,2]; retries are counted, never unbounded.
func NewGenerator(svc oracle.Service, composer *prompt.Composer, maxAttempts int) *Generator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	if maxAttempts > 2 {
		maxAttempts = 2
	}

	return &Generator{
		oracle:      svc,
		composer:    composer,
		maxAttempts: maxAttempts,
		logger:      logging.GetLogger(),
	}
}

// Generate issues the composed prompt to the oracle and extracts candidate
// SQL. On an extraction miss it retries once with a stricter prompt, then
// gives up: the caller decides how to surface the empty result.
func (g *Generator) Generate(
	ctx context.Context,
	question string,
	desc schema.Descriptor,
	history []prompt.Turn,
) (CandidateQuery, error) {
	candidate := CandidateQuery{}

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		req := g.composer.Compose(question, desc, history)
		if attempt > 1 {
			req.Prompt += prompt.StricterSuffix
		}

		completion, err := g.oracle.Complete(ctx, req)
		if err != nil {
			return candidate, err
		}

		candidate.RawText = completion.Text
		candidate.Attempts = attempt
		candidate.ExtractedSQL, candidate.Found = ExtractStatement(completion.Text)

		if candidate.Found {
			return candidate, nil
		}

		g.logger.WithField("attempt", attempt).
			Warn("oracle response contained no parseable statement")
	}

	return candidate, nil
}

// Statement starts are matched at line boundaries first so that keywords
// inside the oracle's surrounding commentary do not begin a statement.
// Mutation keywords are still extracted when present: the validator, not the
// extractor, owns the rejection.
var (
	lineStart     = regexp.MustCompile(`(?im)^[ \t]*(SELECT|WITH|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|MERGE|REPLACE|GRANT|REVOKE)\b`)
	readOnlyStart = regexp.MustCompile(`(?is)\b(SELECT|WITH)\b`)
	fencedBlock   = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
)

// ExtractStatement deterministically locates the first well-formed statement
// in free-form oracle output, discarding surrounding commentary. The
// statement runs from its leading keyword to the first terminator or
// end-of-text.
func ExtractStatement(raw string) (string, bool) {
	text := stripFences(raw)

	loc := lineStart.FindStringSubmatchIndex(text)

	var start int

	switch {
	case loc != nil:
		start = loc[2] // keyword start, leading indentation dropped
	default:
		inline := readOnlyStart.FindStringIndex(text)
		if inline == nil {
			return "", false
		}

		start = inline[0]
	}

	statement := text[start:]
	if end := terminatorIndex(statement); end >= 0 {
		statement = statement[:end]
	}

	statement = strings.TrimSpace(statement)
	if statement == "" {
		return "", false
	}

	return statement, true
}

// stripFences unwraps markdown code fences the oracle may have added
func stripFences(raw string) string {
	if match := fencedBlock.FindStringSubmatch(raw); match != nil {
		return match[1]
	}

	return raw
}

// terminatorIndex returns the index of the first statement terminator that is
// outside a quoted span, or -1.
func terminatorIndex(s string) int {
	inSingle := false
	inDouble := false

	for i, r := range s {
		switch r {
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
				return i
			}
		}
	}

	return -1
}
