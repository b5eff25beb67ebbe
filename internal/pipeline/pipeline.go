package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/execute"
	"github.com/askdb/askdb/internal/generate"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/prompt"
	"github.com/askdb/askdb/internal/schema"
	"github.com/askdb/askdb/internal/validate"
	"github.com/askdb/askdb/internal/viz"
)

// Outcome is the full record of one question's run through the pipeline.
// Every run produces an Outcome, failed ones included: the caller always
// sees what was generated and why it stopped.
type Outcome struct {
	RunID        string            `json:"run_id"`
	Question     string            `json:"question"`
	GeneratedSQL string            `json:"generated_sql,omitempty"`
	RawResponse  string            `json:"raw_response,omitempty"`
	Verdict      *validate.Verdict `json:"verdict,omitempty"`
	Result       *execute.Result   `json:"result,omitempty"`
	Chart        viz.ChartSpec     `json:"chart"`
	Duration     time.Duration     `json:"duration"`
	Err          error             `json:"-"`
}

// Failed reports whether the run stopped before producing a result
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// queryGenerator is the slice of the generator the pipeline needs
type queryGenerator interface {
	Generate(ctx context.Context, question string, desc schema.Descriptor,
		history []prompt.Turn) (generate.CandidateQuery, error)
}

// queryExecutor is the slice of the executor the pipeline needs
type queryExecutor interface {
	Execute(ctx context.Context, sqlText string, limits execute.Limits) (*execute.Result, error)
}

// Pipeline runs questions end to end: schema, generation, validation,
// execution, chart selection. The executor is reached only through an
// admitted verdict.
type Pipeline struct {
	introspect func(ctx context.Context) (schema.Descriptor, error)
	generator  queryGenerator
	executor   queryExecutor
	selector   *viz.Selector
	limits     execute.Limits
	logger     *logging.Logger

	history []prompt.Turn
}

// New creates a pipeline over a read-only database connection
func New(db *sql.DB, generator queryGenerator, executor queryExecutor,
	selector *viz.Selector, limits execute.Limits) *Pipeline {
	return &Pipeline{
		introspect: func(ctx context.Context) (schema.Descriptor, error) {
			return schema.Introspect(ctx, db)
		},
		generator: generator,
		executor:  executor,
		selector:  selector,
		limits:    limits,
		logger:    logging.GetLogger(),
	}
}

// Run answers one natural-language question. It never panics and never
// returns a bare error: failures come back inside the Outcome.
func (p *Pipeline) Run(ctx context.Context, question string) Outcome {
	start := time.Now()

	outcome := Outcome{
		RunID:    uuid.New().String(),
		Question: question,
		Chart:    viz.ChartSpec{Kind: viz.KindTable, Rationale: "no result"},
	}

	log := p.logger.WithField("run_id", outcome.RunID)

	defer func() {
		outcome.Duration = time.Since(start)
	}()

	if word, found := screenIntent(question); found {
		outcome.Err = errors.New(errors.ErrTypeValidation,
			fmt.Sprintf("question asks for a data modification (%q)", word)).
			WithSuggestion("Only read-only questions are supported; rephrase as a lookup or aggregation")

		log.WithField("word", word).Warn("question refused by intent screen")

		return outcome
	}

	desc, err := p.introspect(ctx)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	candidate, err := p.generator.Generate(ctx, question, desc, p.history)
	outcome.RawResponse = candidate.RawText

	if err != nil {
		outcome.Err = err
		return outcome
	}

	if !candidate.Found {
		outcome.Err = errors.New(errors.ErrTypeGenerationEmpty,
			"no SQL statement could be extracted from the model response").
			WithSuggestion("Try rephrasing the question or naming the table you are interested in")

		return outcome
	}

	outcome.GeneratedSQL = candidate.ExtractedSQL

	verdict := validate.Validate(candidate)
	outcome.Verdict = &verdict

	if !verdict.Admitted {
		outcome.Err = errors.New(errors.ErrTypeValidation,
			rejectionMessage(verdict))

		log.WithFields(map[string]interface{}{
			"reason":  string(verdict.Reason),
			"matched": verdict.MatchedPattern,
		}).Warn("generated query rejected")

		return outcome
	}

	result, err := p.executor.Execute(ctx, candidate.ExtractedSQL, p.limits)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Result = result
	outcome.Chart = p.selector.Select(result)

	p.history = append(p.history, prompt.Turn{
		Question: question,
		SQL:      candidate.ExtractedSQL,
	})

	log.WithFields(map[string]interface{}{
		"rows":  result.RowCount,
		"chart": string(outcome.Chart.Kind),
	}).Info("question answered")

	return outcome
}

// History returns the accepted question/SQL turns so far
func (p *Pipeline) History() []prompt.Turn {
	return p.history
}

func rejectionMessage(v validate.Verdict) string {
	switch v.Reason {
	case validate.ReasonNoStatementFound:
		return "no SQL statement found in the generated text"
	case validate.ReasonNotReadOnly:
		return "the generated query is not a read-only SELECT statement"
	case validate.ReasonForbiddenKeyword:
		return fmt.Sprintf("the generated query contains the forbidden keyword %q", v.MatchedPattern)
	case validate.ReasonMultiStatement:
		return "the generated text contains more than one statement"
	default:
		return "the generated query was rejected"
	}
}

// Words that signal the question itself asks for a mutation. Matching
// questions are refused before the oracle is called; the validator remains
// the authority for generated text.
var intentDenylist = map[string]struct{}{
	"delete": {}, "drop": {}, "truncate": {}, "insert": {}, "update": {},
	"alter": {}, "remove": {}, "erase": {}, "modify": {}, "overwrite": {},
}

// screenIntent returns the first mutation word in the question, if any
func screenIntent(question string) (string, bool) {
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, ".,;:!?'\"()")
		if _, ok := intentDenylist[word]; ok {
			return word, true
		}
	}

	return "", false
}
