package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/oracle"
	"github.com/askdb/askdb/internal/prompt"
	"github.com/askdb/askdb/internal/schema"
)

// MockOracle is a mock implementation of the oracle service
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Complete(ctx context.Context, req oracle.GenerationRequest) (*oracle.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*oracle.Completion), args.Error(1)
}

func (m *MockOracle) Configure(config oracle.Config) error {
	args := m.Called(config)
	return args.Error(0)
}

func testDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Tables: []schema.TableSpec{
			{
				Name: "transactions",
				Columns: []schema.ColumnSpec{
					{Name: "amount", DeclaredType: "DOUBLE"},
					{Name: "transaction_type", DeclaredType: "VARCHAR"},
				},
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	mockOracle := &MockOracle{}
	mockOracle.On("Complete", mock.Anything, mock.Anything).Return(
		&oracle.Completion{Text: "SELECT SUM(amount) AS total FROM transactions WHERE transaction_type = 'Deposit';"},
		nil,
	).Once()

	gen := NewGenerator(mockOracle, prompt.NewComposer(0.1, 1000), 2)

	candidate, err := gen.Generate(context.Background(), "Show total deposits", testDescriptor(), nil)
	require.NoError(t, err)

	assert.True(t, candidate.Found)
	assert.Equal(t, 1, candidate.Attempts)
	assert.Equal(t,
		"SELECT SUM(amount) AS total FROM transactions WHERE transaction_type = 'Deposit'",
		candidate.ExtractedSQL,
	)

	mockOracle.AssertExpectations(t)
}

func TestGenerateRetryWithStricterPrompt(t *testing.T) {
	mockOracle := &MockOracle{}

	// First response is pure commentary, second carries a statement
	mockOracle.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.GenerationRequest) bool {
		return !strings.Contains(req.Prompt, "previous response")
	})).Return(&oracle.Completion{Text: "I am happy to help with your banking questions!"}, nil).Once()

	mockOracle.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.GenerationRequest) bool {
		return strings.Contains(req.Prompt, "previous response")
	})).Return(&oracle.Completion{Text: "SELECT COUNT(*) FROM transactions;"}, nil).Once()

	gen := NewGenerator(mockOracle, prompt.NewComposer(0.1, 1000), 2)

	candidate, err := gen.Generate(context.Background(), "How many transactions?", testDescriptor(), nil)
	require.NoError(t, err)

	assert.True(t, candidate.Found)
	assert.Equal(t, 2, candidate.Attempts)
	assert.Equal(t, "SELECT COUNT(*) FROM transactions", candidate.ExtractedSQL)

	mockOracle.AssertExpectations(t)
}

func TestGenerateRetryIsCapped(t *testing.T) {
	mockOracle := &MockOracle{}
	mockOracle.On("Complete", mock.Anything, mock.Anything).
		Return(&oracle.Completion{Text: "no statement here"}, nil).
		Twice()

	gen := NewGenerator(mockOracle, prompt.NewComposer(0.1, 1000), 2)

	candidate, err := gen.Generate(context.Background(), "anything", testDescriptor(), nil)
	require.NoError(t, err)

	assert.False(t, candidate.Found)
	assert.Empty(t, candidate.ExtractedSQL)
	assert.Equal(t, 2, candidate.Attempts)

	// Exactly two calls; no unbounded loop
	mockOracle.AssertNumberOfCalls(t, "Complete", 2)
}

func TestGenerateAttemptsClamped(t *testing.T) {
	gen := NewGenerator(&MockOracle{}, prompt.NewComposer(0.1, 1000), 10)
	assert.Equal(t, 2, gen.maxAttempts)

	gen = NewGenerator(&MockOracle{}, prompt.NewComposer(0.1, 1000), 0)
	assert.Equal(t, 1, gen.maxAttempts)
}

func TestGenerateOracleTimeoutNoRetry(t *testing.T) {
	mockOracle := &MockOracle{}
	mockOracle.On("Complete", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrTypeOracleTimeout, "oracle call exceeded timeout")).
		Once()

	gen := NewGenerator(mockOracle, prompt.NewComposer(0.1, 1000), 2)

	candidate, err := gen.Generate(context.Background(), "anything", testDescriptor(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeOracleTimeout))
	assert.False(t, candidate.Found)

	// Transport failures surface immediately; no partial SQL is ever produced
	mockOracle.AssertNumberOfCalls(t, "Complete", 1)
}

func TestExtractStatement(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantSQL   string
		wantFound bool
	}{
		{
			name:      "bare statement",
			raw:       "SELECT * FROM customers",
			wantSQL:   "SELECT * FROM customers",
			wantFound: true,
		},
		{
			name:      "markdown sql fence",
			raw:       "Here you go:\n```sql\nSELECT name FROM customers;\n```\nLet me know if this helps.",
			wantSQL:   "SELECT name FROM customers",
			wantFound: true,
		},
		{
			name:      "plain fence",
			raw:       "```\nSELECT 1\n```",
			wantSQL:   "SELECT 1",
			wantFound: true,
		},
		{
			name:      "surrounding commentary",
			raw:       "Sure! The query below answers that.\n\nSELECT AVG(balance) FROM accounts;\n\nIt averages all balances.",
			wantSQL:   "SELECT AVG(balance) FROM accounts",
			wantFound: true,
		},
		{
			name:      "terminator cuts trailing statements",
			raw:       "SELECT 1; DROP TABLE customers;",
			wantSQL:   "SELECT 1",
			wantFound: true,
		},
		{
			name:      "semicolon inside string literal is not a terminator",
			raw:       "SELECT * FROM transactions WHERE description = 'a;b'",
			wantSQL:   "SELECT * FROM transactions WHERE description = 'a;b'",
			wantFound: true,
		},
		{
			name:      "cte statement",
			raw:       "WITH totals AS (SELECT SUM(amount) s FROM transactions) SELECT s FROM totals",
			wantSQL:   "WITH totals AS (SELECT SUM(amount) s FROM transactions) SELECT s FROM totals",
			wantFound: true,
		},
		{
			name:      "mutation statement still extracted for the validator",
			raw:       "DELETE FROM loans WHERE status = 'Defaulted'",
			wantSQL:   "DELETE FROM loans WHERE status = 'Defaulted'",
			wantFound: true,
		},
		{
			name:      "refusal text has no statement",
			raw:       "ERROR: Read-only access. Cannot modify data.",
			wantFound: false,
		},
		{
			name:      "empty response",
			raw:       "",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, found := ExtractStatement(tt.raw)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantSQL, sql)
		})
	}
}
