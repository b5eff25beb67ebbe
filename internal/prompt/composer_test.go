package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askdb/askdb/internal/schema"
)

func testDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Tables: []schema.TableSpec{
			{
				Name: "transactions",
				Columns: []schema.ColumnSpec{
					{Name: "transaction_id", DeclaredType: "INTEGER"},
					{Name: "amount", DeclaredType: "DOUBLE"},
					{Name: "transaction_type", DeclaredType: "VARCHAR"},
				},
			},
		},
	}
}

func TestCompose(t *testing.T) {
	composer := NewComposer(0.1, 1000)

	req := composer.Compose("Show total deposits last month", testDescriptor(), nil)

	assert.Equal(t, "Show total deposits last month", req.Question)
	assert.InDelta(t, 0.1, req.Temperature, 1e-9)
	assert.Equal(t, 1000, req.MaxTokens)
	assert.Contains(t, req.Prompt, "Table: transactions")
	assert.Contains(t, req.Prompt, "- amount (DOUBLE)")
	assert.Contains(t, req.Prompt, `Question: "Show total deposits last month"`)
	assert.Contains(t, req.Prompt, "exactly one read-only SELECT statement")
}

func TestComposeDeterministic(t *testing.T) {
	composer := NewComposer(0.1, 1000)
	desc := testDescriptor()

	first := composer.Compose("How many accounts are active?", desc, nil)
	second := composer.Compose("How many accounts are active?", desc, nil)

	assert.Equal(t, first, second)
}

func TestComposeWithHistory(t *testing.T) {
	composer := NewComposer(0.1, 1000)

	history := []Turn{
		{Question: "How many customers?", SQL: "SELECT COUNT(*) FROM customers"},
	}

	req := composer.Compose("And how many of them are business customers?", testDescriptor(), history)

	assert.Contains(t, req.Prompt, "Earlier questions in this session")
	assert.Contains(t, req.Prompt, "SELECT COUNT(*) FROM customers")
}

func TestComposeNoHistorySection(t *testing.T) {
	composer := NewComposer(0.1, 1000)

	req := composer.Compose("How many customers?", testDescriptor(), nil)

	assert.NotContains(t, req.Prompt, "Earlier questions in this session")
}
