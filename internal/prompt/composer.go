package prompt

import (
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/oracle"
	"github.com/askdb/askdb/internal/schema"
)

// Turn records one prior question/SQL exchange, used to give the oracle
// conversational context on follow-up questions.
type Turn struct {
	Question string
	SQL      string
}

// Composer builds generation requests from a question and the schema
// descriptor. It is deterministic given identical inputs, so a validator
// rejection is always attributable to the generator, never to prompt drift.
type Composer struct {
	temperature float64
	maxTokens   int
}

// NewComposer creates a composer with the given generation parameters
func NewComposer(temperature float64, maxTokens int) *Composer {
	return &Composer{
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

const promptTemplate = `You are an expert SQL assistant for a banking database. Convert natural language questions to SQL queries.

%s
CRITICAL RULES - MUST FOLLOW:
1. Return ONLY the SQL query, nothing else (no explanations, no markdown)
2. Produce exactly one read-only SELECT statement - NEVER generate INSERT, UPDATE, DELETE, DROP, TRUNCATE, or ALTER
3. If the user asks to modify, delete, or add data, respond with: "ERROR: Read-only access. Cannot modify data."
4. Use standard SQL syntax compatible with DuckDB
5. Use proper JOIN syntax when querying multiple tables
6. Prefer aggregate functions (SUM, COUNT, AVG, MAX, MIN) for summary questions
7. Add ORDER BY when showing top/bottom results
8. Add LIMIT when appropriate (default 10 for lists)
9. Use descriptive column aliases with AS
10. Handle NULL values appropriately

Examples of ALLOWED requests:
Question: "Show me top 5 customers by balance"
SQL: SELECT c.name, c.customer_id, SUM(a.balance) AS total_balance FROM customers c JOIN accounts a ON c.customer_id = a.customer_id GROUP BY c.customer_id, c.name ORDER BY total_balance DESC LIMIT 5

Question: "What is average deposit amount?"
SQL: SELECT AVG(amount) AS average_deposit FROM transactions WHERE transaction_type = 'deposit'
%s
Now convert this question to SQL:
Question: "%s"

SQL Query:`

// Compose combines the schema descriptor, the user's question, and the
// generation constraints into a single request for the oracle.
func (c *Composer) Compose(question string, desc schema.Descriptor, history []Turn) oracle.GenerationRequest {
	return oracle.GenerationRequest{
		Question:    question,
		Schema:      desc,
		Prompt:      c.buildPrompt(question, desc, history),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
}

// buildPrompt renders the full prompt text
func (c *Composer) buildPrompt(question string, desc schema.Descriptor, history []Turn) string {
	return fmt.Sprintf(promptTemplate, desc.Format(), formatHistory(history), question)
}

// formatHistory renders prior turns as additional context, oldest first
func formatHistory(history []Turn) string {
	if len(history) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString("\nEarlier questions in this session, for context:\n")

	for _, turn := range history {
		sb.WriteString(fmt.Sprintf("Question: %q\nSQL: %s\n", turn.Question, turn.SQL))
	}

	return sb.String()
}

// StricterSuffix is appended to the prompt on the single bounded retry after
// an extraction failure.
const StricterSuffix = "\n\nIMPORTANT: Your previous response did not contain a single SQL statement. Respond with exactly one SELECT statement and absolutely nothing else."
