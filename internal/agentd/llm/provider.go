package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/domain"
)

// Request contains text-to-SQL generation parameters
type Request struct {
	Question  string
	SchemaDDL string
	History   []domain.HistoryMessage
}

// Response contains the generation result
type Response struct {
	SQL         string
	Explanation string
}

// Provider defines the interface for SQL-generating backends
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// IsConfigured checks if the provider has valid credentials
	IsConfigured() bool

	// GenerateSQL generates a SQL proposal and an answer from natural language
	GenerateSQL(ctx context.Context, req Request) (*Response, error)
}

// BuildPrompt creates a prompt for SQL generation
func BuildPrompt(req Request) string {
	historyStr := ""
	if len(req.History) > 0 {
		var b strings.Builder
		b.WriteString("\n\nConversation so far:\n")
		for _, m := range req.History {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		historyStr = b.String()
	}

	return fmt.Sprintf(`You are an expert SQL analyst for SQLite databases.

Rules:
1. Answer in short markdown, then provide exactly one SQL query in a `+"```sql"+` code block
2. Use only SELECT statements (no INSERT, UPDATE, DELETE, DROP, etc.)
3. Always include an appropriate LIMIT clause
4. Use only tables and columns from the provided schema
5. Handle NULL values appropriately

Database Schema:
%s%s

Question: %s`, req.SchemaDDL, historyStr, req.Question)
}

// ExtractSQL pulls the SQL statement out of a model response
func ExtractSQL(content string) string {
	if sql := extractFromCodeBlock(content, "```sql"); sql != "" {
		return sql
	}
	if sql := extractFromCodeBlock(content, "```"); sql != "" {
		return sql
	}
	return ""
}

// StripCodeBlocks removes fenced SQL blocks so the remaining prose can be
// used as the answer text.
func StripCodeBlocks(content string) string {
	for {
		start := strings.Index(content, "```")
		if start == -1 {
			break
		}
		end := strings.Index(content[start+3:], "```")
		if end == -1 {
			content = content[:start]
			break
		}
		content = content[:start] + content[start+3+end+3:]
	}
	return strings.TrimSpace(content)
}

func extractFromCodeBlock(content, startMarker string) string {
	start := strings.Index(content, startMarker)
	if start == -1 {
		return ""
	}
	rest := content[start+len(startMarker):]
	if len(rest) > 0 && rest[0] == '\n' {
		rest = rest[1:]
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest[:end]), ";"))
}
