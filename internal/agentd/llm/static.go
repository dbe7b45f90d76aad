package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Static is a deterministic offline provider used when no API key is
// configured. It proposes simple schema-derived queries so the whole stack
// works without network access.
type Static struct{}

func NewStatic() *Static {
	return &Static{}
}

func (s *Static) Name() string {
	return "static"
}

func (s *Static) IsConfigured() bool {
	return true
}

var tableNamePattern = regexp.MustCompile(`(?i)CREATE TABLE\s+"?(\w+)"?`)

func (s *Static) GenerateSQL(ctx context.Context, req Request) (*Response, error) {
	table := firstTable(req.SchemaDDL)
	if table == "" {
		return &Response{
			Explanation: "I don't see an uploaded dataset yet. Upload a CSV or Excel file and ask again.",
		}, nil
	}

	question := strings.ToLower(req.Question)
	var sql, explanation string
	switch {
	case strings.Contains(question, "how many") || strings.Contains(question, "count"):
		sql = fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", table)
		explanation = fmt.Sprintf("Counting the rows in **%s**.", table)
	case strings.Contains(question, "column") || strings.Contains(question, "schema"):
		sql = fmt.Sprintf("SELECT * FROM %s LIMIT 1", table)
		explanation = fmt.Sprintf("Here is one sample row from **%s** so you can see its columns.", table)
	default:
		sql = fmt.Sprintf("SELECT * FROM %s LIMIT 10", table)
		explanation = fmt.Sprintf("Here are the first rows of **%s**. Review and run the query below.", table)
	}

	return &Response{SQL: sql, Explanation: explanation}, nil
}

func firstTable(ddl string) string {
	m := tableNamePattern.FindStringSubmatch(ddl)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
