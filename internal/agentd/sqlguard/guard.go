package sqlguard

import (
	"fmt"
	"regexp"
	"strings"
)

// Blocked statement patterns. The agent executes against per-session sqlite
// files, so the sqlite-specific escape hatches are blocked alongside the
// usual mutating keywords.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bINSERT\b`),
	regexp.MustCompile(`(?i)\bUPDATE\b`),
	regexp.MustCompile(`(?i)\bDELETE\b`),
	regexp.MustCompile(`(?i)\bDROP\b`),
	regexp.MustCompile(`(?i)\bTRUNCATE\b`),
	regexp.MustCompile(`(?i)\bALTER\b`),
	regexp.MustCompile(`(?i)\bCREATE\b`),
	regexp.MustCompile(`(?i)\bPRAGMA\b`),
	regexp.MustCompile(`(?i)\bVACUUM\b`),
	regexp.MustCompile(`(?i)\bREINDEX\b`),
	regexp.MustCompile(`(?i)\bATTACH\b`),
	regexp.MustCompile(`(?i)\bDETACH\b`),
	regexp.MustCompile(`(?i)load_extension`),
}

// Validate rejects anything that is not a single read-only statement.
func Validate(sql string) error {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return fmt.Errorf("empty SQL query")
	}

	if strings.Count(sql, ";") > 1 {
		return fmt.Errorf("multiple statements not allowed")
	}

	// Must start with SELECT or WITH (for CTEs)
	normalized := strings.ToUpper(sql)
	if !strings.HasPrefix(normalized, "SELECT") && !strings.HasPrefix(normalized, "WITH") {
		return fmt.Errorf("only SELECT statements allowed")
	}

	for _, pattern := range blockedPatterns {
		if pattern.MatchString(sql) {
			return fmt.Errorf("blocked SQL pattern detected: %s", pattern.String())
		}
	}

	return nil
}
