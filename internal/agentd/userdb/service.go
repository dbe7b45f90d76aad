package userdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	_ "modernc.org/sqlite"

	"github.com/askdb/askdb/internal/domain"
)

// Service manages per-session sqlite databases built from uploaded tabular
// files. Each session owns at most one database with one table; re-upload
// replaces it.
type Service struct {
	dir string
}

func NewService(dir string) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create user db dir: %w", err)
	}
	return &Service{dir: dir}, nil
}

func (s *Service) dbPath(session string) string {
	return filepath.Join(s.dir, sanitizeSession(session)+".db")
}

func (s *Service) metaPath(session string) string {
	return filepath.Join(s.dir, sanitizeSession(session)+"_metadata.json")
}

// sanitizeSession keeps tokens filesystem-safe.
func sanitizeSession(session string) string {
	var b strings.Builder
	for _, r := range session {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Create builds the session's database from parsed records (header row
// first), replacing any existing one.
func (s *Service) Create(ctx context.Context, session, originalFilename string, records [][]string) (*domain.DatabaseMetadata, error) {
	if len(records) < 1 || len(records[0]) == 0 {
		return nil, fmt.Errorf("file is empty or has no header row")
	}

	header := records[0]
	rows := records[1:]
	if len(rows) == 0 {
		return nil, fmt.Errorf("file has no data rows")
	}

	table := SanitizeTableName(originalFilename)
	columns := sanitizeColumns(header)
	types := sniffColumnTypes(rows, len(columns))

	if err := s.Delete(session); err != nil {
		return nil, err
	}

	db, err := openDB(s.dbPath(session))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%q %s", col, types[i])
	}
	createStmt := fmt.Sprintf("CREATE TABLE %q (%s)", table, strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin insert: %w", err)
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(columns)), ",")
	insert := fmt.Sprintf("INSERT INTO %q VALUES (%s)", table, placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	for _, row := range rows {
		args := make([]any, len(columns))
		for i := range columns {
			if i < len(row) {
				args[i] = convertCell(row[i], types[i])
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return nil, fmt.Errorf("failed to insert row: %w", err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rows: %w", err)
	}

	meta := &domain.DatabaseMetadata{
		TableName:        table,
		OriginalFilename: originalFilename,
		RowCount:         len(rows),
		ColumnCount:      len(columns),
		Columns:          columns,
	}
	if err := s.saveMetadata(session, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Execute runs a read-only statement against the session's database. The
// caller is responsible for statement validation; this only caps the number
// of returned rows.
func (s *Service) Execute(ctx context.Context, session, query string, maxRows int) (domain.RowSet, error) {
	if !s.Has(session) {
		return nil, fmt.Errorf("no database uploaded for this session")
	}

	db, err := openDB(s.dbPath(session))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var result domain.RowSet
	for rows.Next() {
		if maxRows > 0 && len(result) >= maxRows {
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(domain.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return result, nil
}

// SchemaDDL returns the CREATE statements of the session's database for LLM
// prompt context, or empty when there is no database.
func (s *Service) SchemaDDL(ctx context.Context, session string) string {
	if !s.Has(session) {
		return ""
	}

	db, err := openDB(s.dbPath(session))
	if err != nil {
		return ""
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT sql
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return ""
	}
	defer rows.Close()

	var ddl []string
	for rows.Next() {
		var stmt sql.NullString
		if err := rows.Scan(&stmt); err != nil {
			return ""
		}
		if stmt.Valid {
			ddl = append(ddl, stmt.String)
		}
	}
	return strings.Join(ddl, ";\n")
}

// Has reports whether the session owns an uploaded database.
func (s *Service) Has(session string) bool {
	_, err := os.Stat(s.dbPath(session))
	return err == nil
}

// Status returns the database presence and metadata for the session.
func (s *Service) Status(session string) *domain.DatabaseStatus {
	if !s.Has(session) {
		return &domain.DatabaseStatus{HasDatabase: false}
	}
	meta, err := s.loadMetadata(session)
	if err != nil {
		return &domain.DatabaseStatus{HasDatabase: true}
	}
	return &domain.DatabaseStatus{HasDatabase: true, Metadata: meta}
}

// Delete removes the session's database and metadata, if present.
func (s *Service) Delete(session string) error {
	for _, path := range []string{s.dbPath(session), s.metaPath(session)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func (s *Service) saveMetadata(session string, meta *domain.DatabaseMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(session), data, 0o644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (s *Service) loadMetadata(session string) (*domain.DatabaseMetadata, error) {
	data, err := os.ReadFile(s.metaPath(session))
	if err != nil {
		return nil, err
	}
	var meta domain.DatabaseMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	return db, nil
}

// SanitizeTableName converts a filename into a valid SQL table name.
func SanitizeTableName(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte('_')
		}
	}
	result := b.String()
	if result == "" || !unicode.IsLetter(rune(result[0])) {
		result = "t_" + result
	}
	if len(result) > 50 {
		result = result[:50]
	}
	return result
}

func sanitizeColumns(header []string) []string {
	cols := make([]string, len(header))
	seen := make(map[string]int)
	for i, h := range header {
		col := strings.TrimSpace(h)
		if col == "" {
			col = fmt.Sprintf("column_%d", i+1)
		}
		if n, ok := seen[col]; ok {
			seen[col] = n + 1
			col = fmt.Sprintf("%s_%d", col, n+1)
		} else {
			seen[col] = 1
		}
		cols[i] = col
	}
	return cols
}

// sniffColumnTypes inspects every value of each column: all integers makes
// INTEGER, all numeric makes REAL, anything else TEXT. Empty cells don't
// vote.
func sniffColumnTypes(rows [][]string, columnCount int) []string {
	types := make([]string, columnCount)
	for i := 0; i < columnCount; i++ {
		allInt, allFloat, sawValue := true, true, false
		for _, row := range rows {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				continue
			}
			sawValue = true
			v := strings.TrimSpace(row[i])
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allFloat = false
			}
		}
		switch {
		case sawValue && allInt:
			types[i] = "INTEGER"
		case sawValue && allFloat:
			types[i] = "REAL"
		default:
			types[i] = "TEXT"
		}
	}
	return types
}

func convertCell(value, sqlType string) any {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	switch sqlType {
	case "INTEGER":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "REAL":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}
