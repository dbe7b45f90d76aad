package domain

// TurnRequest is the submit-turn request body.
type TurnRequest struct {
	Query     string `json:"query" validate:"required,max=2000"`
	SessionID string `json:"session_id,omitempty"`
}

// TurnResponse is the agent's answer to one submitted turn.
type TurnResponse struct {
	Answer           string       `json:"answer"`
	SessionID        string       `json:"session_id"`
	ChartData        []ChartPoint `json:"chart_data,omitempty"`
	SQLQuery         string       `json:"sql_query,omitempty"`
	RequiresApproval bool         `json:"requires_approval,omitempty"`
}

// HistoryMessage is one persisted turn as the history store retains it.
// Older turns keep only role and content; structured payloads are not
// preserved server-side.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryResponse is the load-history response body.
type HistoryResponse struct {
	Messages []HistoryMessage `json:"messages"`
	Count    int              `json:"count"`
}

// ExecuteRequest is the execute-SQL request body.
type ExecuteRequest struct {
	SQL       string `json:"sql" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

// ExecuteResult is the outcome of running an approved statement.
type ExecuteResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	RowCount int    `json:"row_count,omitempty"`
	Data     RowSet `json:"data,omitempty"`
}

// UploadResult describes an ingested tabular file.
type UploadResult struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	TableName   string   `json:"table_name,omitempty"`
	RowCount    int      `json:"row_count,omitempty"`
	ColumnCount int      `json:"column_count,omitempty"`
	Columns     []string `json:"columns,omitempty"`
}

// DatabaseMetadata describes the session's uploaded database.
type DatabaseMetadata struct {
	TableName        string   `json:"table_name"`
	OriginalFilename string   `json:"original_filename"`
	RowCount         int      `json:"row_count"`
	ColumnCount      int      `json:"column_count"`
	Columns          []string `json:"columns"`
}

// DatabaseStatus is the database-status response body.
type DatabaseStatus struct {
	HasDatabase bool              `json:"has_database"`
	Metadata    *DatabaseMetadata `json:"metadata,omitempty"`
}
