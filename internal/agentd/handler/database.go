package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/askdb/askdb/internal/agentd/memory"
	"github.com/askdb/askdb/internal/agentd/response"
	"github.com/askdb/askdb/internal/agentd/sqlguard"
	"github.com/askdb/askdb/internal/agentd/userdb"
	"github.com/askdb/askdb/internal/domain"
)

// maxUploadBytes caps multipart upload memory buffering.
const maxUploadBytes = 50 << 20

// DatabaseHandler handles SQL execution and uploaded-database lifecycle.
type DatabaseHandler struct {
	userDB   *userdb.Service
	history  memory.History
	maxRows  int
	validate *validator.Validate
}

func NewDatabaseHandler(userDB *userdb.Service, history memory.History, maxRows int) *DatabaseHandler {
	return &DatabaseHandler{
		userDB:   userDB,
		history:  history,
		maxRows:  maxRows,
		validate: validator.New(),
	}
}

// Execute runs an approved read-only statement against the session database.
// Guard and execution failures are reported in the result body, not as HTTP
// errors, so the caller can surface them inline.
func (h *DatabaseHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req domain.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, "sql and session_id are required")
		return
	}

	if err := sqlguard.Validate(req.SQL); err != nil {
		response.OK(w, domain.ExecuteResult{Success: false, Error: err.Error()})
		return
	}

	rows, err := h.userDB.Execute(r.Context(), req.SessionID, req.SQL, h.maxRows)
	if err != nil {
		log.Warn().Err(err).Msg("query execution failed")
		response.OK(w, domain.ExecuteResult{Success: false, Error: err.Error()})
		return
	}

	response.OK(w, domain.ExecuteResult{
		Success:  true,
		Message:  fmt.Sprintf("Query executed successfully, %d row(s) returned.", len(rows)),
		RowCount: len(rows),
		Data:     rows,
	})
}

// Upload ingests a CSV or Excel file into a fresh session database.
func (h *DatabaseHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	session := r.FormValue("session_id")
	if session == "" {
		response.BadRequest(w, "session_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	records, err := userdb.ParseUpload(header.Filename, file)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	meta, err := h.userDB.Create(r.Context(), session, header.Filename, records)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("upload ingestion failed")
		response.InternalError(w, "failed to create database from upload")
		return
	}

	response.OK(w, domain.UploadResult{
		Success:     true,
		Message:     fmt.Sprintf("Loaded %d row(s) into table %q.", meta.RowCount, meta.TableName),
		TableName:   meta.TableName,
		RowCount:    meta.RowCount,
		ColumnCount: meta.ColumnCount,
		Columns:     meta.Columns,
	})
}

// Status reports whether the session has an uploaded database.
func (h *DatabaseHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session_id")
	if session == "" {
		response.BadRequest(w, "session_id is required")
		return
	}
	response.OK(w, h.userDB.Status(session))
}

// Delete removes the session database and its conversation history.
func (h *DatabaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, "session_id is required")
		return
	}

	if err := h.userDB.Delete(req.SessionID); err != nil {
		log.Error().Err(err).Msg("failed to delete session database")
		response.InternalError(w, "failed to delete database")
		return
	}
	if err := h.history.Clear(r.Context(), req.SessionID); err != nil {
		log.Warn().Err(err).Msg("failed to clear session history")
	}

	response.OK(w, map[string]string{"message": "database deleted"})
}
