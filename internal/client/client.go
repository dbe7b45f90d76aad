package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/domain"
)

// Agent is the client-side view of the agent service: the six boundary
// operations the conversation core and the UI depend on.
type Agent interface {
	SubmitTurn(ctx context.Context, query, session string) (*domain.TurnResponse, error)
	LoadHistory(ctx context.Context, session string) (*domain.HistoryResponse, error)
	ExecuteSQL(ctx context.Context, sql, session string) (*domain.ExecuteResult, error)
	UploadFile(ctx context.Context, path, session string) (*domain.UploadResult, error)
	DatabaseStatus(ctx context.Context, session string) (*domain.DatabaseStatus, error)
	DeleteDatabase(ctx context.Context, session string) error
}

// envelope is the standard API response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   any             `json:"error,omitempty"`
}

// HTTP talks to the agent's REST API.
type HTTP struct {
	baseURL string
	client  *http.Client
}

// NewHTTP creates a client for the agent at baseURL (e.g.
// "http://localhost:8080").
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (h *HTTP) SubmitTurn(ctx context.Context, query, session string) (*domain.TurnResponse, error) {
	var out domain.TurnResponse
	err := h.postJSON(ctx, "/api/v1/chat", domain.TurnRequest{Query: query, SessionID: session}, &out)
	if err != nil {
		return nil, fmt.Errorf("submit turn: %w", err)
	}
	return &out, nil
}

func (h *HTTP) LoadHistory(ctx context.Context, session string) (*domain.HistoryResponse, error) {
	var out domain.HistoryResponse
	err := h.getJSON(ctx, "/api/v1/history?session_id="+url.QueryEscape(session), &out)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &out, nil
}

func (h *HTTP) ExecuteSQL(ctx context.Context, sql, session string) (*domain.ExecuteResult, error) {
	var out domain.ExecuteResult
	err := h.postJSON(ctx, "/api/v1/execute-sql", domain.ExecuteRequest{SQL: sql, SessionID: session}, &out)
	if err != nil {
		return nil, fmt.Errorf("execute sql: %w", err)
	}
	return &out, nil
}

func (h *HTTP) UploadFile(ctx context.Context, path, session string) (*domain.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if err := mw.WriteField("session_id", session); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/v1/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out domain.UploadResult
	if err := h.do(req, &out); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	return &out, nil
}

func (h *HTTP) DatabaseStatus(ctx context.Context, session string) (*domain.DatabaseStatus, error) {
	var out domain.DatabaseStatus
	err := h.getJSON(ctx, "/api/v1/database-status?session_id="+url.QueryEscape(session), &out)
	if err != nil {
		return nil, fmt.Errorf("database status: %w", err)
	}
	return &out, nil
}

func (h *HTTP) DeleteDatabase(ctx context.Context, session string) error {
	payload, _ := json.Marshal(map[string]string{"session_id": session})
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.baseURL+"/api/v1/database",
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("delete database: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := h.do(req, nil); err != nil {
		return fmt.Errorf("delete database: %w", err)
	}
	return nil
}

func (h *HTTP) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, out)
}

func (h *HTTP) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return err
	}
	return h.do(req, out)
}

func (h *HTTP) do(req *http.Request, out any) error {
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("malformed response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		if env.Error != nil {
			return fmt.Errorf("agent error (status %d): %v", resp.StatusCode, env.Error)
		}
		return fmt.Errorf("agent error: status %d", resp.StatusCode)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}
