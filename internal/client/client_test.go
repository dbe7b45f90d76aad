package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/domain"
)

func respond(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
		"success": status >= 200 && status < 300,
		"data":    data,
	}))
}

func TestHTTP_SubmitTurn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/chat", r.URL.Path)

		var req domain.TurnRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "top artists", req.Query)
		assert.Equal(t, "sess-1", req.SessionID)

		respond(t, w, http.StatusOK, domain.TurnResponse{
			Answer:           "Here you go.",
			SessionID:        "sess-1",
			SQLQuery:         "SELECT 1",
			RequiresApproval: true,
		})
	}))
	defer srv.Close()

	c := NewHTTP(srv.URL, 5*time.Second)
	resp, err := c.SubmitTurn(context.Background(), "top artists", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Here you go.", resp.Answer)
	assert.True(t, resp.RequiresApproval)
	assert.Equal(t, "SELECT 1", resp.SQLQuery)
}

func TestHTTP_SubmitTurn_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "boom"})
	}))
	defer srv.Close()

	c := NewHTTP(srv.URL, 5*time.Second)
	_, err := c.SubmitTurn(context.Background(), "q", "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestHTTP_LoadHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/history", r.URL.Path)
		assert.Equal(t, "sess-1", r.URL.Query().Get("session_id"))

		respond(t, w, http.StatusOK, domain.HistoryResponse{
			Messages: []domain.HistoryMessage{
				{Role: "user", Content: "hi"},
				{Role: "assistant", Content: "hello"},
			},
			Count: 2,
		})
	}))
	defer srv.Close()

	c := NewHTTP(srv.URL, 5*time.Second)
	resp, err := c.LoadHistory(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	require.Equal(t, 2, len(resp.Messages))
	assert.Equal(t, "hi", resp.Messages[0].Content)
}

func TestHTTP_ExecuteSQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.ExecuteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SELECT 2", req.SQL, "the working copy is what goes over the wire")

		respond(t, w, http.StatusOK, domain.ExecuteResult{
			Success:  true,
			Message:  "ok",
			RowCount: 1,
			Data:     domain.RowSet{{"n": float64(2)}},
		})
	}))
	defer srv.Close()

	c := NewHTTP(srv.URL, 5*time.Second)
	res, err := c.ExecuteSQL(context.Background(), "SELECT 2", "sess-1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RowCount)
}

func TestHTTP_DatabaseStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusOK, domain.DatabaseStatus{
			HasDatabase: true,
			Metadata: &domain.DatabaseMetadata{
				TableName: "sales", OriginalFilename: "sales.csv", RowCount: 100, ColumnCount: 4,
			},
		})
	}))
	defer srv.Close()

	c := NewHTTP(srv.URL, 5*time.Second)
	st, err := c.DatabaseStatus(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, st.HasDatabase)
	require.NotNil(t, st.Metadata)
	assert.Equal(t, "sales", st.Metadata.TableName)
}

func TestHTTP_DeleteDatabase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		respond(t, w, http.StatusOK, nil)
	}))
	defer srv.Close()

	c := NewHTTP(srv.URL, 5*time.Second)
	require.NoError(t, c.DeleteDatabase(context.Background(), "sess-1"))
}

func TestHTTP_TransportFailure(t *testing.T) {
	c := NewHTTP("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.SubmitTurn(context.Background(), "q", "sess-1")
	assert.Error(t, err)
}
