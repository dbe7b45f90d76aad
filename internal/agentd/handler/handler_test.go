package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/agentd/handler"
	"github.com/askdb/askdb/internal/agentd/llm"
	"github.com/askdb/askdb/internal/agentd/memory"
	"github.com/askdb/askdb/internal/agentd/userdb"
	"github.com/askdb/askdb/internal/domain"
)

// stubProvider returns canned responses for handler tests.
type stubProvider struct {
	resp *llm.Response
	err  error
}

func (s *stubProvider) Name() string       { return "stub" }
func (s *stubProvider) IsConfigured() bool { return true }
func (s *stubProvider) GenerateSQL(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return s.resp, s.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func newUserDB(t *testing.T) *userdb.Service {
	t.Helper()
	svc, err := userdb.NewService(t.TempDir())
	require.NoError(t, err)
	return svc
}

func uploadSample(t *testing.T, svc *userdb.Service, session string) {
	t.Helper()
	_, err := svc.Create(context.Background(), session, "sales.csv", [][]string{
		{"region", "amount"},
		{"north", "120"},
		{"south", "80"},
	})
	require.NoError(t, err)
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(&stubProvider{})(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "stub", data["provider"])
}

func TestChatHandler_Chat(t *testing.T) {
	hist := memory.NewInMemory()
	provider := &stubProvider{resp: &llm.Response{
		SQL:         `SELECT region, SUM(amount) FROM sales GROUP BY region`,
		Explanation: "Here is the breakdown.\n\nCHART_JSON_START{\"data\":[{\"category\":\"north\",\"value\":120}]}CHART_JSON_END",
	}}
	h := handler.NewChatHandler(hist, newUserDB(t), provider)

	body, _ := json.Marshal(domain.TurnRequest{Query: "sales by region"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	var turn domain.TurnResponse
	require.NoError(t, json.Unmarshal(env.Data, &turn))
	assert.NotEmpty(t, turn.SessionID, "server mints a session when none is sent")
	assert.Equal(t, "Here is the breakdown.", strings.TrimSpace(turn.Answer))
	assert.NotContains(t, turn.Answer, "CHART_JSON_START")
	require.Len(t, turn.ChartData, 1)
	assert.Equal(t, "north", turn.ChartData[0].Category)
	assert.True(t, turn.RequiresApproval)

	msgs, err := hist.Messages(context.Background(), turn.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "sales by region", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
}

func TestChatHandler_ChatKeepsSession(t *testing.T) {
	provider := &stubProvider{resp: &llm.Response{Explanation: "No data loaded yet."}}
	h := handler.NewChatHandler(memory.NewInMemory(), newUserDB(t), provider)

	body, _ := json.Marshal(domain.TurnRequest{Query: "hello", SessionID: "sess-42"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	env := decodeEnvelope(t, rec)
	var turn domain.TurnResponse
	require.NoError(t, json.Unmarshal(env.Data, &turn))
	assert.Equal(t, "sess-42", turn.SessionID)
	assert.False(t, turn.RequiresApproval, "no SQL means nothing to approve")
}

func TestChatHandler_ChatValidation(t *testing.T) {
	h := handler.NewChatHandler(memory.NewInMemory(), newUserDB(t), &stubProvider{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"query":""}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`not json`))
	rec = httptest.NewRecorder()
	h.Chat(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_ChatProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("upstream unavailable")}
	h := handler.NewChatHandler(memory.NewInMemory(), newUserDB(t), provider)

	body, _ := json.Marshal(domain.TurnRequest{Query: "anything"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
}

func TestChatHandler_History(t *testing.T) {
	hist := memory.NewInMemory()
	require.NoError(t, hist.Append(context.Background(), "sess-1",
		domain.HistoryMessage{Role: "user", Content: "hi"},
		domain.HistoryMessage{Role: "assistant", Content: "hello"},
	))
	h := handler.NewChatHandler(hist, newUserDB(t), &stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?session_id=sess-1", nil)
	rec := httptest.NewRecorder()
	h.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	var resp domain.HistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "hi", resp.Messages[0].Content)
}

func TestChatHandler_HistoryRequiresSession(t *testing.T) {
	h := handler.NewChatHandler(memory.NewInMemory(), newUserDB(t), &stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	h.History(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_HistoryEmptySession(t *testing.T) {
	h := handler.NewChatHandler(memory.NewInMemory(), newUserDB(t), &stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?session_id=fresh", nil)
	rec := httptest.NewRecorder()
	h.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	var resp domain.HistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Messages)
}

func TestDatabaseHandler_Execute(t *testing.T) {
	svc := newUserDB(t)
	uploadSample(t, svc, "sess-1")
	h := handler.NewDatabaseHandler(svc, memory.NewInMemory(), 1000)

	body, _ := json.Marshal(domain.ExecuteRequest{
		SQL:       `SELECT region FROM sales ORDER BY region`,
		SessionID: "sess-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/execute-sql", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Execute(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	var result domain.ExecuteResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "north", result.Data[0]["region"])
}

func TestDatabaseHandler_ExecuteBlocked(t *testing.T) {
	svc := newUserDB(t)
	uploadSample(t, svc, "sess-1")
	h := handler.NewDatabaseHandler(svc, memory.NewInMemory(), 1000)

	body, _ := json.Marshal(domain.ExecuteRequest{SQL: "DROP TABLE sales", SessionID: "sess-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/execute-sql", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Execute(rec, req)

	// Guard rejections come back as a failed result, not an HTTP error.
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	var result domain.ExecuteResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestDatabaseHandler_ExecuteWithoutDatabase(t *testing.T) {
	h := handler.NewDatabaseHandler(newUserDB(t), memory.NewInMemory(), 1000)

	body, _ := json.Marshal(domain.ExecuteRequest{SQL: "SELECT 1", SessionID: "nobody"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/execute-sql", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Execute(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	var result domain.ExecuteResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Success)
}

func multipartUpload(t *testing.T, session, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("session_id", session))
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestDatabaseHandler_Upload(t *testing.T) {
	svc := newUserDB(t)
	h := handler.NewDatabaseHandler(svc, memory.NewInMemory(), 1000)

	buf, contentType := multipartUpload(t, "sess-1", "Sales Data.csv", "region,amount\nnorth,120\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	var result domain.UploadResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Success)
	assert.Equal(t, "sales_data", result.TableName)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, []string{"region", "amount"}, result.Columns)
	assert.True(t, svc.Has("sess-1"))
}

func TestDatabaseHandler_UploadRejectsUnknownExtension(t *testing.T) {
	h := handler.NewDatabaseHandler(newUserDB(t), memory.NewInMemory(), 1000)

	buf, contentType := multipartUpload(t, "sess-1", "data.pdf", "not tabular")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatabaseHandler_UploadRequiresSession(t *testing.T) {
	h := handler.NewDatabaseHandler(newUserDB(t), memory.NewInMemory(), 1000)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "data.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatabaseHandler_StatusAndDelete(t *testing.T) {
	svc := newUserDB(t)
	hist := memory.NewInMemory()
	require.NoError(t, hist.Append(context.Background(), "sess-1",
		domain.HistoryMessage{Role: "user", Content: "hi"}))
	h := handler.NewDatabaseHandler(svc, hist, 1000)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/database-status?session_id=sess-1", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)
	env := decodeEnvelope(t, rec)
	var status domain.DatabaseStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.False(t, status.HasDatabase)

	uploadSample(t, svc, "sess-1")

	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/database-status?session_id=sess-1", nil))
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.HasDatabase)
	require.NotNil(t, status.Metadata)
	assert.Equal(t, "sales", status.Metadata.TableName)

	body := strings.NewReader(`{"session_id":"sess-1"}`)
	rec = httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/database", body))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.False(t, svc.Has("sess-1"))
	msgs, err := hist.Messages(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, msgs, "delete clears conversation history too")
}
