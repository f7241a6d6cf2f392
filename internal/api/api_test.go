package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityhall.ro/civic-assistant/internal/auth"
	"cityhall.ro/civic-assistant/internal/core"
	"cityhall.ro/civic-assistant/internal/rag"
	"cityhall.ro/civic-assistant/internal/store"
)

const testSecret = "test-secret"

type stubAnswerer struct {
	answer string
	err    error
}

func (a *stubAnswerer) Answer(ctx context.Context, question string) (string, error) {
	return a.answer, a.err
}

func newTestServer(t *testing.T, answerer core.Answerer) (http.Handler, *store.SQLiteStore) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "test.db"))
	s, err := store.NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	handler := NewAPIHandler(s, core.NewChatService(s, answerer), core.NewAdminService(s), testSecret)
	return NewRouter(handler), s
}

func signupTestUser(t *testing.T, s *store.SQLiteStore, username, role string) (*store.User, string) {
	t.Helper()

	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	user, err := s.CreateUser(username, username+"@example.com", role, hash)
	require.NoError(t, err)

	token, err := auth.GenerateJWT(testSecret, user.ID, user.Role)
	require.NoError(t, err)
	return user, token
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	router, s := newTestServer(t, &stubAnswerer{answer: "fused answer"})
	user, token := signupTestUser(t, s, "maria", store.RoleRegularUser)

	rec := doJSON(t, router, http.MethodPost, "/api/chat", token, ChatRequest{Message: "when is the fair?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fused answer", resp.Message)
	assert.NotEmpty(t, resp.ConversationID)

	conv, err := s.GetConversation(resp.ConversationID, user.ID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
}

func TestChatRequiresAuth(t *testing.T) {
	router, _ := newTestServer(t, &stubAnswerer{answer: "x"})

	rec := doJSON(t, router, http.MethodPost, "/api/chat", "", ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatGenerationFailureIs503(t *testing.T) {
	router, s := newTestServer(t, &stubAnswerer{err: &rag.GenerationError{Attempts: 3, Err: rag.ErrRateLimited}})
	_, token := signupTestUser(t, s, "maria", store.RoleRegularUser)

	rec := doJSON(t, router, http.MethodPost, "/api/chat", token, ChatRequest{Message: "q"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	conversations, err := s.ListConversations("any")
	require.NoError(t, err)
	assert.Empty(t, conversations)
}

func TestFeedbackNotFoundMapping(t *testing.T) {
	router, s := newTestServer(t, &stubAnswerer{answer: "x"})
	_, token := signupTestUser(t, s, "maria", store.RoleRegularUser)

	rec := doJSON(t, router, http.MethodPost, "/api/feedback", token, FeedbackRequest{
		ConversationID: "missing",
		MessageID:      "missing",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeedbackAgainstForeignConversationIs404(t *testing.T) {
	router, s := newTestServer(t, &stubAnswerer{answer: "answer"})
	owner, _ := signupTestUser(t, s, "owner", store.RoleRegularUser)
	_, intruderToken := signupTestUser(t, s, "intruder", store.RoleRegularUser)

	conv, err := s.CreateConversation(owner.ID, store.DefaultTitle, nil)
	require.NoError(t, err)
	conv, err = s.AppendTurn(conv.ID, owner.ID, []store.Message{
		{Role: store.RoleUser, Content: "q"},
		{Role: store.RoleAssistant, Content: "a"},
	})
	require.NoError(t, err)

	yes := true
	rec := doJSON(t, router, http.MethodPost, "/api/feedback", intruderToken, FeedbackRequest{
		ConversationID: conv.ID,
		MessageID:      conv.Messages[1].ID,
		Feedback:       store.Feedback{QualityRating: &yes},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, "never reveal foreign conversations as forbidden")
}

func TestAdminGuardFailsClosed(t *testing.T) {
	router, s := newTestServer(t, &stubAnswerer{answer: "x"})
	_, userToken := signupTestUser(t, s, "maria", store.RoleRegularUser)
	_, adminToken := signupTestUser(t, s, "root", store.RoleAdmin)

	rec := doJSON(t, router, http.MethodGet, "/api/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/admin/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupAndLogin(t *testing.T) {
	router, _ := newTestServer(t, &stubAnswerer{answer: "x"})

	rec := doJSON(t, router, http.MethodPost, "/api/signup", "", SignupRequest{
		Username: "maria", Email: "maria@example.com", Password: "password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password", "hash must never leak")

	rec = doJSON(t, router, http.MethodPost, "/api/login", "", LoginRequest{Username: "maria", Password: "password"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])

	rec = doJSON(t, router, http.MethodPost, "/api/login", "", LoginRequest{Username: "maria", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
