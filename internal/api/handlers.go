package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cityhall.ro/civic-assistant/internal/auth"
	"cityhall.ro/civic-assistant/internal/core"
	"cityhall.ro/civic-assistant/internal/rag"
	"cityhall.ro/civic-assistant/internal/store"
)

// UserStore is the account slice of the persistence layer.
type UserStore interface {
	CreateUser(username, email, role, passwordHash string) (*store.User, error)
	GetUserByUsername(username string) (*store.User, string, error)
}

type APIHandler struct {
	users     UserStore
	chat      *core.ChatService
	admin     *core.AdminService
	jwtSecret string
}

func NewAPIHandler(users UserStore, chat *core.ChatService, admin *core.AdminService, jwtSecret string) *APIHandler {
	return &APIHandler{users: users, chat: chat, admin: admin, jwtSecret: jwtSecret}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Username, email and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "username", req.Username, "error", err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.users.CreateUser(req.Username, req.Email, store.RoleRegularUser, hashedPassword)
	if err != nil {
		slog.Error("failed to create user", "username", req.Username, "error", err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, hash, err := h.users.GetUserByUsername(req.Username)
	if err != nil || !auth.CheckPasswordHash(req.Password, hash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(h.jwtSecret, user.ID, user.Role)
	if err != nil {
		slog.Error("failed to generate JWT", "username", req.Username, "error", err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"access_token": token, "token_type": "bearer"})
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ChatResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "Message cannot be empty", http.StatusBadRequest)
		return
	}

	answer, conversationID, err := h.chat.Chat(r.Context(), user.ID, req.ConversationID, req.Message)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	json.NewEncoder(w).Encode(ChatResponse{Message: answer, ConversationID: conversationID})
}

type FeedbackRequest struct {
	ConversationID string         `json:"conversation_id"`
	MessageID      string         `json:"message_id"`
	Feedback       store.Feedback `json:"feedback"`
}

func (h *APIHandler) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" || req.MessageID == "" {
		http.Error(w, "conversation_id and message_id are required", http.StatusBadRequest)
		return
	}

	if err := h.chat.SubmitFeedback(user.ID, req.ConversationID, req.MessageID, req.Feedback); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type CreateConversationRequest struct {
	Title    string          `json:"title"`
	Messages []store.Message `json:"messages"`
}

func (h *APIHandler) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)

	var req CreateConversationRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	conv, err := h.chat.CreateConversation(user.ID, req.Title, req.Messages)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(conv)
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)

	conversations, err := h.chat.ListConversations(user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if conversations == nil {
		conversations = []store.Conversation{}
	}
	json.NewEncoder(w).Encode(conversations)
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.chat.GetConversation(conversationID, user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(conv)
}

type UpdateConversationRequest struct {
	Title    *string          `json:"title,omitempty"`
	Messages *[]store.Message `json:"messages,omitempty"`
}

func (h *APIHandler) UpdateConversationHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)
	conversationID := chi.URLParam(r, "conversationID")

	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	conv, err := h.chat.UpdateConversation(conversationID, user.ID, req.Title, req.Messages)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(conv)
}

func (h *APIHandler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)
	conversationID := chi.URLParam(r, "conversationID")

	if err := h.chat.DeleteConversation(conversationID, user.ID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondError maps the error taxonomy onto HTTP: missing/unauthorized
// records are 404, pipeline failures are one degraded 503, everything else
// is a 500.
func (h *APIHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var encoderErr *rag.EncoderError
	var generationErr *rag.GenerationError

	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.As(err, &encoderErr), errors.As(err, &generationErr):
		slog.Error("answer generation unavailable", "path", r.URL.Path, "error", err)
		http.Error(w, "Answer generation is temporarily unavailable. Please try again later.", http.StatusServiceUnavailable)
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
