package api

import (
	"encoding/json"
	"net/http"

	"cityhall.ro/civic-assistant/internal/core"
	"cityhall.ro/civic-assistant/internal/store"
)

func (h *APIHandler) AdminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if users == nil {
		users = []store.User{}
	}
	json.NewEncoder(w).Encode(users)
}

func (h *APIHandler) AdminListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.admin.Conversations()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if conversations == nil {
		conversations = []store.Conversation{}
	}
	json.NewEncoder(w).Encode(conversations)
}

func (h *APIHandler) AdminUserStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.PerUserStats()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(stats)
}

func (h *APIHandler) AdminFeedbackStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.FeedbackOverview()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(stats)
}

func (h *APIHandler) AdminDashboardHandler(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.admin.DashboardData()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(dashboard)
}

func (h *APIHandler) AdminQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	questions, err := h.admin.Questions()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if questions == nil {
		questions = []core.QuestionRecord{}
	}
	json.NewEncoder(w).Encode(questions)
}
