package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Post("/chat", apiHandler.ChatHandler)
			r.Post("/feedback", apiHandler.FeedbackHandler)

			r.Post("/conversations", apiHandler.CreateConversationHandler)
			r.Get("/conversations", apiHandler.ListConversationsHandler)
			r.Get("/conversations/{conversationID}", apiHandler.GetConversationHandler)
			r.Put("/conversations/{conversationID}", apiHandler.UpdateConversationHandler)
			r.Delete("/conversations/{conversationID}", apiHandler.DeleteConversationHandler)

			// Admin-only aggregate reads
			r.Route("/admin", func(r chi.Router) {
				r.Use(apiHandler.AdminOnly)

				r.Get("/users", apiHandler.AdminListUsersHandler)
				r.Get("/conversations", apiHandler.AdminListConversationsHandler)
				r.Get("/stats/users", apiHandler.AdminUserStatsHandler)
				r.Get("/stats/feedback", apiHandler.AdminFeedbackStatsHandler)
				r.Get("/dashboard", apiHandler.AdminDashboardHandler)
				r.Get("/questions", apiHandler.AdminQuestionsHandler)
			})
		})
	})

	return r
}
