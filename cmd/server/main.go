package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cityhall.ro/civic-assistant/internal/api"
	"cityhall.ro/civic-assistant/internal/config"
	"cityhall.ro/civic-assistant/internal/core"
	"cityhall.ro/civic-assistant/internal/llm"
	"cityhall.ro/civic-assistant/internal/logger"
	"cityhall.ro/civic-assistant/internal/rag"
	"cityhall.ro/civic-assistant/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	dbStore, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbStore.Close()

	llmClient, err := llm.NewClient(context.Background(), cfg.GeminiAPIKey)
	if err != nil {
		log.Error("failed to initialize LLM client", "error", err)
		os.Exit(1)
	}
	defer llmClient.Close()

	// Both corpora are loaded once at startup and never written again.
	regulations, err := rag.LoadCorpus("regulations", cfg.RegulationsCorpusPath)
	if err != nil {
		log.Error("failed to load regulations corpus", "error", err)
		os.Exit(1)
	}
	services, err := rag.LoadCorpus("services", cfg.ServicesCorpusPath)
	if err != nil {
		log.Error("failed to load services corpus", "error", err)
		os.Exit(1)
	}
	log.Info("corpora loaded", "regulations", regulations.Len(), "services", services.Len())

	templates := rag.DefaultTemplates()
	if cfg.PromptsFile != "" {
		templates, err = rag.LoadTemplates(cfg.PromptsFile)
		if err != nil {
			log.Error("failed to load prompt templates", "error", err)
			os.Exit(1)
		}
		log.Info("prompt templates overridden", "file", cfg.PromptsFile)
	}
	composer, err := rag.NewPromptComposer(templates)
	if err != nil {
		log.Error("failed to build prompt composer", "error", err)
		os.Exit(1)
	}

	encoder := rag.NewEncoder(func() (rag.EmbeddingBackend, error) {
		return llmClient, nil
	})
	generator := rag.NewGenerator(llmClient, cfg.GenerateMaxAttempts, cfg.GenerateBackoff)
	pipeline := rag.NewPipeline(encoder, composer, generator, regulations, services, cfg.TopK)

	chatService := core.NewChatService(dbStore, pipeline)
	adminService := core.NewAdminService(dbStore)

	apiHandler := api.NewAPIHandler(dbStore, chatService, adminService, cfg.JWTSecret)
	router := api.NewRouter(apiHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // three chained generation calls can take a while
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited gracefully")
}
