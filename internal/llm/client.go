// Package llm adapts the Gemini API to the embedding and completion backends
// the rag package consumes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"cityhall.ro/civic-assistant/internal/rag"
)

const (
	defaultChatModelName      = "gemini-1.5-flash-latest"
	defaultEmbeddingModelName = "text-embedding-004"
)

type Client struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{
		client:         client,
		chatModel:      defaultChatModelName,
		embeddingModel: defaultEmbeddingModelName,
	}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			slog.Error("error closing GenAI client", "error", err)
		}
	}
}

// Embed returns the raw embedding vector for text. Normalization is the
// encoder's job, not the backend's.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	em := c.client.EmbeddingModel(c.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// Complete sends one generation request with the given system prompt.
// HTTP 429 responses are translated to rag.ErrRateLimited so the generator's
// retry policy can recognize them.
func (c *Client) Complete(ctx context.Context, systemPrompt, question string) (string, error) {
	model := c.client.GenerativeModel(c.chatModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(question))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", rag.ErrRateLimited, err)
		}
		return "", fmt.Errorf("gemini generation request failed: %w", err)
	}

	text := collectText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini response contained no text")
	}
	return text, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		} else {
			slog.Debug("gemini response part was not text", "type", fmt.Sprintf("%T", part))
		}
	}
	return out.String()
}
