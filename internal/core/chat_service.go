package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cityhall.ro/civic-assistant/internal/store"
)

// Answerer produces the final fused answer for one question. Satisfied by
// rag.Pipeline; tests substitute fakes.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// ConversationStore is the slice of the persistence layer the chat flow
// needs.
type ConversationStore interface {
	CreateConversation(userID, title string, messages []store.Message) (*store.Conversation, error)
	GetConversation(conversationID, userID string) (*store.Conversation, error)
	ListConversations(userID string) ([]store.Conversation, error)
	UpdateConversation(conversationID, userID string, title *string, messages *[]store.Message) (*store.Conversation, error)
	DeleteConversation(conversationID, userID string) error
	AppendTurn(conversationID, userID string, messages []store.Message) (*store.Conversation, error)
	PatchFeedback(conversationID, userID, messageID string, feedback store.Feedback) error
}

type ChatService struct {
	store    ConversationStore
	pipeline Answerer
}

func NewChatService(store ConversationStore, pipeline Answerer) *ChatService {
	return &ChatService{store: store, pipeline: pipeline}
}

// Chat runs the fusion pipeline for the question and persists the turn. The
// answer is generated before any conversation state is touched: a failed
// generation persists nothing, and no conversation lock is held while the
// pipeline is in flight. When conversationID is empty, or names a
// conversation this user cannot see, a fresh conversation is started.
func (s *ChatService) Chat(ctx context.Context, userID, conversationID, question string) (string, string, error) {
	answer, err := s.pipeline.Answer(ctx, question)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate answer: %w", err)
	}

	turn := []store.Message{
		{ID: uuid.NewString(), Role: store.RoleUser, Content: question},
		{ID: uuid.NewString(), Role: store.RoleAssistant, Content: answer},
	}

	if conversationID != "" {
		conv, err := s.store.AppendTurn(conversationID, userID, turn)
		if err == nil {
			return answer, conv.ID, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", "", err
		}
		// Unknown or foreign conversation id: fall through and start fresh.
	}

	conv, err := s.store.CreateConversation(userID, store.DefaultTitle, nil)
	if err != nil {
		return "", "", err
	}
	if _, err := s.store.AppendTurn(conv.ID, userID, turn); err != nil {
		return "", "", err
	}
	return answer, conv.ID, nil
}

// SubmitFeedback overwrites the feedback on one message of the caller's
// conversation.
func (s *ChatService) SubmitFeedback(userID, conversationID, messageID string, feedback store.Feedback) error {
	return s.store.PatchFeedback(conversationID, userID, messageID, feedback)
}

func (s *ChatService) CreateConversation(userID, title string, messages []store.Message) (*store.Conversation, error) {
	return s.store.CreateConversation(userID, title, messages)
}

func (s *ChatService) GetConversation(conversationID, userID string) (*store.Conversation, error) {
	return s.store.GetConversation(conversationID, userID)
}

func (s *ChatService) ListConversations(userID string) ([]store.Conversation, error) {
	return s.store.ListConversations(userID)
}

func (s *ChatService) UpdateConversation(conversationID, userID string, title *string, messages *[]store.Message) (*store.Conversation, error) {
	return s.store.UpdateConversation(conversationID, userID, title, messages)
}

func (s *ChatService) DeleteConversation(conversationID, userID string) error {
	return s.store.DeleteConversation(conversationID, userID)
}
