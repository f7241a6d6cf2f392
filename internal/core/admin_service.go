package core

import (
	"sort"
	"time"

	"cityhall.ro/civic-assistant/internal/store"
)

// AdminStore is the read-only slice of the store the aggregation views need.
type AdminStore interface {
	ListUsers() ([]store.User, error)
	ListAllConversations() ([]store.Conversation, error)
}

// AdminService computes aggregate views over stored conversations and
// feedback. It only ever reads; all aggregation happens on loaded data.
type AdminService struct {
	store AdminStore
}

func NewAdminService(store AdminStore) *AdminService {
	return &AdminService{store: store}
}

// QuestionRecord joins one user question with the assistant answer that
// followed it and that answer's feedback, if any.
type QuestionRecord struct {
	MessageID        string    `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	Question         string    `json:"question"`
	Response         string    `json:"response"`
	AskedAt          time.Time `json:"asked_at"`
	HasFeedback      bool      `json:"has_feedback"`
	QualityRating    *bool     `json:"quality_rating"`
	StructureRating  *bool     `json:"structure_rating"`
	QualityComment   string    `json:"quality_comment"`
	StructureComment string    `json:"structure_comment"`
}

type UserStats struct {
	UserID            string   `json:"user_id"`
	Username          string   `json:"username"`
	ConversationCount int      `json:"conversation_count"`
	MessageCount      int      `json:"message_count"`
	AverageRating     *float64 `json:"average_rating"`
}

type RatingStats struct {
	YesPercentage float64 `json:"yes_percentage"`
	NoPercentage  float64 `json:"no_percentage"`
}

type FeedbackStats struct {
	TotalFeedbackCount int         `json:"total_feedback_count"`
	QualityStats       RatingStats `json:"quality_stats"`
	StructureStats     RatingStats `json:"structure_stats"`
}

type Dashboard struct {
	TotalUsers         int           `json:"total_users"`
	TotalConversations int           `json:"total_conversations"`
	TotalMessages      int           `json:"total_messages"`
	FeedbackStats      FeedbackStats `json:"feedback_stats"`
	UserStats          []UserStats   `json:"user_stats"`
}

// Users returns every registered user.
func (s *AdminService) Users() ([]store.User, error) {
	return s.store.ListUsers()
}

// Conversations returns every conversation across all owners.
func (s *AdminService) Conversations() ([]store.Conversation, error) {
	return s.store.ListAllConversations()
}

// Questions pairs every user message with the first assistant message that
// follows it, attaching the answer's feedback when present. Pairs are sorted
// by conversation creation time, newest first.
func (s *AdminService) Questions() ([]QuestionRecord, error) {
	conversations, err := s.store.ListAllConversations()
	if err != nil {
		return nil, err
	}

	var records []QuestionRecord
	for _, conv := range conversations {
		for i, msg := range conv.Messages {
			if msg.Role != store.RoleUser {
				continue
			}
			response := firstAssistantAfter(conv.Messages, i)
			if response == nil {
				continue
			}

			record := QuestionRecord{
				MessageID:      response.ID,
				ConversationID: conv.ID,
				Question:       msg.Content,
				Response:       response.Content,
				AskedAt:        conv.CreatedAt,
				HasFeedback:    response.Feedback != nil,
			}
			if response.Feedback != nil {
				record.QualityRating = response.Feedback.QualityRating
				record.StructureRating = response.Feedback.StructureRating
				record.QualityComment = response.Feedback.QualityComment
				record.StructureComment = response.Feedback.StructureComment
			}
			records = append(records, record)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].AskedAt.After(records[j].AskedAt)
	})
	return records, nil
}

// PerUserStats counts conversations and messages per user and averages the
// quality ratings their assistant answers received.
func (s *AdminService) PerUserStats() ([]UserStats, error) {
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, err
	}
	conversations, err := s.store.ListAllConversations()
	if err != nil {
		return nil, err
	}

	type tally struct {
		conversations int
		messages      int
		ratingSum     float64
		ratingCount   int
	}
	tallies := make(map[string]*tally, len(users))
	for _, user := range users {
		tallies[user.ID] = &tally{}
	}

	for _, conv := range conversations {
		t, ok := tallies[conv.UserID]
		if !ok {
			continue
		}
		t.conversations++
		t.messages += len(conv.Messages)
		for _, msg := range conv.Messages {
			if msg.Feedback == nil || msg.Feedback.QualityRating == nil {
				continue
			}
			if *msg.Feedback.QualityRating {
				t.ratingSum++
			}
			t.ratingCount++
		}
	}

	stats := make([]UserStats, 0, len(users))
	for _, user := range users {
		t := tallies[user.ID]
		entry := UserStats{
			UserID:            user.ID,
			Username:          user.Username,
			ConversationCount: t.conversations,
			MessageCount:      t.messages,
		}
		if t.ratingCount > 0 {
			avg := t.ratingSum / float64(t.ratingCount)
			entry.AverageRating = &avg
		}
		stats = append(stats, entry)
	}
	return stats, nil
}

// FeedbackOverview computes yes/no percentages over all submitted ratings.
func (s *AdminService) FeedbackOverview() (FeedbackStats, error) {
	conversations, err := s.store.ListAllConversations()
	if err != nil {
		return FeedbackStats{}, err
	}

	var stats FeedbackStats
	var qualityYes, qualityTotal, structureYes, structureTotal int
	for _, conv := range conversations {
		for _, msg := range conv.Messages {
			if msg.Feedback == nil {
				continue
			}
			stats.TotalFeedbackCount++
			if msg.Feedback.QualityRating != nil {
				qualityTotal++
				if *msg.Feedback.QualityRating {
					qualityYes++
				}
			}
			if msg.Feedback.StructureRating != nil {
				structureTotal++
				if *msg.Feedback.StructureRating {
					structureYes++
				}
			}
		}
	}

	stats.QualityStats = percentages(qualityYes, qualityTotal)
	stats.StructureStats = percentages(structureYes, structureTotal)
	return stats, nil
}

// DashboardData combines the aggregate views into one admin payload.
func (s *AdminService) DashboardData() (Dashboard, error) {
	users, err := s.store.ListUsers()
	if err != nil {
		return Dashboard{}, err
	}
	userStats, err := s.PerUserStats()
	if err != nil {
		return Dashboard{}, err
	}
	feedbackStats, err := s.FeedbackOverview()
	if err != nil {
		return Dashboard{}, err
	}

	dashboard := Dashboard{
		TotalUsers:    len(users),
		FeedbackStats: feedbackStats,
		UserStats:     userStats,
	}
	for _, stat := range userStats {
		dashboard.TotalConversations += stat.ConversationCount
		dashboard.TotalMessages += stat.MessageCount
	}
	return dashboard, nil
}

func firstAssistantAfter(messages []store.Message, index int) *store.Message {
	for j := index + 1; j < len(messages); j++ {
		if messages[j].Role == store.RoleAssistant {
			return &messages[j]
		}
	}
	return nil
}

func percentages(yes, total int) RatingStats {
	if total == 0 {
		return RatingStats{}
	}
	return RatingStats{
		YesPercentage: float64(yes) / float64(total) * 100,
		NoPercentage:  float64(total-yes) / float64(total) * 100,
	}
}
