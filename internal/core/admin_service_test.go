package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityhall.ro/civic-assistant/internal/store"
)

type fakeAdminStore struct {
	users         []store.User
	conversations []store.Conversation
}

func (f *fakeAdminStore) ListUsers() ([]store.User, error) { return f.users, nil }

func (f *fakeAdminStore) ListAllConversations() ([]store.Conversation, error) {
	return f.conversations, nil
}

func boolPtr(v bool) *bool { return &v }

func fixtureStore() *fakeAdminStore {
	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	return &fakeAdminStore{
		users: []store.User{
			{ID: "u1", Username: "maria"},
			{ID: "u2", Username: "andrei"},
		},
		conversations: []store.Conversation{
			{
				ID: "c1", UserID: "u1", CreatedAt: older,
				Messages: []store.Message{
					{ID: "m1", Role: store.RoleUser, Content: "q1"},
					{ID: "m2", Role: store.RoleAssistant, Content: "a1", Feedback: &store.Feedback{
						QualityRating:   boolPtr(true),
						StructureRating: boolPtr(false),
						QualityComment:  "good",
					}},
					{ID: "m3", Role: store.RoleUser, Content: "q2"},
					// No assistant answer yet: q2 must not appear in pairs.
				},
			},
			{
				ID: "c2", UserID: "u2", CreatedAt: newer,
				Messages: []store.Message{
					{ID: "m4", Role: store.RoleUser, Content: "q3"},
					{ID: "m5", Role: store.RoleAssistant, Content: "a3"},
				},
			},
		},
	}
}

func TestQuestionsPairsAndSorts(t *testing.T) {
	service := NewAdminService(fixtureStore())

	records, err := service.Questions()
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest conversation first.
	assert.Equal(t, "q3", records[0].Question)
	assert.Equal(t, "a3", records[0].Response)
	assert.False(t, records[0].HasFeedback)
	assert.Nil(t, records[0].QualityRating)

	assert.Equal(t, "q1", records[1].Question)
	assert.Equal(t, "a1", records[1].Response)
	assert.True(t, records[1].HasFeedback)
	require.NotNil(t, records[1].QualityRating)
	assert.True(t, *records[1].QualityRating)
	assert.Equal(t, "good", records[1].QualityComment)
}

func TestPerUserStats(t *testing.T) {
	service := NewAdminService(fixtureStore())

	stats, err := service.PerUserStats()
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "maria", stats[0].Username)
	assert.Equal(t, 1, stats[0].ConversationCount)
	assert.Equal(t, 3, stats[0].MessageCount)
	require.NotNil(t, stats[0].AverageRating)
	assert.InDelta(t, 1.0, *stats[0].AverageRating, 1e-9)

	assert.Equal(t, "andrei", stats[1].Username)
	assert.Nil(t, stats[1].AverageRating, "no ratings means no average")
}

func TestFeedbackOverview(t *testing.T) {
	service := NewAdminService(fixtureStore())

	stats, err := service.FeedbackOverview()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalFeedbackCount)
	assert.InDelta(t, 100.0, stats.QualityStats.YesPercentage, 1e-9)
	assert.InDelta(t, 0.0, stats.QualityStats.NoPercentage, 1e-9)
	assert.InDelta(t, 0.0, stats.StructureStats.YesPercentage, 1e-9)
	assert.InDelta(t, 100.0, stats.StructureStats.NoPercentage, 1e-9)
}

func TestDashboardData(t *testing.T) {
	service := NewAdminService(fixtureStore())

	dashboard, err := service.DashboardData()
	require.NoError(t, err)
	assert.Equal(t, 2, dashboard.TotalUsers)
	assert.Equal(t, 2, dashboard.TotalConversations)
	assert.Equal(t, 5, dashboard.TotalMessages)
	assert.Equal(t, 1, dashboard.FeedbackStats.TotalFeedbackCount)
}
