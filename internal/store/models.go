package store

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	RoleAdmin       = "admin"
	RoleRegularUser = "user"

	// DefaultTitle is the placeholder a conversation carries until its title
	// is derived from the first user message.
	DefaultTitle = "New Conversation"
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Feedback holds the per-message quality/structure review. Nil rating
// pointers mean "not yet provided", distinct from an explicit no.
type Feedback struct {
	QualityRating    *bool  `json:"qualityRating"`
	StructureRating  *bool  `json:"structureRating"`
	QualityComment   string `json:"qualityComment"`
	StructureComment string `json:"structureComment"`
}

type Message struct {
	ID       string    `json:"id"`
	Role     string    `json:"role"` // "user" or "assistant"
	Content  string    `json:"content"`
	Feedback *Feedback `json:"feedback,omitempty"`
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `json:"user_id"`
}
