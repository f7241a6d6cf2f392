package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db    *sql.DB
	locks *conversationLocks
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time. A deferred transaction that reads
	// before writing holds a shared lock it cannot upgrade while another
	// connection does the same, and the busy handler never fires on that
	// path. One connection removes the cross-connection case entirely.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, locks: newConversationLocks()}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        username TEXT UNIQUE NOT NULL,
        email TEXT NOT NULL,
        role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS conversations (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        title TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        conversation_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        has_feedback BOOLEAN NOT NULL DEFAULT FALSE,
        quality_rating INTEGER,   -- NULL = unset, 0 = no, 1 = yes
        structure_rating INTEGER, -- NULL = unset, 0 = no, 1 = yes
        quality_comment TEXT NOT NULL DEFAULT '',
        structure_comment TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (conversation_id, position),
        FOREIGN KEY (conversation_id) REFERENCES conversations (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) CreateUser(username, email, role, passwordHash string) (*User, error) {
	user := User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		"INSERT INTO users (id, username, email, role, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.Role, passwordHash, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return &user, nil
}

// GetUserByUsername returns the user record and, separately, the stored
// password hash. The hash never rides inside the User struct.
func (s *SQLiteStore) GetUserByUsername(username string) (*User, string, error) {
	var user User
	var hash string
	err := s.db.QueryRow(
		"SELECT id, username, email, role, password_hash, created_at FROM users WHERE username = ?",
		username,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &hash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to query user: %w", err)
	}
	return &user, hash, nil
}

func (s *SQLiteStore) GetUserByID(id string) (*User, error) {
	var user User
	err := s.db.QueryRow(
		"SELECT id, username, email, role, created_at FROM users WHERE id = ?",
		id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) ListUsers() ([]User, error) {
	rows, err := s.db.Query("SELECT id, username, email, role, created_at FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Conversation methods

func (s *SQLiteStore) CreateConversation(userID, title string, messages []Message) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now().UTC()
	conversationID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO conversations (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		conversationID, userID, title, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}

	for i := range messages {
		if err := insertMessage(tx, conversationID, i, &messages[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit conversation: %w", err)
	}
	return s.GetConversation(conversationID, userID)
}

// GetConversation loads a conversation with its messages in insertion order.
// A missing id and an ownership mismatch both return ErrNotFound.
func (s *SQLiteStore) GetConversation(conversationID, userID string) (*Conversation, error) {
	var conv Conversation
	err := s.db.QueryRow(
		"SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?",
		conversationID, userID,
	).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	conv.Messages, err = s.loadMessages(conversationID)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *SQLiteStore) ListConversations(userID string) ([]Conversation, error) {
	return s.listConversations("WHERE user_id = ?", userID)
}

// ListAllConversations is the admin-only read across every owner.
func (s *SQLiteStore) ListAllConversations() ([]Conversation, error) {
	return s.listConversations("")
}

func (s *SQLiteStore) listConversations(where string, args ...any) ([]Conversation, error) {
	query := "SELECT id, user_id, title, created_at, updated_at FROM conversations " + where + " ORDER BY updated_at DESC"
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range conversations {
		conversations[i].Messages, err = s.loadMessages(conversations[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return conversations, nil
}

// UpdateConversation applies PUT semantics: a non-nil title replaces the
// title, a non-nil messages pointer replaces the whole message list.
func (s *SQLiteStore) UpdateConversation(conversationID, userID string, title *string, messages *[]Message) (*Conversation, error) {
	s.locks.acquire(conversationID)
	defer s.locks.release(conversationID)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := conversationOwnedBy(tx, conversationID, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if title != nil {
		if _, err := tx.Exec("UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?", *title, now, conversationID); err != nil {
			return nil, fmt.Errorf("failed to update conversation title: %w", err)
		}
	}
	if messages != nil {
		if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", conversationID); err != nil {
			return nil, fmt.Errorf("failed to clear conversation messages: %w", err)
		}
		for i := range *messages {
			if err := insertMessage(tx, conversationID, i, &(*messages)[i]); err != nil {
				return nil, err
			}
		}
		if _, err := tx.Exec("UPDATE conversations SET updated_at = ? WHERE id = ?", now, conversationID); err != nil {
			return nil, fmt.Errorf("failed to touch conversation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit conversation update: %w", err)
	}
	return s.GetConversation(conversationID, userID)
}

func (s *SQLiteStore) DeleteConversation(conversationID, userID string) error {
	s.locks.acquire(conversationID)
	defer s.locks.release(conversationID)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM conversations WHERE id = ? AND user_id = ?", conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation messages: %w", err)
	}
	return tx.Commit()
}

// AppendTurn atomically appends a chat turn (user message plus assistant
// message) and, while the title is still the placeholder, derives the title
// from the first user message of the batch. Readers never observe a torn
// turn: the whole append commits or nothing does. Concurrent appends to the
// same conversation serialize on the per-conversation lock.
func (s *SQLiteStore) AppendTurn(conversationID, userID string, messages []Message) (*Conversation, error) {
	s.locks.acquire(conversationID)
	defer s.locks.release(conversationID)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var title string
	err = tx.QueryRow(
		"SELECT title FROM conversations WHERE id = ? AND user_id = ?",
		conversationID, userID,
	).Scan(&title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	var next int
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(position) + 1, 0) FROM messages WHERE conversation_id = ?",
		conversationID,
	).Scan(&next); err != nil {
		return nil, fmt.Errorf("failed to compute next message position: %w", err)
	}

	for i := range messages {
		if err := insertMessage(tx, conversationID, next+i, &messages[i]); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if title == DefaultTitle {
		if derived, ok := deriveTitle(messages); ok {
			title = derived
		}
	}
	if _, err := tx.Exec(
		"UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?",
		title, now, conversationID,
	); err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit turn: %w", err)
	}
	return s.GetConversation(conversationID, userID)
}

// PatchFeedback replaces the feedback on one message. The whole Feedback
// value overwrites whatever was there before; it is not merged.
func (s *SQLiteStore) PatchFeedback(conversationID, userID, messageID string, feedback Feedback) error {
	s.locks.acquire(conversationID)
	defer s.locks.release(conversationID)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := conversationOwnedBy(tx, conversationID, userID); err != nil {
		return err
	}

	res, err := tx.Exec(
		`UPDATE messages
         SET has_feedback = TRUE, quality_rating = ?, structure_rating = ?, quality_comment = ?, structure_comment = ?
         WHERE id = ? AND conversation_id = ?`,
		ratingToNull(feedback.QualityRating), ratingToNull(feedback.StructureRating),
		feedback.QualityComment, feedback.StructureComment,
		messageID, conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Helpers

func conversationOwnedBy(tx *sql.Tx, conversationID, userID string) error {
	var id string
	err := tx.QueryRow(
		"SELECT id FROM conversations WHERE id = ? AND user_id = ?",
		conversationID, userID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to query conversation: %w", err)
	}
	return nil
}

func insertMessage(tx *sql.Tx, conversationID string, position int, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	hasFeedback := msg.Feedback != nil
	var qualityRating, structureRating any
	qualityComment, structureComment := "", ""
	if hasFeedback {
		qualityRating = ratingToNull(msg.Feedback.QualityRating)
		structureRating = ratingToNull(msg.Feedback.StructureRating)
		qualityComment = msg.Feedback.QualityComment
		structureComment = msg.Feedback.StructureComment
	}

	_, err := tx.Exec(
		`INSERT INTO messages
         (id, conversation_id, position, role, content, has_feedback, quality_rating, structure_rating, quality_comment, structure_comment, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationID, position, msg.Role, msg.Content,
		hasFeedback, qualityRating, structureRating, qualityComment, structureComment,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadMessages(conversationID string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, has_feedback, quality_rating, structure_rating, quality_comment, structure_comment
         FROM messages WHERE conversation_id = ? ORDER BY position ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var hasFeedback bool
		var qualityRating, structureRating sql.NullBool
		var qualityComment, structureComment string
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &hasFeedback, &qualityRating, &structureRating, &qualityComment, &structureComment); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if hasFeedback {
			msg.Feedback = &Feedback{
				QualityRating:    nullToRating(qualityRating),
				StructureRating:  nullToRating(structureRating),
				QualityComment:   qualityComment,
				StructureComment: structureComment,
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// deriveTitle truncates the first user message of the batch to 30 characters
// plus an ellipsis, matching how titles appear in the conversation list.
func deriveTitle(messages []Message) (string, bool) {
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > 30 {
			return string(runes[:30]) + "...", true
		}
		return msg.Content, true
	}
	return "", false
}

func ratingToNull(rating *bool) any {
	if rating == nil {
		return nil
	}
	return *rating
}

func nullToRating(value sql.NullBool) *bool {
	if !value.Valid {
		return nil
	}
	rating := value.Bool
	return &rating
}
