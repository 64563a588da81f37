package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/famwell/internal/model"
)

type ChatStore struct {
	db *sql.DB
}

func NewChatStore(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

func scanChatMessage(scanner interface{ Scan(...any) error }) (*model.ChatMessage, error) {
	var m model.ChatMessage
	if err := scanner.Scan(&m.ID, &m.SenderID, &m.Content, &m.Sentiment, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

const chatCols = `id, sender_id, content, sentiment, created_at`

func (s *ChatStore) Create(senderID int64, content, sentiment string) (*model.ChatMessage, error) {
	result, err := s.db.Exec(
		`INSERT INTO chat_messages (sender_id, content, sentiment) VALUES (?, ?, ?)`,
		senderID, content, sentiment,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChatStore) GetByID(id int64) (*model.ChatMessage, error) {
	row := s.db.QueryRow(`SELECT `+chatCols+` FROM chat_messages WHERE id = ?`, id)
	m, err := scanChatMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat message: %w", err)
	}
	return m, nil
}

// ListRecent returns up to limit of the newest messages in chronological order.
func (s *ChatStore) ListRecent(limit int) ([]model.ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT `+chatCols+` FROM (SELECT `+chatCols+` FROM chat_messages ORDER BY id DESC LIMIT ?) ORDER BY id`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		m, err := scanChatMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// ListBySender returns every message a member sent, oldest first.
func (s *ChatStore) ListBySender(senderID int64) ([]model.ChatMessage, error) {
	rows, err := s.db.Query(`SELECT `+chatCols+` FROM chat_messages WHERE sender_id = ? ORDER BY id`, senderID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages by sender: %w", err)
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		m, err := scanChatMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
