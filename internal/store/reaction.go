package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/famwell/internal/model"
)

type ReactionStore struct {
	db *sql.DB
}

func NewReactionStore(db *sql.DB) *ReactionStore {
	return &ReactionStore{db: db}
}

// Toggle removes the member's emoji vote on a target if present, otherwise
// adds it. It reports whether a vote was added.
func (s *ReactionStore) Toggle(targetType string, targetID int64, emoji string, memberID int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`DELETE FROM reactions WHERE target_type = ? AND target_id = ? AND emoji = ? AND member_id = ?`,
		targetType, targetID, emoji, memberID,
	)
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if removed == 0 {
		_, err := tx.Exec(
			`INSERT INTO reactions (target_type, target_id, emoji, member_id) VALUES (?, ?, ?, ?)`,
			targetType, targetID, emoji, memberID,
		)
		if err != nil {
			return false, fmt.Errorf("insert reaction: %w", mapErr(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return removed == 0, nil
}

// Groups returns the reactions on a target grouped by emoji, in order of
// each emoji's first use.
func (s *ReactionStore) Groups(targetType string, targetID int64) ([]model.ReactionGroup, error) {
	rows, err := s.db.Query(
		`SELECT emoji, member_id FROM reactions WHERE target_type = ? AND target_id = ? ORDER BY id`,
		targetType, targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	groups := []model.ReactionGroup{}
	index := map[string]int{}
	for rows.Next() {
		var emoji string
		var memberID int64
		if err := rows.Scan(&emoji, &memberID); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		i, ok := index[emoji]
		if !ok {
			i = len(groups)
			index[emoji] = i
			groups = append(groups, model.ReactionGroup{Emoji: emoji})
		}
		groups[i].Members = append(groups[i].Members, memberID)
		groups[i].Count++
	}
	return groups, rows.Err()
}

// DeleteTarget removes every reaction on a target.
func (s *ReactionStore) DeleteTarget(targetType string, targetID int64) error {
	_, err := s.db.Exec(`DELETE FROM reactions WHERE target_type = ? AND target_id = ?`, targetType, targetID)
	if err != nil {
		return fmt.Errorf("delete target reactions: %w", err)
	}
	return nil
}
