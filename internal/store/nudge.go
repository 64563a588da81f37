package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/wellness"
)

type NudgeStore struct {
	db *sql.DB
}

func NewNudgeStore(db *sql.DB) *NudgeStore {
	return &NudgeStore{db: db}
}

func scanNudge(scanner interface{ Scan(...any) error }) (*model.Nudge, error) {
	var n model.Nudge
	var target sql.NullInt64
	var suggestions string
	var sentAt sql.NullTime
	err := scanner.Scan(
		&n.ID, &n.Type, &n.Priority, &n.Title, &n.Description, &n.Reason,
		&n.OwnerMemberID, &target, &suggestions, &n.Confidence, &n.Status,
		&n.SentMessage, &sentAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if target.Valid {
		n.TargetMemberID = &target.Int64
	}
	if sentAt.Valid {
		n.SentAt = &sentAt.Time
	}
	if err := json.Unmarshal([]byte(suggestions), &n.Suggestions); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return &n, nil
}

const nudgeCols = `id, type, priority, title, description, reason, owner_member_id, target_member_id, suggestions, confidence, status, sent_message, sent_at, created_at`

// CreatePending inserts n as a pending nudge unless the owner already has a
// pending nudge of the same type and target. It reports whether a row was added.
func (s *NudgeStore) CreatePending(n model.Nudge) (*model.Nudge, bool, error) {
	suggestions, err := json.Marshal(n.Suggestions)
	if err != nil {
		return nil, false, fmt.Errorf("encode suggestions: %w", err)
	}
	var target sql.NullInt64
	if n.TargetMemberID != nil {
		target = sql.NullInt64{Int64: *n.TargetMemberID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO nudges (type, priority, title, description, reason, owner_member_id, target_member_id, suggestions, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		n.Type, n.Priority, n.Title, n.Description, n.Reason, n.OwnerMemberID, target,
		string(suggestions), wellness.Clamp(n.Confidence),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert nudge: %w", err)
	}
	added, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	if added == 0 {
		existing, err := s.pending(n.OwnerMemberID, n.Type, n.TargetMemberID)
		return existing, false, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	created, err := s.GetByID(id)
	return created, true, err
}

func (s *NudgeStore) pending(ownerID int64, nudgeType string, target *int64) (*model.Nudge, error) {
	var targetID int64
	if target != nil {
		targetID = *target
	}
	row := s.db.QueryRow(
		`SELECT `+nudgeCols+` FROM nudges
		 WHERE owner_member_id = ? AND type = ? AND COALESCE(target_member_id, 0) = ? AND status = 'pending'`,
		ownerID, nudgeType, targetID,
	)
	n, err := scanNudge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending nudge: %w", err)
	}
	return n, nil
}

func (s *NudgeStore) GetByID(id int64) (*model.Nudge, error) {
	row := s.db.QueryRow(`SELECT `+nudgeCols+` FROM nudges WHERE id = ?`, id)
	n, err := scanNudge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get nudge: %w", err)
	}
	return n, nil
}

// ListByOwner returns a member's nudges, pending first then newest. An empty
// status returns all.
func (s *NudgeStore) ListByOwner(ownerID int64, status string) ([]model.Nudge, error) {
	query := `SELECT ` + nudgeCols + ` FROM nudges WHERE owner_member_id = ?`
	args := []any{ownerID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY status = 'sent', CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list nudges: %w", err)
	}
	defer rows.Close()

	var out []model.Nudge
	for rows.Next() {
		n, err := scanNudge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan nudge: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// MarkSent moves a pending nudge to sent with the message that was sent.
// A nudge that is already sent is returned unchanged with
// wellness.ErrAlreadyInState.
func (s *NudgeStore) MarkSent(id int64, message string) (*model.Nudge, error) {
	result, err := s.db.Exec(
		`UPDATE nudges SET status = 'sent', sent_message = ?, sent_at = ? WHERE id = ? AND status = 'pending'`,
		message, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark nudge sent: %w", err)
	}
	changed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}

	n, err := s.GetByID(id)
	if err != nil || n == nil {
		return n, err
	}
	if changed == 0 {
		return n, wellness.NudgeMachine.Advance(n.Status, wellness.NudgeStatusSent)
	}
	return n, nil
}
