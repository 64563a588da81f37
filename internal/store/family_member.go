package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
)

type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

func scanFamilyMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	var lastActive sql.NullTime
	err := scanner.Scan(
		&m.ID, &m.Name, &m.Role, &m.Avatar, &m.Mood, &m.MoodScore,
		&m.Points, &m.WeeklyGoal, &m.SortOrder, &lastActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastActive.Valid {
		m.LastActiveAt = &lastActive.Time
	}
	return &m, nil
}

const familyMemberCols = `id, name, role, avatar, mood, mood_score, points, weekly_goal, sort_order, last_active_at, created_at, updated_at`

func (s *FamilyMemberStore) Create(name, role, avatar string) (*model.FamilyMember, error) {
	var maxOrder int
	err := s.db.QueryRow("SELECT COALESCE(MAX(sort_order), -1) FROM family_members").Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		"INSERT INTO family_members (name, role, avatar, sort_order) VALUES (?, ?, ?, ?)",
		name, role, avatar, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", mapErr(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *FamilyMemberStore) List() ([]model.FamilyMember, error) {
	rows, err := s.db.Query(`SELECT ` + familyMemberCols + ` FROM family_members ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanFamilyMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *FamilyMemberStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM family_members").Scan(&n); err != nil {
		return 0, fmt.Errorf("count family members: %w", err)
	}
	return n, nil
}

func (s *FamilyMemberStore) GetByID(id int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow(`SELECT `+familyMemberCols+` FROM family_members WHERE id = ?`, id)
	m, err := scanFamilyMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query family member: %w", err)
	}
	return m, nil
}

func (s *FamilyMemberStore) Update(id int64, name, role, avatar string, weeklyGoal int) (*model.FamilyMember, error) {
	_, err := s.db.Exec(
		"UPDATE family_members SET name = ?, role = ?, avatar = ?, weekly_goal = ?, updated_at = ? WHERE id = ?",
		name, role, avatar, weeklyGoal, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family member: %w", mapErr(err))
	}
	return s.GetByID(id)
}

// Delete removes the member. Their check-ins, journal, chat and points go
// with them by cascade; reactions on their messages and entries are removed
// here since reactions carry no foreign key to their target.
func (s *FamilyMemberStore) Delete(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM reactions
		WHERE (target_type = 'message' AND target_id IN (SELECT id FROM chat_messages WHERE sender_id = ?))
		   OR (target_type = 'journal' AND target_id IN (SELECT id FROM journal_entries WHERE author_id = ?))`,
		id, id,
	)
	if err != nil {
		return fmt.Errorf("delete reactions on member content: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM family_members WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete family member: %w", err)
	}
	return tx.Commit()
}

// SetMood overwrites a member's mood and score without recording a check-in.
func (s *FamilyMemberStore) SetMood(id int64, mood string, score int) error {
	_, err := s.db.Exec(
		"UPDATE family_members SET mood = ?, mood_score = ?, updated_at = ? WHERE id = ?",
		mood, score, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set mood: %w", err)
	}
	return nil
}

// Touch marks a member as active now.
func (s *FamilyMemberStore) Touch(id int64) error {
	_, err := s.db.Exec("UPDATE family_members SET last_active_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch family member: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) NameExists(name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM family_members WHERE name = ? AND id != ?",
		name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}
