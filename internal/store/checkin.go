package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/wellness"
)

type CheckInStore struct {
	db *sql.DB
}

func NewCheckInStore(db *sql.DB) *CheckInStore {
	return &CheckInStore{db: db}
}

// CheckInResult is everything a check-in changed.
type CheckInResult struct {
	CheckIn  *model.MoodCheckIn  `json:"checkin"`
	Member   *model.FamilyMember `json:"member"`
	Activity *model.Activity     `json:"activity,omitempty"`
	Points   int                 `json:"points"`
}

func scanCheckIn(scanner interface{ Scan(...any) error }) (*model.MoodCheckIn, error) {
	var c model.MoodCheckIn
	var shared int
	if err := scanner.Scan(&c.ID, &c.MemberID, &c.Mood, &c.Score, &c.Note, &shared, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Shared = shared != 0
	return &c, nil
}

const checkInCols = `id, member_id, mood, score, note, shared, created_at`

// Apply records a check-in for a member in one transaction: the check-in row,
// the member's blended mood score, a feed entry when shared, the check-in
// points, and clearing of any saved draft.
func (s *CheckInStore) Apply(memberID int64, mood wellness.Mood, note string, shared bool) (*CheckInResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var name string
	var prev int
	err = tx.QueryRow(`SELECT name, mood_score FROM family_members WHERE id = ?`, memberID).Scan(&name, &prev)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}

	score := wellness.Blend(prev, mood.Score)
	now := time.Now().UTC()

	result, err := tx.Exec(
		`INSERT INTO mood_checkins (member_id, mood, score, note, shared) VALUES (?, ?, ?, ?, ?)`,
		memberID, mood.Label, score, note, boolInt(shared),
	)
	if err != nil {
		return nil, fmt.Errorf("insert checkin: %w", err)
	}
	checkInID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE family_members SET mood = ?, mood_score = ?, last_active_at = ?, updated_at = ? WHERE id = ?`,
		mood.Label, score, now, now, memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("update member mood: %w", err)
	}

	var activityID int64
	if shared {
		summary := fmt.Sprintf("%s checked in feeling %s %s", name, mood.Label, mood.Emoji)
		activityID, err = insertActivity(tx, &memberID, model.ActivityCheckIn, summary)
		if err != nil {
			return nil, err
		}
	}

	points := wellness.PointsFor(wellness.ActivityCheckIn)
	if _, err := awardPoints(tx, memberID, wellness.ActivityCheckIn, points); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM checkin_drafts WHERE member_id = ?`, memberID); err != nil {
		return nil, fmt.Errorf("clear draft: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	out := &CheckInResult{Points: points}
	if out.CheckIn, err = s.GetByID(checkInID); err != nil {
		return nil, err
	}
	if out.Member, err = NewFamilyMemberStore(s.db).GetByID(memberID); err != nil {
		return nil, err
	}
	if activityID != 0 {
		if out.Activity, err = NewActivityStore(s.db).GetByID(activityID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *CheckInStore) GetByID(id int64) (*model.MoodCheckIn, error) {
	row := s.db.QueryRow(`SELECT `+checkInCols+` FROM mood_checkins WHERE id = ?`, id)
	c, err := scanCheckIn(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkin: %w", err)
	}
	return c, nil
}

// ListByMember returns a member's check-ins, newest first.
func (s *CheckInStore) ListByMember(memberID int64, limit int) ([]model.MoodCheckIn, error) {
	rows, err := s.db.Query(
		`SELECT `+checkInCols+` FROM mood_checkins WHERE member_id = ? ORDER BY id DESC LIMIT ?`,
		memberID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	var out []model.MoodCheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Times returns the timestamps of a member's check-ins at or after since.
func (s *CheckInStore) Times(memberID int64, since time.Time) ([]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT created_at FROM mood_checkins WHERE member_id = ? AND datetime(created_at) >= datetime(?) ORDER BY created_at DESC`,
		memberID, sqliteTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("list checkin times: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan checkin time: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// HasCheckedInSince reports whether the member has any check-in at or after since.
func (s *CheckInStore) HasCheckedInSince(memberID int64, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM mood_checkins WHERE member_id = ? AND datetime(created_at) >= datetime(?)`,
		memberID, sqliteTime(since),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count checkins: %w", err)
	}
	return count > 0, nil
}

// SaveDraft stores the member's in-progress mood selection and note.
func (s *CheckInStore) SaveDraft(memberID int64, mood, note string) (*model.CheckInDraft, error) {
	_, err := s.db.Exec(
		`INSERT INTO checkin_drafts (member_id, mood, note, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(member_id) DO UPDATE SET mood = excluded.mood, note = excluded.note, updated_at = excluded.updated_at`,
		memberID, mood, note, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return s.GetDraft(memberID)
}

// GetDraft returns the member's draft, or an empty draft when none is saved.
func (s *CheckInStore) GetDraft(memberID int64) (*model.CheckInDraft, error) {
	d := model.CheckInDraft{MemberID: memberID}
	err := s.db.QueryRow(
		`SELECT mood, note, updated_at FROM checkin_drafts WHERE member_id = ?`, memberID,
	).Scan(&d.Mood, &d.Note, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return &d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return &d, nil
}
