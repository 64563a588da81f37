package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/wellness"
)

type PointStore struct {
	db *sql.DB
}

func NewPointStore(db *sql.DB) *PointStore {
	return &PointStore{db: db}
}

// Award records a point event and adds the points to the member's total.
func (s *PointStore) Award(memberID int64, activity string, points int) (*model.PointEvent, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := awardPoints(tx, memberID, activity, points)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	var e model.PointEvent
	err = s.db.QueryRow(
		`SELECT id, member_id, activity, points, created_at FROM point_events WHERE id = ?`, id,
	).Scan(&e.ID, &e.MemberID, &e.Activity, &e.Points, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get point event: %w", err)
	}
	return &e, nil
}

// TotalSince sums a member's points earned at or after since.
func (s *PointStore) TotalSince(memberID int64, since time.Time) (int, error) {
	var total int
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM point_events WHERE member_id = ? AND datetime(created_at) >= datetime(?)`,
		memberID, sqliteTime(since),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return total, nil
}

// Stats gathers the counters badges are computed from. CheckInStreak is
// left for the caller, which owns the clock.
func (s *PointStore) Stats(memberID int64) (wellness.MemberStats, error) {
	var st wellness.MemberStats
	err := s.db.QueryRow(`
		SELECT
			COALESCE((SELECT points FROM family_members WHERE id = ?1), 0),
			(SELECT COUNT(*) FROM mood_checkins WHERE member_id = ?1),
			(SELECT COUNT(*) FROM journal_entries WHERE author_id = ?1),
			(SELECT COUNT(*) FROM chat_messages WHERE sender_id = ?1 AND sentiment = 'supportive'),
			(SELECT COUNT(*) FROM reactions r
				LEFT JOIN chat_messages c ON r.target_type = 'message' AND c.id = r.target_id
				LEFT JOIN journal_entries j ON r.target_type = 'journal' AND j.id = r.target_id
				WHERE COALESCE(c.sender_id, j.author_id) = ?1),
			(SELECT COUNT(*) FROM help_requests WHERE responder_id = ?1)`,
		memberID,
	).Scan(&st.Points, &st.CheckIns, &st.JournalEntries, &st.SupportiveSent, &st.ReactionsReceived, &st.HelpGiven)
	if err != nil {
		return st, fmt.Errorf("member stats: %w", err)
	}
	return st, nil
}

func awardPoints(ex execer, memberID int64, activity string, points int) (int64, error) {
	result, err := ex.Exec(
		`INSERT INTO point_events (member_id, activity, points) VALUES (?, ?, ?)`,
		memberID, activity, points,
	)
	if err != nil {
		return 0, fmt.Errorf("insert point event: %w", err)
	}
	if _, err := ex.Exec(`UPDATE family_members SET points = points + ? WHERE id = ?`, points, memberID); err != nil {
		return 0, fmt.Errorf("add member points: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
