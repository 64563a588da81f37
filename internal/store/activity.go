package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/famwell/internal/model"
)

type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func scanActivity(scanner interface{ Scan(...any) error }) (*model.Activity, error) {
	var a model.Activity
	var memberID sql.NullInt64
	if err := scanner.Scan(&a.ID, &memberID, &a.Kind, &a.Summary, &a.CreatedAt); err != nil {
		return nil, err
	}
	if memberID.Valid {
		a.MemberID = &memberID.Int64
	}
	return &a, nil
}

const activityCols = `id, member_id, kind, summary, created_at`

// Add records a feed entry. memberID may be nil for family-wide events.
func (s *ActivityStore) Add(memberID *int64, kind, summary string) (*model.Activity, error) {
	id, err := insertActivity(s.db, memberID, kind, summary)
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *ActivityStore) GetByID(id int64) (*model.Activity, error) {
	row := s.db.QueryRow(`SELECT `+activityCols+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

// ListRecent returns the newest activities first.
func (s *ActivityStore) ListRecent(limit int) ([]model.Activity, error) {
	rows, err := s.db.Query(`SELECT `+activityCols+` FROM activities ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func insertActivity(ex execer, memberID *int64, kind, summary string) (int64, error) {
	var mID sql.NullInt64
	if memberID != nil {
		mID = sql.NullInt64{Int64: *memberID, Valid: true}
	}
	result, err := ex.Exec(
		`INSERT INTO activities (member_id, kind, summary) VALUES (?, ?, ?)`,
		mID, kind, summary,
	)
	if err != nil {
		return 0, fmt.Errorf("insert activity: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
