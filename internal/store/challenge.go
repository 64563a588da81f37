package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/wellness"
)

type ChallengeStore struct {
	db *sql.DB
}

func NewChallengeStore(db *sql.DB) *ChallengeStore {
	return &ChallengeStore{db: db}
}

func scanChallenge(scanner interface{ Scan(...any) error }) (*model.Challenge, error) {
	var c model.Challenge
	var endsAt sql.NullTime
	err := scanner.Scan(&c.ID, &c.Title, &c.Description, &c.Kind, &c.Target, &c.Points, &endsAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if endsAt.Valid {
		c.EndsAt = &endsAt.Time
	}
	return &c, nil
}

func scanProgress(scanner interface{ Scan(...any) error }) (*model.ChallengeProgress, error) {
	var p model.ChallengeProgress
	var completedAt sql.NullTime
	err := scanner.Scan(&p.ChallengeID, &p.MemberID, &p.Progress, &p.Status, &completedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return &p, nil
}

const challengeCols = `id, title, description, kind, target, points, ends_at, created_at`
const progressCols = `challenge_id, member_id, progress, status, completed_at, updated_at`

func (s *ChallengeStore) Create(title, description, kind string, target, points int, endsAt *time.Time) (*model.Challenge, error) {
	var ends sql.NullTime
	if endsAt != nil {
		ends = sql.NullTime{Time: endsAt.UTC(), Valid: true}
	}
	result, err := s.db.Exec(
		`INSERT INTO challenges (title, description, kind, target, points, ends_at) VALUES (?, ?, ?, ?, ?, ?)`,
		title, description, kind, target, points, ends,
	)
	if err != nil {
		return nil, fmt.Errorf("insert challenge: %w", mapErr(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChallengeStore) GetByID(id int64) (*model.Challenge, error) {
	row := s.db.QueryRow(`SELECT `+challengeCols+` FROM challenges WHERE id = ?`, id)
	c, err := scanChallenge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	return c, nil
}

func (s *ChallengeStore) List() ([]model.Challenge, error) {
	rows, err := s.db.Query(`SELECT ` + challengeCols + ` FROM challenges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	var out []model.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *ChallengeStore) TitleExists(title string) (bool, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM challenges WHERE title = ?`, title).Scan(&count); err != nil {
		return false, fmt.Errorf("check challenge title: %w", err)
	}
	return count > 0, nil
}

// Progress returns a member's progress on a challenge. A member who has not
// started gets a zero in_progress record.
func (s *ChallengeStore) Progress(challengeID, memberID int64) (*model.ChallengeProgress, error) {
	row := s.db.QueryRow(
		`SELECT `+progressCols+` FROM challenge_progress WHERE challenge_id = ? AND member_id = ?`,
		challengeID, memberID,
	)
	p, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return &model.ChallengeProgress{ChallengeID: challengeID, MemberID: memberID, Status: wellness.ChallengeInProgress}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge progress: %w", err)
	}
	return p, nil
}

// ListProgress returns every member's progress on a challenge.
func (s *ChallengeStore) ListProgress(challengeID int64) ([]model.ChallengeProgress, error) {
	rows, err := s.db.Query(
		`SELECT `+progressCols+` FROM challenge_progress WHERE challenge_id = ? ORDER BY progress DESC, member_id`,
		challengeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list challenge progress: %w", err)
	}
	defer rows.Close()

	var out []model.ChallengeProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge progress: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// AddProgress advances a member's progress by delta, capped at the target.
// Reaching the target completes the challenge and awards its points once.
// Progress on a completed challenge returns wellness.ErrAlreadyInState.
func (s *ChallengeStore) AddProgress(challengeID, memberID int64, delta int) (*model.ChallengeProgress, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var target, points int
	err = tx.QueryRow(`SELECT target, points FROM challenges WHERE id = ?`, challengeID).Scan(&target, &points)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query challenge: %w", err)
	}

	var current int
	status := wellness.ChallengeInProgress
	err = tx.QueryRow(
		`SELECT progress, status FROM challenge_progress WHERE challenge_id = ? AND member_id = ?`,
		challengeID, memberID,
	).Scan(&current, &status)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("query progress: %w", err)
	}
	if wellness.ChallengeMachine.Terminal(status) {
		tx.Rollback()
		p, perr := s.Progress(challengeID, memberID)
		if perr != nil {
			return nil, false, perr
		}
		return p, false, wellness.ErrAlreadyInState
	}

	progress := min(target, max(0, current+delta))
	completed := progress >= target
	now := time.Now().UTC()
	var completedAt sql.NullTime
	if completed {
		if err := wellness.ChallengeMachine.Advance(status, wellness.ChallengeCompleted); err != nil {
			return nil, false, err
		}
		status = wellness.ChallengeCompleted
		completedAt = sql.NullTime{Time: now, Valid: true}
	}

	_, err = tx.Exec(
		`INSERT INTO challenge_progress (challenge_id, member_id, progress, status, completed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(challenge_id, member_id) DO UPDATE SET
			progress = excluded.progress, status = excluded.status,
			completed_at = excluded.completed_at, updated_at = excluded.updated_at`,
		challengeID, memberID, progress, status, completedAt, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert progress: %w", err)
	}

	if completed {
		if _, err := awardPoints(tx, memberID, wellness.ActivityChallenge, points); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	p, err := s.Progress(challengeID, memberID)
	return p, completed, err
}
