package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/wellness"
)

type HelpRequestStore struct {
	db *sql.DB
}

func NewHelpRequestStore(db *sql.DB) *HelpRequestStore {
	return &HelpRequestStore{db: db}
}

func scanHelpRequest(scanner interface{ Scan(...any) error }) (*model.HelpRequest, error) {
	var h model.HelpRequest
	var anonymous int
	var responder sql.NullInt64
	var respondedAt sql.NullTime
	err := scanner.Scan(
		&h.ID, &h.RequestKey, &h.RequesterID, &h.Reason, &h.Contact, &h.Message,
		&anonymous, &h.Status, &responder, &respondedAt, &h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	h.Anonymous = anonymous != 0
	if responder.Valid {
		h.ResponderID = &responder.Int64
	}
	if respondedAt.Valid {
		h.RespondedAt = &respondedAt.Time
	}
	return &h, nil
}

const helpRequestCols = `id, request_key, requester_id, reason, contact, message, anonymous, status, responder_id, responded_at, created_at`

// Create records a help request keyed by requestKey. Submitting the same key
// again returns the original request and false.
func (s *HelpRequestStore) Create(requestKey string, requesterID int64, reason, contact, message string, anonymous bool) (*model.HelpRequest, bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO help_requests (request_key, requester_id, reason, contact, message, anonymous)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(request_key) DO NOTHING`,
		requestKey, requesterID, reason, contact, message, boolInt(anonymous),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert help request: %w", err)
	}
	added, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	h, err := s.GetByKey(requestKey)
	return h, added > 0, err
}

func (s *HelpRequestStore) GetByID(id int64) (*model.HelpRequest, error) {
	row := s.db.QueryRow(`SELECT `+helpRequestCols+` FROM help_requests WHERE id = ?`, id)
	h, err := scanHelpRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get help request: %w", err)
	}
	return h, nil
}

func (s *HelpRequestStore) GetByKey(requestKey string) (*model.HelpRequest, error) {
	row := s.db.QueryRow(`SELECT `+helpRequestCols+` FROM help_requests WHERE request_key = ?`, requestKey)
	h, err := scanHelpRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get help request by key: %w", err)
	}
	return h, nil
}

// List returns help requests newest first. A zero requesterID returns all.
func (s *HelpRequestStore) List(requesterID int64) ([]model.HelpRequest, error) {
	query := `SELECT ` + helpRequestCols + ` FROM help_requests`
	var args []any
	if requesterID != 0 {
		query += ` WHERE requester_id = ?`
		args = append(args, requesterID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list help requests: %w", err)
	}
	defer rows.Close()

	var out []model.HelpRequest
	for rows.Next() {
		h, err := scanHelpRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan help request: %w", err)
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// Respond marks a sent request as responded by responderID and awards the
// responder help points. A request already responded to is returned with
// wellness.ErrAlreadyInState.
func (s *HelpRequestStore) Respond(id, responderID int64) (*model.HelpRequest, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE help_requests SET status = 'responded', responder_id = ?, responded_at = ? WHERE id = ? AND status = 'sent'`,
		responderID, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("respond to help request: %w", err)
	}
	changed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if changed > 0 {
		if _, err := awardPoints(tx, responderID, wellness.ActivityHelp, wellness.PointsFor(wellness.ActivityHelp)); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	h, err := s.GetByID(id)
	if err != nil || h == nil {
		return h, err
	}
	if changed == 0 {
		return h, wellness.HelpMachine.Advance(h.Status, wellness.HelpStatusResponded)
	}
	return h, nil
}
