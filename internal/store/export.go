package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
)

type ExportStore struct {
	db *sql.DB
}

func NewExportStore(db *sql.DB) *ExportStore {
	return &ExportStore{db: db}
}

func scanExport(scanner interface{ Scan(...any) error }) (*model.Export, error) {
	var e model.Export
	var completedAt sql.NullTime
	err := scanner.Scan(&e.ID, &e.UserID, &e.ObjectKey, &e.SizeBytes, &e.Status, &e.ErrorMessage, &completedAt, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	return &e, nil
}

const exportCols = `id, user_id, object_key, size_bytes, status, error_message, completed_at, created_at`

func (s *ExportStore) Create(userID int64, objectKey string) (*model.Export, error) {
	result, err := s.db.Exec(
		`INSERT INTO exports (user_id, object_key, status) VALUES (?, ?, ?)`,
		userID, objectKey, model.ExportStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("create export: %w", mapErr(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ExportStore) GetByID(id int64) (*model.Export, error) {
	row := s.db.QueryRow(`SELECT `+exportCols+` FROM exports WHERE id = ?`, id)
	e, err := scanExport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get export %d: %w", id, err)
	}
	return e, nil
}

func (s *ExportStore) ListByUser(userID int64, limit int) ([]model.Export, error) {
	rows, err := s.db.Query(
		`SELECT `+exportCols+` FROM exports WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var out []model.Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *ExportStore) UpdateStatus(id int64, status, errMsg string) error {
	_, err := s.db.Exec(`UPDATE exports SET status = ?, error_message = ? WHERE id = ?`, status, errMsg, id)
	if err != nil {
		return fmt.Errorf("update export status: %w", err)
	}
	return nil
}

func (s *ExportStore) UpdateCompleted(id int64, sizeBytes int64) error {
	_, err := s.db.Exec(
		`UPDATE exports SET status = ?, size_bytes = ?, completed_at = ? WHERE id = ?`,
		model.ExportStatusCompleted, sizeBytes, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update export completed: %w", err)
	}
	return nil
}
