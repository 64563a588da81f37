package store

import (
	"database/sql"
	"fmt"
)

// ReminderStore records which users were sent a mood reminder on which day
// so the scheduler sends at most one per day.
type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

// MarkSent records a reminder for userID on day (YYYY-MM-DD). It reports
// false if one was already recorded.
func (s *ReminderStore) MarkSent(userID int64, day string) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO mood_reminders_sent (user_id, day) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		userID, day,
	)
	if err != nil {
		return false, fmt.Errorf("record mood reminder: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Cleanup deletes reminder records from before day.
func (s *ReminderStore) Cleanup(day string) error {
	_, err := s.db.Exec(`DELETE FROM mood_reminders_sent WHERE day < ?`, day)
	if err != nil {
		return fmt.Errorf("cleanup mood reminders: %w", err)
	}
	return nil
}
