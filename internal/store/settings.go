package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns a user's settings. Keys the user never saved keep their defaults.
func (s *SettingsStore) Get(userID int64) (model.UserSettings, error) {
	settings := model.DefaultSettings()
	var data string
	err := s.db.QueryRow(`SELECT data FROM user_settings WHERE user_id = ?`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("get settings: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return model.DefaultSettings(), fmt.Errorf("decode settings: %w", err)
	}
	if settings.MoodVisibility == nil {
		settings.MoodVisibility = map[int64]bool{}
	}
	return settings, nil
}

func (s *SettingsStore) Save(userID int64, settings model.UserSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO user_settings (user_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ByMember returns the settings of every user linked to a roster member,
// keyed by member ID.
func (s *SettingsStore) ByMember() (map[int64]model.UserSettings, error) {
	rows, err := s.db.Query(`SELECT u.id, u.member_id FROM users u WHERE u.member_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list linked users: %w", err)
	}
	type link struct{ userID, memberID int64 }
	var links []link
	for rows.Next() {
		var l link
		if err := rows.Scan(&l.userID, &l.memberID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan linked user: %w", err)
		}
		links = append(links, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[int64]model.UserSettings, len(links))
	for _, l := range links {
		st, err := s.Get(l.userID)
		if err != nil {
			return nil, err
		}
		out[l.memberID] = st
	}
	return out, nil
}
