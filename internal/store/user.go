package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var memberID sql.NullInt64
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Avatar, &u.Provider, &memberID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if memberID.Valid {
		u.MemberID = &memberID.Int64
	}
	return &u, nil
}

const userCols = `id, email, name, role, avatar, provider, member_id, created_at, updated_at`

// NewUser is the input for Create. PasswordHash is empty for users that
// sign in through a federated provider or the demo.
type NewUser struct {
	Email        string
	Name         string
	Role         string
	Avatar       string
	Provider     string
	PasswordHash string
	MemberID     *int64
}

func (s *UserStore) Create(in NewUser) (*model.User, error) {
	var hash sql.NullString
	if in.PasswordHash != "" {
		hash = sql.NullString{String: in.PasswordHash, Valid: true}
	}
	var memberID sql.NullInt64
	if in.MemberID != nil {
		memberID = sql.NullInt64{Int64: *in.MemberID, Valid: true}
	}
	provider := in.Provider
	if provider == "" {
		provider = model.ProviderPassword
	}

	result, err := s.db.Exec(
		`INSERT INTO users (email, name, role, avatar, provider, password_hash, member_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Email, in.Name, in.Role, in.Avatar, provider, hash, memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", mapErr(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetByMemberID returns the user linked to a roster member.
func (s *UserStore) GetByMemberID(memberID int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE member_id = ? ORDER BY id LIMIT 1`, memberID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by member: %w", err)
	}
	return u, nil
}

// PasswordHash returns the stored bcrypt hash, or "" if the user has none.
func (s *UserStore) PasswordHash(id int64) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash.String, nil
}

func (s *UserStore) List() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userCols + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UpdateProfile rewrites the display identity of a user.
func (s *UserStore) UpdateProfile(id int64, p model.Profile) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, role = ?, avatar = ?, email = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Role, p.Avatar, p.Email, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user profile: %w", mapErr(err))
	}
	return s.GetByID(id)
}

func (s *UserStore) LinkMember(id, memberID int64) error {
	_, err := s.db.Exec(`UPDATE users SET member_id = ?, updated_at = ? WHERE id = ?`, memberID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("link member: %w", err)
	}
	return nil
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
