package model

import "time"

// Sign-in providers.
const (
	ProviderPassword  = "password"
	ProviderFederated = "federated"
	ProviderDemo      = "demo"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Avatar    string    `json:"avatar"`
	Provider  string    `json:"provider"`
	MemberID  *int64    `json:"member_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the display identity read by every screen.
type Profile struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar"`
	Email  string `json:"email"`
}

func (u *User) Profile() Profile {
	return Profile{Name: u.Name, Role: u.Role, Avatar: u.Avatar, Email: u.Email}
}

type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
