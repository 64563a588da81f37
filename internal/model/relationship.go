package model

import "time"

// Relationship is an undirected edge of the trust graph. MemberA is always
// the lower member ID.
type Relationship struct {
	ID                int64      `json:"id"`
	MemberA           int64      `json:"member_a"`
	MemberB           int64      `json:"member_b"`
	Relationship      string     `json:"relationship"`
	Strength          int        `json:"strength"`
	Health            string     `json:"health"`
	EmotionalDistance int        `json:"emotional_distance"`
	PreviousDistance  int        `json:"previous_distance"`
	Confidence        int        `json:"confidence"`
	LastInteractionAt *time.Time `json:"last_interaction_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Involves reports whether memberID is one end of the edge.
func (r *Relationship) Involves(memberID int64) bool {
	return r.MemberA == memberID || r.MemberB == memberID
}
