package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/wellness"
)

type RelationshipStore struct {
	db *sql.DB
}

func NewRelationshipStore(db *sql.DB) *RelationshipStore {
	return &RelationshipStore{db: db}
}

func scanRelationship(scanner interface{ Scan(...any) error }) (*model.Relationship, error) {
	var r model.Relationship
	var lastInteraction sql.NullTime
	err := scanner.Scan(
		&r.ID, &r.MemberA, &r.MemberB, &r.Relationship, &r.Strength, &r.Health,
		&r.EmotionalDistance, &r.PreviousDistance, &r.Confidence, &lastInteraction,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastInteraction.Valid {
		r.LastInteractionAt = &lastInteraction.Time
	}
	return &r, nil
}

const relationshipCols = `id, member_a, member_b, relationship, strength, health, emotional_distance, previous_distance, confidence, last_interaction_at, created_at, updated_at`

// orderPair returns the two member IDs lowest first.
func orderPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// distanceFor is the emotional distance implied by an edge strength.
func distanceFor(strength int) int {
	return wellness.Clamp(100 - strength)
}

// Upsert creates or updates the edge between two members. The pair is
// unordered; health and emotional distance are derived from strength and
// the old distance is kept for trend reporting.
func (s *RelationshipStore) Upsert(memberA, memberB int64, relationship string, strength int) (*model.Relationship, error) {
	if memberA == memberB {
		return nil, &model.ValidationError{Field: "member_b", Reason: "must differ from member_a"}
	}
	a, b := orderPair(memberA, memberB)
	strength = wellness.Clamp(strength)
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO relationships (member_a, member_b, relationship, strength, health, emotional_distance, previous_distance, last_interaction_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(member_a, member_b) DO UPDATE SET
			relationship = CASE WHEN excluded.relationship = '' THEN relationships.relationship ELSE excluded.relationship END,
			strength = excluded.strength,
			health = excluded.health,
			previous_distance = relationships.emotional_distance,
			emotional_distance = excluded.emotional_distance,
			last_interaction_at = excluded.last_interaction_at,
			updated_at = excluded.updated_at`,
		a, b, relationship, strength, string(wellness.EdgeHealth(strength)),
		distanceFor(strength), distanceFor(strength), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert relationship: %w", err)
	}
	return s.Get(a, b)
}

// Get returns the edge between two members in either order.
func (s *RelationshipStore) Get(memberA, memberB int64) (*model.Relationship, error) {
	a, b := orderPair(memberA, memberB)
	row := s.db.QueryRow(`SELECT `+relationshipCols+` FROM relationships WHERE member_a = ? AND member_b = ?`, a, b)
	r, err := scanRelationship(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get relationship: %w", err)
	}
	return r, nil
}

func (s *RelationshipStore) List() ([]model.Relationship, error) {
	rows, err := s.db.Query(`SELECT ` + relationshipCols + ` FROM relationships ORDER BY member_a, member_b`)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// SetConfidence overrides the tracker confidence for an edge.
func (s *RelationshipStore) SetConfidence(id int64, confidence int) error {
	_, err := s.db.Exec(`UPDATE relationships SET confidence = ? WHERE id = ?`, wellness.Clamp(confidence), id)
	if err != nil {
		return fmt.Errorf("set confidence: %w", err)
	}
	return nil
}

// Refresh rewrites every edge's strength with next(strength) in a single
// transaction and re-derives health and distance.
func (s *RelationshipStore) Refresh(next func(strength int) int) ([]model.Relationship, error) {
	edges, err := s.List()
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`UPDATE relationships SET strength = ?, health = ?, previous_distance = emotional_distance,
		 emotional_distance = ?, updated_at = ? WHERE id = ?`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range edges {
		strength := wellness.Clamp(next(e.Strength))
		if _, err := stmt.Exec(strength, string(wellness.EdgeHealth(strength)), distanceFor(strength), now, e.ID); err != nil {
			return nil, fmt.Errorf("refresh relationship %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.List()
}
