package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/famwell/internal/model"
)

type JournalStore struct {
	db *sql.DB
}

func NewJournalStore(db *sql.DB) *JournalStore {
	return &JournalStore{db: db}
}

func scanJournalEntry(scanner interface{ Scan(...any) error }) (*model.JournalEntry, error) {
	var e model.JournalEntry
	var private int
	err := scanner.Scan(&e.ID, &e.AuthorID, &e.Title, &e.Content, &e.Mood, &private, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.IsPrivate = private != 0
	return &e, nil
}

const journalCols = `id, author_id, title, content, mood, is_private, created_at, updated_at`

// JournalInput holds the editable fields of an entry.
type JournalInput struct {
	Title     string
	Content   string
	Mood      string
	Tags      []string
	IsPrivate bool
}

// JournalFilter narrows List. Query matches title or content; Tag matches
// exactly one tag.
type JournalFilter struct {
	ViewerID int64
	Query    string
	Tag      string
}

func (s *JournalStore) Create(authorID int64, in JournalInput) (*model.JournalEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO journal_entries (author_id, title, content, mood, is_private) VALUES (?, ?, ?, ?, ?)`,
		authorID, in.Title, in.Content, in.Mood, boolInt(in.IsPrivate),
	)
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := replaceTags(tx, id, in.Tags); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *JournalStore) GetByID(id int64) (*model.JournalEntry, error) {
	row := s.db.QueryRow(`SELECT `+journalCols+` FROM journal_entries WHERE id = ?`, id)
	e, err := scanJournalEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get journal entry: %w", err)
	}
	if e.Tags, err = s.tags(id); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *JournalStore) Update(id int64, in JournalInput) (*model.JournalEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE journal_entries SET title = ?, content = ?, mood = ?, is_private = ?, updated_at = ? WHERE id = ?`,
		in.Title, in.Content, in.Mood, boolInt(in.IsPrivate), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update journal entry: %w", err)
	}
	if err := replaceTags(tx, id, in.Tags); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *JournalStore) Delete(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reactions WHERE target_type = ? AND target_id = ?`, model.TargetJournal, id); err != nil {
		return fmt.Errorf("delete journal reactions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM journal_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	return tx.Commit()
}

// List returns entries visible to the viewer, newest first. Private entries
// are only visible to their author.
func (s *JournalStore) List(f JournalFilter) ([]model.JournalEntry, error) {
	query := `SELECT ` + journalCols + ` FROM journal_entries WHERE (is_private = 0 OR author_id = ?)`
	args := []any{f.ViewerID}

	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		query += ` AND (lower(title) LIKE ? ESCAPE '\' OR lower(content) LIKE ? ESCAPE '\')`
		args = append(args, like, like)
	}
	if f.Tag != "" {
		query += ` AND id IN (SELECT entry_id FROM journal_tags WHERE tag = ?)`
		args = append(args, f.Tag)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []model.JournalEntry
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Tags, err = s.tags(out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListByAuthor returns every entry written by a member, private ones included.
func (s *JournalStore) ListByAuthor(authorID int64) ([]model.JournalEntry, error) {
	entries, err := s.List(JournalFilter{ViewerID: authorID})
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if e.AuthorID == authorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *JournalStore) tags(entryID int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT tag FROM journal_tags WHERE entry_id = ? ORDER BY tag`, entryID)
	if err != nil {
		return nil, fmt.Errorf("list journal tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan journal tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func replaceTags(tx *sql.Tx, entryID int64, tags []string) error {
	if _, err := tx.Exec(`DELETE FROM journal_tags WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("clear journal tags: %w", err)
	}
	for _, t := range tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO journal_tags (entry_id, tag) VALUES (?, ?)`, entryID, t); err != nil {
			return fmt.Errorf("insert journal tag: %w", err)
		}
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
