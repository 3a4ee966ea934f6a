package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/lessonword/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lessons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lesson_id INTEGER NOT NULL,
		ordering INTEGER NOT NULL,
		qtype INTEGER NOT NULL,
		title TEXT NOT NULL,
		contents TEXT NOT NULL DEFAULT '',
		single_answer INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (lesson_id) REFERENCES lessons(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS pages_lesson ON pages (lesson_id, ordering);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_id INTEGER NOT NULL,
		ordering INTEGER NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		score REAL NOT NULL DEFAULT 0,
		response TEXT NOT NULL DEFAULT '',
		jump INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (page_id) REFERENCES pages(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateLesson creates an empty lesson.
func (s *Store) CreateLesson(name string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO lessons (name, created_at) VALUES (?, ?)`, name, time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetLesson returns a lesson by ID.
func (s *Store) GetLesson(id int64) (model.Lesson, error) {
	var l model.Lesson
	err := s.db.QueryRow(
		`SELECT id, name, created_at FROM lessons WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("lesson %d: %w", id, model.ErrNotFound)
	}
	return l, err
}

// ListLessons returns all lessons.
func (s *Store) ListLessons() ([]model.Lesson, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM lessons ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lessons []model.Lesson
	for rows.Next() {
		var l model.Lesson
		if err := rows.Scan(&l.ID, &l.Name, &l.CreatedAt); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// DeleteLesson removes a lesson with its pages.
func (s *Store) DeleteLesson(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM answers WHERE page_id IN (SELECT id FROM pages WHERE lesson_id = ?)`, id,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM pages WHERE lesson_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("lesson %d: %w", id, model.ErrNotFound)
	}
	return tx.Commit()
}
