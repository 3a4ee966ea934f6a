package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/lessonword/internal/model"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// InsertPage appends a page with its answers to the end of its lesson.
func (s *Store) InsertPage(q model.Question) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id, err := insertPage(tx, q)
	if err != nil {
		return 0, err
	}
	if err := insertAnswers(tx, id, q.Answers); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func insertPage(tx execer, q model.Question) (int64, error) {
	var next int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(ordering), 0) + 1 FROM pages WHERE lesson_id = ?`, q.LessonID,
	).Scan(&next); err != nil {
		return 0, err
	}
	res, err := tx.Exec(
		`INSERT INTO pages (lesson_id, ordering, qtype, title, contents, single_answer) VALUES (?, ?, ?, ?, ?, ?)`,
		q.LessonID, next, q.Type.Code(), q.Title, q.Stem, q.SingleAnswer,
	)
	if err != nil {
		return 0, fmt.Errorf("insert page %q: %w", q.Title, err)
	}
	return res.LastInsertId()
}

func insertAnswers(tx execer, pageID int64, answers []model.Answer) error {
	for i, a := range answers {
		_, err := tx.Exec(
			`INSERT INTO answers (page_id, ordering, answer, score, response, jump) VALUES (?, ?, ?, ?, ?, ?)`,
			pageID, i, a.Text, a.Score, a.Feedback, a.Jump.Code(),
		)
		if err != nil {
			return fmt.Errorf("insert answer %d of page %d: %w", i, pageID, err)
		}
	}
	return nil
}

const pageColumns = `id, lesson_id, qtype, title, contents, single_answer`

func scanPage(scan func(...any) error) (model.Question, error) {
	var (
		q    model.Question
		code int
	)
	if err := scan(&q.ID, &q.LessonID, &code, &q.Title, &q.Stem, &q.SingleAnswer); err != nil {
		return q, err
	}
	q.Type = model.TypeOf(code)
	return q, nil
}

// GetPage returns a page with its answers.
func (s *Store) GetPage(id int64) (model.Question, error) {
	q, err := scanPage(s.db.QueryRow(`SELECT `+pageColumns+` FROM pages WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return q, fmt.Errorf("page %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return q, err
	}
	answers, err := s.answers("p.id = ?", id)
	if err != nil {
		return q, err
	}
	q.Answers = answers[id]
	return q, nil
}

// ListPages returns the pages of a lesson in lesson order.
func (s *Store) ListPages(lessonID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT `+pageColumns+` FROM pages WHERE lesson_id = ? ORDER BY ordering, id`, lessonID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pages []model.Question
	for rows.Next() {
		q, err := scanPage(rows.Scan)
		if err != nil {
			return nil, err
		}
		pages = append(pages, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	answers, err := s.answers("p.lesson_id = ?", lessonID)
	if err != nil {
		return nil, err
	}
	for i := range pages {
		pages[i].Answers = answers[pages[i].ID]
	}
	return pages, nil
}

func (s *Store) answers(where string, arg int64) (map[int64][]model.Answer, error) {
	rows, err := s.db.Query(
		`SELECT a.page_id, a.answer, a.score, a.response, a.jump
		 FROM answers a JOIN pages p ON p.id = a.page_id
		 WHERE `+where+` ORDER BY a.page_id, a.ordering`, arg,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]model.Answer)
	for rows.Next() {
		var (
			pageID int64
			a      model.Answer
			jump   int64
		)
		if err := rows.Scan(&pageID, &a.Text, &a.Score, &a.Feedback, &jump); err != nil {
			return nil, err
		}
		a.Jump = model.JumpFromCode(jump)
		out[pageID] = append(out[pageID], a)
	}
	return out, rows.Err()
}

// PageTitles returns the page ID to title index of a lesson.
func (s *Store) PageTitles(lessonID int64) (model.PageTitleMap, error) {
	rows, err := s.db.Query(`SELECT id, title FROM pages WHERE lesson_id = ?`, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	titles := make(model.PageTitleMap)
	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		titles[id] = title
	}
	return titles, rows.Err()
}

// PageCount returns the number of pages in a lesson.
func (s *Store) PageCount(lessonID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pages WHERE lesson_id = ?`, lessonID).Scan(&count)
	return count, err
}

// ReplacePages stores imported pages in one transaction, deleting the
// lesson's existing pages first when replace is set. The ID of each
// incoming page is taken as its ID in the source document: jumps to those
// IDs are rewritten to the newly assigned page IDs. It returns the new IDs
// in input order.
func (s *Store) ReplacePages(lessonID int64, pages []model.Question, replace bool) ([]int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.Exec(
			`DELETE FROM answers WHERE page_id IN (SELECT id FROM pages WHERE lesson_id = ?)`, lessonID,
		); err != nil {
			return nil, fmt.Errorf("delete answers: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM pages WHERE lesson_id = ?`, lessonID); err != nil {
			return nil, fmt.Errorf("delete pages: %w", err)
		}
	}

	ids := make([]int64, len(pages))
	remap := make(map[int64]int64, len(pages))
	for i, q := range pages {
		q.LessonID = lessonID
		id, err := insertPage(tx, q)
		if err != nil {
			return nil, err
		}
		ids[i] = id
		if q.ID > 0 {
			remap[q.ID] = id
		}
	}
	for i, q := range pages {
		answers := make([]model.Answer, len(q.Answers))
		for j, a := range q.Answers {
			if old, ok := a.Jump.PageID(); ok {
				if id, found := remap[old]; found {
					a.Jump = model.PageID(id)
				}
			}
			answers[j] = a
		}
		if err := insertAnswers(tx, ids[i], answers); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	slog.Info("stored pages", "lesson_id", lessonID, "count", len(pages), "replace", replace)
	return ids, nil
}
