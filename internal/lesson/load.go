package lesson

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pavelanni/lessonword/internal/model"
)

// LoadReport is the result of loading a question file.
type LoadReport struct {
	Path    string  `json:"path"`
	Loaded  int     `json:"loaded"`
	Skipped bool    `json:"skipped"`
	PageIDs []int64 `json:"page_ids,omitempty"`
}

// LoadQuestions reads a JSON array of pages from path into the lesson.
// Files are tracked by content hash: an unchanged file is skipped, and a
// changed one is skipped too unless replace is set, in which case it
// replaces the lesson's pages. Page ids in the file are only used to
// resolve jumps between its pages.
func (s *Service) LoadQuestions(ctx context.Context, lessonID int64, path string, replace bool) (*LoadReport, error) {
	if _, err := s.store.GetLesson(lessonID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	rep := &LoadReport{Path: path}
	key := strconv.FormatInt(lessonID, 10) + ":" + path
	hash := sha256sum(data)
	storedHash, err := s.store.GetImportedFileHash(key)
	if err != nil {
		return nil, fmt.Errorf("check load status for %s: %w", path, err)
	}
	if storedHash == hash {
		s.logger.Info("questions file unchanged, skipping", "path", path, "lesson_id", lessonID)
		rep.Skipped = true
		return rep, nil
	}
	if storedHash != "" && !replace {
		s.logger.Warn("questions file changed since last load, skipping to keep edited pages",
			"path", path, "lesson_id", lessonID)
		rep.Skipped = true
		return rep, nil
	}

	var pages []model.Question
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", model.ErrParse, path, err)
	}
	for i, q := range pages {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%s entry %d: %w", path, i, &model.QuestionError{QuestionID: q.ID, Title: q.Title, Err: err})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := s.store.ReplacePages(lessonID, pages, replace)
	if err != nil {
		return nil, fmt.Errorf("insert pages from %s: %w", path, err)
	}
	if err := s.store.SetImportedFileHash(key, hash); err != nil {
		return nil, fmt.Errorf("record load for %s: %w", path, err)
	}
	rep.Loaded = len(ids)
	rep.PageIDs = ids
	s.logger.Info("loaded questions", "path", path, "lesson_id", lessonID, "pages", rep.Loaded)
	return rep, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
