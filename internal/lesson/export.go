package lesson

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/lessonword/internal/convert"
	"github.com/pavelanni/lessonword/internal/model"
)

// ExportReport is the result of exporting one lesson.
type ExportReport struct {
	RunID    string            `json:"run_id"`
	LessonID int64             `json:"lesson_id"`
	Lang     string            `json:"lang"`
	Pages    int               `json:"pages"`
	Warnings []convert.Warning `json:"-"`
	Failures []Failure         `json:"failures,omitempty"`
	Markup   string            `json:"-"`
}

// Err returns the page failures joined, or nil.
func (r *ExportReport) Err() error { return joinFailures(r.Failures) }

type imageEmbedder interface {
	EmbedImages(markup string) string
}

// ExportLesson exports every page of a lesson in order. A page that fails
// to export is replaced by its content and answer summary and recorded in
// the report; only store and context errors abort the run.
func (s *Service) ExportLesson(ctx context.Context, lessonID int64) (*ExportReport, error) {
	l, err := s.store.GetLesson(lessonID)
	if err != nil {
		return nil, err
	}
	pages, err := s.store.ListPages(lessonID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	titles, err := s.store.PageTitles(lessonID)
	if err != nil {
		return nil, fmt.Errorf("page titles: %w", err)
	}

	rep := &ExportReport{RunID: uuid.NewString(), LessonID: lessonID, Lang: s.cfg.Lang}
	log := s.logger.With("run_id", rep.RunID, "lesson_id", lessonID)
	params := s.params()
	exp := convert.NewExporter(s.renderer, titles, s.labels(s.cfg.Lang),
		convert.WithLogger(log), convert.WithParams(params))

	start := time.Now()
	var body strings.Builder
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var markup string
		res, err := exp.Export(ctx, p)
		if err != nil {
			log.Error("page export failed", "question_id", p.ID, "title", p.Title, "error", err)
			rep.Failures = append(rep.Failures, newFailure(p.ID, p.Title, err))
			markup = FormatAnswers(p)
		} else {
			markup = res.Markup
			rep.Warnings = append(rep.Warnings, res.Warnings...)
		}
		body.WriteString(`<h1 id="` + strconv.FormatInt(p.ID, 10) + `">` + html.EscapeString(p.Title) + "</h1>\n")
		body.WriteString(markup)
		body.WriteString("\n")
		rep.Pages++
	}

	doc := "<html" + ` lang="` + html.EscapeString(params.Lang) + `" dir="` + params.Direction + `">` + "\n" +
		`<head><meta charset="utf-8"/><title>` + html.EscapeString(l.Name) + "</title></head>\n" +
		"<body>\n" + body.String() + "</body>\n</html>\n"
	if params.ImageHandling == model.ImagesEmbedded {
		if e, ok := s.renderer.(imageEmbedder); ok {
			doc = e.EmbedImages(doc)
		}
	}
	rep.Markup = doc

	if err := s.store.SetMetadata(fmt.Sprintf("lesson.%d.last_export", lessonID), rep.RunID); err != nil {
		log.Warn("failed to record export run", "error", err)
	}
	log.Info("exported lesson",
		"pages", rep.Pages,
		"warnings", len(rep.Warnings),
		"failures", len(rep.Failures),
		"duration", time.Since(start),
	)
	return rep, nil
}

// FormatAnswers returns a page's content followed by a plain summary of its
// answers. Short-answer patterns and the feedback carriers of matching
// pages are left out.
func FormatAnswers(q model.Question) string {
	switch q.Type {
	case model.TypeShortAnswer, model.TypeLessonPage, model.TypeBranchEnd,
		model.TypeClusterStart, model.TypeClusterEnd, model.TypeUnknown:
		return q.Stem
	}
	answers := q.Answers
	if q.Type == model.TypeMatching && len(answers) >= 2 {
		answers = answers[2:]
	}
	name := q.Type.String()
	var sb strings.Builder
	sb.WriteString(q.Stem)
	sb.WriteString(`<div class="export_answer_` + name + `_wrapper">`)
	for _, a := range answers {
		sb.WriteString(`<div class="export_answer_` + name + `">` + a.Text + "</div>")
	}
	sb.WriteString("</div>")
	return sb.String()
}
