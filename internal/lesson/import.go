package lesson

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pavelanni/lessonword/internal/convert"
	"github.com/pavelanni/lessonword/internal/model"
	"github.com/pavelanni/lessonword/internal/render"
)

// ImportReport is the result of importing one document into a lesson.
type ImportReport struct {
	RunID    string    `json:"run_id"`
	LessonID int64     `json:"lesson_id"`
	Imported int       `json:"imported"`
	PageIDs  []int64   `json:"page_ids"`
	Failures []Failure `json:"failures,omitempty"`
}

// Err returns the page failures joined, or nil.
func (r *ImportReport) Err() error { return joinFailures(r.Failures) }

// section is the content between one page heading and the next.
type section struct {
	sourceID int64
	title    string
	heading  bool
	nodes    []*html.Node
}

// ImportLesson reads an XHTML document with one <h1> per page and stores
// the pages in the lesson, appending unless replace is set. The id of each
// heading is the page's ID in the source lesson; jumps between pages are
// remapped to the new IDs. A question table that cannot be read is kept as
// a plain page and recorded in the report.
func (s *Service) ImportLesson(ctx context.Context, lessonID int64, doc string, replace bool) (*ImportReport, error) {
	l, err := s.store.GetLesson(lessonID)
	if err != nil {
		return nil, err
	}
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrParse, err)
	}
	sections := splitSections(root, l.Name)

	titles := model.PageTitleMap{}
	for _, sec := range sections {
		if sec.sourceID > 0 {
			titles[sec.sourceID] = sec.title
		}
	}

	rep := &ImportReport{RunID: uuid.NewString(), LessonID: lessonID}
	log := s.logger.With("run_id", rep.RunID, "lesson_id", lessonID)
	im := convert.NewImporter(s.renderer, titles, s.labels(s.cfg.Lang),
		convert.WithLogger(log), convert.WithParams(s.params()))

	start := time.Now()
	pages := make([]model.Question, 0, len(sections))
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := s.importSection(ctx, im, sec)
		if err != nil {
			log.Error("page import failed", "question_id", sec.sourceID, "title", sec.title, "error", err)
			rep.Failures = append(rep.Failures, newFailure(sec.sourceID, sec.title, err))
			q = plainPage(sec)
		}
		pages = append(pages, q)
	}

	ids, err := s.store.ReplacePages(lessonID, pages, replace)
	if err != nil {
		return nil, fmt.Errorf("store pages: %w", err)
	}
	rep.PageIDs = ids
	rep.Imported = len(ids)
	log.Info("imported lesson",
		"pages", rep.Imported,
		"failures", len(rep.Failures),
		"replace", replace,
		"duration", time.Since(start),
	)
	return rep, nil
}

func (s *Service) importSection(ctx context.Context, im *convert.Importer, sec section) (model.Question, error) {
	if !slices.ContainsFunc(sec.nodes, func(n *html.Node) bool { return render.FindTable(n) != nil }) {
		return plainPage(sec), nil
	}
	q, err := im.Import(ctx, renderNodes(sec.nodes))
	if err != nil {
		return model.Question{}, err
	}
	q.ID = sec.sourceID
	if sec.title != "" {
		q.Title = sec.title
	}
	if err := q.Validate(); err != nil {
		return model.Question{}, err
	}
	return q, nil
}

// splitSections cuts the body at every <h1>. Content before the first
// heading becomes a page named after the lesson.
func splitSections(root *html.Node, lessonName string) []section {
	body := render.FindElement(root, atom.Body)
	if body == nil {
		return nil
	}
	var out []section
	cur := section{title: lessonName}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.H1 {
			out = appendSection(out, cur)
			id, _ := strconv.ParseInt(render.Attr(c, "id"), 10, 64)
			cur = section{sourceID: id, title: strings.TrimSpace(render.TextContent(c)), heading: true}
			continue
		}
		cur.nodes = append(cur.nodes, c)
	}
	return appendSection(out, cur)
}

func appendSection(out []section, sec section) []section {
	if !sec.heading && strings.TrimSpace(renderNodes(sec.nodes)) == "" {
		return out
	}
	return append(out, sec)
}

// plainPage turns a section into a content page. A jump list written by the
// exporter becomes the page's branch buttons.
func plainPage(sec section) model.Question {
	q := model.Question{ID: sec.sourceID, Type: model.TypeLessonPage, Title: sec.title}
	var stem []*html.Node
	for _, n := range sec.nodes {
		if n.Type == html.ElementNode && n.DataAtom == atom.Ul && render.HasClass(n, "lessonjumps") {
			q.Answers = append(q.Answers, jumpButtons(n)...)
			continue
		}
		stem = append(stem, n)
	}
	q.Stem = strings.TrimSpace(renderNodes(stem))
	if q.Title == "" {
		q.Title = "Page " + strconv.FormatInt(sec.sourceID, 10)
	}
	return q
}

// jumpButtons reads one button per list item. The button's jump is the
// item's last in-document anchor; markup before that anchor, if any, is the
// button text.
func jumpButtons(ul *html.Node) []model.Answer {
	var out []model.Answer
	for li := ul.FirstChild; li != nil; li = li.NextSibling {
		var a *html.Node
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.A && strings.HasPrefix(render.Attr(c, "href"), "#") {
				a = c
			}
		}
		if a == nil {
			continue
		}
		var lead []*html.Node
		for c := li.FirstChild; c != a; c = c.NextSibling {
			lead = append(lead, c)
		}
		jump, ok := model.ParseJumpFragment(strings.TrimPrefix(render.Attr(a, "href"), "#"))
		if !ok {
			jump = model.Named(model.JumpThisPage)
		}
		text := strings.TrimSpace(renderNodes(lead))
		if text == "" {
			text = render.InnerHTML(a)
		}
		out = append(out, model.Answer{Text: text, Jump: jump})
	}
	return out
}

func renderNodes(nodes []*html.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		_ = html.Render(&sb, n)
	}
	return sb.String()
}
