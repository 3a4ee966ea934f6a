package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pavelanni/lessonword/internal/model"
	"github.com/pavelanni/lessonword/internal/qxml"
)

// Importer turns presentational markup back into question pages.
type Importer struct {
	renderer Renderer
	jumps    *JumpResolver
	opts     options
}

// NewImporter returns an Importer. titles and labels may be nil.
func NewImporter(r Renderer, titles model.PageTitles, labels Localizer, opts ...Option) *Importer {
	return &Importer{
		renderer: r,
		jumps:    NewJumpResolver(titles, labels),
		opts:     newOptions(opts),
	}
}

// Import renders markup with the import stylesheet and parses the result.
func (im *Importer) Import(ctx context.Context, markup string) (model.Question, error) {
	doc, err := im.renderer.Render(ctx, markup, StylesheetImport, im.opts.params)
	if err != nil {
		return model.Question{}, fmt.Errorf("%w: %w", model.ErrRender, err)
	}
	return im.ParseQuestionXML(doc)
}

// ParseQuestionXML reads the first question of an intermediate Question XML
// document.
func (im *Importer) ParseQuestionXML(doc string) (model.Question, error) {
	x, err := qxml.FindQuestion(doc)
	if errors.Is(err, qxml.ErrNoQuestion) {
		return model.Question{}, fmt.Errorf("%w: no question element", model.ErrParse)
	}
	if err != nil {
		return model.Question{}, fmt.Errorf("%w: %w", model.ErrParse, err)
	}
	if x.QuestionText == nil {
		return model.Question{}, fmt.Errorf("%w: question has no questiontext", model.ErrParse)
	}

	t := model.TypeNamed(x.Type)
	if !t.IsQuestion() {
		return model.Question{}, fmt.Errorf("%w: unsupported question type %q", model.ErrParse, x.Type)
	}
	q := model.Question{
		Type:         t,
		Stem:         strings.TrimSpace(x.QuestionText.Text),
		SingleAnswer: x.Single == "true" || x.Single == "1",
	}
	if x.Name != nil {
		q.Title = strings.TrimSpace(x.Name.Text)
	}
	mark := parseNumber(strings.TrimSpace(x.DefaultGrade))

	switch t {
	case model.TypeMultiChoice, model.TypeTrueFalse:
		for _, a := range x.Answers {
			q.Answers = append(q.Answers, im.choiceAnswer(a, mark))
		}
	case model.TypeShortAnswer, model.TypeNumerical:
		for _, a := range x.Answers {
			q.Answers = append(q.Answers, im.responseAnswer(a, mark))
		}
	case model.TypeMatching:
		q.Answers = append(q.Answers,
			im.feedbackAnswer(x.CorrectFeedback, mark),
			im.feedbackAnswer(x.IncorrectFeedback, 0),
		)
		for _, s := range x.Subquestions {
			q.Answers = append(q.Answers, model.Answer{
				Text:     strings.TrimSpace(s.Text),
				Feedback: strings.TrimSpace(s.Answer),
				Jump:     model.Named(model.JumpThisPage),
			})
		}
	case model.TypeEssay:
		q.Answers = append(q.Answers, im.feedbackAnswer(x.GraderInfo, mark))
	}
	return q, nil
}

func score(fraction string, mark float64) float64 {
	f := parseNumber(strings.TrimSpace(fraction))
	if f <= 0 {
		return 0
	}
	return f / 100 * mark
}

func defaultJump(s float64) model.JumpTarget {
	if s > 0 {
		return model.Named(model.JumpNextPage)
	}
	return model.Named(model.JumpThisPage)
}

func feedbackText(ft *qxml.FormattedText) string {
	if ft == nil {
		return ""
	}
	return ft.Text
}

// choiceAnswer reads a multichoice or true/false answer, whose text is the
// jump anchor itself unless the text carries links of its own, in which case
// the text precedes an anchor holding the default label.
func (im *Importer) choiceAnswer(x qxml.Answer, mark float64) model.Answer {
	a := model.Answer{
		Score:    score(x.Fraction, mark),
		Feedback: strings.TrimSpace(feedbackText(x.Feedback)),
	}
	r := recoverJump(x.Text)
	if !r.HasLink {
		a.Text = r.Text
		a.Jump = defaultJump(a.Score)
		return a
	}
	a.Text = strings.TrimSpace(r.Label)
	if r.Text != "" {
		a.Text = r.Text
	}
	a.Jump = r.Jump
	if !r.Resolved {
		a.Jump = defaultJump(a.Score)
	}
	return a
}

// responseAnswer reads a short-answer or numerical answer. The anchor lives
// in the feedback and its text is the feedback unless it is the default
// label of the target.
func (im *Importer) responseAnswer(x qxml.Answer, mark float64) model.Answer {
	a := model.Answer{
		Text:  strings.TrimSpace(x.Text),
		Score: score(x.Fraction, mark),
	}
	if a.Text == "*" {
		a.Text = model.WildcardAnswer
	}
	r := recoverJump(feedbackText(x.Feedback))
	if !r.HasLink {
		a.Feedback = r.Text
		a.Jump = defaultJump(a.Score)
		return a
	}
	a.Jump = r.Jump
	if !r.Resolved {
		a.Jump = defaultJump(a.Score)
	}
	if r.Text != "" {
		a.Feedback = r.Text
		return a
	}
	label := strings.TrimSpace(r.Label)
	if _, def, _ := im.jumps.Target(a.Jump); label != def {
		a.Feedback = label
	}
	return a
}

// feedbackAnswer reads a matching or essay feedback carrier, where the
// anchor follows the feedback text and holds the default label.
func (im *Importer) feedbackAnswer(ft *qxml.FormattedText, s float64) model.Answer {
	a := model.Answer{Score: s}
	r := recoverJump(feedbackText(ft))
	a.Feedback = r.Text
	a.Jump = r.Jump
	if !r.HasLink || !r.Resolved {
		a.Jump = defaultJump(s)
	}
	return a
}
