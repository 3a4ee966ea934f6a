package convert

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pavelanni/lessonword/internal/model"
)

const (
	commonXML = `<generalfeedback format="html"><text></text></generalfeedback>
<defaultgrade>%s</defaultgrade>
<penalty>0.3333333</penalty>
<hidden>0</hidden>
<idnumber></idnumber>
`
	multiChoiceXML = `<shuffleanswers>true</shuffleanswers>
<answernumbering>ABCD</answernumbering>
<correctfeedback format="html"><text></text></correctfeedback>
<partiallycorrectfeedback format="html"><text></text></partiallycorrectfeedback>
<incorrectfeedback format="html"><text></text></incorrectfeedback>
<shownumcorrect/>
`
	shortAnswerXML = "<usecase>0</usecase>\n"
	matchingXML    = `<shuffleanswers>true</shuffleanswers>
<partiallycorrectfeedback format="html"><text></text></partiallycorrectfeedback>
`
	essayXML = `<responseformat>editorfilepicker</responseformat>
<responserequired>1</responserequired>
<responsefieldlines>15</responsefieldlines>
<attachments>0</attachments>
<attachmentsrequired>0</attachmentsrequired>
<responsetemplate format="html"><text></text></responsetemplate>
`
	numericalUnitsXML = `<units>
<unit><multiplier>1</multiplier><unit_name></unit_name></unit>
</units>
<unitgradingtype>1</unitgradingtype>
<unitpenalty>0.1</unitpenalty>
<showunits>2</showunits>
<unitsleft>1</unitsleft>
`
)

// behavior is the single per-type dispatch point for grading and export.
type behavior struct {
	grade    func(model.Question) (Grading, error)
	metadata string
	write    func(w *docWriter, q model.Question, g Grading) error
}

var behaviors = map[model.QuestionType]behavior{
	model.TypeShortAnswer: {grade: gradeBest, metadata: shortAnswerXML, write: writeShortAnswers},
	model.TypeNumerical:   {grade: gradeBest, write: writeNumericalAnswers},
	model.TypeTrueFalse:   {grade: gradeTrueFalse, write: writeChoiceAnswers},
	model.TypeMultiChoice: {grade: gradeMultiChoice, metadata: multiChoiceXML, write: writeMultiChoice},
	model.TypeMatching:    {grade: gradeMatching, metadata: matchingXML, write: writeMatching},
	model.TypeEssay:       {grade: gradeEssay, metadata: essayXML, write: writeEssay},
}

// ExportResult is the rendered markup of one page plus any warnings.
type ExportResult struct {
	Markup   string
	Warnings []Warning
}

// Exporter turns question pages into presentational markup.
type Exporter struct {
	renderer Renderer
	jumps    *JumpResolver
	labels   Localizer
	opts     options
}

// NewExporter returns an Exporter. labels may be nil.
func NewExporter(r Renderer, titles model.PageTitles, labels Localizer, opts ...Option) *Exporter {
	if labels == nil {
		labels = keyLabels{}
	}
	return &Exporter{
		renderer: r,
		jumps:    NewJumpResolver(titles, labels),
		labels:   labels,
		opts:     newOptions(opts),
	}
}

// Export renders a page. Question pages go through the renderer; plain
// pages are returned as their content followed by their jump links.
func (e *Exporter) Export(ctx context.Context, q model.Question) (*ExportResult, error) {
	if q.Type == model.TypeUnknown {
		return nil, fmt.Errorf("%w: unknown page type", model.ErrInvalidQuestion)
	}
	if !q.Type.IsQuestion() {
		markup, warnings := e.plainPage(q)
		e.logWarnings(warnings)
		return &ExportResult{Markup: markup, Warnings: warnings}, nil
	}

	doc, warnings, err := e.QuestionXML(q)
	if err != nil {
		return nil, err
	}
	e.logWarnings(warnings)

	container := "<container>\n<quiz>" + doc + "</quiz>\n" + e.labelsXML() + "\n</container>"
	out, err := e.renderer.Render(ctx, container, StylesheetExport, e.opts.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrRender, err)
	}
	return &ExportResult{Markup: out, Warnings: warnings}, nil
}

// QuestionXML builds the intermediate Question XML of a question page.
func (e *Exporter) QuestionXML(q model.Question) (string, []Warning, error) {
	b, ok := behaviors[q.Type]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s is not a question type", model.ErrInvalidQuestion, q.Type)
	}
	g, err := b.grade(q)
	if err != nil {
		return "", nil, err
	}

	w := &docWriter{jumps: e.jumps, q: q}
	w.raw(`<question type="` + q.Type.String() + `">` + "\n")
	w.raw("<name><text>" + escape(q.Title) + "</text></name>\n")
	w.element("questiontext", q.Stem)
	w.raw(fmt.Sprintf(commonXML, strconv.FormatFloat(g.DefaultMark, 'f', 7, 64)))
	w.raw(b.metadata)
	if err := b.write(w, q, g); err != nil {
		return "", nil, err
	}
	w.raw("</question>")
	return w.sb.String(), w.warnings, nil
}

func (e *Exporter) plainPage(q model.Question) (string, []Warning) {
	if len(q.Answers) == 0 {
		return q.Stem, nil
	}
	w := &docWriter{jumps: e.jumps, q: q}
	w.raw(q.Stem)
	w.raw(`<ul class="lessonjumps">`)
	for i, a := range q.Answers {
		w.raw("<li>" + w.link(i, a).HTML() + "</li>")
	}
	w.raw("</ul>")
	return w.sb.String(), w.warnings
}

func (e *Exporter) labelsXML() string {
	var sb strings.Builder
	sb.WriteString("<moodlelabels>\n")
	for _, key := range LabelKeys {
		sb.WriteString(`<data name="` + escape(key) + `"><value>` + escape(e.labels.Localize(key)) + "</value></data>\n")
	}
	sb.WriteString("</moodlelabels>")
	return sb.String()
}

func (e *Exporter) logWarnings(warnings []Warning) {
	for _, w := range warnings {
		e.opts.logger.Warn("unresolved jump",
			slog.Int64("question_id", w.QuestionID),
			slog.Int("answer", w.AnswerIndex),
			slog.Int64("code", w.Jump.Code()),
		)
	}
}

type docWriter struct {
	sb       strings.Builder
	jumps    *JumpResolver
	q        model.Question
	warnings []Warning
}

func (w *docWriter) raw(s string) { w.sb.WriteString(s) }

// element writes <tag format="html"><text>CDATA</text></tag>.
func (w *docWriter) element(tag, body string) {
	w.raw("<" + tag + ` format="html"><text>` + cdata(body) + "</text></" + tag + ">\n")
}

func (w *docWriter) link(i int, a model.Answer) JumpLink {
	l := w.jumps.Resolve(a, w.q.Type)
	if l.Unresolved {
		w.warnings = append(w.warnings, Warning{QuestionID: w.q.ID, AnswerIndex: i, Jump: a.Jump})
	}
	return l
}

// feedbackLink joins feedback text with the answer's jump link.
func (w *docWriter) feedbackLink(i int, a model.Answer) string {
	l := w.link(i, a)
	if a.Feedback == "" {
		return l.HTML()
	}
	return a.Feedback + " " + l.HTML()
}

func writeChoiceAnswers(w *docWriter, q model.Question, g Grading) error {
	for i, ga := range g.Answers {
		w.raw(`<answer fraction="` + formatNumber(ga.Grade) + `" format="html">`)
		w.raw("<text>" + w.link(i, ga.Answer).Inert() + "</text>\n")
		w.element("feedback", ga.Answer.Feedback)
		w.raw("</answer>\n")
	}
	return nil
}

func writeMultiChoice(w *docWriter, q model.Question, g Grading) error {
	w.raw("<single>" + strconv.FormatBool(q.SingleAnswer) + "</single>\n")
	return writeChoiceAnswers(w, q, g)
}

func writeShortAnswers(w *docWriter, q model.Question, g Grading) error {
	writeResponseAnswers(w, g, "")
	return nil
}

func writeNumericalAnswers(w *docWriter, q model.Question, g Grading) error {
	writeResponseAnswers(w, g, "<tolerance>0</tolerance>\n")
	w.raw(numericalUnitsXML)
	return nil
}

// writeResponseAnswers writes typed-response answers, where the jump link
// lives in the feedback.
func writeResponseAnswers(w *docWriter, g Grading, extra string) {
	for i, ga := range g.Answers {
		text := ga.Answer.Text
		if text == model.WildcardAnswer {
			text = "*"
		}
		w.raw(`<answer fraction="` + formatNumber(ga.Grade) + `" format="moodle_auto_format">`)
		w.raw("<text>" + cdata(text) + "</text>\n")
		w.raw(extra)
		w.raw(`<feedback format="html"><text>` + w.link(i, ga.Answer).Inert() + "</text></feedback>\n")
		w.raw("</answer>\n")
	}
}

func writeMatching(w *docWriter, q model.Question, _ Grading) error {
	m, err := q.MatchingAnswers()
	if err != nil {
		return err
	}
	w.element("correctfeedback", w.feedbackLink(0, m.Correct))
	w.element("incorrectfeedback", w.feedbackLink(1, m.Incorrect))
	for _, p := range m.Pairs {
		w.raw(`<subquestion format="html"><text>` + cdata(p.Text) + "</text>")
		w.raw("<answer><text>" + cdata(p.Feedback) + "</text></answer>")
		w.raw("</subquestion>\n")
	}
	return nil
}

func writeEssay(w *docWriter, q model.Question, _ Grading) error {
	a, err := q.EssayAnswer()
	if err != nil {
		return err
	}
	w.element("graderinfo", w.feedbackLink(0, a))
	return nil
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
