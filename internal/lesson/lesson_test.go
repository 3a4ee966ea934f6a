package lesson

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/lessonword/internal/convert"
	"github.com/pavelanni/lessonword/internal/i18n"
	"github.com/pavelanni/lessonword/internal/model"
	"github.com/pavelanni/lessonword/internal/render"
	"github.com/pavelanni/lessonword/internal/store"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func newTestService(t *testing.T, r convert.Renderer) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	if r == nil {
		r = render.New()
	}
	return New(st, r, model.ConvertConfig{Lang: "en"}), st
}

func ans(text string, s float64, feedback string, j model.JumpTarget) model.Answer {
	return model.Answer{Text: text, Score: s, Feedback: feedback, Jump: j}
}

var (
	next = model.Named(model.JumpNextPage)
	this = model.Named(model.JumpThisPage)
)

// seedLesson stores an intro page, a true/false page that jumps back to the
// intro and an essay.
func seedLesson(t *testing.T, st *store.Store) (lessonID, introID int64) {
	t.Helper()
	lessonID, err := st.CreateLesson("Geography")
	require.NoError(t, err)
	introID, err = st.InsertPage(model.Question{
		LessonID: lessonID, Type: model.TypeLessonPage, Title: "Intro",
		Stem: "<p>Welcome</p>", Answers: []model.Answer{ans("Start", 0, "", next)},
	})
	require.NoError(t, err)
	_, err = st.InsertPage(model.Question{
		LessonID: lessonID, Type: model.TypeTrueFalse, Title: "Sky",
		Stem: "<p>The sky is blue</p>", Answers: []model.Answer{
			ans("True", 1, "Right", next),
			ans("False", 0, "Look up", model.PageID(introID)),
		},
	})
	require.NoError(t, err)
	_, err = st.InsertPage(model.Question{
		LessonID: lessonID, Type: model.TypeEssay, Title: "Essay",
		Stem: "<p>Describe a river</p>", Answers: []model.Answer{
			ans("", 10, "Mention the source", model.Named(model.JumpEndOfLesson)),
		},
	})
	require.NoError(t, err)
	return lessonID, introID
}

func TestExportLesson(t *testing.T) {
	svc, st := newTestService(t, nil)
	lessonID, introID := seedLesson(t, st)

	rep, err := svc.ExportLesson(context.Background(), lessonID)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Pages)
	assert.Empty(t, rep.Failures)
	assert.Empty(t, rep.Warnings)
	assert.NotEmpty(t, rep.RunID)

	doc := rep.Markup
	assert.Contains(t, doc, `<title>Geography</title>`)
	assert.Contains(t, doc, fmt.Sprintf(`<h1 id="%d">Intro</h1>`, introID))
	assert.Contains(t, doc, `<ul class="lessonjumps"><li><a href="#nextpage">Start</a></li></ul>`)
	assert.Contains(t, doc, fmt.Sprintf(`href="#%d"`, introID))
	assert.Equal(t, 2, strings.Count(doc, `class="moodleQuestion"`))
	assert.Less(t, strings.Index(doc, ">Intro<"), strings.Index(doc, ">Sky<"))

	runID, err := st.GetMetadata(fmt.Sprintf("lesson.%d.last_export", lessonID))
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, runID)
}

func TestExportLessonNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.ExportLesson(context.Background(), 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestExportLessonIsolatesFailures(t *testing.T) {
	svc, st := newTestService(t, nil)
	lessonID, err := st.CreateLesson("Broken")
	require.NoError(t, err)
	// A multi-answer question needs at least one incorrect answer.
	_, err = st.InsertPage(model.Question{
		LessonID: lessonID, Type: model.TypeMultiChoice, Title: "All right",
		Stem: "<p>Pick</p>", Answers: []model.Answer{ans("a", 1, "", next), ans("b", 1, "", next)},
	})
	require.NoError(t, err)
	_, err = st.InsertPage(model.Question{
		LessonID: lessonID, Type: model.TypeLessonPage, Title: "After", Stem: "<p>Still here</p>",
	})
	require.NoError(t, err)

	rep, err := svc.ExportLesson(context.Background(), lessonID)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Pages)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "All right", rep.Failures[0].Title)
	assert.ErrorIs(t, rep.Err(), model.ErrInvalidQuestion)

	var qe *model.QuestionError
	require.True(t, errors.As(rep.Err(), &qe))
	assert.Equal(t, "All right", qe.Title)

	assert.Contains(t, rep.Markup, `<div class="export_answer_multichoice_wrapper">`)
	assert.Contains(t, rep.Markup, "<p>Still here</p>")
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, string, convert.Stylesheet, convert.RenderParams) (string, error) {
	return "", errors.New("renderer crashed")
}

func TestExportLessonRendererFailure(t *testing.T) {
	svc, st := newTestService(t, failingRenderer{})
	lessonID, _ := seedLesson(t, st)

	rep, err := svc.ExportLesson(context.Background(), lessonID)
	require.NoError(t, err)
	assert.Len(t, rep.Failures, 2)
	assert.ErrorIs(t, rep.Err(), model.ErrRender)
	// Plain pages do not go through the renderer.
	assert.Contains(t, rep.Markup, "<p>Welcome</p>")
}

func TestExportLessonCanceled(t *testing.T) {
	svc, st := newTestService(t, nil)
	lessonID, _ := seedLesson(t, st)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ExportLesson(ctx, lessonID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportLessonDirection(t *testing.T) {
	svc, st := newTestService(t, nil)
	lessonID, _ := seedLesson(t, st)

	rep, err := svc.WithLang("ar").ExportLesson(context.Background(), lessonID)
	require.NoError(t, err)
	assert.Equal(t, "ar", rep.Lang)
	assert.Contains(t, rep.Markup, `<html lang="ar" dir="rtl">`)
}

func TestImportLessonRoundTrip(t *testing.T) {
	svc, st := newTestService(t, nil)
	srcID, _ := seedLesson(t, st)
	exp, err := svc.ExportLesson(context.Background(), srcID)
	require.NoError(t, err)

	dstID, err := st.CreateLesson("Copy")
	require.NoError(t, err)
	rep, err := svc.ImportLesson(context.Background(), dstID, exp.Markup, false)
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)
	require.Equal(t, 3, rep.Imported)

	src, err := st.ListPages(srcID)
	require.NoError(t, err)
	got, err := st.ListPages(dstID)
	require.NoError(t, err)
	require.Len(t, got, len(src))
	for i := range src {
		assert.Equal(t, src[i].Type, got[i].Type, "page %d type", i)
		assert.Equal(t, src[i].Title, got[i].Title, "page %d title", i)
		assert.Equal(t, src[i].Stem, got[i].Stem, "page %d stem", i)
		require.Len(t, got[i].Answers, len(src[i].Answers), "page %d answers", i)
	}

	// The jump back to the intro points at the copied intro.
	assert.Equal(t, model.PageID(got[0].ID), got[1].Answers[1].Jump)
	assert.Equal(t, "Look up", got[1].Answers[1].Feedback)
	assert.Equal(t, next, got[0].Answers[0].Jump)
	assert.Equal(t, "Start", got[0].Answers[0].Text)
	assert.InDelta(t, 10, got[2].Answers[0].Score, 1e-6)
}

func TestImportLessonLinkedButtonText(t *testing.T) {
	svc, st := newTestService(t, nil)
	srcID, err := st.CreateLesson("Links")
	require.NoError(t, err)
	text := `See <a href="http://example.com/map">the map</a>`
	_, err = st.InsertPage(model.Question{
		LessonID: srcID, Type: model.TypeLessonPage, Title: "Intro",
		Stem: "<p>Welcome</p>", Answers: []model.Answer{ans(text, 0, "", next)},
	})
	require.NoError(t, err)

	exp, err := svc.ExportLesson(context.Background(), srcID)
	require.NoError(t, err)
	assert.Contains(t, exp.Markup, `<li>`+text+` <a href="#nextpage">Next page</a></li>`)

	dstID, err := st.CreateLesson("Copy")
	require.NoError(t, err)
	_, err = svc.ImportLesson(context.Background(), dstID, exp.Markup, false)
	require.NoError(t, err)
	got, err := st.ListPages(dstID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Answers, 1)
	assert.Equal(t, text, got[0].Answers[0].Text)
	assert.Equal(t, next, got[0].Answers[0].Jump)
}

func TestImportLessonReplace(t *testing.T) {
	svc, st := newTestService(t, nil)
	lessonID, _ := seedLesson(t, st)

	doc := `<html><body><p>Preface</p><h1 id="3">Only</h1><p>Body</p></body></html>`
	rep, err := svc.ImportLesson(context.Background(), lessonID, doc, true)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Imported)

	pages, err := st.ListPages(lessonID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Geography", pages[0].Title)
	assert.Equal(t, "<p>Preface</p>", pages[0].Stem)
	assert.Equal(t, "Only", pages[1].Title)
	assert.Equal(t, model.TypeLessonPage, pages[1].Type)
	assert.Equal(t, "<p>Body</p>", pages[1].Stem)
}

func TestImportLessonIsolatesFailures(t *testing.T) {
	svc, st := newTestService(t, nil)
	lessonID, err := st.CreateLesson("L")
	require.NoError(t, err)

	doc := `<html><body>` +
		`<h1 id="1">Bad</h1><table class="moodleQuestion" data-qtype="calculated"><tr><td>x</td></tr></table>` +
		`<h1 id="2">Good</h1><p>Fine</p>` +
		`</body></html>`
	rep, err := svc.ImportLesson(context.Background(), lessonID, doc, false)
	require.NoError(t, err)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, int64(1), rep.Failures[0].PageID)
	assert.Equal(t, 2, rep.Imported)

	pages, err := st.ListPages(lessonID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, model.TypeLessonPage, pages[0].Type)
	assert.Equal(t, "Bad", pages[0].Title)
}

func TestImportLessonNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.ImportLesson(context.Background(), 9, "<html></html>", false)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

const questionsJSON = `[
  {"id": 1, "type": "lessonpage", "title": "Start", "stem": "<p>Hi</p>",
   "answers": [{"text": "Go", "score": 0, "jump": 2}]},
  {"id": 2, "type": "shortanswer", "title": "Capital", "stem": "<p>Capital of France?</p>",
   "answers": [
     {"text": "Paris", "score": 1, "jump": "nextpage"},
     {"text": "@#wronganswer#@", "score": 0, "feedback": "Try again", "jump": 1}
   ]}
]`

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadQuestions(t *testing.T) {
	svc, st := newTestService(t, nil)
	lessonID, err := st.CreateLesson("L")
	require.NoError(t, err)
	path := writeFile(t, "questions.json", questionsJSON)

	rep, err := svc.LoadQuestions(context.Background(), lessonID, path, false)
	require.NoError(t, err)
	assert.False(t, rep.Skipped)
	require.Equal(t, 2, rep.Loaded)

	pages, err := st.ListPages(lessonID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, model.PageID(pages[1].ID), pages[0].Answers[0].Jump)
	assert.Equal(t, model.PageID(pages[0].ID), pages[1].Answers[1].Jump)
	assert.Equal(t, model.WildcardAnswer, pages[1].Answers[1].Text)

	// Unchanged file is skipped.
	rep, err = svc.LoadQuestions(context.Background(), lessonID, path, false)
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	n, _ := st.PageCount(lessonID)
	assert.Equal(t, 2, n)
}

func TestLoadQuestionsChanged(t *testing.T) {
	svc, st := newTestService(t, nil)
	lessonID, err := st.CreateLesson("L")
	require.NoError(t, err)
	path := writeFile(t, "questions.json", questionsJSON)
	_, err = svc.LoadQuestions(context.Background(), lessonID, path, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path,
		[]byte(`[{"type": "lessonpage", "title": "Rewritten", "stem": ""}]`), 0o644))

	rep, err := svc.LoadQuestions(context.Background(), lessonID, path, false)
	require.NoError(t, err)
	assert.True(t, rep.Skipped)

	rep, err = svc.LoadQuestions(context.Background(), lessonID, path, true)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Loaded)
	pages, _ := st.ListPages(lessonID)
	require.Len(t, pages, 1)
	assert.Equal(t, "Rewritten", pages[0].Title)
}

func TestLoadQuestionsInvalid(t *testing.T) {
	svc, st := newTestService(t, nil)
	lessonID, err := st.CreateLesson("L")
	require.NoError(t, err)

	path := writeFile(t, "bad.json", `[{"type": "essay", "title": ""}]`)
	_, err = svc.LoadQuestions(context.Background(), lessonID, path, false)
	assert.ErrorIs(t, err, model.ErrInvalidQuestion)

	path = writeFile(t, "garbage.json", `{not json`)
	_, err = svc.LoadQuestions(context.Background(), lessonID, path, false)
	assert.ErrorIs(t, err, model.ErrParse)

	n, _ := st.PageCount(lessonID)
	assert.Zero(t, n)
}

func TestFormatAnswers(t *testing.T) {
	tests := []struct {
		name string
		q    model.Question
		want string
	}{
		{
			name: "multichoice",
			q: model.Question{Type: model.TypeMultiChoice, Stem: "<p>Q</p>", Answers: []model.Answer{
				ans("a", 1, "", next), ans("b", 0, "", this),
			}},
			want: `<p>Q</p><div class="export_answer_multichoice_wrapper">` +
				`<div class="export_answer_multichoice">a</div><div class="export_answer_multichoice">b</div></div>`,
		},
		{
			name: "matching skips feedback",
			q: model.Question{Type: model.TypeMatching, Stem: "<p>M</p>", Answers: []model.Answer{
				ans("", 1, "ok", next), ans("", 0, "no", this), ans("France", 0, "Paris", this),
			}},
			want: `<p>M</p><div class="export_answer_matching_wrapper">` +
				`<div class="export_answer_matching">France</div></div>`,
		},
		{
			name: "shortanswer",
			q:    model.Question{Type: model.TypeShortAnswer, Stem: "<p>S</p>", Answers: []model.Answer{ans("x", 1, "", next)}},
			want: "<p>S</p>",
		},
		{
			name: "lessonpage",
			q:    model.Question{Type: model.TypeLessonPage, Stem: "<p>P</p>", Answers: []model.Answer{ans("Go", 0, "", next)}},
			want: "<p>P</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAnswers(tt.q))
		})
	}
}
