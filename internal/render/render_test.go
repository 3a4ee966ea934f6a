package render

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/lessonword/internal/convert"
	"github.com/pavelanni/lessonword/internal/model"
)

type labels map[string]string

func (l labels) Localize(key string) string {
	if v, ok := l[key]; ok {
		return v
	}
	return key
}

var testLabels = labels{
	"nextpage":        "Next page",
	"previouspage":    "Previous page",
	"thispage":        "This page",
	"endoflesson":     "End of lesson",
	"answer":          "Answer",
	"grade":           "Grade",
	"feedback":        "Feedback",
	"defaultmark":     "Default mark",
	"allotheranswers": "All other answers",
}

func ans(text string, s float64, feedback string, j model.JumpTarget) model.Answer {
	return model.Answer{Text: text, Score: s, Feedback: feedback, Jump: j}
}

func TestExportTable(t *testing.T) {
	e := convert.NewExporter(New(), nil, testLabels,
		convert.WithParams(convert.RenderParams{Lang: "ar", Direction: "rtl", ImageHandling: model.ImagesReferenced}))
	q := model.Question{Type: model.TypeMultiChoice, Title: "Fish & chips", Stem: "<p>Pick one</p>", SingleAnswer: true,
		Answers: []model.Answer{
			ans("Cod", 1, "Yes", model.Named(model.JumpNextPage)),
			ans("Beef", 0, "No", model.Named(model.JumpThisPage)),
		}}
	res, err := e.Export(context.Background(), q)
	require.NoError(t, err)

	out := res.Markup
	assert.Contains(t, out, `<table class="moodleQuestion" data-qtype="multichoice" data-defaultgrade="1.0000000" data-single="true" dir="rtl" lang="ar">`)
	assert.Contains(t, out, `<th colspan="3" class="questionName">Fish &amp; chips</th>`)
	assert.Contains(t, out, `<tr class="questionText"><td colspan="3"><p>Pick one</p></td></tr>`)
	assert.Contains(t, out, `<tr class="heading"><th>Answer</th><th>Grade</th><th>Feedback</th></tr>`)
	assert.Contains(t, out, `<td class="answerText"><a href="#nextpage">Cod</a></td><td class="grade">100</td><td class="feedback">Yes</td>`)
	assert.Contains(t, out, `<th>Default mark</th>`)
}

func TestRoundTrip(t *testing.T) {
	titles := model.PageTitleMap{7: "Page Seven"}
	r := New()
	e := convert.NewExporter(r, titles, testLabels)
	im := convert.NewImporter(r, titles, testLabels)
	next := model.Named(model.JumpNextPage)
	this := model.Named(model.JumpThisPage)

	tests := []model.Question{
		{Type: model.TypeShortAnswer, Title: "Capital & city", Stem: "<p>Capital of France?</p>", Answers: []model.Answer{
			ans("Paris", 5, "Well done", next),
			ans("Lyon", 2, "", model.Named(model.JumpPreviousPage)),
			ans(model.WildcardAnswer, 0, "", this),
		}},
		{Type: model.TypeNumerical, Title: "Sum", Stem: "<p>2+2?</p>", Answers: []model.Answer{
			ans("4", 1, "", next), ans(model.WildcardAnswer, 0, "Count again", this),
		}},
		{Type: model.TypeMultiChoice, Title: "MC", Stem: "<p>Pick</p>", Answers: []model.Answer{
			ans("a", 2, "yes", model.PageID(7)), ans("b", 1, "", next), ans("c", 0, "no", this),
		}},
		{Type: model.TypeTrueFalse, Title: "TF", Stem: "<p>Sky is blue</p>", Answers: []model.Answer{
			ans("True", 2, "", next), ans("False", 0, "", this),
		}},
		{Type: model.TypeMultiChoice, Title: "Linked answers", Stem: "<p>Pick</p>", SingleAnswer: true, Answers: []model.Answer{
			ans(`<a href="http://x">link</a> a`, 2, "", next),
			ans(`see <a href="#7">page seven</a>`, 0, "no", this),
		}},
		{Type: model.TypeMatching, Title: "Match", Stem: "<p>Match</p>", Answers: []model.Answer{
			ans("", 3, "All matched", model.PageID(7)),
			ans("", 0, "", this),
			ans("<p>France</p>", 0, "Paris", this),
			ans("<p>Italy</p>", 0, "Rome", this),
		}},
		{Type: model.TypeEssay, Title: "Essay", Stem: "<p>Write</p>", Answers: []model.Answer{
			ans("", 10, "Look for structure", model.Named(model.JumpEndOfLesson)),
		}},
	}
	for _, want := range tests {
		t.Run(want.Title, func(t *testing.T) {
			res, err := e.Export(context.Background(), want)
			require.NoError(t, err)

			got, err := im.Import(context.Background(), "<html><body>"+res.Markup+"</body></html>")
			require.NoError(t, err)
			assert.Equal(t, want.Type, got.Type)
			assert.Equal(t, want.Title, got.Title)
			assert.Equal(t, want.Stem, got.Stem)
			require.Len(t, got.Answers, len(want.Answers))
			for i := range want.Answers {
				assert.Equal(t, want.Answers[i].Text, got.Answers[i].Text, "answer %d text", i)
				assert.Equal(t, want.Answers[i].Feedback, got.Answers[i].Feedback, "answer %d feedback", i)
				assert.Equal(t, want.Answers[i].Jump, got.Answers[i].Jump, "answer %d jump", i)
				assert.InDelta(t, want.Answers[i].Score, got.Answers[i].Score, 1e-6, "answer %d score", i)
			}
		})
	}
}

func TestExportWildcardLabel(t *testing.T) {
	r := New()
	e := convert.NewExporter(r, nil, testLabels)
	q := model.Question{Type: model.TypeShortAnswer, Title: "Capital", Stem: "<p>Capital of France?</p>",
		Answers: []model.Answer{
			ans("Paris", 1, "", model.Named(model.JumpNextPage)),
			ans(model.WildcardAnswer, 0, "", model.Named(model.JumpThisPage)),
		}}
	res, err := e.Export(context.Background(), q)
	require.NoError(t, err)
	assert.Contains(t, res.Markup, `<td class="answerText" data-wildcard="true">All other answers</td>`)
	assert.NotContains(t, res.Markup, `<td class="answerText">*</td>`)

	got, err := convert.NewImporter(r, nil, testLabels).Import(context.Background(), res.Markup)
	require.NoError(t, err)
	require.Len(t, got.Answers, 2)
	assert.Equal(t, model.WildcardAnswer, got.Answers[1].Text)
}

func TestExportTableEscapesTypedAnswers(t *testing.T) {
	e := convert.NewExporter(New(), nil, testLabels)
	q := model.Question{Type: model.TypeShortAnswer, Title: "Tags", Stem: "<p>Bold tag?</p>",
		Answers: []model.Answer{ans("<b>", 1, "", model.Named(model.JumpNextPage))}}
	res, err := e.Export(context.Background(), q)
	require.NoError(t, err)
	assert.Contains(t, res.Markup, `<td class="answerText">&lt;b&gt;</td>`)
}

func TestImportWithoutTable(t *testing.T) {
	_, err := New().Render(context.Background(), "<p>nothing here</p>", convert.StylesheetImport, convert.RenderParams{})
	assert.Error(t, err)
}

func TestUnknownStylesheet(t *testing.T) {
	_, err := New().Render(context.Background(), "<x/>", convert.Stylesheet("pdf"), convert.RenderParams{})
	assert.ErrorContains(t, err, "unknown stylesheet")
}

func TestRenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Render(ctx, "<x/>", convert.StylesheetExport, convert.RenderParams{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedImages(t *testing.T) {
	fsys := fstest.MapFS{
		"img/cat.png": &fstest.MapFile{Data: []byte("png")},
	}
	r := New(WithImages(fsys))
	in := `<p><img src="img/cat.png" alt="cat"/><img src="https://example.com/dog.png"/><img src="missing.gif"/></p>`
	out := r.EmbedImages(in)

	assert.Contains(t, out, `src="data:image/png;base64,cG5n"`)
	assert.Contains(t, out, `alt="cat"`)
	assert.Contains(t, out, `<img src="https://example.com/dog.png"/>`)
	assert.Contains(t, out, `<img src="missing.gif"/>`)
	assert.True(t, strings.HasPrefix(out, "<p>"))
}

func TestEmbedImagesWithoutFS(t *testing.T) {
	in := `<img src="a.png"/>`
	assert.Equal(t, in, New().EmbedImages(in))
}
