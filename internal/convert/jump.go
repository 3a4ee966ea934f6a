package convert

import (
	"html"
	"strconv"
	"strings"

	"github.com/pavelanni/lessonword/internal/model"
)

// JumpLink is a resolved navigation link. Text is markup: titles and labels
// are escaped, answer text and feedback are used as given. Lead is markup
// written before the anchor instead of inside it.
type JumpLink struct {
	Lead       string
	Text       string
	Fragment   string
	Unresolved bool
}

// HTML returns the anchor element, preceded by Lead when set.
func (l JumpLink) HTML() string {
	a := `<a href="#` + l.Fragment + `">` + l.Text + `</a>`
	if l.Lead == "" {
		return a
	}
	return l.Lead + " " + a
}

// Inert returns the anchor as a CDATA section so later stages keep it verbatim.
func (l JumpLink) Inert() string {
	return cdata(l.HTML())
}

func cdata(s string) string {
	return "<![CDATA[" + strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>") + "]]>"
}

// JumpResolver turns answer jumps into links, naming pages from a
// read-only title index and relative targets from localized labels.
type JumpResolver struct {
	titles model.PageTitles
	labels Localizer
}

// NewJumpResolver returns a resolver. Nil arguments fall back to an empty
// index and to the label keys themselves.
func NewJumpResolver(titles model.PageTitles, labels Localizer) *JumpResolver {
	if titles == nil {
		titles = model.PageTitleMap{}
	}
	if labels == nil {
		labels = keyLabels{}
	}
	return &JumpResolver{titles: titles, labels: labels}
}

// Resolve returns the link for an answer of a question of type t.
func (r *JumpResolver) Resolve(a model.Answer, t model.QuestionType) JumpLink {
	fragment, label, ok := r.Target(a.Jump)
	link := JumpLink{Fragment: fragment, Unresolved: !ok}
	switch t {
	case model.TypeMatching, model.TypeEssay:
		link.Text = label
	case model.TypeShortAnswer, model.TypeNumerical:
		if a.Feedback == "" {
			link.Text = label
		} else {
			link.Text = a.Feedback
		}
	default:
		link.Text = a.Text
	}
	if link.Text != label && containsAnchor(link.Text) {
		link.Lead, link.Text = link.Text, label
	}
	return link
}

// Target returns the anchor fragment and the escaped default label of a
// jump. Unknown named codes and page IDs missing from the index resolve to
// the raw code with ok false.
func (r *JumpResolver) Target(j model.JumpTarget) (fragment, label string, ok bool) {
	if n, known := j.NamedJump(); known {
		return n.Name(), html.EscapeString(r.labels.Localize(n.Name())), true
	}
	if id, isPage := j.PageID(); isPage {
		if title, found := r.titles.PageTitle(id); found {
			return strconv.FormatInt(id, 10), html.EscapeString(title), true
		}
	}
	raw := strconv.FormatInt(j.Code(), 10)
	return raw, raw, false
}
