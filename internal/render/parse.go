package render

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pavelanni/lessonword/internal/qxml"
)

// importTable reads the first question table of an XHTML document and
// emits it as Question XML.
func (r *Renderer) importTable(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("parse markup: %w", err)
	}
	table := FindTable(root)
	if table == nil {
		return "", fmt.Errorf("no %s table", TableClass)
	}
	q := tableQuestion(table)
	return qxml.Marshal(&qxml.Quiz{Questions: []qxml.Question{q}})
}

// FindTable returns the first question table under n, or nil.
func FindTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table && HasClass(n, TableClass) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := FindTable(c); t != nil {
			return t
		}
	}
	return nil
}

func tableQuestion(table *html.Node) qxml.Question {
	q := qxml.Question{
		Type:         Attr(table, "data-qtype"),
		DefaultGrade: Attr(table, "data-defaultgrade"),
		Single:       Attr(table, "data-single"),
	}
	typed := q.Type == "shortanswer" || q.Type == "numerical"

	walk(table, func(n *html.Node) {
		switch {
		case n.DataAtom == atom.Th && HasClass(n, "questionName"):
			q.Name = &qxml.FormattedText{Text: strings.TrimSpace(TextContent(n))}
		case n.DataAtom != atom.Tr:
		case HasClass(n, "questionText"):
			q.QuestionText = &qxml.FormattedText{Format: "html", Text: InnerHTML(firstCell(n, atom.Td))}
		case HasClass(n, "answer"):
			q.Answers = append(q.Answers, rowAnswer(n, typed))
		case HasClass(n, "subquestion"):
			tds := cells(n, atom.Td)
			if len(tds) < 2 {
				return
			}
			q.Subquestions = append(q.Subquestions, qxml.Subquestion{
				Format: "html",
				Text:   InnerHTML(tds[0]),
				Answer: strings.TrimSpace(TextContent(tds[1])),
			})
		case HasClass(n, "correctfeedback"):
			q.CorrectFeedback = feedbackCell(n)
		case HasClass(n, "incorrectfeedback"):
			q.IncorrectFeedback = feedbackCell(n)
		case HasClass(n, "graderinfo"):
			q.GraderInfo = feedbackCell(n)
		}
	})
	return q
}

func rowAnswer(tr *html.Node, typed bool) qxml.Answer {
	tds := cells(tr, atom.Td)
	a := qxml.Answer{Format: "html", Fraction: "0"}
	if typed {
		a.Format = "moodle_auto_format"
	}
	for _, td := range tds {
		switch {
		case HasClass(td, "answerText") && Attr(td, "data-wildcard") == "true":
			a.Text = wildcard
		case HasClass(td, "answerText") && typed:
			a.Text = strings.TrimSpace(TextContent(td))
		case HasClass(td, "answerText"):
			a.Text = InnerHTML(td)
		case HasClass(td, "grade"):
			a.Fraction = strings.TrimSpace(TextContent(td))
		case HasClass(td, "feedback"):
			a.Feedback = &qxml.FormattedText{Format: "html", Text: InnerHTML(td)}
		}
	}
	return a
}

func feedbackCell(tr *html.Node) *qxml.FormattedText {
	return &qxml.FormattedText{Format: "html", Text: InnerHTML(firstCell(tr, atom.Td))}
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func cells(tr *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}

func firstCell(tr *html.Node, a atom.Atom) *html.Node {
	if cs := cells(tr, a); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// FindElement returns the first element of kind a at or below n, or nil.
func FindElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := FindElement(c, a); f != nil {
			return f
		}
	}
	return nil
}

// Attr returns the value of attribute key on n, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether class is among n's classes.
func HasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(Attr(n, "class")), class)
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&sb, c)
	}
	return strings.TrimSpace(sb.String())
}

// TextContent returns the concatenated text below n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}
