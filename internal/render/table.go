package render

//go:generate templ generate

import "github.com/pavelanni/lessonword/internal/qxml"

// wildcard is how Question XML writes the catch-all response pattern.
const wildcard = "*"

func formatted(ft *qxml.FormattedText) string {
	if ft == nil {
		return ""
	}
	return ft.Text
}

func questionName(q qxml.Question) string {
	if q.Name == nil {
		return ""
	}
	return q.Name.Text
}

// isTyped reports whether answers of type t are typed responses rather than
// choices.
func isTyped(t string) bool {
	return t == "shortanswer" || t == "numerical"
}
