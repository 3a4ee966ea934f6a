package convert

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/pavelanni/lessonword/internal/model"
)

// linkParts is a fragment of markup split around its jump anchor.
type linkParts struct {
	Before   string
	Label    string // inner markup of the anchor
	Fragment string
	After    string
}

// splitLink finds the last top-level in-document anchor (href="#...") in s.
// Jump links are always written after any markup they accompany.
func splitLink(s string) (linkParts, bool) {
	z := html.NewTokenizer(strings.NewReader(s))
	var (
		offset   int
		start    = -1
		inner    int
		depth    int
		fragment string
		found    linkParts
		ok       bool
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return found, ok
		}
		raw := len(z.Raw())
		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" {
				break
			}
			if start >= 0 {
				depth++
				break
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "href" && strings.HasPrefix(string(val), "#") {
					fragment = string(val[1:])
					start = offset
					inner = offset + raw
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if start < 0 || string(name) != "a" {
				break
			}
			if depth > 0 {
				depth--
				break
			}
			found = linkParts{
				Before:   s[:start],
				Label:    s[inner:offset],
				Fragment: fragment,
				After:    s[offset+raw:],
			}
			ok = true
			start = -1
		}
		offset += raw
	}
}

// containsAnchor reports whether s has an <a> element. Anchors cannot nest,
// so such markup is never wrapped in a jump link.
func containsAnchor(s string) bool {
	if !strings.Contains(s, "<") {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "a" {
				return true
			}
		}
	}
}

// recoveredJump is a jump read back from exported markup.
type recoveredJump struct {
	Jump     model.JumpTarget
	Label    string
	Text     string // markup around the anchor, trimmed
	HasLink  bool
	Resolved bool
}

func recoverJump(s string) recoveredJump {
	parts, ok := splitLink(s)
	if !ok {
		return recoveredJump{Text: strings.TrimSpace(s)}
	}
	j, resolved := model.ParseJumpFragment(parts.Fragment)
	return recoveredJump{
		Jump:     j,
		Label:    parts.Label,
		Text:     strings.TrimSpace(parts.Before + parts.After),
		HasLink:  true,
		Resolved: resolved,
	}
}
