package render

import (
	"encoding/base64"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EmbedImages replaces local image references in markup with base64 data
// URIs read from the renderer's file system. Remote, data and missing
// images are left as they are.
func (r *Renderer) EmbedImages(markup string) string {
	if r.images == nil {
		return markup
	}
	z := html.NewTokenizer(strings.NewReader(markup))
	var sb strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return sb.String()
		}
		raw := string(z.Raw())
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			sb.WriteString(raw)
			continue
		}
		tok := z.Token()
		if tok.DataAtom != atom.Img {
			sb.WriteString(raw)
			continue
		}
		changed := false
		for i, a := range tok.Attr {
			if a.Key != "src" {
				continue
			}
			if uri, ok := r.dataURI(a.Val); ok {
				tok.Attr[i].Val = uri
				changed = true
			}
		}
		if !changed {
			sb.WriteString(raw)
			continue
		}
		sb.WriteString(tok.String())
	}
}

func (r *Renderer) dataURI(src string) (string, bool) {
	if src == "" || strings.HasPrefix(src, "data:") || strings.Contains(src, "://") {
		return "", false
	}
	name := strings.TrimPrefix(path.Clean("/"+src), "/")
	data, err := fs.ReadFile(r.images, name)
	if err != nil {
		r.logger.Warn("image not embedded", slog.String("src", src), slog.String("error", err.Error()))
		return "", false
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ext == "jpg" {
		ext = "jpeg"
	}
	if ext == "svg" {
		ext = "svg+xml"
	}
	return "data:image/" + ext + ";base64," + base64.StdEncoding.EncodeToString(data), true
}
