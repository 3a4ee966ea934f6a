// Package render is the default markup renderer: it turns the intermediate
// Question XML into word-processor friendly XHTML tables and back.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pavelanni/lessonword/internal/convert"
	"github.com/pavelanni/lessonword/internal/model"
	"github.com/pavelanni/lessonword/internal/qxml"
)

// TableClass marks the tables this renderer emits and reads. It must match
// the class written by table.templ.
const TableClass = "moodleQuestion"

// Renderer implements convert.Renderer.
type Renderer struct {
	images fs.FS
	logger *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithImages sets the file system embedded images are read from.
func WithImages(fsys fs.FS) Option {
	return func(r *Renderer) { r.images = fsys }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// New returns a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{logger: slog.Default()}
	for _, fn := range opts {
		fn(r)
	}
	return r
}

// Render applies the named stylesheet to doc.
func (r *Renderer) Render(ctx context.Context, doc string, sheet convert.Stylesheet, params convert.RenderParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch sheet {
	case convert.StylesheetExport:
		return r.export(ctx, doc, params)
	case convert.StylesheetImport:
		return r.importTable(doc)
	default:
		return "", fmt.Errorf("unknown stylesheet %q", sheet)
	}
}

func (r *Renderer) export(ctx context.Context, doc string, params convert.RenderParams) (string, error) {
	c, err := qxml.ParseContainer(doc)
	if err != nil {
		return "", err
	}
	if len(c.Quiz.Questions) == 0 {
		return "", qxml.ErrNoQuestion
	}
	var buf bytes.Buffer
	for _, q := range c.Quiz.Questions {
		if err := questionTable(q, c.Labels, params).Render(ctx, &buf); err != nil {
			return "", fmt.Errorf("render %s table: %w", q.Type, err)
		}
	}
	out := buf.String()
	if params.ImageHandling == model.ImagesEmbedded {
		out = r.EmbedImages(out)
	}
	return out, nil
}
