// Package convert maps Lesson question pages to Moodle Question XML and
// back, computing the percentage grade of every answer and the navigation
// links its jump produces.
package convert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/lessonword/internal/model"
)

// Stylesheet selects the direction of a markup transform.
type Stylesheet string

const (
	// StylesheetExport turns a question container into presentational XHTML.
	StylesheetExport Stylesheet = "export"
	// StylesheetImport turns presentational XHTML into question XML.
	StylesheetImport Stylesheet = "import"
)

// RenderParams is the parameter bag handed to the renderer.
type RenderParams struct {
	PluginName    string
	ImageHandling model.ImageHandling
	Lang          string
	Direction     string // ltr or rtl
}

// Map flattens the parameters for renderers that take a string bag.
func (p RenderParams) Map() map[string]string {
	return map[string]string{
		"pluginname":           p.PluginName,
		"imagehandling":        string(p.ImageHandling),
		"moodle_language":      p.Lang,
		"moodle_textdirection": p.Direction,
	}
}

// Renderer is the markup transform collaborator.
type Renderer interface {
	Render(ctx context.Context, doc string, sheet Stylesheet, params RenderParams) (string, error)
}

// Localizer returns the localized string for a label key.
type Localizer interface {
	Localize(key string) string
}

// LabelKeys lists every label the converter and renderer look up.
var LabelKeys = []string{
	"nextpage",
	"previouspage",
	"thispage",
	"endoflesson",
	"allotheranswers",
	"question",
	"answer",
	"grade",
	"feedback",
	"correctfeedback",
	"incorrectfeedback",
	"graderinfo",
	"defaultmark",
}

type keyLabels struct{}

func (keyLabels) Localize(key string) string { return key }

// Warning is a non-fatal problem found while exporting one question.
type Warning struct {
	QuestionID  int64
	AnswerIndex int
	Jump        model.JumpTarget
}

func (w Warning) Error() string {
	return fmt.Sprintf("question %d answer %d: jump %d: %v",
		w.QuestionID, w.AnswerIndex, w.Jump.Code(), model.ErrUnresolvedJump)
}

func (w Warning) Unwrap() error { return model.ErrUnresolvedJump }

type options struct {
	logger *slog.Logger
	params RenderParams
}

// Option configures an Exporter or Importer.
type Option func(*options)

// WithLogger sets the logger used for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithParams sets the parameters passed to the renderer.
func WithParams(p RenderParams) Option {
	return func(o *options) { o.params = p }
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		params: RenderParams{
			PluginName:    "lessonword",
			ImageHandling: model.ImagesReferenced,
			Lang:          "en",
			Direction:     "ltr",
		},
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
