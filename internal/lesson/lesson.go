// Package lesson converts whole lessons: it exports every page of a stored
// lesson to one XHTML document, imports such documents back into pages and
// loads question definitions from JSON files.
package lesson

import (
	"errors"
	"log/slog"

	"github.com/pavelanni/lessonword/internal/convert"
	"github.com/pavelanni/lessonword/internal/i18n"
	"github.com/pavelanni/lessonword/internal/model"
)

// Store is the persistence the service needs.
type Store interface {
	GetLesson(id int64) (model.Lesson, error)
	ListPages(lessonID int64) ([]model.Question, error)
	PageTitles(lessonID int64) (model.PageTitleMap, error)
	ReplacePages(lessonID int64, pages []model.Question, replace bool) ([]int64, error)
	SetMetadata(key, value string) error
	GetImportedFileHash(path string) (string, error)
	SetImportedFileHash(path, hash string) error
}

// Service runs lesson conversions.
type Service struct {
	store    Store
	renderer convert.Renderer
	cfg      model.ConvertConfig
	labels   func(lang string) convert.Localizer
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithLabels replaces the label source, which defaults to the i18n bundle.
func WithLabels(fn func(lang string) convert.Localizer) Option {
	return func(s *Service) { s.labels = fn }
}

// New returns a Service.
func New(st Store, r convert.Renderer, cfg model.ConvertConfig, opts ...Option) *Service {
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.ImageHandling == "" {
		cfg.ImageHandling = model.ImagesReferenced
	}
	if cfg.PluginName == "" {
		cfg.PluginName = "lessonword"
	}
	s := &Service{
		store:    st,
		renderer: r,
		cfg:      cfg,
		labels:   func(lang string) convert.Localizer { return i18n.NewLabels(lang) },
		logger:   slog.Default(),
	}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

// WithLang returns a copy of the service that writes labels in lang.
func (s *Service) WithLang(lang string) *Service {
	c := *s
	if lang != "" {
		c.cfg.Lang = lang
	}
	return &c
}

func (s *Service) params() convert.RenderParams {
	return convert.RenderParams{
		PluginName:    s.cfg.PluginName,
		ImageHandling: s.cfg.ImageHandling,
		Lang:          s.cfg.Lang,
		Direction:     i18n.Direction(s.cfg.Lang),
	}
}

// Failure is one page that could not be converted. The run continues
// without it.
type Failure struct {
	PageID int64  `json:"page_id"`
	Title  string `json:"title"`
	Error  string `json:"error"`
	Err    error  `json:"-"`
}

func newFailure(id int64, title string, err error) Failure {
	qe := &model.QuestionError{QuestionID: id, Title: title, Err: err}
	return Failure{PageID: id, Title: title, Error: err.Error(), Err: qe}
}

// joinFailures returns the failures as one error, or nil.
func joinFailures(fs []Failure) error {
	errs := make([]error, len(fs))
	for i, f := range fs {
		errs[i] = f.Err
	}
	return errors.Join(errs...)
}
