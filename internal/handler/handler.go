package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/lessonword/internal/convert"
	"github.com/pavelanni/lessonword/internal/i18n"
	"github.com/pavelanni/lessonword/internal/lesson"
	"github.com/pavelanni/lessonword/internal/model"
)

// maxDocumentSize caps uploaded documents.
const maxDocumentSize = 10 << 20

// LessonStore is the lesson bookkeeping the handlers need beyond the
// conversion service.
type LessonStore interface {
	CreateLesson(name string) (int64, error)
	GetLesson(id int64) (model.Lesson, error)
	ListLessons() ([]model.Lesson, error)
	DeleteLesson(id int64) error
	PageCount(lessonID int64) (int, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    LessonStore
	lessons  *lesson.Service
	renderer convert.Renderer
	validate *validator.Validate
}

// New creates a new Handler.
func New(s LessonStore, svc *lesson.Service, r convert.Renderer) *Handler {
	return &Handler{
		store:    s,
		lessons:  svc,
		renderer: r,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/lessons", func(r chi.Router) {
		r.Get("/", h.handleListLessons)
		r.Post("/", h.handleCreateLesson)
		r.Route("/{lessonID}", func(r chi.Router) {
			r.Get("/", h.handleGetLesson)
			r.Delete("/", h.handleDeleteLesson)
			r.Get("/export", h.handleExportLesson)
			r.Post("/import", h.handleImportLesson)
		})
	})
	r.Post("/convert/export", h.handleConvertExport)
	r.Post("/convert/import", h.handleConvertImport)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.store.ListLessons()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if lessons == nil {
		lessons = []model.Lesson{}
	}
	writeJSON(w, http.StatusOK, lessons)
}

type createLessonRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (h *Handler) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var req createLessonRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentSize)).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", model.ErrParse, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	id, err := h.store.CreateLesson(req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	l, err := h.store.GetLesson(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slog.Info("created lesson", "lesson_id", id, "name", req.Name)
	writeJSON(w, http.StatusCreated, l)
}

type lessonResponse struct {
	model.Lesson
	Pages int `json:"pages"`
}

func (h *Handler) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
	if !ok {
		return
	}
	l, err := h.store.GetLesson(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.store.PageCount(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lessonResponse{Lesson: l, Pages: n})
}

func (h *Handler) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteLesson(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	rep, err := h.lessons.WithLang(i18n.LangFromContext(ctx)).ExportLesson(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xhtml+xml; charset=utf-8")
	w.Header().Set("X-Run-Id", rep.RunID)
	w.Header().Set("X-Pages-Failed", strconv.Itoa(len(rep.Failures)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="lesson-%d.xhtml"`, id))
	if _, err := io.WriteString(w, rep.Markup); err != nil {
		slog.Error("write export", "lesson_id", id, "error", err)
	}
}

type importResponse struct {
	*lesson.ImportReport
	Message string `json:"message"`
}

func (h *Handler) handleImportLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", model.ErrParse, err))
		return
	}
	replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))

	ctx := r.Context()
	rep, err := h.lessons.WithLang(i18n.LangFromContext(ctx)).ImportLesson(ctx, id, string(body), replace)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	msg := i18n.Tp(ctx, "PagesImported", rep.Imported)
	if n := len(rep.Failures); n > 0 {
		msg += " " + i18n.Tp(ctx, "PagesFailed", n)
	}
	writeJSON(w, http.StatusOK, importResponse{ImportReport: rep, Message: msg})
}

func (h *Handler) lessonID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "lessonID"), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, i18n.T(r.Context(), "LessonNotFound"))
		return 0, false
	}
	return id, true
}
