package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pavelanni/lessonword/internal/convert"
	"github.com/pavelanni/lessonword/internal/i18n"
	"github.com/pavelanni/lessonword/internal/model"
)

// exportRequest converts a single page without storing it. Titles names
// the pages its jumps may point to.
type exportRequest struct {
	Question model.Question   `json:"question"`
	Titles   map[int64]string `json:"titles"`
}

type exportResponse struct {
	Markup   string   `json:"markup"`
	Warnings []string `json:"warnings,omitempty"`
}

func (h *Handler) handleConvertExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentSize)).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", model.ErrParse, err))
		return
	}
	if err := req.Question.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	lang := i18n.LangFromContext(ctx)
	exp := convert.NewExporter(h.renderer, model.PageTitleMap(req.Titles), i18n.NewLabels(lang),
		convert.WithParams(convert.RenderParams{
			PluginName:    "lessonword",
			ImageHandling: model.ImagesReferenced,
			Lang:          lang,
			Direction:     i18n.Direction(lang),
		}))
	res, err := exp.Export(ctx, req.Question)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := exportResponse{Markup: res.Markup}
	for _, wn := range res.Warnings {
		resp.Warnings = append(resp.Warnings, wn.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleConvertImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", model.ErrParse, err))
		return
	}
	ctx := r.Context()
	lang := i18n.LangFromContext(ctx)
	im := convert.NewImporter(h.renderer, nil, i18n.NewLabels(lang),
		convert.WithParams(convert.RenderParams{Lang: lang, Direction: i18n.Direction(lang)}))
	q, err := im.Import(ctx, string(body))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
