package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pavelanni/lessonword/internal/i18n"
	"github.com/pavelanni/lessonword/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errResp struct {
	Error string `json:"error"`
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// writeError maps conversion errors to a status and a localized message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeErr(w, http.StatusNotFound, i18n.T(ctx, "LessonNotFound"))
	case errors.Is(err, model.ErrInvalidQuestion):
		writeErr(w, http.StatusUnprocessableEntity, i18n.Td(ctx, "InvalidQuestion", map[string]any{"Error": err.Error()}))
	case errors.Is(err, model.ErrParse):
		writeErr(w, http.StatusBadRequest, i18n.Td(ctx, "ParseFailed", map[string]any{"Error": err.Error()}))
	case errors.Is(err, model.ErrRender):
		slog.Error("render failed", "path", r.URL.Path, "error", err)
		writeErr(w, http.StatusBadGateway, i18n.T(ctx, "RenderFailed"))
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeErr(w, http.StatusInternalServerError, i18n.T(ctx, "InternalError"))
	}
}
