package handlers

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"iconforge/internal/domain"
	"iconforge/internal/middleware"

	"github.com/go-chi/chi/v5"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
	Email  string `json:"email"`
}

type generateResponse struct {
	Image    string `json:"image"`
	MIME     string `json:"mime"`
	Message  string `json:"message"`
	IconID   string `json:"icon_id,omitempty"`
	Credits  int    `json:"credits"`
	Provider string `json:"provider"`
}

type iconResponse struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	MIME      string    `json:"mime"`
	Bytes     int64     `json:"bytes"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *App) GenerateIcon(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if !a.decode(w, r, &body) {
		return
	}
	req, err := domain.NewGenerationRequest(body.Prompt, body.Email)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	req.RequestID = middleware.RequestIDFromContext(r.Context())
	req.ClientIP = middleware.ClientIP(r)

	out, err := a.Generator.Generate(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, generateResponse{
		Image:    base64.StdEncoding.EncodeToString(out.Image),
		MIME:     out.MIME,
		Message:  out.Explanation,
		IconID:   out.IconID,
		Credits:  out.Balance,
		Provider: out.Provider,
	})
}

func (a *App) ListIcons(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	icons, err := a.Icons.List(r.Context(), accountKey(r), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]iconResponse, 0, len(icons))
	for _, icon := range icons {
		items = append(items, iconResponse{
			ID:        icon.ID,
			Prompt:    icon.Prompt,
			MIME:      icon.MIME,
			Bytes:     icon.Bytes,
			Favorite:  icon.Favorite,
			CreatedAt: icon.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"icons": items})
}

func (a *App) DownloadIcon(w http.ResponseWriter, r *http.Request) {
	icon, err := a.Icons.Get(r.Context(), chi.URLParam(r, "id"), accountKey(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", icon.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(icon.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(icon.Data)
}

func (a *App) DeleteIcon(w http.ResponseWriter, r *http.Request) {
	if err := a.Icons.Delete(r.Context(), chi.URLParam(r, "id"), accountKey(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) FavoriteIcon(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Favorite *bool `json:"favorite"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if body.Favorite == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "favorite is required")
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.Icons.SetFavorite(r.Context(), id, accountKey(r), *body.Favorite); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id, "favorite": *body.Favorite})
}

func (a *App) ExportIcons(w http.ResponseWriter, r *http.Request) {
	data, count, err := a.Icons.Export(r.Context(), accountKey(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if count == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no icons to export")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="icons.zip"`)
	w.Header().Set("X-Icon-Count", strconv.Itoa(count))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
