// Package handlers exposes the addon's HTTP surface: the manifest,
// the stream resolver and a liveness probe.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"barestreams/models"
	"barestreams/services"
	"barestreams/shared/middleware"
)

var manifest = models.Manifest{
	ID:          "community.barestreams",
	Version:     "1.0.0",
	Name:        "Bare Streams",
	Description: "Torrent streams for movies and series, resolved on demand",
	Resources:   []string{"stream"},
	Types:       []string{"movie", "series"},
	IDPrefixes:  []string{"tt"},
	Catalogs:    []models.CatalogItem{},
	BehaviorHints: &models.ManifestBehaviorHints{
		P2P: true,
	},
}

type Handler struct {
	app *services.App
}

func New(app *services.App) *Handler {
	return &Handler{app: app}
}

// Router builds the addon's route table with CORS and request logging
// applied to every endpoint.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.Logging)

	r.HandleFunc("/manifest.json", h.Manifest).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/stream/{type}/{id}.json", h.Stream).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/ping", h.Ping).Methods(http.MethodGet, http.MethodOptions)

	return r
}

func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, manifest)
}

func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	resp, err := h.app.HandleStream(r.Context(), vars["type"], vars["id"])
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Stream request failed", "type", vars["type"], "id", vars["id"], "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if resp.Streams == nil {
		resp.Streams = []models.Stream{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
