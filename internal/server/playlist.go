package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/repositories"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
)

// DefaultMaxUploadBytes bounds the multipart image upload size.
const DefaultMaxUploadBytes = 10 << 20

// PlaylistHandler serves POST /playlist: a multipart image upload is run through
// the full generation chain and the resulting playlist returned as JSON.
//
// Error responses carry a generic message; the operational detail goes to the
// log only.
type PlaylistHandler struct {
	pipeline       tasks.Pipeline
	interactions   *repositories.InteractionRepository
	maxUploadBytes int64
	logger         *log.Logger
}

// NewPlaylistHandler creates a PlaylistHandler. The interaction repository is
// optional; when nil, generated playlists are not persisted.
func NewPlaylistHandler(pipeline tasks.Pipeline, interactions *repositories.InteractionRepository, logger *log.Logger) *PlaylistHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PlaylistHandler{
		pipeline:       pipeline,
		interactions:   interactions,
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *PlaylistHandler) Routes() []string {
	return []string{"/playlist"}
}

// playlistResponse is the success body for POST /playlist.
type playlistResponse struct {
	SessionID      string                 `json:"session_id"`
	VibeExtraction *models.VibeExtraction `json:"vibe_extraction"`
	Playlist       *models.Playlist       `json:"playlist"`
	Grounded       bool                   `json:"grounded"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles the playlist generation request.
func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.logger.Warn("invalid multipart request", "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart request"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "image file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Warn("failed to read upload", "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read image"})
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = shared.GenerateID()
	}

	img := &models.Image{Reader: bytes.NewReader(data), Filename: header.Filename}

	result, err := h.pipeline.Run(r.Context(), nil, img)
	if err != nil {
		h.logger.Error("playlist generation failed", "session", sessionID, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "playlist generation failed"})
		return
	}

	h.persist(sessionID, header.Filename, result)

	writeJSON(w, http.StatusOK, playlistResponse{
		SessionID:      sessionID,
		VibeExtraction: result.Vibe,
		Playlist:       result.Playlist,
		Grounded:       result.Grounded,
	})
}

// persist logs the interaction. Persistence failures never fail the request.
func (h *PlaylistHandler) persist(sessionID, filename string, result *tasks.MoodRunResult) {
	if h.interactions == nil {
		return
	}

	vibeJSON, err := json.Marshal(result.Vibe)
	if err != nil {
		h.logger.Warn("failed to encode vibe for persistence", "err", err)
		return
	}
	playlistJSON, err := json.Marshal(result.Playlist)
	if err != nil {
		h.logger.Warn("failed to encode playlist for persistence", "err", err)
		return
	}

	interaction := models.NewInteraction(sessionID, filename, string(vibeJSON), string(playlistJSON), result.Grounded)
	if err := h.interactions.Create(interaction); err != nil {
		h.logger.Warn("failed to persist interaction", "session", sessionID, "err", err)
	}
}

// HealthHandler serves GET /healthz.
type HealthHandler struct{}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
