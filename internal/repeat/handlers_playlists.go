package repeat

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleCreatePlaylist adds a new, empty playlist.
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	pl, err := s.engine.CreatePlaylist(body.Name)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pl)
}

// handleReplacePlaylist replaces a playlist's settings and membership
// wholesale. Identity cannot change through this path; renames go through the
// dedicated rename call.
func (s *Server) handleReplacePlaylist(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body Playlist
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Name != "" && body.Name != name {
		writeError(w, http.StatusBadRequest, "playlist name cannot be changed by replace; use rename")
		return
	}

	pl, err := s.engine.ReplacePlaylist(name, body)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handleRenamePlaylist(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body struct {
		NewName string `json:"newName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.NewName = strings.TrimSpace(body.NewName)
	if body.NewName == "" {
		writeError(w, http.StatusBadRequest, "newName is required")
		return
	}

	pl, err := s.engine.RenamePlaylist(name, body.NewName)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.engine.DeletePlaylist(name); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePlayPlaylist hands the playlist to the replay collaborator. No
// catalog or playlist state changes here.
func (s *Server) handlePlayPlaylist(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	pl, ok := s.engine.PlaylistByName(name)
	if !ok {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if !s.engine.ReplayFound() {
		writeError(w, http.StatusConflict, "tcpreplay is not available")
		return
	}
	if len(pl.Pcaps) == 0 {
		writeError(w, http.StatusBadRequest, "playlist is empty")
		return
	}

	files := make([]string, 0, len(pl.Pcaps))
	for _, id := range pl.Pcaps {
		_, path, err := s.engine.CaptureFile(id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		files = append(files, path)
	}

	replayer := NewReplayer(s.engine.Preferences().PathToTcpreplay)
	if err := replayer.Play(pl.Settings, files); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "started",
		"playlist": pl.Name,
	})
}
