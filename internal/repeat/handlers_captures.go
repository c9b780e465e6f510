package repeat

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadMemory = 64 << 20

// handleUploadCaptures accepts a multipart batch under field "file[]",
// stores the payloads, then ingests the whole batch in upload order into the
// catalog and the optional target playlist.
func (s *Server) handleUploadCaptures(w http.ResponseWriter, r *http.Request) {
	playlistName := chi.URLParam(r, "playlist")

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["file[]"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files in 'file[]'")
		return
	}

	uploads := make([]UploadedFile, 0, len(headers))
	stored := make([]string, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			s.discardStored(stored)
			writeError(w, http.StatusBadRequest, "unreadable upload part")
			return
		}
		filename := uuid.NewString()
		size, err := s.store.SaveCaptureFile(filename, src)
		_ = src.Close()
		if err != nil {
			log.Printf("tcp-repeat: store upload %s: %v", fh.Filename, err)
			s.discardStored(stored)
			writeError(w, http.StatusInternalServerError, "could not store upload")
			return
		}
		stored = append(stored, filename)
		uploads = append(uploads, UploadedFile{
			Filename:         filename,
			OriginalFilename: fh.Filename,
			Size:             size,
		})
	}

	captures, err := s.engine.IngestBatch(uploads, playlistName)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, captures)
}

// discardStored removes capture files written for a batch that will not be
// ingested.
func (s *Server) discardStored(filenames []string) {
	for _, name := range filenames {
		if err := s.store.RemoveCaptureFile(name); err != nil {
			log.Printf("tcp-repeat: discard stored upload %s: %v", name, err)
		}
	}
}

// handleDeleteCaptures deletes a batch of captures by id. Unknown ids are
// skipped; a storage failure aborts the whole batch with no partial effect.
func (s *Server) handleDeleteCaptures(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "no capture ids")
		return
	}

	if err := s.engine.DeleteCaptures(ids); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Captures())
}

func (s *Server) handleDownloadCapture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, path, err := s.engine.CaptureFile(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", c.OriginalFilename))
	w.Header().Set("Content-Type", "application/vnd.tcpdump.pcap")
	http.ServeFile(w, r, path)
}

// handleEditCapture updates a capture's display name.
func (s *Server) handleEditCapture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		OriginalFilename string `json:"originalFilename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.OriginalFilename = strings.TrimSpace(body.OriginalFilename)
	if body.OriginalFilename == "" {
		writeError(w, http.StatusBadRequest, "originalFilename is required")
		return
	}

	c, err := s.engine.EditCapture(id, body.OriginalFilename)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
