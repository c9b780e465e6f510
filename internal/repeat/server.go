package repeat

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/KensingtonTech/tcp-repeat-server/internal/realtime"
)

var upgrader = websocket.Upgrader{
	// Observers are trusted LAN clients; the UI may be served from elsewhere.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Server struct {
	engine *Engine
	hub    *realtime.Hub
	store  Storage
}

func NewServer(engine *Engine, hub *realtime.Hub, store Storage) *Server {
	return &Server{
		engine: engine,
		hub:    hub,
		store:  store,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/preferences", s.handleGetPreferences)
		r.Post("/preferences", s.handleUpdatePreferences)

		r.Post("/playlists", s.handleCreatePlaylist)
		r.Put("/playlists/{name}", s.handleReplacePlaylist)
		r.Post("/playlists/{name}/rename", s.handleRenamePlaylist)
		r.Delete("/playlists/{name}", s.handleDeletePlaylist)
		r.Post("/playlists/{name}/play", s.handlePlayPlaylist)

		r.Post("/captures/delete", s.handleDeleteCaptures)
		r.Post("/captures/upload", s.handleUploadCaptures)
		r.Post("/captures/upload/{playlist}", s.handleUploadCaptures)
		r.Get("/captures/{id}", s.handleDownloadCapture)
		r.Post("/captures/{id}", s.handleEditCapture)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tcp-repeat-server",
	})
}

// handleWS upgrades an observer connection. Registration happens inside
// Subscribe so the onboarding sequence and subsequent broadcasts are totally
// ordered.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("tcp-repeat: ws upgrade: %v", err)
		return
	}
	s.engine.Subscribe(func(backlog [][]byte) {
		s.hub.Attach(conn, backlog)
	})
}
