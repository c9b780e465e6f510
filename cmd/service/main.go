package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/KensingtonTech/tcp-repeat-server/internal/realtime"
	"github.com/KensingtonTech/tcp-repeat-server/internal/repeat"
)

const version = "2.0.0"

func main() {
	log.Printf("tcp-repeat: starting tcp-repeat-server version %s", version)

	port := getenv("PORT", "3003")
	prefsDir := getenv("PREFS_DIR", "./etc")

	// Preconditions: missing preferences or an unusable captures directory
	// terminate startup. Per-request storage errors never do.
	prefs, err := repeat.LoadPreferences(prefsDir)
	if err != nil {
		log.Fatalf("tcp-repeat: %v", err)
	}
	if err := repeat.EnsureWritableDir(prefs.PcapsDir); err != nil {
		log.Fatalf("tcp-repeat: captures directory: %v", err)
	}

	nics, err := repeat.ListInterfaces()
	if err != nil {
		log.Printf("tcp-repeat: enumerate interfaces: %v", err)
	}

	replayFound := repeat.NewReplayer(prefs.PathToTcpreplay).Probe()

	store := repeat.NewFileStore(prefsDir, prefs.PcapsDir)

	hub := realtime.NewHub()
	go hub.Run()

	engine, err := repeat.NewEngine(store, hub, version, prefs, nics, replayFound)
	if err != nil {
		log.Fatalf("tcp-repeat: %v", err)
	}

	srv := repeat.NewServer(engine, hub, store)
	r := srv.Router(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	log.Printf("tcp-repeat: listening on :%s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("tcp-repeat: %v", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
