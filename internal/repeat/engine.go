package repeat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Broadcast event types. Payloads are full snapshots; observers replace, not
// patch.
const (
	eventServerVersion     = "serverVersion"
	eventPreferences       = "preferences"
	eventTcpreplayFound    = "tcpreplayFound"
	eventNetworkInterfaces = "networkInterfaces"
	eventPcaps             = "pcaps"
	eventPlaylists         = "playlists"
)

// Broadcaster pushes a frame to every connected observer.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Engine owns the shared catalog/playlist state and keeps it consistent
// across uploads, deletions and playlist edits. Every mutation runs to
// completion under one writer lock: catalog mutation, playlist cleanup, All
// re-derivation, persistence and broadcast hand-off all happen before the
// lock is released, so observers never see an intermediate state.
type Engine struct {
	mu    sync.Mutex
	state *State
	store Storage
	bus   Broadcaster

	version     string
	prefs       Preferences
	nics        []NetworkInterface
	replayFound bool
}

// NewEngine loads the catalog and playlists from the store and restores the
// invariants the loaded data cannot be trusted to carry: unique names, a
// leading All playlist derived from the catalog, membership pruned to known
// captures and counts recomputed.
func NewEngine(store Storage, bus Broadcaster, version string, prefs Preferences, nics []NetworkInterface, replayFound bool) (*Engine, error) {
	captures, err := store.LoadCatalog()
	if err != nil {
		return nil, err
	}
	playlists, err := store.LoadPlaylists()
	if err != nil {
		return nil, err
	}

	st := &State{captures: captures, playlists: playlists}
	st.dropDuplicateNames()

	defaultInterface := ""
	if len(nics) > 0 {
		defaultInterface = nics[0].Name
	}
	st.ensureAll(defaultInterface)
	st.pruneUnknownMembers()

	return &Engine{
		state:       st,
		store:       store,
		bus:         bus,
		version:     version,
		prefs:       prefs,
		nics:        nics,
		replayFound: replayFound,
	}, nil
}

//// snapshots

func (e *Engine) Captures() []Capture {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.snapshotCaptures()
}

func (e *Engine) Playlists() []Playlist {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.snapshotPlaylists()
}

func (e *Engine) Preferences() Preferences {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs
}

func (e *Engine) ReplayFound() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.replayFound
}

// CaptureFile resolves a capture and the path of its stored payload.
func (e *Engine) CaptureFile(id string) (Capture, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.state.captureByID(id)
	if !ok {
		return Capture{}, "", fmt.Errorf("capture %q: %w", id, ErrNotFound)
	}
	return c, e.store.CaptureFilePath(c.Filename), nil
}

func (e *Engine) PlaylistByName(name string) (Playlist, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pl := e.state.playlistByName(name)
	if pl == nil {
		return Playlist{}, false
	}
	return pl.clone(), true
}

//// catalog mutations

// IngestBatch appends freshly uploaded captures to the catalog, in upload
// order, and to the target playlist when one is named. A target of "" or
// "All" means catalog only; All is re-derived either way. One broadcast pair
// fires after the whole batch is applied.
func (e *Engine) IngestBatch(files []UploadedFile, target string) ([]Capture, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var targetPlaylist *Playlist
	if target != "" && target != allPlaylistName {
		targetPlaylist = e.state.playlistByName(target)
		if targetPlaylist == nil {
			log.Printf("tcp-repeat: upload target playlist %q not found, ingesting to catalog only", target)
		}
	}

	now := time.Now().Unix()
	created := make([]Capture, 0, len(files))
	for _, f := range files {
		c := Capture{
			ID:               uuid.NewString(),
			Filename:         f.Filename,
			Size:             f.Size,
			OriginalFilename: f.OriginalFilename,
			Time:             now,
		}
		e.state.appendCapture(c)
		if targetPlaylist != nil {
			targetPlaylist.Pcaps = append(targetPlaylist.Pcaps, c.ID)
			targetPlaylist.Count = len(targetPlaylist.Pcaps)
		}
		created = append(created, c)
	}
	e.state.rederiveAll()

	e.persistCatalog()
	e.persistPlaylists()
	e.publish(eventPcaps, e.state.snapshotCaptures())
	e.publish(eventPlaylists, e.state.snapshotPlaylists())
	return created, nil
}

// DeleteCaptures removes a batch of captures: backing files first, then the
// catalog, then every playlist reference, then All re-derived from what is
// left. Unknown ids and already-missing files are logged and skipped. Any
// other storage failure aborts the whole batch before a single in-memory
// record is touched.
func (e *Engine) DeleteCaptures(ids []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		c, ok := e.state.captureByID(id)
		if !ok {
			log.Printf("tcp-repeat: capture %s not found, skipping", id)
			continue
		}
		if err := e.store.RemoveCaptureFile(c.Filename); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Printf("tcp-repeat: capture file %s was already missing", c.Filename)
			} else {
				log.Printf("tcp-repeat: delete capture %s: %v", id, err)
				return err
			}
		}
		doomed[id] = true
	}

	for id := range doomed {
		e.state.removeCapture(id)
	}
	e.state.removeFromPlaylists(doomed)
	e.state.rederiveAll()

	e.persistCatalog()
	e.persistPlaylists()
	e.publish(eventPcaps, e.state.snapshotCaptures())
	e.publish(eventPlaylists, e.state.snapshotPlaylists())
	return nil
}

// EditCapture updates a capture's display name.
func (e *Engine) EditCapture(id, originalFilename string) (Capture, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.state.captures {
		if e.state.captures[i].ID == id {
			e.state.captures[i].OriginalFilename = originalFilename
			c := e.state.captures[i]
			e.persistCatalog()
			e.publish(eventPcaps, e.state.snapshotCaptures())
			return c, nil
		}
	}
	return Capture{}, fmt.Errorf("capture %q: %w", id, ErrNotFound)
}

//// playlist mutations

// CreatePlaylist adds an empty playlist. The new playlist inherits All's
// current target interface as its default.
func (e *Engine) CreatePlaylist(name string) (Playlist, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.playlistByName(name) != nil {
		return Playlist{}, fmt.Errorf("playlist %q: %w", name, ErrNameConflict)
	}

	iface := ""
	if all := e.state.playlistByName(allPlaylistName); all != nil {
		iface = all.Settings.Interface
	}
	pl := &Playlist{
		Name:         name,
		Pcaps:        []string{},
		Settings:     defaultSettings(iface),
		PcapSettings: map[string]Settings{},
	}
	e.state.playlists = append(e.state.playlists, pl)

	e.persistPlaylists()
	e.publish(eventPlaylists, e.state.snapshotPlaylists())
	return pl.clone(), nil
}

// ReplacePlaylist replaces a non-All playlist's settings and membership
// wholesale. The playlist's name is taken from the route, never from the
// payload, so identity cannot change through this path. Membership is pruned
// to known captures and the count is recomputed; neither is trusted from the
// caller.
func (e *Engine) ReplacePlaylist(name string, body Playlist) (Playlist, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if name == allPlaylistName {
		return Playlist{}, fmt.Errorf("playlist %q: %w", name, ErrForbidden)
	}
	idx := e.state.playlistIndex(name)
	if idx < 0 {
		return Playlist{}, fmt.Errorf("playlist %q: %w", name, ErrNotFound)
	}

	body.Name = name
	if body.Pcaps == nil {
		body.Pcaps = []string{}
	}
	if body.PcapSettings == nil {
		body.PcapSettings = map[string]Settings{}
	}
	e.state.playlists[idx] = &body
	e.state.pruneUnknownMembers()

	e.persistPlaylists()
	e.publish(eventPlaylists, e.state.snapshotPlaylists())
	return e.state.playlists[idx].clone(), nil
}

// RenamePlaylist changes a playlist's identity, re-validating uniqueness.
// Membership, settings and position are untouched.
func (e *Engine) RenamePlaylist(name, newName string) (Playlist, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if name == allPlaylistName || newName == allPlaylistName {
		return Playlist{}, fmt.Errorf("playlist %q: %w", allPlaylistName, ErrForbidden)
	}
	if e.state.playlistByName(newName) != nil {
		return Playlist{}, fmt.Errorf("playlist %q: %w", newName, ErrNameConflict)
	}
	pl := e.state.playlistByName(name)
	if pl == nil {
		return Playlist{}, fmt.Errorf("playlist %q: %w", name, ErrNotFound)
	}
	pl.Name = newName

	e.persistPlaylists()
	e.publish(eventPlaylists, e.state.snapshotPlaylists())
	return pl.clone(), nil
}

// DeletePlaylist removes a playlist. All is protected.
func (e *Engine) DeletePlaylist(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if name == allPlaylistName {
		return fmt.Errorf("playlist %q: %w", name, ErrForbidden)
	}
	idx := e.state.playlistIndex(name)
	if idx < 0 {
		return fmt.Errorf("playlist %q: %w", name, ErrNotFound)
	}
	e.state.playlists = append(e.state.playlists[:idx], e.state.playlists[idx+1:]...)

	e.persistPlaylists()
	e.publish(eventPlaylists, e.state.snapshotPlaylists())
	return nil
}

//// preferences

// UpdatePreferences swaps the runtime preferences and the cached replay-tool
// availability, persists them and notifies observers.
func (e *Engine) UpdatePreferences(prefs Preferences, replayFound bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prefs = prefs
	e.replayFound = replayFound
	if err := e.store.SavePreferences(prefs); err != nil {
		return err
	}
	e.publish(eventPreferences, e.prefs)
	e.publish(eventTcpreplayFound, e.replayFound)
	return nil
}

//// observers

// Subscribe hands the caller the onboarding backlog for a new observer:
// version, preferences, replay capability, device list, catalog snapshot and
// playlist snapshot, in that order. attach runs under the engine lock, so an
// attach that registers with the broadcast hub cannot miss a mutation
// published after the snapshot was taken.
func (e *Engine) Subscribe(attach func(backlog [][]byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	backlog := make([][]byte, 0, 6)
	for _, f := range []struct {
		event   string
		payload any
	}{
		{eventServerVersion, e.version},
		{eventPreferences, e.prefs},
		{eventTcpreplayFound, e.replayFound},
		{eventNetworkInterfaces, e.nics},
		{eventPcaps, e.state.snapshotCaptures()},
		{eventPlaylists, e.state.snapshotPlaylists()},
	} {
		frame, err := encodeFrame(f.event, f.payload)
		if err != nil {
			log.Printf("tcp-repeat: encode %s frame: %v", f.event, err)
			continue
		}
		backlog = append(backlog, frame)
	}
	attach(backlog)
}

//// internals

// persistCatalog and persistPlaylists write through to the store. The
// in-memory state stays authoritative; a failed write is logged and the
// mutation stands.
func (e *Engine) persistCatalog() {
	if err := e.store.SaveCatalog(e.state.snapshotCaptures()); err != nil {
		log.Printf("tcp-repeat: save catalog: %v", err)
	}
}

func (e *Engine) persistPlaylists() {
	if err := e.store.SavePlaylists(e.state.playlists); err != nil {
		log.Printf("tcp-repeat: save playlists: %v", err)
	}
}

func (e *Engine) publish(event string, payload any) {
	if e.bus == nil {
		return
	}
	frame, err := encodeFrame(event, payload)
	if err != nil {
		log.Printf("tcp-repeat: encode %s event: %v", event, err)
		return
	}
	e.bus.Broadcast(frame)
}

func encodeFrame(event string, payload any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":    event,
		"payload": payload,
	})
}
