package repeat

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	prefsFileName     = "tcp-repeat-settings.json"
	catalogFileName   = "pcaps.json"
	playlistsFileName = "playlists.json"
)

// Storage is the persistence gateway: durable load/save of the catalog and
// playlist set plus custody of the capture files themselves.
type Storage interface {
	LoadCatalog() ([]Capture, error)
	SaveCatalog(captures []Capture) error
	LoadPlaylists() ([]*Playlist, error)
	SavePlaylists(playlists []*Playlist) error
	SavePreferences(prefs Preferences) error

	SaveCaptureFile(filename string, r io.Reader) (int64, error)
	RemoveCaptureFile(filename string) error
	CaptureFilePath(filename string) string
}

// persistedPlaylist is the on-disk shape of a playlist: no derived count, and
// for All no membership either. Both are recomputed on load.
type persistedPlaylist struct {
	Name         string              `json:"name"`
	Pcaps        []string            `json:"pcaps,omitempty"`
	Settings     Settings            `json:"settings"`
	PcapSettings map[string]Settings `json:"pcapSettings"`
}

// FileStore keeps the catalog and playlists as JSON documents in the prefs
// directory and capture payloads in the captures directory.
type FileStore struct {
	prefsDir    string
	capturesDir string
}

func NewFileStore(prefsDir, capturesDir string) *FileStore {
	return &FileStore{prefsDir: prefsDir, capturesDir: capturesDir}
}

func (f *FileStore) LoadCatalog() ([]Capture, error) {
	captures := []Capture{}
	if err := f.loadJSON(catalogFileName, &captures); err != nil {
		return nil, err
	}
	return captures, nil
}

func (f *FileStore) SaveCatalog(captures []Capture) error {
	return f.saveJSON(catalogFileName, captures)
}

func (f *FileStore) LoadPlaylists() ([]*Playlist, error) {
	persisted := []persistedPlaylist{}
	if err := f.loadJSON(playlistsFileName, &persisted); err != nil {
		return nil, err
	}
	playlists := make([]*Playlist, 0, len(persisted))
	for _, p := range persisted {
		pl := &Playlist{
			Name:         p.Name,
			Pcaps:        p.Pcaps,
			Count:        len(p.Pcaps),
			Settings:     p.Settings,
			PcapSettings: p.PcapSettings,
		}
		if pl.Pcaps == nil {
			pl.Pcaps = []string{}
		}
		if pl.PcapSettings == nil {
			pl.PcapSettings = map[string]Settings{}
		}
		playlists = append(playlists, pl)
	}
	return playlists, nil
}

func (f *FileStore) SavePlaylists(playlists []*Playlist) error {
	persisted := make([]persistedPlaylist, 0, len(playlists))
	for _, pl := range playlists {
		p := persistedPlaylist{
			Name:         pl.Name,
			Pcaps:        pl.Pcaps,
			Settings:     pl.Settings,
			PcapSettings: pl.PcapSettings,
		}
		if pl.Name == allPlaylistName {
			// All's membership is derived from the catalog, never stored.
			p.Pcaps = nil
		}
		persisted = append(persisted, p)
	}
	return f.saveJSON(playlistsFileName, persisted)
}

func (f *FileStore) SavePreferences(prefs Preferences) error {
	return f.saveJSON(prefsFileName, prefs)
}

func (f *FileStore) SaveCaptureFile(filename string, r io.Reader) (int64, error) {
	path := f.CaptureFilePath(filename)
	dst, err := os.Create(path)
	if err != nil {
		return 0, &StorageError{Op: "create capture file", Path: path, Err: err}
	}
	n, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, &StorageError{Op: "write capture file", Path: path, Err: err}
	}
	return n, nil
}

func (f *FileStore) RemoveCaptureFile(filename string) error {
	path := f.CaptureFilePath(filename)
	if err := os.Remove(path); err != nil {
		return &StorageError{Op: "remove capture file", Path: path, Err: err}
	}
	return nil
}

func (f *FileStore) CaptureFilePath(filename string) string {
	return filepath.Join(f.capturesDir, filepath.Base(filename))
}

func (f *FileStore) loadJSON(name string, v any) error {
	path := filepath.Join(f.prefsDir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &StorageError{Op: "read", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &StorageError{Op: "parse", Path: path, Err: err}
	}
	return nil
}

func (f *FileStore) saveJSON(name string, v any) error {
	path := filepath.Join(f.prefsDir, name)
	data, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Op: "encode", Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// LoadPreferences reads the settings document. A missing or unreadable file is
// an error: preferences are a startup precondition, not optional state.
func LoadPreferences(prefsDir string) (Preferences, error) {
	path := filepath.Join(prefsDir, prefsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return Preferences{}, &StorageError{Op: "read preferences", Path: path, Err: err}
	}
	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return Preferences{}, &StorageError{Op: "parse preferences", Path: path, Err: err}
	}
	return prefs, nil
}

// EnsureWritableDir verifies that dir exists, is a directory and is writable
// by the current user.
func EnsureWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &StorageError{Op: "stat", Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &StorageError{Op: "stat", Path: dir, Err: errors.New("not a directory")}
	}
	probe, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return &StorageError{Op: "write probe", Path: dir, Err: err}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}
