package repeat

import (
	"encoding/json"
	"io"
	"path/filepath"
)

// mockStore implements Storage for engine tests.
type mockStore struct {
	catalog   []Capture
	playlists []*Playlist
	prefs     Preferences

	savedCatalog   [][]Capture
	savedPlaylists int
	savedPrefs     []Preferences
	removed        []string

	removeFunc func(filename string) error
}

func (m *mockStore) LoadCatalog() ([]Capture, error) {
	return m.catalog, nil
}

func (m *mockStore) SaveCatalog(captures []Capture) error {
	m.savedCatalog = append(m.savedCatalog, captures)
	return nil
}

func (m *mockStore) LoadPlaylists() ([]*Playlist, error) {
	return m.playlists, nil
}

func (m *mockStore) SavePlaylists(playlists []*Playlist) error {
	m.savedPlaylists++
	return nil
}

func (m *mockStore) SavePreferences(prefs Preferences) error {
	m.savedPrefs = append(m.savedPrefs, prefs)
	return nil
}

func (m *mockStore) SaveCaptureFile(filename string, r io.Reader) (int64, error) {
	return io.Copy(io.Discard, r)
}

func (m *mockStore) RemoveCaptureFile(filename string) error {
	if m.removeFunc != nil {
		if err := m.removeFunc(filename); err != nil {
			return err
		}
	}
	m.removed = append(m.removed, filename)
	return nil
}

func (m *mockStore) CaptureFilePath(filename string) string {
	return filepath.Join("/captures", filename)
}

// mockBus records broadcast frames.
type mockBus struct {
	frames [][]byte
}

func (b *mockBus) Broadcast(message []byte) {
	b.frames = append(b.frames, message)
}

func (b *mockBus) reset() {
	b.frames = nil
}

// events returns the type of every recorded frame, in broadcast order.
func (b *mockBus) events() []string {
	out := make([]string, 0, len(b.frames))
	for _, frame := range b.frames {
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(frame, &msg); err != nil {
			out = append(out, "<bad frame>")
			continue
		}
		out = append(out, msg.Type)
	}
	return out
}
