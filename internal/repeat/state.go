package repeat

// State owns the capture catalog and the playlist collection. It is not safe
// for concurrent use on its own; the engine serializes every access behind a
// single writer lock.
type State struct {
	captures  []Capture
	playlists []*Playlist
}

//// catalog store

func (s *State) appendCapture(c Capture) {
	s.captures = append(s.captures, c)
}

func (s *State) captureByID(id string) (Capture, bool) {
	for _, c := range s.captures {
		if c.ID == id {
			return c, true
		}
	}
	return Capture{}, false
}

// removeCapture removes the capture if present, preserving catalog order.
func (s *State) removeCapture(id string) (Capture, bool) {
	for i, c := range s.captures {
		if c.ID == id {
			s.captures = append(s.captures[:i], s.captures[i+1:]...)
			return c, true
		}
	}
	return Capture{}, false
}

func (s *State) captureIDs() []string {
	ids := make([]string, 0, len(s.captures))
	for _, c := range s.captures {
		ids = append(ids, c.ID)
	}
	return ids
}

func (s *State) snapshotCaptures() []Capture {
	return append([]Capture{}, s.captures...)
}

//// playlist store

// playlistByName returns the first playlist with the given name. Duplicate
// names should not exist, but if they do the first match wins.
func (s *State) playlistByName(name string) *Playlist {
	for _, pl := range s.playlists {
		if pl.Name == name {
			return pl
		}
	}
	return nil
}

func (s *State) playlistIndex(name string) int {
	for i, pl := range s.playlists {
		if pl.Name == name {
			return i
		}
	}
	return -1
}

func (s *State) snapshotPlaylists() []Playlist {
	out := make([]Playlist, 0, len(s.playlists))
	for _, pl := range s.playlists {
		out = append(out, pl.clone())
	}
	return out
}

// dropDuplicateNames discards playlists whose name is already taken by an
// earlier entry, restoring name uniqueness for data loaded from older files.
func (s *State) dropDuplicateNames() {
	seen := make(map[string]bool, len(s.playlists))
	kept := s.playlists[:0]
	for _, pl := range s.playlists {
		if seen[pl.Name] {
			continue
		}
		seen[pl.Name] = true
		kept = append(kept, pl)
	}
	s.playlists = kept
}

// ensureAll guarantees exactly one "All" playlist sits at the head of the
// collection, creating it with default settings if absent, and re-derives its
// membership from the catalog. Idempotent.
func (s *State) ensureAll(defaultInterface string) {
	idx := s.playlistIndex(allPlaylistName)
	switch {
	case idx < 0:
		all := &Playlist{
			Name:         allPlaylistName,
			Pcaps:        []string{},
			Settings:     defaultSettings(defaultInterface),
			PcapSettings: map[string]Settings{},
		}
		s.playlists = append([]*Playlist{all}, s.playlists...)
	case idx > 0:
		all := s.playlists[idx]
		s.playlists = append(s.playlists[:idx], s.playlists[idx+1:]...)
		s.playlists = append([]*Playlist{all}, s.playlists...)
	}
	s.rederiveAll()
}

// rederiveAll rebuilds the All playlist's membership from the live catalog.
// All is never patched incrementally; it is always recomputed whole.
func (s *State) rederiveAll() {
	all := s.playlistByName(allPlaylistName)
	if all == nil {
		return
	}
	all.Pcaps = s.captureIDs()
	all.Count = len(all.Pcaps)
}

// removeFromPlaylists strips every reference to a doomed capture id from every
// playlist except All, keeping surviving members in their existing order.
func (s *State) removeFromPlaylists(doomed map[string]bool) {
	for _, pl := range s.playlists {
		if pl.Name == allPlaylistName {
			continue
		}
		kept := pl.Pcaps[:0]
		for _, id := range pl.Pcaps {
			if !doomed[id] {
				kept = append(kept, id)
			}
		}
		pl.Pcaps = kept
		pl.Count = len(pl.Pcaps)
		for id := range doomed {
			delete(pl.PcapSettings, id)
		}
	}
}

// pruneUnknownMembers drops membership references to capture ids that are not
// in the catalog. Applied to loaded data and to replace payloads so playlists
// never point at captures that do not exist.
func (s *State) pruneUnknownMembers() {
	known := make(map[string]bool, len(s.captures))
	for _, c := range s.captures {
		known[c.ID] = true
	}
	for _, pl := range s.playlists {
		if pl.Name == allPlaylistName {
			continue
		}
		kept := pl.Pcaps[:0]
		for _, id := range pl.Pcaps {
			if known[id] {
				kept = append(kept, id)
			}
		}
		pl.Pcaps = kept
		pl.Count = len(pl.Pcaps)
		for id := range pl.PcapSettings {
			if !known[id] {
				delete(pl.PcapSettings, id)
			}
		}
	}
}
