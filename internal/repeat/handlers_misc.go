package repeat

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Preferences())
}

// handleUpdatePreferences replaces the runtime preferences. The tcpreplay
// path is re-probed so the cached capability flag follows the new value.
// The captures directory stays bound to the location validated at startup.
func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if prefs.PathToTcpreplay == "" {
		writeError(w, http.StatusBadRequest, "'pathToTcpreplay' is required")
		return
	}
	if prefs.PcapsDir == "" {
		writeError(w, http.StatusBadRequest, "'pcapsDir' is required")
		return
	}

	found := NewReplayer(prefs.PathToTcpreplay).Probe()
	if err := s.engine.UpdatePreferences(prefs, found); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
