package httpapi

import "net/http"

// handleVersion implements GET /version.
func (a *App) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(a.Version.String()))
}

// supportedInfo is the JSON body of GET /supported, matching the shape
// the original CLI's `_check_outdated` reads ({"min": ..., "banned": [...]},
// original_source/rpipe/client/client/client.py).
type supportedInfo struct {
	Min    string   `json:"min"`
	Banned []string `json:"banned"`
}

// handleSupported implements GET /supported.
func (a *App) handleSupported(w http.ResponseWriter, r *http.Request) {
	banned := make([]string, len(a.Banned))
	for i, v := range a.Banned {
		banned[i] = v.String()
	}
	writeJSON(w, http.StatusOK, supportedInfo{Min: a.MinVersion.String(), Banned: banned})
}
