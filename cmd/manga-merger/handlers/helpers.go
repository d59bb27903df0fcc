package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"manga-merger/cmd/manga-merger/utils"
	"manga-merger/internal"
	"manga-merger/internal/history"
	"manga-merger/internal/library"
	"manga-merger/internal/merge"
	"manga-merger/internal/settings"
	"manga-merger/internal/util"
)

// sessionName is the cookie holding the last merge form values
const sessionName = "manga-merger"

// MergeHandler contains dependencies for all API handlers
type MergeHandler struct {
	Config         *utils.AppConfig
	Settings       *settings.Store
	ProcessManager *internal.ProcessManager
	History        *history.Store
	MergeConfig    *merge.Config
	SessionStore   sessions.Store
	Logger         func(level, message string)
}

func (h *MergeHandler) library() *library.Library {
	return library.New(h.Settings.Get().MainPath, util.NewSimpleLogger("", h.Logger))
}

// resolveFolder maps a folder path from a request onto the main path,
// answering the request itself when that fails.
func (h *MergeHandler) resolveFolder(w http.ResponseWriter, rel string) (string, bool) {
	if h.Settings.Get().MainPath == "" {
		respondJSONError(w, http.StatusBadRequest, "Main path is not configured")
		return "", false
	}
	dir, err := h.library().Resolve(rel)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return dir, true
}

// decodeJSON reads a JSON request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

// respondJSON sends a JSON response with the given data
func respondJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(data)
}

// respondJSONError sends a JSON error response
func respondJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// respondJSONSuccess sends a JSON success response
func respondJSONSuccess(w http.ResponseWriter, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["success"] = true
	respondJSON(w, data)
}
