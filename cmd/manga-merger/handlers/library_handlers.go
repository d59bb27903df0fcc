package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"manga-merger/internal/history"
	"manga-merger/internal/library"
	"manga-merger/internal/merge"
	"manga-merger/internal/settings"
)

// IndexHandler reports the configured paths
func (h *MergeHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	st := h.Settings.Get()
	respondJSON(w, map[string]interface{}{
		"main_path":   st.MainPath,
		"export_path": st.ExportPath,
	})
}

// TreeHandler returns the nested folder tree of the main path
func (h *MergeHandler) TreeHandler(w http.ResponseWriter, r *http.Request) {
	if h.Settings.Get().MainPath == "" {
		respondJSONError(w, http.StatusInternalServerError, "Main path is not configured")
		return
	}
	respondJSON(w, h.library().Tree())
}

// FoldersHandler returns every folder below the main path as a flat list
func (h *MergeHandler) FoldersHandler(w http.ResponseWriter, r *http.Request) {
	if h.Settings.Get().MainPath == "" {
		respondJSONError(w, http.StatusInternalServerError, "Main path is not configured")
		return
	}
	folders, err := h.library().Scan()
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, folders)
}

// FolderHandler lists the chapter files of one folder in the configured order
func (h *MergeHandler) FolderHandler(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if rel == "" {
		respondJSONError(w, http.StatusBadRequest, "Missing path")
		return
	}
	if _, ok := h.resolveFolder(w, rel); !ok {
		return
	}

	mode := library.ParseSortMode(h.Settings.Get().SortMode)
	chapters, err := h.library().Chapters(rel, mode)
	switch {
	case errors.Is(err, library.ErrFolderNotFound):
		respondJSONError(w, http.StatusNotFound, "Folder not found")
	case err != nil:
		respondJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		if chapters == nil {
			chapters = []string{}
		}
		respondJSON(w, map[string]interface{}{"chapters": chapters})
	}
}

// ChapterHandler reports the kind and page count of one chapter file
func (h *MergeHandler) ChapterHandler(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	name := r.URL.Query().Get("name")
	if rel == "" || name == "" {
		respondJSONError(w, http.StatusBadRequest, "Missing path or name")
		return
	}
	if _, ok := h.resolveFolder(w, rel); !ok {
		return
	}

	info, err := h.library().Inspect(rel, name)
	switch {
	case errors.Is(err, merge.ErrMissingFile):
		respondJSONError(w, http.StatusNotFound, "Chapter not found")
	case err != nil:
		respondJSONError(w, http.StatusBadRequest, err.Error())
	default:
		respondJSON(w, info)
	}
}

// HistoryHandler summarizes the latest merge of every manga folder
func (h *MergeHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	root := h.Settings.Get().MainPath
	if root == "" {
		respondJSONError(w, http.StatusInternalServerError, "Main path is not configured")
		return
	}
	summaries, err := h.History.Summaries(root)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, map[string]interface{}{"histories": summaries})
}

// HistoryRequest is the body of the history view and delete endpoints
type HistoryRequest struct {
	Manga  string `json:"manga"`
	Volume string `json:"volume"`
}

// HistoryViewHandler returns the full history of one manga folder
func (h *MergeHandler) HistoryViewHandler(w http.ResponseWriter, r *http.Request) {
	var req HistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Manga == "" {
		respondJSONError(w, http.StatusBadRequest, "manga is required")
		return
	}
	folder, ok := h.resolveFolder(w, req.Manga)
	if !ok {
		return
	}

	hist, err := h.History.Load(folder)
	switch {
	case errors.Is(err, history.ErrNoHistory):
		respondJSONError(w, http.StatusNotFound, "No history found")
	case err != nil:
		respondJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		respondJSONSuccess(w, map[string]interface{}{"data": hist})
	}
}

// HistoryDeleteHandler removes one volume from a manga folder's history
func (h *MergeHandler) HistoryDeleteHandler(w http.ResponseWriter, r *http.Request) {
	var req HistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Manga == "" || req.Volume == "" {
		respondJSONError(w, http.StatusBadRequest, "manga and volume are required")
		return
	}
	folder, ok := h.resolveFolder(w, req.Manga)
	if !ok {
		return
	}

	err := h.History.Delete(folder, req.Volume)
	switch {
	case errors.Is(err, history.ErrNoHistory):
		respondJSONError(w, http.StatusNotFound, "History file not found")
	case errors.Is(err, history.ErrVolumeNotFound):
		respondJSONError(w, http.StatusNotFound, "Volume not found")
	case err != nil:
		respondJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		h.Logger("INFO", fmt.Sprintf("Deleted %s from history of %s", req.Volume, req.Manga))
		respondJSONSuccess(w, nil)
	}
}

// SettingsHandler returns the settings on GET and updates them on POST.
// Fields missing from the POST body keep their current value.
func (h *MergeHandler) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSON(w, h.Settings.Get())
		return
	}

	var update settings.Update
	if err := decodeJSON(r, &update); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.Settings.Apply(update); err != nil {
		h.Logger("ERROR", fmt.Sprintf("Failed to save settings: %v", err))
		respondJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.Logger("INFO", "Settings updated")
	respondJSON(w, map[string]interface{}{"status": "updated"})
}

// AboutHandler describes the tool
func (h *MergeHandler) AboutHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<h1>Manual Manga Combiner</h1><p>Web tool for merging manga chapters.</p>")
}
