package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"manga-merger/internal"
	"manga-merger/internal/merge"
	"manga-merger/internal/util"
)

// CombineRequest is the body of POST /api/combine
type CombineRequest struct {
	Folder   string   `json:"folder"`
	Selected []string `json:"selected"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
}

// CombineHandler merges the selected chapters of a folder into one volume
// and records it in the folder's history.
func (h *MergeHandler) CombineHandler(w http.ResponseWriter, r *http.Request) {
	var req CombineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Folder == "" || strings.TrimSpace(req.Name) == "" {
		respondJSONError(w, http.StatusBadRequest, "folder and name are required")
		return
	}
	kind, err := merge.ParseKind(req.Type)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	exportPath := h.Settings.Get().ExportPath
	if exportPath == "" {
		respondJSONError(w, http.StatusBadRequest, "Export path is not configured")
		return
	}
	folderPath, ok := h.resolveFolder(w, req.Folder)
	if !ok {
		return
	}
	if req.Selected == nil {
		req.Selected = []string{}
	}

	processType := internal.ProcessTypeCombinePDF
	if kind == merge.KindCBZ {
		processType = internal.ProcessTypeCombineCBZ
	}
	proc, err := h.ProcessManager.NewProcess(processType, req.Folder, req.Name, len(req.Selected))
	if err != nil {
		h.Logger("WARNING", fmt.Sprintf("Failed to save process log: %v", err))
	}
	h.Logger("INFO", fmt.Sprintf("Combining %d chapters of %s into %s (%s)", len(req.Selected), req.Folder, req.Name, kind))

	merger := merge.New(h.MergeConfig, util.NewSimpleLogger(proc.ID[:8], h.Logger))
	result, err := merger.Combine(kind, folderPath, req.Selected, exportPath, req.Name)
	if err != nil {
		h.Logger("ERROR", fmt.Sprintf("Combine failed for %s: %v", req.Folder, err))
		if _, saveErr := h.ProcessManager.FailProcess(proc.ID, err.Error()); saveErr != nil {
			h.Logger("WARNING", fmt.Sprintf("Failed to save process log: %v", saveErr))
		}
		respondJSONError(w, http.StatusInternalServerError, "Combine failed.")
		return
	}

	skipped := make([]string, 0, len(result.Skipped()))
	for _, ce := range result.Skipped() {
		skipped = append(skipped, ce.Error())
	}
	if _, err := h.ProcessManager.CompleteProcess(proc.ID, result.OutputPath, skipped); err != nil {
		h.Logger("WARNING", fmt.Sprintf("Failed to save process log: %v", err))
	}

	if _, err := h.History.Record(folderPath, req.Name, req.Selected, string(kind)); err != nil {
		h.Logger("ERROR", fmt.Sprintf("Failed to update history for %s: %v", req.Folder, err))
	}

	h.rememberForm(w, r, req)

	included := result.Included()
	if included == nil {
		included = []string{}
	}
	respondJSONSuccess(w, map[string]interface{}{
		"path":       result.OutputPath,
		"process_id": proc.ID,
		"count":      result.Count,
		"included":   included,
		"skipped":    skipped,
	})
}

// rememberForm stores the last folder, type and volume name in the session
func (h *MergeHandler) rememberForm(w http.ResponseWriter, r *http.Request, req CombineRequest) {
	if h.SessionStore == nil {
		return
	}
	session, err := h.SessionStore.Get(r, sessionName)
	if err != nil {
		h.Logger("WARNING", fmt.Sprintf("Discarding invalid session: %v", err))
	}
	session.Values["folder"] = req.Folder
	session.Values["type"] = strings.ToLower(req.Type)
	session.Values["name"] = req.Name
	if err := session.Save(r, w); err != nil {
		h.Logger("WARNING", fmt.Sprintf("Failed to save session: %v", err))
	}
}

// SessionHandler returns the form values of the last merge in this browser
func (h *MergeHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{"folder": "", "type": "", "name": ""}
	if h.SessionStore != nil {
		if session, err := h.SessionStore.Get(r, sessionName); err == nil {
			for key := range data {
				if v, ok := session.Values[key].(string); ok {
					data[key] = v
				}
			}
		}
	}
	respondJSON(w, data)
}

// ProcessResponse is a merge job as shown by the API
type ProcessResponse struct {
	ID                 string    `json:"id"`
	Type               string    `json:"type"`
	Title              string    `json:"title"`
	Volume             string    `json:"volume"`
	Status             string    `json:"status"`
	Progress           int       `json:"progress"`
	Total              int       `json:"total"`
	ProgressPercentage int       `json:"progress_percentage"`
	Message            string    `json:"message"`
	Error              string    `json:"error"`
	OutputPath         string    `json:"output_path,omitempty"`
	Skipped            []string  `json:"skipped,omitempty"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	DurationSeconds    float64   `json:"duration_seconds"`
}

// ProcessesAPIHandler lists merge jobs, newest first
func (h *MergeHandler) ProcessesAPIHandler(w http.ResponseWriter, r *http.Request) {
	allProcesses := h.ProcessManager.ListProcesses()

	responseProcesses := make([]ProcessResponse, 0, len(allProcesses))
	for _, proc := range allProcesses {
		responseProcesses = append(responseProcesses, ProcessResponse{
			ID:                 proc.ID,
			Type:               string(proc.Type),
			Title:              proc.Title,
			Volume:             proc.Volume,
			Status:             string(proc.Status),
			Progress:           proc.Progress,
			Total:              proc.Total,
			ProgressPercentage: proc.ProgressPercentage(),
			Message:            proc.Message,
			Error:              proc.Error,
			OutputPath:         proc.OutputPath,
			Skipped:            proc.Skipped,
			StartTime:          proc.StartTime,
			EndTime:            proc.EndTime,
			DurationSeconds:    proc.Duration().Seconds(),
		})
	}

	respondJSON(w, map[string]interface{}{
		"processes": responseProcesses,
	})
}

// ProcessDeleteHandler removes a finished merge job from the log
func (h *MergeHandler) ProcessDeleteHandler(w http.ResponseWriter, r *http.Request) {
	processID := mux.Vars(r)["id"]

	proc, exists := h.ProcessManager.GetProcess(processID)
	if !exists {
		h.Logger("ERROR", fmt.Sprintf("Process not found for deletion: %s", processID))
		respondJSONError(w, http.StatusNotFound, "Process not found")
		return
	}
	if proc.Status == internal.ProcessStatusRunning {
		respondJSONError(w, http.StatusBadRequest, "Cannot delete a running process")
		return
	}

	deleted, err := h.ProcessManager.DeleteProcess(processID)
	if err != nil {
		h.Logger("WARNING", fmt.Sprintf("Failed to save process log: %v", err))
	}
	if !deleted {
		respondJSONError(w, http.StatusInternalServerError, "Failed to delete process")
		return
	}

	h.Logger("INFO", fmt.Sprintf("Process %s deleted from history", processID))
	respondJSONSuccess(w, nil)
}
