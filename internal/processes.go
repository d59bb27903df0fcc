package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProcessType represents different types of processes
type ProcessType string

const (
	ProcessTypeCombinePDF ProcessType = "combine_pdf"
	ProcessTypeCombineCBZ ProcessType = "combine_cbz"
)

// ProcessStatus represents the current status of a process
type ProcessStatus string

const (
	ProcessStatusRunning  ProcessStatus = "running"
	ProcessStatusComplete ProcessStatus = "complete"
	ProcessStatusFailed   ProcessStatus = "failed"
)

// Process is one merge request
type Process struct {
	ID         string        `json:"id"`
	Type       ProcessType   `json:"type"`
	Title      string        `json:"title"`  // manga folder, relative to the library
	Volume     string        `json:"volume"` // volume name as requested
	Status     ProcessStatus `json:"status"`
	Progress   int           `json:"progress"` // chapters handled so far
	Total      int           `json:"total"`    // chapters selected
	Message    string        `json:"message"`
	Error      string        `json:"error"`
	OutputPath string        `json:"output_path,omitempty"`
	Skipped    []string      `json:"skipped,omitempty"` // reasons chapters were left out
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
}

// ProcessManager keeps the merge job log and persists it as JSON
type ProcessManager struct {
	processes   map[string]*Process
	mu          sync.RWMutex
	saveMu      sync.Mutex
	storagePath string
	now         func() time.Time
}

// NewProcessManager loads the job log at storagePath. Jobs still marked
// running were interrupted by a restart and are marked failed.
func NewProcessManager(storagePath string) (*ProcessManager, error) {
	if err := os.MkdirAll(filepath.Dir(storagePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	pm := &ProcessManager{
		processes:   make(map[string]*Process),
		storagePath: storagePath,
		now:         time.Now,
	}

	if err := pm.LoadProcesses(); err != nil {
		return nil, err
	}

	interrupted := false
	for _, p := range pm.processes {
		if p.Status == ProcessStatusRunning {
			p.Status = ProcessStatusFailed
			p.Message = "Process interrupted by service restart"
			p.EndTime = pm.now()
			interrupted = true
		}
	}
	if interrupted {
		if err := pm.SaveProcesses(); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// SaveProcesses persists all processes to disk
func (pm *ProcessManager) SaveProcesses() error {
	pm.saveMu.Lock()
	defer pm.saveMu.Unlock()

	pm.mu.RLock()
	data, err := json.MarshalIndent(pm.sortedLocked(), "", "  ")
	pm.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("error marshaling processes: %v", err)
	}

	tmp := pm.storagePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("error writing processes to file: %v", err)
	}
	if err := os.Rename(tmp, pm.storagePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error writing processes to file: %v", err)
	}
	return nil
}

// LoadProcesses loads processes from disk
func (pm *ProcessManager) LoadProcesses() error {
	if _, err := os.Stat(pm.storagePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(pm.storagePath)
	if err != nil {
		return fmt.Errorf("error reading processes file: %v", err)
	}

	var processes []*Process
	if err := json.Unmarshal(data, &processes); err != nil {
		return fmt.Errorf("error unmarshaling processes: %v", err)
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, p := range processes {
		pm.processes[p.ID] = p
	}
	return nil
}

// NewProcess registers a running merge of total chapters
func (pm *ProcessManager) NewProcess(processType ProcessType, title, volume string, total int) (*Process, error) {
	process := &Process{
		ID:        uuid.NewString(),
		Type:      processType,
		Title:     title,
		Volume:    volume,
		Status:    ProcessStatusRunning,
		Total:     total,
		Message:   "Merging chapters",
		StartTime: pm.now(),
	}

	pm.mu.Lock()
	pm.processes[process.ID] = process
	pm.mu.Unlock()

	return process.snapshot(), pm.SaveProcesses()
}

// GetProcess returns a copy of a process by ID
func (pm *ProcessManager) GetProcess(id string) (*Process, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	process, exists := pm.processes[id]
	if !exists {
		return nil, false
	}
	return process.snapshot(), true
}

// ListProcesses returns copies of all processes, newest first
func (pm *ProcessManager) ListProcesses() []*Process {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	processes := pm.sortedLocked()
	for i, p := range processes {
		processes[i] = p.snapshot()
	}
	return processes
}

// UpdateProcess applies update to a process and persists the log
func (pm *ProcessManager) UpdateProcess(id string, update func(*Process)) (bool, error) {
	pm.mu.Lock()
	process, exists := pm.processes[id]
	if exists {
		update(process)
	}
	pm.mu.Unlock()

	if !exists {
		return false, nil
	}
	return true, pm.SaveProcesses()
}

// CompleteProcess marks a merge as finished
func (pm *ProcessManager) CompleteProcess(id, outputPath string, skipped []string) (bool, error) {
	return pm.UpdateProcess(id, func(p *Process) {
		p.Status = ProcessStatusComplete
		p.Progress = p.Total
		p.EndTime = pm.now()
		p.OutputPath = outputPath
		p.Skipped = append([]string(nil), skipped...)
		p.Message = fmt.Sprintf("Merged %d of %d chapters", p.Total-len(skipped), p.Total)
	})
}

// FailProcess marks a merge as failed
func (pm *ProcessManager) FailProcess(id string, err string) (bool, error) {
	return pm.UpdateProcess(id, func(p *Process) {
		p.Status = ProcessStatusFailed
		p.Error = err
		p.Message = "Combine failed."
		p.EndTime = pm.now()
	})
}

// DeleteProcess removes a finished process from the log
func (pm *ProcessManager) DeleteProcess(id string) (bool, error) {
	pm.mu.Lock()
	process, exists := pm.processes[id]
	deleted := exists && process.Status != ProcessStatusRunning
	if deleted {
		delete(pm.processes, id)
	}
	pm.mu.Unlock()

	if !deleted {
		return false, nil
	}
	return true, pm.SaveProcesses()
}

// CleanupOldProcesses removes finished processes older than age
func (pm *ProcessManager) CleanupOldProcesses(age time.Duration) error {
	pm.mu.Lock()
	now := pm.now()
	deleted := false
	for id, process := range pm.processes {
		if process.Status != ProcessStatusRunning && now.Sub(process.EndTime) > age {
			delete(pm.processes, id)
			deleted = true
		}
	}
	pm.mu.Unlock()

	if !deleted {
		return nil
	}
	return pm.SaveProcesses()
}

func (pm *ProcessManager) sortedLocked() []*Process {
	processes := make([]*Process, 0, len(pm.processes))
	for _, p := range pm.processes {
		processes = append(processes, p)
	}
	sort.Slice(processes, func(i, j int) bool {
		if !processes[i].StartTime.Equal(processes[j].StartTime) {
			return processes[i].StartTime.After(processes[j].StartTime)
		}
		return processes[i].ID < processes[j].ID
	})
	return processes
}

func (p *Process) snapshot() *Process {
	c := *p
	c.Skipped = append([]string(nil), p.Skipped...)
	return &c
}

// Duration returns the duration of the process
func (p *Process) Duration() time.Duration {
	if p.Status == ProcessStatusRunning {
		return time.Since(p.StartTime)
	}
	return p.EndTime.Sub(p.StartTime)
}

// ProgressPercentage returns the progress as a percentage
func (p *Process) ProgressPercentage() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Progress * 100) / p.Total
}
