package internal_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manga-merger/internal"
)

func TestProcessManager_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "processes.json")
	pm, err := internal.NewProcessManager(path)
	require.NoError(t, err)

	p, err := pm.NewProcess(internal.ProcessTypeCombineCBZ, "Berserk", "Vol 1", 4)
	require.NoError(t, err)
	assert.Len(t, p.ID, 36)
	assert.Equal(t, internal.ProcessStatusRunning, p.Status)
	assert.Equal(t, 0, p.ProgressPercentage())

	deleted, err := pm.DeleteProcess(p.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "running processes cannot be deleted")

	ok, err := pm.CompleteProcess(p.ID, "/out/Berserk_Vol 1.cbz", []string{"Ch 3.cbz: file not found"})
	require.NoError(t, err)
	require.True(t, ok)

	got, found := pm.GetProcess(p.ID)
	require.True(t, found)
	assert.Equal(t, internal.ProcessStatusComplete, got.Status)
	assert.Equal(t, 100, got.ProgressPercentage())
	assert.Equal(t, "Merged 3 of 4 chapters", got.Message)
	assert.GreaterOrEqual(t, got.Duration(), time.Duration(0))

	got.Skipped[0] = "mutated"
	again, _ := pm.GetProcess(p.ID)
	assert.Equal(t, "Ch 3.cbz: file not found", again.Skipped[0], "callers get copies")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk []internal.Process
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Len(t, onDisk, 1)
	assert.Equal(t, "/out/Berserk_Vol 1.cbz", onDisk[0].OutputPath)

	deleted, err = pm.DeleteProcess(p.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, pm.ListProcesses())
}

func TestProcessManager_FailAndUnknown(t *testing.T) {
	pm, err := internal.NewProcessManager(filepath.Join(t.TempDir(), "processes.json"))
	require.NoError(t, err)

	p, err := pm.NewProcess(internal.ProcessTypeCombinePDF, "Akira", "v1", 2)
	require.NoError(t, err)

	ok, err := pm.FailProcess(p.ID, "cannot write output")
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := pm.GetProcess(p.ID)
	assert.Equal(t, internal.ProcessStatusFailed, got.Status)
	assert.Equal(t, "cannot write output", got.Error)

	ok, err = pm.FailProcess("missing", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcessManager_RestartMarksRunningFailed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processes.json")
	pm, err := internal.NewProcessManager(path)
	require.NoError(t, err)
	p, err := pm.NewProcess(internal.ProcessTypeCombinePDF, "Akira", "v1", 1)
	require.NoError(t, err)

	restarted, err := internal.NewProcessManager(path)
	require.NoError(t, err)
	got, found := restarted.GetProcess(p.ID)
	require.True(t, found)
	assert.Equal(t, internal.ProcessStatusFailed, got.Status)
	assert.Equal(t, "Process interrupted by service restart", got.Message)
}

func TestProcessManager_ListNewestFirstAndCleanup(t *testing.T) {
	pm, err := internal.NewProcessManager(filepath.Join(t.TempDir(), "processes.json"))
	require.NoError(t, err)

	first, err := pm.NewProcess(internal.ProcessTypeCombinePDF, "A", "v1", 1)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := pm.NewProcess(internal.ProcessTypeCombineCBZ, "B", "v1", 1)
	require.NoError(t, err)

	list := pm.ListProcesses()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	_, err = pm.CompleteProcess(first.ID, "/out/a.pdf", nil)
	require.NoError(t, err)
	_, err = pm.UpdateProcess(first.ID, func(p *internal.Process) {
		p.EndTime = time.Now().Add(-48 * time.Hour)
	})
	require.NoError(t, err)

	require.NoError(t, pm.CleanupOldProcesses(24*time.Hour))
	list = pm.ListProcesses()
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestNewProcessManager_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processes.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := internal.NewProcessManager(path)
	assert.Error(t, err)
}
