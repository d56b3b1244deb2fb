package models

import (
	"slices"
	"strings"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/devconf/preset"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

// ApplyJobTTL is how long a finished background apply stays queryable.
const ApplyJobTTL = 30 * time.Minute

// ApplyJob tracks a preset application started with async=true.
type ApplyJob struct {
	ID       string               `json:"id"`
	Preset   string               `json:"preset"`
	Done     bool                 `json:"done"`
	Summary  types.AppliedSummary `json:"summary"`
	Error    string               `json:"error,omitempty"`
	Started  time.Time            `json:"started"`
	Finished time.Time            `json:"finished"`
}

var (
	applyJobs = ttlworker.NewCache[string, ApplyJob](ApplyJobTTL)

	presetsMu  sync.RWMutex
	presetsDir = "presets"
	presets    []*types.Preset
)

// StartApplyJob records a new running job and returns its id.
func StartApplyJob(name string) string {
	id := tool.GenerateRandomUUID()
	applyJobs.Set(id, ApplyJob{ID: id, Preset: name, Started: time.Now()})
	return id
}

// FinishApplyJob stores the outcome of job id.
func FinishApplyJob(id string, res preset.Result) {
	job := applyJobs.Get(id)
	if job.ID == "" {
		job = ApplyJob{ID: id, Preset: res.Summary.Preset}
	}
	job.Done = true
	job.Summary = res.Summary
	job.Finished = time.Now()
	if res.Err != nil {
		job.Error = res.Err.Error()
	}
	applyJobs.Set(id, job)
}

func GetApplyJob(id string) (ApplyJob, bool) {
	job := applyJobs.Get(id)
	return job, job.ID != ""
}

// SetPresetsDir sets where ReloadPresets looks.
func SetPresetsDir(dir string) {
	presetsMu.Lock()
	defer presetsMu.Unlock()
	if dir != "" {
		presetsDir = dir
	}
}

func GetPresetsDir() string {
	presetsMu.RLock()
	defer presetsMu.RUnlock()
	return presetsDir
}

// ReloadPresets reads the presets directory again.
func ReloadPresets() ([]*types.Preset, error) {
	dir := GetPresetsDir()
	loaded, err := preset.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	SetPresets(loaded)
	return loaded, nil
}

func SetPresets(list []*types.Preset) {
	presetsMu.Lock()
	defer presetsMu.Unlock()
	presets = slices.Clone(list)
}

func ListPresets() []*types.Preset {
	presetsMu.RLock()
	defer presetsMu.RUnlock()
	return slices.Clone(presets)
}

// FindPreset looks a preset up by name, ignoring case.
func FindPreset(name string) (*types.Preset, bool) {
	presetsMu.RLock()
	defer presetsMu.RUnlock()
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return nil, false
}
