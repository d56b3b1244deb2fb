package types

// Change is one key/value edit inside a config file.
type Change struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// FileModification is the ordered set of edits a preset makes to one file.
type FileModification struct {
	File     string   `json:"file"`
	Category Category `json:"category"`
	Changes  []Change `json:"changes"`
}

// Preset is a named bundle of edits across config files. Read-only after load.
type Preset struct {
	Name        string             `json:"name"`
	Category    string             `json:"category"`
	Tags        []string           `json:"tags"`
	Author      string             `json:"author"`
	Status      string             `json:"status"`
	Description string             `json:"description"`
	State       string             `json:"state"`
	Sensor      string             `json:"sensor"`
	Files       []FileModification `json:"files"`
	// FolderPath is where the manifest was loaded from, empty for in-memory presets.
	FolderPath string `json:"folderPath,omitempty"`
}

// Touches reports whether the preset edits the given category.
func (p *Preset) Touches(c Category) bool {
	for _, f := range p.Files {
		if f.Category == c {
			return true
		}
	}
	return false
}

// AppliedSummary records what a preset application did on the device.
type AppliedSummary struct {
	Preset    string   `json:"preset"`
	Written   []string `json:"written"`
	Failed    []string `json:"failed,omitempty"`
	Restarted []string `json:"restarted,omitempty"`
}
