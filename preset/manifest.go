// Package preset loads preset manifests and applies them to a device.
package preset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

// ManifestName is the file LoadDir looks for in each preset folder.
const ManifestName = "preset.yaml"

// Load reads a manifest file and sets FolderPath to its directory.
func Load(path string) (*types.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := parse(path, data)
	if err != nil {
		return nil, err
	}
	p.FolderPath = filepath.Dir(path)
	return p, nil
}

// Parse decodes a manifest. File and key order are kept as written.
func Parse(data []byte) (*types.Preset, error) {
	return parse("", data)
}

// LoadDir loads every preset.yaml under dir, sorted by name. Broken manifests are logged and skipped.
func LoadDir(dir string) ([]*types.Preset, error) {
	var presets []*types.Preset
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != ManifestName {
			return nil
		}
		p, err := Load(path)
		if err != nil {
			if errors.Is(err, ErrMalformedPreset) {
				tool.DefaultLogger.Warnf("Skipping preset %s: %v", path, err)
				return nil
			}
			return err
		}
		presets = append(presets, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(presets, func(a, b *types.Preset) int {
		return strings.Compare(a.Name, b.Name)
	})
	tool.DefaultLogger.Debugf("Loaded %d presets from %s", len(presets), dir)
	return presets, nil
}

func parse(source string, data []byte) (*types.Preset, error) {
	fail := func(format string, args ...any) error {
		return &ManifestError{Source: source, Msg: fmt.Sprintf(format, args...)}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ManifestError{Source: source, Msg: "invalid yaml", Err: err}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fail("top level must be a mapping")
	}

	p := &types.Preset{}
	top := root.Content[0]
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i].Value, top.Content[i+1]
		var err error
		switch key {
		case "name":
			p.Name, err = scalar(key, val)
		case "category":
			p.Category, err = scalar(key, val)
		case "author":
			p.Author, err = scalar(key, val)
		case "status":
			p.Status, err = scalar(key, val)
		case "description":
			p.Description, err = scalar(key, val)
		case "state":
			p.State, err = scalar(key, val)
		case "sensor":
			p.Sensor, err = scalar(key, val)
		case "tags":
			p.Tags, err = tags(val)
		case "files":
			p.Files, err = files(val)
		}
		if err != nil {
			return nil, &ManifestError{Source: source, Msg: key, Err: err}
		}
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, fail("name is required")
	}
	if len(p.Files) == 0 {
		return nil, fail("files is empty")
	}
	return p, nil
}

func scalar(field string, n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%s must be a scalar", field)
	}
	if n.Tag == "!!null" {
		return "", nil
	}
	return n.Value, nil
}

// tags accepts a list or a comma separated string.
func tags(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			s, err := scalar("tag", c)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case yaml.ScalarNode:
		var out []string
		for t := range strings.SplitSeq(n.Value, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
		return out, nil
	}
	return nil, errors.New("tags must be a list")
}

func files(n *yaml.Node) ([]types.FileModification, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errors.New("files must be a mapping of file name to changes")
	}
	var out []types.FileModification
	seen := map[types.Category]bool{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, body := n.Content[i].Value, n.Content[i+1]
		category, ok := types.CategoryForFile(name)
		if !ok {
			return nil, fmt.Errorf("unknown file %q", name)
		}
		if seen[category] {
			return nil, fmt.Errorf("file %q listed twice", name)
		}
		seen[category] = true
		if body.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%s: changes must be a mapping", name)
		}
		mod := types.FileModification{File: name, Category: category}
		for j := 0; j+1 < len(body.Content); j += 2 {
			key := body.Content[j].Value
			value, err := scalar(name+"."+key, body.Content[j+1])
			if err != nil {
				return nil, err
			}
			mod.Changes = append(mod.Changes, types.Change{Key: key, Value: value})
		}
		out = append(out, mod)
	}
	return out, nil
}
