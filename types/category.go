package types

import (
	"fmt"
	"path"
)

// Category is a logical config file on the device. It is also the ChangeBus topic.
type Category string

const (
	CategoryWifiBroadcast Category = "wifi-broadcast"
	CategoryScreenMode    Category = "screen-mode"
	CategoryWfbConf       Category = "wfb-conf"
	CategoryMajestic      Category = "majestic"
	CategoryTelemetry     Category = "telemetry"
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	CategoryWifiBroadcast,
	CategoryScreenMode,
	CategoryWfbConf,
	CategoryMajestic,
	CategoryTelemetry,
}

// Dialect is the textual format of a config file.
type Dialect int

const (
	DialectLineKV Dialect = iota
	DialectSectionedKV
	DialectYAMLLike
)

func (d Dialect) String() string {
	switch d {
	case DialectLineKV:
		return "line-kv"
	case DialectSectionedKV:
		return "sectioned-kv"
	case DialectYAMLLike:
		return "yaml-like"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// ConfigFile is where a category lives on the device and how it is written.
type ConfigFile struct {
	Category Category
	Path     string
	Dialect  Dialect
}

// FileName returns the base name used by preset manifests.
func (f ConfigFile) FileName() string {
	return path.Base(f.Path)
}

var configFiles = map[Category]ConfigFile{
	CategoryWifiBroadcast: {CategoryWifiBroadcast, "/etc/wifibroadcast.cfg", DialectSectionedKV},
	CategoryScreenMode:    {CategoryScreenMode, "/config/scripts/screen-mode", DialectLineKV},
	CategoryWfbConf:       {CategoryWfbConf, "/etc/wfb.conf", DialectLineKV},
	CategoryMajestic:      {CategoryMajestic, "/etc/majestic.yaml", DialectYAMLLike},
	CategoryTelemetry:     {CategoryTelemetry, "/etc/telemetry.conf", DialectLineKV},
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := configFiles[c]
	return ok
}

// File returns the remote location and dialect of the category.
func (c Category) File() (ConfigFile, bool) {
	f, ok := configFiles[c]
	return f, ok
}

// CategoryForFile resolves a manifest file name (or full remote path) to its category.
func CategoryForFile(name string) (Category, bool) {
	base := path.Base(name)
	for _, c := range Categories {
		f := configFiles[c]
		if name == f.Path || base == f.FileName() || name == string(c) {
			return c, true
		}
	}
	return "", false
}
