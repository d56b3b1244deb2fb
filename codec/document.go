package codec

import (
	"slices"
	"strings"

	"github.com/moyoez/devconf/types"
)

type lineKind int

const (
	kindBlank lineKind = iota
	kindComment
	kindSection
	kindEntry
	kindOther
)

// line keeps the exact source text. For entries raw == prefix + value + suffix.
type line struct {
	kind    lineKind
	raw     string
	section string
	key     string
	prefix  string
	value   string
	suffix  string
	sep     string // text between key and value, e.g. "=" or " = " or ": "
	indent  string
}

func (l line) fullKey() string {
	if l.section == "" {
		return l.key
	}
	return l.section + "." + l.key
}

// Document is a parsed config file. It is an immutable snapshot: edits return a new Document.
type Document struct {
	dialect types.Dialect
	lines   []line
	index   map[string]int
}

func newDocument(dialect types.Dialect, lines []line) *Document {
	d := &Document{dialect: dialect, lines: lines}
	d.reindex()
	return d
}

// reindex maps each key to its last occurrence, which owns the key.
func (d *Document) reindex() {
	d.index = make(map[string]int, len(d.lines))
	for i, l := range d.lines {
		if l.kind == kindEntry {
			d.index[l.fullKey()] = i
		}
	}
}

func (d *Document) clone() *Document {
	return newDocument(d.dialect, slices.Clone(d.lines))
}

func (d *Document) Dialect() types.Dialect {
	return d.dialect
}

// Get returns the effective value of key. Sectioned and yaml-like keys are addressed as "section.key".
func (d *Document) Get(key string) (string, bool) {
	i, ok := d.index[key]
	if !ok {
		return "", false
	}
	return d.lines[i].value, true
}

// Has reports whether key has an entry.
func (d *Document) Has(key string) bool {
	_, ok := d.index[key]
	return ok
}

// Entries returns the effective key/value pairs, ordered by the line that owns each key.
func (d *Document) Entries() []types.Change {
	out := make([]types.Change, 0, len(d.index))
	for i, l := range d.lines {
		if l.kind != kindEntry {
			continue
		}
		if d.index[l.fullKey()] != i {
			continue
		}
		out = append(out, types.Change{Key: l.fullKey(), Value: l.value})
	}
	return out
}

// Keys returns the effective keys in owning-line order.
func (d *Document) Keys() []string {
	entries := d.Entries()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// Sections returns section names in file order.
func (d *Document) Sections() []string {
	var out []string
	for _, l := range d.lines {
		if l.kind == kindSection && !slices.Contains(out, l.key) {
			out = append(out, l.key)
		}
	}
	return out
}

// Map returns the effective entries as a map.
func (d *Document) Map() map[string]string {
	m := make(map[string]string, len(d.index))
	for k, i := range d.index {
		m[k] = d.lines[i].value
	}
	return m
}

// Set returns a copy of the document with key set to value.
func (d *Document) Set(key, value string) (*Document, error) {
	return ApplyChanges(d, []types.Change{{Key: key, Value: value}})
}

// String serializes the document.
func (d *Document) String() string {
	return Serialize(d)
}

func (d *Document) hasSection(name string) bool {
	for _, l := range d.lines {
		if l.kind == kindSection && l.key == name {
			return true
		}
	}
	return false
}

// endInsertAt is where an appended line goes so that a trailing newline stays trailing.
func (d *Document) endInsertAt() int {
	n := len(d.lines)
	if n > 0 && d.lines[n-1].raw == "" {
		return n - 1
	}
	return n
}

func (d *Document) insert(at int, raws ...string) {
	added := make([]line, len(raws))
	for i, r := range raws {
		added[i] = line{kind: kindOther, raw: r}
	}
	d.lines = slices.Insert(d.lines, at, added...)
}

func splitLines(raw string) []string {
	return strings.Split(raw, "\n")
}
