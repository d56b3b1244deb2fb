// Package codec parses and writes the device config dialects while keeping
// every byte that an edit does not touch.
package codec

import (
	"fmt"
	"strings"

	"github.com/moyoez/devconf/types"
)

// Parse reads raw into a Document of the given dialect.
func Parse(dialect types.Dialect, raw string) (*Document, error) {
	if i := strings.IndexByte(raw, 0); i >= 0 {
		return nil, &SyntaxError{Dialect: dialect, Line: strings.Count(raw[:i], "\n") + 1, Msg: "NUL byte in text content"}
	}
	var (
		lines []line
		err   error
	)
	switch dialect {
	case types.DialectLineKV, types.DialectSectionedKV:
		lines, err = parseKV(dialect, raw)
	case types.DialectYAMLLike:
		lines, err = parseYAMLLike(raw)
	default:
		return nil, &SyntaxError{Dialect: dialect, Msg: "unsupported dialect"}
	}
	if err != nil {
		return nil, err
	}
	return newDocument(dialect, lines), nil
}

// Serialize writes the document back to text. An unmodified document yields its source bytes.
func Serialize(doc *Document) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	for i, l := range doc.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.raw)
	}
	return b.String()
}

// Validate reports whether raw parses in the dialect.
func Validate(dialect types.Dialect, raw string) error {
	_, err := Parse(dialect, raw)
	return err
}

// Equal reports whether two documents have the same dialect and text.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.dialect == b.dialect && Serialize(a) == Serialize(b)
}

// ApplyChanges returns a copy of doc with every change applied in order. Existing keys are
// rewritten in place, keeping the rest of their line; missing keys are appended to the end
// of their section. doc itself is never modified.
func ApplyChanges(doc *Document, changes []types.Change) (*Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidChange)
	}
	out := doc.clone()
	for _, ch := range changes {
		if err := validateChange(out.dialect, ch); err != nil {
			return nil, err
		}
		if i, ok := out.index[ch.Key]; ok {
			out.lines[i] = out.lines[i].withValue(ch.Value)
			continue
		}
		if out.dialect == types.DialectYAMLLike && out.hasSection(ch.Key) {
			return nil, fmt.Errorf("%w: %q is a section", ErrInvalidChange, ch.Key)
		}
		next, err := out.appendEntry(ch)
		if err != nil {
			return nil, err
		}
		out = next
	}
	if out.dialect == types.DialectYAMLLike && len(changes) > 0 {
		if err := validateYAML(Serialize(out)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l line) withValue(value string) line {
	if value != "" && strings.HasSuffix(l.prefix, ":") {
		l.prefix += " "
	}
	suffix := l.suffix
	// an empty value left the comment directly after the separator
	if l.value == "" && value != "" && (strings.HasPrefix(suffix, "#") || strings.HasPrefix(suffix, ";")) {
		suffix = " " + suffix
	}
	l.value = value
	l.suffix = suffix
	l.raw = l.prefix + value + suffix
	return l
}

func validateChange(dialect types.Dialect, ch types.Change) error {
	if strings.TrimSpace(ch.Key) == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidChange)
	}
	if strings.ContainsAny(ch.Key, "\r\n") || strings.ContainsAny(ch.Value, "\r\n") {
		return fmt.Errorf("%w: %q spans lines", ErrInvalidChange, ch.Key)
	}
	if ch.Key != strings.TrimSpace(ch.Key) {
		return fmt.Errorf("%w: key %q has surrounding whitespace", ErrInvalidChange, ch.Key)
	}
	switch dialect {
	case types.DialectLineKV, types.DialectSectionedKV:
		if strings.Contains(ch.Key, "=") {
			return fmt.Errorf("%w: key %q contains '='", ErrInvalidChange, ch.Key)
		}
		if strings.HasPrefix(ch.Key, "#") || strings.HasPrefix(ch.Key, ";") || strings.HasPrefix(ch.Key, "[") {
			return fmt.Errorf("%w: key %q reads as a comment or header", ErrInvalidChange, ch.Key)
		}
	case types.DialectYAMLLike:
		if strings.Contains(ch.Key, ": ") || strings.HasSuffix(ch.Key, ":") ||
			strings.HasPrefix(ch.Key, "#") || strings.HasPrefix(ch.Key, "-") {
			return fmt.Errorf("%w: key %q is not a plain mapping key", ErrInvalidChange, ch.Key)
		}
	}
	return nil
}

// appendEntry adds a key that has no entry yet and re-reads the result so section
// bookkeeping stays consistent with the text.
func (d *Document) appendEntry(ch types.Change) (*Document, error) {
	out := d.clone()
	section, local := "", ch.Key
	if out.dialect != types.DialectLineKV {
		if s, k, ok := strings.Cut(ch.Key, "."); ok && s != "" && k != "" {
			section, local = s, k
		}
	}
	sep := out.separatorFor(section)
	scalar, isScalar := -1, false
	if section != "" && out.dialect == types.DialectYAMLLike {
		scalar, isScalar = out.index[section]
		if isScalar && out.lines[scalar].value != "" {
			return nil, fmt.Errorf("%w: %q holds a value, not a section", ErrInvalidChange, section)
		}
	}
	switch {
	case section == "":
		out.insert(out.globalInsertAt(), local+sep+ch.Value)
	case out.hasSection(section):
		at, indent := out.sectionInsertAt(section)
		out.insert(at, indent+local+sep+ch.Value)
	case isScalar:
		// an empty "section:" turns into a header once a child follows it
		out.insert(scalar+1, "  "+local+sep+ch.Value)
	default:
		header, indent := "["+section+"]", ""
		if out.dialect == types.DialectYAMLLike {
			header, indent = section+":", "  "
		}
		out.insert(out.endInsertAt(), header, indent+local+sep+ch.Value)
	}
	return Parse(out.dialect, Serialize(out))
}

func (d *Document) separatorFor(section string) string {
	var last, inSection string
	for _, l := range d.lines {
		// "key:" with no value carries no spacing to copy
		if l.kind != kindEntry || l.value == "" {
			continue
		}
		last = l.sep
		if l.section == section {
			inSection = l.sep
		}
	}
	switch {
	case inSection != "":
		return inSection
	case last != "":
		return last
	case d.dialect == types.DialectYAMLLike:
		return ": "
	default:
		return "="
	}
}

// globalInsertAt places an unsectioned key after the unsectioned block, which in the
// sectioned dialects ends at the first header.
func (d *Document) globalInsertAt() int {
	for i, l := range d.lines {
		if l.kind != kindSection {
			continue
		}
		j := i
		for j > 0 && (d.lines[j-1].kind == kindBlank || d.lines[j-1].kind == kindComment) {
			j--
		}
		return j
	}
	return d.endInsertAt()
}

// sectionInsertAt returns the index after the last content line of the section's last
// block and the indentation of its first child.
func (d *Document) sectionInsertAt(section string) (int, string) {
	header := -1
	for i, l := range d.lines {
		if l.kind == kindSection && l.key == section {
			header = i
		}
	}
	at, indent, seen := header+1, "", false
	if d.dialect == types.DialectYAMLLike {
		indent = "  "
	}
	for i := header + 1; i < len(d.lines); i++ {
		l := d.lines[i]
		if l.kind == kindSection {
			break
		}
		if d.dialect == types.DialectYAMLLike && l.kind != kindBlank && l.kind != kindComment && l.indent == "" {
			break
		}
		if l.kind == kindEntry || l.kind == kindOther {
			if !seen {
				seen = true
				indent = l.indent
			}
			at = i + 1
		}
	}
	return at, indent
}
