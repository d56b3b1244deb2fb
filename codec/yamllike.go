package codec

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/devconf/types"
)

// parseYAMLLike reads a two-level mapping: top-level "section:" lines with indented
// "key: value" children, plus top-level "key: value" scalars. A "key:" with nothing
// nested under it is an entry with an empty value. Anything deeper or otherwise shaped
// is kept as an opaque line.
func parseYAMLLike(raw string) ([]line, error) {
	if err := validateYAML(raw); err != nil {
		return nil, err
	}
	rawLines := splitLines(raw)
	lines := make([]line, 0, len(rawLines))
	section := ""
	childIndent := -1
	for n, r := range rawLines {
		trimmed := strings.TrimSpace(r)
		if trimmed == "" {
			lines = append(lines, line{kind: kindBlank, raw: r})
			continue
		}
		ws := r[:len(r)-len(strings.TrimLeft(r, " \t"))]
		if strings.HasPrefix(trimmed, "#") {
			lines = append(lines, line{kind: kindComment, raw: r, indent: ws})
			continue
		}
		if strings.Contains(ws, "\t") {
			return nil, &SyntaxError{Dialect: types.DialectYAMLLike, Line: n + 1, Msg: "tab in indentation"}
		}
		opaque := line{kind: kindOther, raw: r, indent: ws}
		content := r[len(ws):]
		if isSequenceItem(content) || trimmed == "---" || trimmed == "..." {
			if ws == "" {
				section = ""
			}
			lines = append(lines, opaque)
			continue
		}
		l, ok := parseYAMLEntry(r, len(ws))
		if !ok {
			if ws == "" {
				section = ""
			}
			lines = append(lines, opaque)
			continue
		}
		nextIndent, nextContent, hasNext := nextContentLine(rawLines, n)
		if ws == "" {
			section = ""
			switch {
			case strings.Contains(l.key, "."):
				// would read as "section.key"
				lines = append(lines, opaque)
			case l.value == "" && hasNext && nextIndent > 0:
				section, childIndent = l.key, -1
				lines = append(lines, line{kind: kindSection, raw: r, key: l.key, indent: ws})
			case l.value == "" && hasNext && isSequenceItem(nextContent):
				lines = append(lines, opaque)
			default:
				lines = append(lines, l)
			}
			continue
		}
		if section == "" {
			lines = append(lines, opaque)
			continue
		}
		if childIndent < 0 {
			childIndent = len(ws)
		}
		if len(ws) != childIndent {
			lines = append(lines, opaque)
			continue
		}
		if l.value == "" && hasNext && (nextIndent > childIndent || (nextIndent == childIndent && isSequenceItem(nextContent))) {
			lines = append(lines, opaque)
			continue
		}
		l.section = section
		lines = append(lines, l)
	}
	return lines, nil
}

func isSequenceItem(content string) bool {
	return strings.HasPrefix(content, "- ") || strings.TrimRight(content, " \r") == "-"
}

// nextContentLine returns the indentation and text of the first line after n that is
// neither blank nor a comment.
func nextContentLine(rawLines []string, n int) (int, string, bool) {
	for _, r := range rawLines[n+1:] {
		trimmed := strings.TrimSpace(r)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		rest := strings.TrimLeft(r, " \t")
		return len(r) - len(rest), rest, true
	}
	return 0, "", false
}

func parseYAMLEntry(r string, indentLen int) (line, bool) {
	content := r[indentLen:]
	colon := mappingColon(content)
	if colon <= 0 {
		return line{}, false
	}
	key := strings.TrimRight(content[:colon], " ")
	if key == "" {
		return line{}, false
	}
	after := content[colon+1:]
	lead := len(after) - len(strings.TrimLeft(after, " \t"))
	body := after[lead:]
	value := strings.TrimRight(body[:commentStart(body)], " \t\r")
	valueStart := indentLen + colon + 1 + lead

	return line{
		kind:   kindEntry,
		raw:    r,
		key:    key,
		indent: r[:indentLen],
		sep:    r[indentLen+len(key) : valueStart],
		prefix: r[:valueStart],
		value:  value,
		suffix: body[len(value):],
	}, true
}

// mappingColon finds the ':' that ends a plain mapping key.
func mappingColon(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != ':' {
			continue
		}
		if i+1 == len(s) || s[i+1] == ' ' || s[i+1] == '\t' || s[i+1] == '\r' {
			return i
		}
	}
	return -1
}

// commentStart returns where an inline "# comment" begins in a value, or len(s).
func commentStart(s string) int {
	inSingle, inDouble := false, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && inDouble:
			i++
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == '#' && !inSingle && !inDouble:
			if i == 0 || s[i-1] == ' ' || s[i-1] == '\t' {
				return i
			}
		}
	}
	return len(s)
}

// validateYAML decodes into a generic value rather than a yaml.Node so that duplicate
// mapping keys are rejected too.
func validateYAML(raw string) error {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return &SyntaxError{Dialect: types.DialectYAMLLike, Msg: err.Error()}
	}
	return nil
}
