package codec

import (
	"strings"

	"github.com/moyoez/devconf/types"
)

// parseKV handles both key=value dialects. Only the sectioned one recognizes headers.
func parseKV(dialect types.Dialect, raw string) ([]line, error) {
	rawLines := splitLines(raw)
	lines := make([]line, 0, len(rawLines))
	section := ""
	for n, r := range rawLines {
		trimmed := strings.TrimSpace(r)
		switch {
		case trimmed == "":
			lines = append(lines, line{kind: kindBlank, raw: r})
			continue
		case strings.HasPrefix(trimmed, "#"), strings.HasPrefix(trimmed, ";"):
			lines = append(lines, line{kind: kindComment, raw: r})
			continue
		case dialect == types.DialectSectionedKV && strings.HasPrefix(trimmed, "["):
			if !strings.HasSuffix(trimmed, "]") {
				return nil, &SyntaxError{Dialect: dialect, Line: n + 1, Msg: "unterminated section header"}
			}
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if name == "" {
				return nil, &SyntaxError{Dialect: dialect, Line: n + 1, Msg: "empty section name"}
			}
			section = name
			lines = append(lines, line{kind: kindSection, raw: r, key: name})
			continue
		}
		l, ok := parseKVEntry(dialect, r)
		// a dotted key above the first header would read as "section.key"
		if !ok || (dialect == types.DialectSectionedKV && section == "" && strings.Contains(l.key, ".")) {
			lines = append(lines, line{kind: kindOther, raw: r})
			continue
		}
		l.section = section
		lines = append(lines, l)
	}
	return lines, nil
}

// parseKVEntry splits "  key = value  # note" keyed by the first '='. A comment needs
// whitespace before it; ';' starts one only in the sectioned dialect.
func parseKVEntry(dialect types.Dialect, r string) (line, bool) {
	eq := strings.IndexByte(r, '=')
	if eq < 0 {
		return line{}, false
	}
	keyPart := r[:eq]
	key := strings.TrimSpace(keyPart)
	if key == "" {
		return line{}, false
	}
	indentLen := len(keyPart) - len(strings.TrimLeft(keyPart, " \t"))
	keyEnd := indentLen + len(key)

	rest := r[eq+1:]
	lead := len(rest) - len(strings.TrimLeft(rest, " \t"))
	body := rest[lead:]
	markers := "#"
	if dialect == types.DialectSectionedKV {
		markers = "#;"
	}
	value := strings.TrimRight(body[:kvCommentStart(body, lead > 0, markers)], " \t\r")
	valueStart := eq + 1 + lead

	return line{
		kind:   kindEntry,
		raw:    r,
		key:    key,
		indent: r[:indentLen],
		sep:    r[keyEnd:valueStart],
		prefix: r[:valueStart],
		value:  value,
		suffix: body[len(value):],
	}, true
}

// kvCommentStart returns where a trailing comment begins in a value, or len(s). Quoted
// text never holds one. atStart tells whether whitespace precedes s.
func kvCommentStart(s string, atStart bool, markers string) int {
	inSingle, inDouble := false, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && !inSingle:
			i++
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case strings.IndexByte(markers, c) >= 0 && !inSingle && !inDouble:
			if (i == 0 && atStart) || (i > 0 && (s[i-1] == ' ' || s[i-1] == '\t')) {
				return i
			}
		}
	}
	return len(s)
}
