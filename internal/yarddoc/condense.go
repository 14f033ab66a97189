package yarddoc

import (
	"regexp"
	"strings"
)

var (
	_readerBodyRe = regexp.MustCompile(`^@([a-z_]\w*)$`)
	_writerBodyRe = regexp.MustCompile(`^@([a-z_]\w*)\s*=\s*[a-z_]\w*$`)
	_endlessRe    = regexp.MustCompile(`^\s*def\s+[a-z_]\w*=?\s*(?:\([^)]*\))?\s*=\s*(.+)$`)
)

// condenseSource inspects a method's source snippet: it counts the
// body lines between the definition header and its end, detects
// trivial accessor bodies, and rewrites those to a one-line form.
//
// nparams guards the detection: a reader takes no parameters and a
// writer exactly one, so anything else keeps AttrNone even when the
// body alone would match.
func condenseSource(name string, nparams int, source string) (out string, bodyLines int, kind AttrKind) {
	out = source
	lines := strings.Split(strings.TrimRight(source, "\n"), "\n")

	if len(lines) == 1 {
		// endless methods: def name = @name, def name=(v) = @name = v
		if m := _endlessRe.FindStringSubmatch(lines[0]); m != nil {
			switch k := classifyBody(name, strings.TrimSpace(m[1])); {
			case k == AttrReader && nparams == 0,
				k == AttrWriter && nparams == 1:
				return out, 0, k
			}
		}
		return out, 0, AttrNone
	}

	body := lines[1:]
	if strings.TrimSpace(body[len(body)-1]) == "end" {
		body = body[:len(body)-1]
	}
	bodyLines = len(body)

	var stmts []string
	for _, line := range body {
		if s := strings.TrimSpace(line); s != "" {
			stmts = append(stmts, s)
		}
	}
	if len(stmts) != 1 {
		return out, bodyLines, AttrNone
	}

	kind = classifyBody(name, stmts[0])
	switch {
	case kind == AttrReader && nparams != 0,
		kind == AttrWriter && nparams != 1:
		return out, bodyLines, AttrNone
	case kind != AttrNone:
		out = strings.TrimSpace(lines[0]) + "; " + stmts[0] + "; end"
	}
	return out, bodyLines, kind
}

// classifyBody matches a single-statement method body against the
// two trivial accessor shapes for the given method name.
func classifyBody(name, stmt string) AttrKind {
	if field, ok := strings.CutSuffix(name, "="); ok {
		if m := _writerBodyRe.FindStringSubmatch(stmt); m != nil && m[1] == field {
			return AttrWriter
		}
		return AttrNone
	}
	if m := _readerBodyRe.FindStringSubmatch(stmt); m != nil && m[1] == name {
		return AttrReader
	}
	return AttrNone
}
