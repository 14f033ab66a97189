package rbs

import (
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"braces.dev/errtrace"
)

// GeneratedData is everything a [DirLoader] collects from a
// directory of generated .rbs signature files.
type GeneratedData struct {
	// Signatures maps namespace path -> method key -> signature.
	// Class-scope methods are keyed "self.<name>".
	Signatures map[string]map[string]Signature

	// Ivars maps namespace path -> ivar name (without '@') -> type.
	Ivars map[string]map[string]string

	// Attrs maps namespace path -> attribute name -> type info.
	Attrs map[string]map[string]TypeInfo

	// Aliases maps namespace path -> declared type aliases.
	Aliases map[string][]TypeAlias

	// Overloads maps namespace path -> method key -> additional raw
	// signatures beyond the first.
	Overloads map[string]map[string][]string

	// Files maps namespace path -> the .rbs file that declares it.
	Files map[string]string
}

// NewGeneratedData returns a GeneratedData with all maps allocated.
func NewGeneratedData() *GeneratedData {
	return &GeneratedData{
		Signatures: make(map[string]map[string]Signature),
		Ivars:      make(map[string]map[string]string),
		Attrs:      make(map[string]map[string]TypeInfo),
		Aliases:    make(map[string][]TypeAlias),
		Overloads:  make(map[string]map[string][]string),
		Files:      make(map[string]string),
	}
}

// DirLoader reads generated .rbs signature files from a directory.
//
// Generated files are produced by an external codegen step and are
// authoritative over inline annotations once present.
type DirLoader struct {
	// Log receives warnings for unreadable files.
	// If nil, warnings are dropped.
	Log *log.Logger
}

// Load recursively reads all .rbs files under dir.
// A missing or empty directory yields an empty result, not an error.
func (l *DirLoader) Load(dir string) (*GeneratedData, error) {
	logger := l.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	data := NewGeneratedData()
	if dir == "" {
		return data, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return data, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errtrace.Wrap(err)
		}
		if d.IsDir() || filepath.Ext(path) != ".rbs" {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			logger.Printf("warning: skipping %s: %v", path, err)
			return nil
		}
		loadRBSSource(path, src, data)
		return nil
	})
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return data, nil
}

var (
	_rbsNsRe    = regexp.MustCompile(`^\s*(?:class|module|interface)\s+([A-Z]\w*(?:::[A-Z]\w*)*)`)
	_rbsEndRe   = regexp.MustCompile(`^\s*end\s*$`)
	_rbsIvarLn  = regexp.MustCompile(`^\s*@(\w+)\s*:\s*(.+)$`)
	_rbsAttrLn  = regexp.MustCompile(`^\s*attr_(?:reader|writer|accessor)\s+(\w+)\s*:\s*(.+)$`)
	_rbsAliasLn = regexp.MustCompile(`^\s*type\s+(\w+)\s*=\s*(.+)$`)
	_rbsDefLn   = regexp.MustCompile(`^\s*def\s+(self\.)?([A-Za-z_]\w*[?!=]?)\s*:\s*(.+)$`)
	_rbsContLn  = regexp.MustCompile(`^\s*\|\s*(.+)$`)
)

// rbsScan is the per-file state of the generated-file loader.
// The grammar is more regular than inline annotations:
// machine-written files indent consistently and close every
// namespace with a bare "end".
type rbsScan struct {
	path string
	out  *GeneratedData

	stack   []string
	comment []string // consecutive comment lines preceding a declaration

	// Most recent method declaration; repeated declarations and
	// '|' lines continue it as overloads.
	pendingMethod string
}

func loadRBSSource(path string, src []byte, out *GeneratedData) {
	sc := &rbsScan{path: path, out: out}
	for _, line := range strings.Split(string(src), "\n") {
		sc.line(strings.TrimRight(line, "\r"))
	}
}

func (sc *rbsScan) line(line string) {
	if m := _commentRe.FindStringSubmatch(line); m != nil {
		sc.comment = append(sc.comment, strings.TrimSpace(m[1]))
		return
	}

	switch {
	case _rbsNsRe.MatchString(line):
		m := _rbsNsRe.FindStringSubmatch(line)
		sc.stack = append(sc.stack, m[1])
		ns := sc.nsPath()
		if _, ok := sc.out.Files[ns]; !ok {
			sc.out.Files[ns] = sc.path
		}
		sc.pendingMethod = ""

	case _rbsEndRe.MatchString(line):
		if n := len(sc.stack); n > 0 {
			sc.stack = sc.stack[:n-1]
		}
		sc.pendingMethod = ""

	case _rbsDefLn.MatchString(line):
		m := _rbsDefLn.FindStringSubmatch(line)
		name := m[2]
		if m[1] != "" {
			name = "self." + name
		}
		sc.def(name, strings.TrimSpace(m[3]))

	case _rbsContLn.MatchString(line):
		m := _rbsContLn.FindStringSubmatch(line)
		sc.overload(strings.TrimSpace(m[1]))

	case _rbsAttrLn.MatchString(line):
		m := _rbsAttrLn.FindStringSubmatch(line)
		ns := sc.nsPath()
		if sc.out.Attrs[ns] == nil {
			sc.out.Attrs[ns] = make(map[string]TypeInfo)
		}
		sc.out.Attrs[ns][m[1]] = TypeInfo{
			Type: strings.TrimSpace(m[2]),
			Desc: sc.commentText(),
		}

	case _rbsAliasLn.MatchString(line):
		m := _rbsAliasLn.FindStringSubmatch(line)
		ns := sc.nsPath()
		sc.out.Aliases[ns] = append(sc.out.Aliases[ns], TypeAlias{
			Name: m[1],
			Type: strings.TrimSpace(m[2]),
			Desc: sc.commentText(),
		})

	case _rbsIvarLn.MatchString(line):
		m := _rbsIvarLn.FindStringSubmatch(line)
		ns := sc.nsPath()
		if sc.out.Ivars[ns] == nil {
			sc.out.Ivars[ns] = make(map[string]string)
		}
		sc.out.Ivars[ns][m[1]] = strings.TrimSpace(m[2])
	}

	sc.comment = nil
}

// def records a method signature, or an overload continuation if
// this method was already declared in the current file pass.
func (sc *rbsScan) def(name, raw string) {
	ns := sc.nsPath()
	if sc.pendingMethod == name {
		if _, ok := sc.out.Signatures[ns][name]; ok {
			sc.addOverload(ns, name, raw)
			return
		}
	}

	sig := ParseSignature(raw)
	sc.backfill(&sig)

	if sc.out.Signatures[ns] == nil {
		sc.out.Signatures[ns] = make(map[string]Signature)
	}
	sc.out.Signatures[ns][name] = sig
	sc.pendingMethod = name
}

// overload records a '|' continuation line for the pending method.
func (sc *rbsScan) overload(raw string) {
	if sc.pendingMethod == "" {
		return
	}
	sc.addOverload(sc.nsPath(), sc.pendingMethod, raw)
}

func (sc *rbsScan) addOverload(ns, name, raw string) {
	if sc.out.Overloads[ns] == nil {
		sc.out.Overloads[ns] = make(map[string][]string)
	}
	sc.out.Overloads[ns][name] = append(sc.out.Overloads[ns][name], raw)
}

// backfill copies per-parameter and per-return descriptions from
// "@rbs key: type -- desc" lines in the preceding comment block
// onto the parsed signature, matching entries by parameter name.
// The signature's own types stay authoritative.
func (sc *rbsScan) backfill(sig *Signature) {
	for _, c := range sc.comment {
		rest, ok := strings.CutPrefix(strings.TrimSpace(c), "@rbs ")
		if !ok {
			continue
		}
		m := _rbsKeyRe.FindStringSubmatch(strings.TrimSpace(rest))
		if m == nil {
			continue
		}

		key := normalizeParamKey(m[1])
		typ, desc := splitDesc(m[2])
		switch key {
		case "return":
			if desc != "" && sig.Returns != nil && sig.Returns.Desc == "" {
				sig.Returns.Desc = desc
			}
		case "raises":
			sig.Raises = typ
		default:
			if ti, ok := sig.Params[key]; ok && desc != "" && ti.Desc == "" {
				ti.Desc = desc
				sig.Params[key] = ti
			}
		}
	}
}

// commentText joins the pending comment block into description text,
// skipping @rbs machine annotations.
func (sc *rbsScan) commentText() string {
	var lines []string
	for _, c := range sc.comment {
		c = strings.TrimSpace(c)
		if strings.HasPrefix(c, "@rbs") {
			continue
		}
		lines = append(lines, c)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (sc *rbsScan) nsPath() string {
	return strings.Join(sc.stack, "::")
}
