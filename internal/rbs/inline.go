package rbs

import (
	"io"
	"log"
	"os"
	"regexp"
	"sort"
	"strings"
)

// InlineData is everything a [Scanner] collects
// from rbs-inline annotation comments in Ruby sources.
type InlineData struct {
	// Signatures maps namespace path -> method key -> signature.
	// Class-scope methods are keyed "self.<name>".
	Signatures map[string]map[string]Signature

	// FileNamespaces maps a source file to the namespace paths it
	// contributed annotations to. Partial-refresh invalidation uses
	// this to find namespaces affected by a changed file.
	FileNamespaces map[string][]string

	// AttrTypes maps namespace path -> attribute name -> type info,
	// collected from "attr_* name: Type" lines in @rbs! blocks and
	// from annotated Data.define members.
	AttrTypes map[string]map[string]TypeInfo

	// IvarTypes maps namespace path -> ivar name (without '@') -> type.
	IvarTypes map[string]map[string]string

	// Aliases maps namespace path -> type aliases declared
	// in @rbs! blocks.
	Aliases map[string][]TypeAlias
}

// NewInlineData returns an InlineData with all maps allocated.
func NewInlineData() *InlineData {
	return &InlineData{
		Signatures:     make(map[string]map[string]Signature),
		FileNamespaces: make(map[string][]string),
		AttrTypes:      make(map[string]map[string]TypeInfo),
		IvarTypes:      make(map[string]map[string]string),
		Aliases:        make(map[string][]TypeAlias),
	}
}

// Scanner collects rbs-inline annotations from Ruby source files.
type Scanner struct {
	// Log receives warnings for unreadable files.
	// If nil, warnings are dropped.
	Log *log.Logger
}

// Scan runs the scanner over the given files.
// Unreadable files are skipped with a warning;
// they never abort the scan.
func (s *Scanner) Scan(files []string) *InlineData {
	logger := s.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	data := NewInlineData()
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			logger.Printf("warning: skipping %s: %v", file, err)
			continue
		}
		s.scanSource(file, src, data)
	}
	return data
}

var (
	_nsOpenRe     = regexp.MustCompile(`^(\s*)(?:class|module)\s+([A-Z]\w*(?:::[A-Z]\w*)*)\s*(?:<[^#]*)?(?:#.*)?$`)
	_nsEndRe      = regexp.MustCompile(`^(\s*)end\b`)
	_dataOneRe    = regexp.MustCompile(`^(\s*)([A-Z]\w*)\s*=\s*(?:Data\.define|Struct\.new)\(.*\)\s*do\s*$`)
	_dataOpenRe   = regexp.MustCompile(`^(\s*)([A-Z]\w*)\s*=\s*(?:Data\.define|Struct\.new)\(\s*$`)
	_dataCloseRe  = regexp.MustCompile(`^\s*\)\s*do\s*$`)
	_dataFieldRe  = regexp.MustCompile(`^\s*:(\w+)\s*,?\s*(?:#:\s*(.+))?$`)
	_commentRe    = regexp.MustCompile(`^\s*#(.*)$`)
	_rbsBlockRe   = regexp.MustCompile(`^\s*@rbs!\s*$`)
	_rbsAnnRe     = regexp.MustCompile(`^\s*@rbs\s+(.+)$`)
	_rbsIvarRe    = regexp.MustCompile(`^@(\w+)\s*:\s*(.+)$`)
	_rbsKeyRe     = regexp.MustCompile(`^([*&]{0,2}\w+|return|raises)\s*:\s*(.+)$`)
	_blockAttrRe  = regexp.MustCompile(`^\s*attr_(?:accessor|reader|writer)\s+(\w+)\s*:\s*(.+)$`)
	_blockAliasRe = regexp.MustCompile(`^\s*type\s+(\w+)\s*=\s*(.+)$`)
	_blockIvarRe  = regexp.MustCompile(`^\s*@(\w+)\s*:\s*(.+)$`)
	_defRe        = regexp.MustCompile(`^(\s*)def\s+(self\.)?([A-Za-z_]\w*[?!=]?)`)
)

type nsFrame struct {
	parts  []string
	indent int
}

// inlineScan is the per-file state of the scanner.
type inlineScan struct {
	path string
	out  *InlineData

	stack []nsFrame

	// Pending "@rbs key: type -- desc" entries, in order of appearance.
	pending     map[string]TypeInfo
	pendingKeys []string

	// Method that annotations trailing its def line extend.
	lastNS, lastMethod string

	// Inside a "# @rbs!" annotation block.
	inBlock bool

	// Inside a multi-line "Name = Data.define(" ... ") do".
	dataName   string
	dataIndent int
	dataFields map[string]TypeInfo
	dataOrder  []string
}

func (s *Scanner) scanSource(path string, src []byte, out *InlineData) {
	sc := &inlineScan{path: path, out: out}
	for _, line := range strings.Split(string(src), "\n") {
		sc.line(strings.TrimRight(line, "\r"))
	}
}

func (sc *inlineScan) line(line string) {
	if sc.dataName != "" {
		sc.dataLine(line)
		return
	}

	if m := _commentRe.FindStringSubmatch(line); m != nil {
		sc.comment(m[1])
		return
	}

	// Any non-comment line ends an @rbs! block.
	sc.inBlock = false

	switch {
	case _defRe.MatchString(line):
		m := _defRe.FindStringSubmatch(line)
		name := m[3]
		if m[2] != "" {
			name = "self." + name
		}
		sc.flushPending(name)

	case _dataOneRe.MatchString(line):
		m := _dataOneRe.FindStringSubmatch(line)
		sc.clearPending()
		sc.push(nsFrame{parts: []string{m[2]}, indent: len(m[1])})

	case _dataOpenRe.MatchString(line):
		m := _dataOpenRe.FindStringSubmatch(line)
		sc.clearPending()
		sc.dataName = m[2]
		sc.dataIndent = len(m[1])
		sc.dataFields = make(map[string]TypeInfo)
		sc.dataOrder = nil

	case _nsOpenRe.MatchString(line):
		m := _nsOpenRe.FindStringSubmatch(line)
		sc.clearPending()
		sc.push(nsFrame{parts: strings.Split(m[2], "::"), indent: len(m[1])})

	case _nsEndRe.MatchString(line):
		m := _nsEndRe.FindStringSubmatch(line)
		sc.clearPending()
		sc.pop(len(m[1]))

	default:
		sc.clearPending()
	}
}

// dataLine consumes lines of a multi-line Data.define declaration.
// Member annotations (":name, #: Type") accumulate until the ") do"
// line pushes the synthesized namespace and flushes them.
func (sc *inlineScan) dataLine(line string) {
	if _dataCloseRe.MatchString(line) {
		sc.push(nsFrame{parts: []string{sc.dataName}, indent: sc.dataIndent})
		ns := sc.nsPath()
		for _, name := range sc.dataOrder {
			sc.setAttrType(ns, name, sc.dataFields[name])
		}
		sc.dataName = ""
		sc.dataFields = nil
		sc.dataOrder = nil
		return
	}
	if m := _dataFieldRe.FindStringSubmatch(line); m != nil {
		typ, desc := splitDesc(m[2])
		if _, ok := sc.dataFields[m[1]]; !ok {
			sc.dataOrder = append(sc.dataOrder, m[1])
		}
		sc.dataFields[m[1]] = TypeInfo{Type: typ, Desc: desc}
	}
}

// comment consumes the body of a comment line (text after '#').
func (sc *inlineScan) comment(body string) {
	if _rbsBlockRe.MatchString(body) {
		sc.inBlock = true
		return
	}

	if sc.inBlock {
		ns := sc.nsPath()
		switch {
		case _blockAttrRe.MatchString(body):
			m := _blockAttrRe.FindStringSubmatch(body)
			typ, desc := splitDesc(m[2])
			sc.setAttrType(ns, m[1], TypeInfo{Type: typ, Desc: desc})
		case _blockAliasRe.MatchString(body):
			m := _blockAliasRe.FindStringSubmatch(body)
			sc.out.Aliases[ns] = append(sc.out.Aliases[ns], TypeAlias{Name: m[1], Type: strings.TrimSpace(m[2])})
			sc.touch(ns)
		case _blockIvarRe.MatchString(body):
			m := _blockIvarRe.FindStringSubmatch(body)
			sc.setIvarType(ns, m[1], strings.TrimSpace(m[2]))
		}
		return
	}

	m := _rbsAnnRe.FindStringSubmatch(body)
	if m == nil {
		return // ordinary comment; pending entries survive
	}
	ann := strings.TrimSpace(m[1])

	if iv := _rbsIvarRe.FindStringSubmatch(ann); iv != nil {
		typ, _ := splitDesc(iv[2])
		sc.setIvarType(sc.nsPath(), iv[1], typ)
		return
	}

	kv := _rbsKeyRe.FindStringSubmatch(ann)
	if kv == nil {
		return
	}
	key := normalizeParamKey(kv[1])
	typ, desc := splitDesc(kv[2])

	// Annotations after the def line extend the method
	// that was just flushed.
	if sc.lastMethod != "" {
		sig := sc.out.Signatures[sc.lastNS][sc.lastMethod]
		applyPendingEntry(&sig, key, TypeInfo{Type: typ, Desc: desc})
		sig.Raw = rawFromParams(sig)
		if sc.out.Signatures[sc.lastNS] == nil {
			sc.out.Signatures[sc.lastNS] = make(map[string]Signature)
		}
		sc.out.Signatures[sc.lastNS][sc.lastMethod] = sig
		sc.touch(sc.lastNS)
		return
	}

	if sc.pending == nil {
		sc.pending = make(map[string]TypeInfo)
	}
	if _, ok := sc.pending[key]; !ok {
		sc.pendingKeys = append(sc.pendingKeys, key)
	}
	sc.pending[key] = TypeInfo{Type: typ, Desc: desc}
}

// flushPending turns the accumulated @rbs buffer into a signature
// for the named method in the current namespace. The buffer itself
// is consumed, but lastMethod is remembered so that annotations
// trailing the def line can still extend the signature.
func (sc *inlineScan) flushPending(method string) {
	ns := sc.nsPath()
	sc.lastNS, sc.lastMethod = ns, method
	if len(sc.pending) == 0 {
		return
	}

	var sig Signature
	for _, key := range sc.pendingKeys {
		applyPendingEntry(&sig, key, sc.pending[key])
	}
	sig.Raw = rawFromParams(sig)

	if sc.out.Signatures[ns] == nil {
		sc.out.Signatures[ns] = make(map[string]Signature)
	}
	sc.out.Signatures[ns][method] = sig
	sc.touch(ns)

	sc.pending = nil
	sc.pendingKeys = nil
}

func (sc *inlineScan) clearPending() {
	sc.pending = nil
	sc.pendingKeys = nil
	sc.lastNS, sc.lastMethod = "", ""
}

func applyPendingEntry(sig *Signature, key string, ti TypeInfo) {
	switch key {
	case "return":
		sig.Returns = &TypeInfo{Type: ti.Type, Desc: ti.Desc}
	case "raises":
		sig.Raises = ti.Type
	default:
		if sig.Params == nil {
			sig.Params = make(map[string]TypeInfo)
		}
		sig.Params[key] = ti
	}
}

// rawFromParams synthesizes a display form for a signature built
// from an annotation buffer rather than parsed from a single string.
func rawFromParams(sig Signature) string {
	var sb strings.Builder
	sb.WriteByte('(')
	first := true
	for _, name := range sortedParamNames(sig.Params) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		if name == BlockParam {
			sb.WriteString(sig.Params[name].Type)
			continue
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(sig.Params[name].Type)
	}
	sb.WriteString(") -> ")
	if sig.Returns != nil {
		sb.WriteString(sig.Returns.Type)
	} else {
		sb.WriteString("void")
	}
	return sb.String()
}

// sortedParamNames returns parameter names in a stable display
// order: alphabetical, with the block parameter last.
func sortedParamNames(params map[string]TypeInfo) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		if name != BlockParam {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := params[BlockParam]; ok {
		names = append(names, BlockParam)
	}
	return names
}

// normalizeParamKey strips splat sigils from an annotation key and
// folds block keys onto the synthetic block parameter name.
func normalizeParamKey(key string) string {
	if strings.HasPrefix(key, "&") {
		return BlockParam
	}
	return strings.TrimLeft(key, "*")
}

// splitDesc splits an annotation value "Type -- description" on the
// first " -- " separator. Absent separator means no description.
func splitDesc(s string) (typ, desc string) {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, " -- "); idx >= 0 {
		return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+4:])
	}
	return s, ""
}

func (sc *inlineScan) push(f nsFrame) {
	sc.stack = append(sc.stack, f)
}

// pop closes the namespace frame opened at the given indent column.
// Frames nested deeper than the matched one are dropped with it,
// which recovers from unbalanced input.
func (sc *inlineScan) pop(indent int) {
	for i := len(sc.stack) - 1; i >= 0; i-- {
		if sc.stack[i].indent == indent {
			sc.stack = sc.stack[:i]
			return
		}
	}
}

func (sc *inlineScan) nsPath() string {
	var parts []string
	for _, f := range sc.stack {
		parts = append(parts, f.parts...)
	}
	return strings.Join(parts, "::")
}

func (sc *inlineScan) setAttrType(ns, name string, ti TypeInfo) {
	if sc.out.AttrTypes[ns] == nil {
		sc.out.AttrTypes[ns] = make(map[string]TypeInfo)
	}
	sc.out.AttrTypes[ns][name] = ti
	sc.touch(ns)
}

func (sc *inlineScan) setIvarType(ns, name, typ string) {
	if sc.out.IvarTypes[ns] == nil {
		sc.out.IvarTypes[ns] = make(map[string]string)
	}
	sc.out.IvarTypes[ns][name] = typ
	sc.touch(ns)
}

// touch records that this file contributed annotations to ns.
func (sc *inlineScan) touch(ns string) {
	if ns == "" {
		return
	}
	for _, have := range sc.out.FileNamespaces[sc.path] {
		if have == ns {
			return
		}
	}
	sc.out.FileNamespaces[sc.path] = append(sc.out.FileNamespaces[sc.path], ns)
}
