package rbs

import (
	"strings"
)

// ParseSignature parses a formal method signature of the shape
//
//	(String name, ?Integer age, size: Integer) -> User
//
// into a [Signature]. An optional leading generic parameter list
// ("[T] (T item) -> T") is stripped before parsing.
//
// Parameters come in three forms:
//
//   - positional: "String name" or "?String name"
//   - keyword: "name: String" or "?name: String"
//   - block: "^(User) -> bool" or "?{ (User) -> bool }",
//     recorded under [BlockParam]
//
// Input that does not match the overall "(params) -> return" shape
// yields a Signature with no params and no return.
func ParseSignature(sig string) Signature {
	out := Signature{Raw: strings.TrimSpace(sig)}
	s := stripGenericParams(out.Raw)

	if !strings.HasPrefix(s, "(") {
		return out
	}
	end := matchBracket(s, 0)
	if end < 0 {
		return out
	}
	paramList := s[1:end]
	rest := strings.TrimSpace(s[end+1:])
	if !strings.HasPrefix(rest, "->") {
		return out
	}
	ret := strings.TrimSpace(strings.TrimPrefix(rest, "->"))
	if ret != "" {
		out.Returns = &TypeInfo{Type: ret}
	}

	for _, part := range SplitTopLevel(paramList) {
		name, ti, ok := parseParam(part)
		if !ok {
			continue
		}
		if out.Params == nil {
			out.Params = make(map[string]TypeInfo)
		}
		out.Params[name] = ti
	}
	return out
}

func parseParam(part string) (name string, ti TypeInfo, ok bool) {
	part = strings.TrimSpace(part)
	if part == "" {
		return "", TypeInfo{}, false
	}

	optional := strings.HasPrefix(part, "?")
	body := strings.TrimSpace(strings.TrimPrefix(part, "?"))
	if body == "" {
		return "", TypeInfo{}, false
	}

	// Block parameter. A record type also opens with '{',
	// but only a block type contains an arrow.
	if body[0] == '^' || (body[0] == '{' && strings.Contains(body, "->")) {
		return BlockParam, TypeInfo{Type: body}, true
	}

	// Keyword parameter: "name: Type".
	if idx := keywordSplit(body); idx >= 0 {
		name := strings.TrimSpace(body[:idx])
		typ := strings.TrimSpace(body[idx+1:])
		if typ == "" {
			return "", TypeInfo{}, false
		}
		return name, TypeInfo{Type: typ}, true
	}

	// Positional parameter: "Type name".
	// The name is the final top-level space-separated token;
	// the type may itself contain spaces inside brackets.
	sp := lastTopLevelSpace(body)
	if sp < 0 {
		// A bare unnamed type. Nothing to key it by.
		return "", TypeInfo{}, false
	}
	typ := strings.TrimSpace(body[:sp])
	name = strings.TrimSpace(body[sp+1:])
	if typ == "" || !isIdent(name) {
		return "", TypeInfo{}, false
	}
	_ = optional // optionality is not part of the displayed type
	return name, TypeInfo{Type: typ}, true
}

// keywordSplit returns the index of the colon separating
// a keyword parameter name from its type, or -1 if the input
// is not a keyword parameter.
func keywordSplit(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':':
			// '::' is a namespace separator inside a type,
			// not a keyword delimiter.
			if i+1 < len(s) && s[i+1] == ':' {
				i++
				continue
			}
			if isIdent(s[:i]) {
				return i
			}
			return -1
		case c == ' ', c == '[', c == '{', c == '(':
			return -1
		}
	}
	return -1
}

// SplitTopLevel splits s on commas that are not nested inside
// [], {}, or () brackets. Parts are trimmed of surrounding
// whitespace and empty parts are dropped.
//
//	SplitTopLevel("a: String, b: Hash[Symbol, String]")
//	// => ["a: String", "b: Hash[Symbol, String]"]
func SplitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	flush := func(end int) {
		if p := strings.TrimSpace(s[start:end]); p != "" {
			parts = append(parts, p)
		}
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '{', '(':
			depth++
		case ']', '}', ')':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return parts
}

// ParseRecordType parses an RBS record type literal
//
//	{ file: String?, path: String? }
//
// into a key→type map. Optional-key markers ('?' prefixed or
// suffixed to the key) are dropped. Input not wrapped in braces
// returns nil.
func ParseRecordType(s string) map[string]string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil
	}
	s = strings.TrimSpace(s[1 : len(s)-1])

	var out map[string]string
	for _, pair := range SplitTopLevel(s) {
		pair = strings.TrimSpace(pair)
		idx := strings.Index(pair, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(pair[:idx])
		key = strings.TrimPrefix(key, "?")
		key = strings.TrimSuffix(key, "?")
		typ := strings.TrimSpace(pair[idx+1:])
		if key == "" || typ == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[key] = typ
	}
	return out
}

// BlockType is the parsed form of an RBS block signature.
type BlockType struct {
	// ParamTypes are the block's positional parameter types, in order.
	ParamTypes []string

	// ReturnType is the block's return type.
	ReturnType string
}

// ParseBlockType parses an RBS block type in either spelling:
//
//	^(User, Integer) -> bool
//	{ (User, Integer) -> bool }
//
// A leading '?' (optional block) is accepted. It reports ok=false
// if the input does not match either shape.
func ParseBlockType(s string) (bt BlockType, ok bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "?"))
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "^"))

	if !strings.HasPrefix(s, "(") {
		return BlockType{}, false
	}
	end := matchBracket(s, 0)
	if end < 0 {
		return BlockType{}, false
	}
	rest := strings.TrimSpace(s[end+1:])
	if !strings.HasPrefix(rest, "->") {
		return BlockType{}, false
	}
	bt.ReturnType = strings.TrimSpace(strings.TrimPrefix(rest, "->"))

	for _, p := range SplitTopLevel(s[1:end]) {
		if p = strings.TrimSpace(p); p != "" {
			bt.ParamTypes = append(bt.ParamTypes, p)
		}
	}
	return bt, true
}

// stripGenericParams removes a leading "[T, U]" generic parameter
// list from a signature, leaving "(...) -> ...".
func stripGenericParams(s string) string {
	if !strings.HasPrefix(s, "[") {
		return s
	}
	end := matchBracket(s, 0)
	if end < 0 {
		return s
	}
	return strings.TrimSpace(s[end+1:])
}

// matchBracket returns the index of the bracket closing the one
// at s[open], or -1 if it never closes. Any of ( [ { may open.
func matchBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// lastTopLevelSpace returns the index of the last space in s that
// is not nested inside brackets, or -1.
func lastTopLevelSpace(s string) int {
	depth := 0
	last := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ' ':
			if depth == 0 {
				last = i
			}
		}
	}
	return last
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
