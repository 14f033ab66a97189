package yarddoc

import (
	"io"
	"log"
	"strings"

	"github.com/yard2md/yard2md/internal/rbs"
)

// Merger reconciles prose-tag type declarations with formal RBS
// signature types.
//
// The policy: the RBS type always wins when present; the prose type
// is only used where no RBS type exists. Descriptions merge
// independently: the longer one wins, ties go to the RBS-sourced
// description, since formal annotations sit next to the code and
// are the more likely to be current.
type Merger struct {
	// Log receives type-conflict warnings.
	// If nil, conflicts are resolved silently.
	Log *log.Logger
}

func (m *Merger) logger() *log.Logger {
	if m.Log != nil {
		return m.Log
	}
	return log.New(io.Discard, "", 0)
}

// MergeParams applies formal signature types onto prose-documented
// parameters. where is a display label for warnings,
// e.g. "App::User#save".
func (m *Merger) MergeParams(params []ParamDoc, sig rbs.Signature, where string) []ParamDoc {
	if len(sig.Params) == 0 {
		return params
	}

	out := make([]ParamDoc, len(params))
	for i, p := range params {
		key := p.Name
		if p.Prefix == "&" {
			key = rbs.BlockParam
		}
		ti, ok := sig.Param(key)
		if !ok {
			out[i] = p
			continue
		}

		if p.Type != "" && !Compatible(p.Type, ti.Type) {
			m.logger().Printf(
				"warning: %s: parameter %s: prose type %q conflicts with RBS type %q; using RBS",
				where, p.DisplayName(), p.Type, ti.Type)
		}

		p.Type = ti.Type
		p.Description = mergeDesc(p.Description, ti.Desc)
		out[i] = p
	}
	return out
}

// MergeReturn applies the formal return type onto the prose return.
//
// constructor marks initializer-style methods: RBS tooling reports
// constructors as returning void while the prose convention names
// the constructed type, so for constructors a formal "void" defers
// to a usable prose type.
func (m *Merger) MergeReturn(ret *ReturnDoc, sig rbs.Signature, where string, constructor bool) *ReturnDoc {
	if sig.Returns == nil {
		return ret
	}

	merged := ReturnDoc{}
	if ret != nil {
		merged = *ret
	}

	formal := sig.Returns.Type
	switch {
	case constructor && formal == "void" && merged.Type != "":
		// keep the prose type
	default:
		if merged.Type != "" && !Compatible(merged.Type, formal) {
			m.logger().Printf(
				"warning: %s: return: prose type %q conflicts with RBS type %q; using RBS",
				where, merged.Type, formal)
		}
		merged.Type = formal
	}
	merged.Description = mergeDesc(merged.Description, sig.Returns.Desc)

	if merged == (ReturnDoc{}) {
		return nil
	}
	return &merged
}

// mergeDesc picks between a prose and a formal description:
// the longer wins, ties go to the formal side, and an empty side
// always yields to the other.
func mergeDesc(prose, formal string) string {
	if formal == "" {
		return prose
	}
	if prose == "" {
		return formal
	}
	if len(prose) > len(formal) {
		return prose
	}
	return formal
}

// Compatible reports whether a prose type and a formal type agree
// closely enough to merge without a warning. This is diagnostic
// only; the merge outcome is the same either way.
func Compatible(prose, formal string) bool {
	p := normalizeType(prose)
	f := normalizeType(formal)

	if p == f {
		return true
	}

	// The formal type may be a more specific generic instantiation
	// of the prose type, e.g. Array vs Array[String].
	if strings.HasPrefix(f, p) {
		return true
	}

	// YARD convention writes Boolean; RBS spells it bool or boolish.
	if isBooleanProse(p) && (f == "bool" || f == "boolish") {
		return true
	}

	// A bare container name is compatible with its bracketed
	// instantiation in either direction.
	for _, container := range []string{"Hash", "Array"} {
		c := normalizeType(container)
		if (p == c && strings.HasPrefix(f, c+"[")) ||
			(f == c && strings.HasPrefix(p, c+"[")) {
			return true
		}
	}

	return false
}

// normalizeType strips whitespace and folds angle-bracket generics
// (Array<String>) into RBS bracket generics (Array[String]).
func normalizeType(t string) string {
	var sb strings.Builder
	for _, r := range t {
		switch r {
		case ' ', '\t':
		case '<':
			sb.WriteRune('[')
		case '>':
			sb.WriteRune(']')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func isBooleanProse(t string) bool {
	switch t {
	case "Boolean", "boolean", "Bool", "bool":
		return true
	}
	return false
}
