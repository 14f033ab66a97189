package rubysrc

import (
	"strings"
)

// tagsWithArg are tags whose first token is a name argument
// rather than free text.
var tagsWithArg = map[string]bool{
	"param":      true,
	"yieldparam": true,
	"option":     true,
}

// ParseDoc splits a comment block into a docstring and YARD tags.
// lines are comment lines with the leading '#' already removed.
func ParseDoc(lines []string) Doc {
	var (
		doc     Doc
		desc    []string
		current *Tag // tag still accepting continuation lines
	)

	flush := func() {
		if current == nil {
			return
		}
		if current.Name == "example" {
			// The tag line held the title; the body is the
			// following lines, dedented together.
			title, body, _ := strings.Cut(current.Text, "\n")
			current.Arg = strings.TrimSpace(title)
			current.Text = dedent(body)
		} else {
			current.Text = strings.TrimSpace(current.Text)
		}
		doc.Tags = append(doc.Tags, *current)
		current = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "@") && !strings.HasPrefix(trimmed, "@rbs") {
			flush()
			tag := parseTagLine(trimmed)
			current = &tag
			continue
		}

		// rbs-inline annotations belong to the scanner, not the
		// docstring.
		if strings.HasPrefix(trimmed, "@rbs") {
			continue
		}

		switch {
		case current != nil && current.Name == "example":
			current.Text += "\n" + strings.TrimRight(line, " \t")
		case current != nil && trimmed != "":
			current.Text += "\n" + trimmed
		case current != nil && trimmed == "":
			flush()
		default:
			desc = append(desc, trimmed)
		}
	}
	flush()

	doc.Text = strings.TrimSpace(strings.Join(desc, "\n"))
	return doc
}

// dedent strips the longest common leading-space run from the
// non-blank lines of s, plus any surrounding blank lines.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return strings.Trim(s, "\n")
	}
	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		}
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// parseTagLine parses one "@tag ..." line.
func parseTagLine(line string) Tag {
	body := strings.TrimPrefix(line, "@")
	name, rest := splitWord(body)
	tag := Tag{Name: name}

	if tagsWithArg[name] {
		tag.Arg, rest = splitWord(rest)
	}

	if types, after, ok := cutBracketed(rest); ok {
		for _, t := range splitTypes(types) {
			if t = strings.TrimSpace(t); t != "" {
				tag.Types = append(tag.Types, t)
			}
		}
		rest = after
	}

	if tag.Name == "option" {
		key, after := splitWord(rest)
		tag.Key = strings.TrimPrefix(key, ":")
		rest = after
	}

	tag.Text = strings.TrimSpace(rest)
	return tag
}

// splitWord splits off the first whitespace-delimited word.
func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, " \t"); idx >= 0 {
		return s[:idx], strings.TrimSpace(s[idx+1:])
	}
	return s, ""
}

// cutBracketed extracts a leading "[...]" group, balancing nested
// brackets so types like Hash[Symbol, Array[String]] stay intact.
func cutBracketed(s string) (inner, rest string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return "", s, false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '{', '(':
			depth++
		case ']', '}', ')':
			depth--
			if depth == 0 {
				return s[1:i], strings.TrimSpace(s[i+1:]), true
			}
		}
	}
	return "", s, false
}

// splitTypes splits a bracket group on top-level commas.
func splitTypes(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '{', '(', '<':
			depth++
		case ']', '}', ')', '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}
