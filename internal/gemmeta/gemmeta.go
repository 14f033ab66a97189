// Package gemmeta reads project metadata out of a .gemspec file.
// Only the simple assignment forms are recognized; a gemspec that
// computes its fields dynamically yields empty metadata.
package gemmeta

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"braces.dev/errtrace"
)

// Meta is the project metadata a gemspec declares.
type Meta struct {
	// Name is the gem name.
	Name string

	// Summary is the one-line gem summary.
	Summary string
}

// Loader finds and parses a gemspec.
type Loader struct {
	// Log receives warnings about unparseable gemspecs.
	// If nil, warnings are dropped.
	Log *log.Logger
}

// Load reads metadata from the first .gemspec in dir,
// in lexical order. A directory without one yields empty metadata
// and no error.
func (l *Loader) Load(dir string) (Meta, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.gemspec"))
	if err != nil {
		return Meta{}, errtrace.Wrap(err)
	}
	if len(paths) == 0 {
		return Meta{}, nil
	}
	sort.Strings(paths)

	data, err := os.ReadFile(paths[0])
	if err != nil {
		if l.Log != nil {
			l.Log.Printf("warning: cannot read %s: %v", paths[0], err)
		}
		return Meta{}, nil
	}

	return parse(string(data)), nil
}

var _assignRe = regexp.MustCompile(
	`^\s*\w+\.(name|summary)\s*=\s*(["'])(.*?)["']\s*$`)

func parse(src string) Meta {
	var meta Meta
	for _, line := range strings.Split(src, "\n") {
		m := _assignRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch m[1] {
		case "name":
			meta.Name = m[3]
		case "summary":
			meta.Summary = m[3]
		}
	}
	return meta
}
