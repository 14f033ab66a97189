package rubysrc

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"braces.dev/errtrace"
)

// Finder resolves configured root paths to Ruby source files.
type Finder struct {
	// Exclude lists directory names that are never descended into,
	// in addition to hidden directories.
	Exclude []string
}

// FindFiles walks the given roots and returns all .rb files,
// sorted and de-duplicated. A root that is itself a .rb file is
// included directly.
func (f *Finder) FindFiles(roots ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}

		if !info.IsDir() {
			if filepath.Ext(root) == ".rb" {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return errtrace.Wrap(err)
			}
			if d.IsDir() {
				if path != root && f.skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == ".rb" {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (f *Finder) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, ex := range f.Exclude {
		if name == ex {
			return true
		}
	}
	return false
}
