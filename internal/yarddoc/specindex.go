package yarddoc

import (
	"os"

	"braces.dev/errtrace"
	"gopkg.in/yaml.v3"
)

// SpecIndex maps method paths ("Ns#method" for instance methods,
// "Ns.method" for class methods) to usage material collected from an
// externally built spec suite index.
type SpecIndex struct {
	Entries map[string]SpecEntry
}

// SpecEntry is the usage material recorded for one method.
type SpecEntry struct {
	Examples  []string `yaml:"examples"`
	Behaviors []string `yaml:"behaviors"`
}

// LoadSpecIndex reads a YAML spec index file.
func LoadSpecIndex(path string) (*SpecIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	var entries map[string]SpecEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &SpecIndex{Entries: entries}, nil
}

// Lookup returns the entry for a method path. Safe on a nil index.
func (i *SpecIndex) Lookup(path string) (SpecEntry, bool) {
	if i == nil {
		return SpecEntry{}, false
	}
	entry, ok := i.Entries[path]
	return entry, ok
}
