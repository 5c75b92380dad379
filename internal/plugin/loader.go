package plugin

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// staticExtensions are documentation extensions loaded as static fragments.
var staticExtensions = map[string]bool{".md": true, ".txt": true}

// Load scans a stack's plugin directory and returns the discovered plugins,
// each kind sorted lexicographically by filename. A missing directory means
// no plugins, not an error.
func Load(pluginsDir string) (*Set, error) {
	set := &Set{}

	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(pluginsDir, name)
		switch ext := strings.ToLower(filepath.Ext(name)); {
		case staticExtensions[ext]:
			set.Static = append(set.Static, &staticPlugin{name: name, path: path})
		case ext == ".go":
			set.Dynamic = append(set.Dynamic, &scriptPlugin{name: name, path: path})
		}
	}
	return set, nil
}
