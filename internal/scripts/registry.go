package scripts

import (
	"strings"
	"sync"
)

// Filter reports whether a candidate entry point should be left out.
// name is the base name of the file.
type Filter struct {
	Name    string
	Exclude func(name string) bool
}

// BackupSuffix marks editor backup files, never installed.
const BackupSuffix = "~"

// Global registry for exclusion filters
var (
	filters = []Filter{
		{Name: "backup", Exclude: func(name string) bool { return strings.HasSuffix(name, BackupSuffix) }},
		{Name: "hidden", Exclude: func(name string) bool { return strings.HasPrefix(name, ".") }},
	}
	mu sync.RWMutex
)

// RegisterFilter adds an exclusion filter to the registry
func RegisterFilter(f Filter) {
	mu.Lock()
	defer mu.Unlock()
	filters = append(filters, f)
}

// Filters returns a copy of the registered filters
func Filters() []Filter {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Filter, len(filters))
	copy(out, filters)
	return out
}

// excludedBy returns the name of the first filter rejecting name, or "".
func excludedBy(name string) string {
	for _, f := range Filters() {
		if f.Exclude(name) {
			return f.Name
		}
	}
	return ""
}
