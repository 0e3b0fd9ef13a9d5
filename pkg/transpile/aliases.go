package transpile

import (
	"strconv"
	"strings"
)

// aliasSet tracks the output aliases of a statement so generated aliases
// never collide with explicit ones.
type aliasSet struct {
	used map[string]bool
}

func newAliasSet() *aliasSet {
	return &aliasSet{used: make(map[string]bool)}
}

// reserve marks an explicit alias as taken.
func (a *aliasSet) reserve(alias string) {
	if alias != "" {
		a.used[strings.ToLower(alias)] = true
	}
}

// generate returns base, or base followed by the smallest numeric suffix
// that is still free: count, count1, count2, ...
func (a *aliasSet) generate(base string) string {
	base = strings.ToLower(base)
	candidate := base
	for i := 1; a.used[candidate]; i++ {
		candidate = base + strconv.Itoa(i)
	}
	a.used[candidate] = true
	return candidate
}
