// Package filter selects the rows that plausibly represent the requested
// credit-default-swap reference and extracts one usable quote per row.
package filter

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// AliasSet is an immutable set of lowercase names treated as the same
// reference entity.
type AliasSet struct {
	set map[string]struct{}
}

// NewAliasSet builds a set from the given names, lowercased and trimmed.
func NewAliasSet(names ...string) AliasSet {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return AliasSet{set: set}
}

// Matches reports whether the (lowercased) entity cell equals or contains
// one of the aliases.
func (a AliasSet) Matches(entity string) bool {
	e := strings.ToLower(strings.TrimSpace(entity))
	if e == "" {
		return false
	}
	if _, ok := a.set[e]; ok {
		return true
	}
	for alias := range a.set {
		if strings.Contains(e, alias) {
			return true
		}
	}
	return false
}

// Names returns the aliases in sorted order.
func (a AliasSet) Names() []string {
	out := make([]string, 0, len(a.set))
	for n := range a.set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of aliases.
func (a AliasSet) Len() int { return len(a.set) }

// BuiltinAliasTable holds the known spellings the feed uses per reference
// entity, keyed by lowercase canonical name. Extend as new variants show up
// in the data.
func BuiltinAliasTable() map[string][]string {
	return map[string][]string{
		"united states of america": {
			"united states of america",
			"united states",
			"u.s. government",
			"us government",
			"u.s. sovereign",
			"usa",
			"u.s.a.",
		},
	}
}

// LoadAliasTable reads an alias table from a YAML file shaped as
// {canonical-name: [alias, ...]}. Keys and values are matched lowercase.
func LoadAliasTable(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "filter: read alias table %s", path)
	}
	var table map[string][]string
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, eris.Wrapf(err, "filter: parse alias table %s", path)
	}
	lowered := make(map[string][]string, len(table))
	for k, v := range table {
		lowered[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return lowered, nil
}

// ResolveAliases builds the alias set for a requested entity: the literal
// name plus any table entry for it. Resolved once per run.
func ResolveAliases(entity string, table map[string][]string) AliasSet {
	key := strings.ToLower(strings.TrimSpace(entity))
	names := []string{key}
	if table != nil {
		names = append(names, table[key]...)
	}
	return NewAliasSet(names...)
}
