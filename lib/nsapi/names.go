package nsapi

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CleanFormat lowercases a nation or region name and replaces spaces with
// underscores, the form the game uses in URLs and dumps.
func CleanFormat(name string) string {
	// casers carry state, so one is made per call
	lowered := cases.Lower(language.Und).String(strings.TrimSpace(name))
	return strings.ReplaceAll(lowered, " ", "_")
}

// SameNation reports whether two strings reference the same nation.
func SameNation(first, second string) bool {
	return CleanFormat(first) == CleanFormat(second)
}

// Name is a nation or region name that compares by its clean format.
type Name string

func (n Name) Key() string {
	return CleanFormat(string(n))
}

func (n Name) Equal(other string) bool {
	return n.Key() == CleanFormat(other)
}

// NameSet is a set of names keyed by clean format. The first spelling
// added for a key is the one that is kept.
type NameSet map[string]string

func NewNameSet(names ...string) NameSet {
	set := make(NameSet, len(names))
	for _, n := range names {
		set.Add(n)
	}
	return set
}

func (s NameSet) Add(name string) {
	if name == "" {
		return
	}
	key := CleanFormat(name)
	if _, ok := s[key]; ok {
		return
	}
	s[key] = name
}

func (s NameSet) Has(name string) bool {
	_, ok := s[CleanFormat(name)]
	return ok
}

func (s NameSet) Remove(name string) {
	delete(s, CleanFormat(name))
}

// Intersect returns the names of s that are also in other.
func (s NameSet) Intersect(other NameSet) NameSet {
	out := make(NameSet)
	for key, name := range s {
		if _, ok := other[key]; ok {
			out[key] = name
		}
	}
	return out
}

// Difference returns the names of s that are not in other.
func (s NameSet) Difference(other NameSet) NameSet {
	out := make(NameSet)
	for key, name := range s {
		if _, ok := other[key]; !ok {
			out[key] = name
		}
	}
	return out
}

// Keys returns the clean formatted names, unordered.
func (s NameSet) Keys() []string {
	out := make([]string, 0, len(s))
	for key := range s {
		out = append(out, key)
	}
	return out
}

// Names returns the kept spellings ordered by clean format.
func (s NameSet) Names() []string {
	keys := s.Keys()
	slices.Sort(keys)
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = s[key]
	}
	return out
}

// NameList keeps names in the order they were first added, dropping later
// spellings of the same nation.
type NameList struct {
	seen  NameSet
	names []string
}

func (l *NameList) Add(names ...string) {
	if l.seen == nil {
		l.seen = NewNameSet()
	}
	for _, name := range names {
		if name == "" || l.seen.Has(name) {
			continue
		}
		l.seen.Add(name)
		l.names = append(l.names, name)
	}
}

func (l *NameList) Names() []string {
	return l.names
}

func (l *NameList) Len() int {
	return len(l.names)
}

// SplitList splits a delimited name list as returned by list shards,
// dropping empty entries.
func SplitList(list, sep string) []string {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, sep)
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
