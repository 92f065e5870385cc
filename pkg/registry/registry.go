// pkg/registry/registry.go

// Package registry loads and indexes the subject catalog: the mapping
// from metric names, codes and synonyms to star-schema placement.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Registry is an immutable, indexed view over a validated catalog.
// Build it once at startup and share it; lookups never mutate state.
type Registry struct {
	catalog *Catalog
	// byAlias maps every lowercased name, code and synonym to its
	// subject.
	byAlias map[string]*Subject
	// aliases holds the alias keys sorted by length descending, for
	// containment matching.
	aliases []string
}

// Load reads, validates and indexes a catalog file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subject catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates raw catalog JSON against the schema and builds the
// alias index.
func Parse(data []byte) (*Registry, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(catalogSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate subject catalog: %w", err)
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("subject catalog failed schema validation: %s", strings.Join(details, "; "))
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode subject catalog: %w", err)
	}

	r := &Registry{
		catalog: &catalog,
		byAlias: make(map[string]*Subject),
	}
	for i := range catalog.Subjects {
		s := &catalog.Subjects[i]
		for _, alias := range append([]string{s.Name, s.Code}, s.Synonyms...) {
			key := strings.ToLower(strings.TrimSpace(alias))
			if key == "" {
				continue
			}
			if prev, ok := r.byAlias[key]; ok && prev != s {
				return nil, fmt.Errorf("subject catalog: alias %q claimed by both %s and %s", alias, prev.ID, s.ID)
			}
			r.byAlias[key] = s
		}
	}
	for alias := range r.byAlias {
		r.aliases = append(r.aliases, alias)
	}
	// Longest alias first, with a lexicographic tiebreak to keep
	// containment matching deterministic.
	sort.Slice(r.aliases, func(i, j int) bool {
		li, lj := len([]rune(r.aliases[i])), len([]rune(r.aliases[j]))
		if li != lj {
			return li > lj
		}
		return r.aliases[i] < r.aliases[j]
	})
	return r, nil
}

// Version returns the catalog version string.
func (r *Registry) Version() string {
	return r.catalog.Version
}

// Subjects returns all registered subjects in catalog order.
func (r *Registry) Subjects() []Subject {
	return r.catalog.Subjects
}

// Resolve maps free text to a registered subject. An exact alias hit
// wins; otherwise the longest alias contained in the text (or
// containing it) is taken, so "GMV总和" still finds "GMV" and a short
// query fragment still finds its full metric name. The boolean is
// false when nothing matches.
func (r *Registry) Resolve(text string) (*Subject, bool) {
	key := strings.ToLower(strings.TrimSpace(text))
	if key == "" {
		return nil, false
	}
	if s, ok := r.byAlias[key]; ok {
		return s, true
	}
	for _, alias := range r.aliases {
		if strings.Contains(key, alias) || strings.Contains(alias, key) {
			return r.byAlias[alias], true
		}
	}
	return nil, false
}

// ResolveDimension returns the join metadata a subject registers for a
// canonical dimension name.
func (s *Subject) ResolveDimension(name string) (Dimension, bool) {
	d, ok := s.Dimensions[name]
	return d, ok
}
