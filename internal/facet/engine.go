// Package facet implements the client-side filtering pipeline over an in-memory
// competition snapshot: free-text search, multi-select facets and named quick filters.
package facet

import (
	"strings"
	"time"

	"github.com/terra-clan/compete-engine/internal/models"
)

// Engine applies filter specs to competition snapshots.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	quick *Registry
}

// NewEngine creates an engine backed by the given quick filter registry.
// A nil registry gets the built-in presets.
func NewEngine(quick *Registry) *Engine {
	if quick == nil {
		quick = DefaultRegistry()
	}
	return &Engine{quick: quick}
}

// QuickFilters exposes the registry, e.g. for listing presets
func (e *Engine) QuickFilters() *Registry {
	return e.quick
}

// Apply returns the records that satisfy every active constraint of spec, in input order.
// The input slice is never modified. Unknown facet values or quick filter names simply
// match nothing.
func (e *Engine) Apply(competitions []models.Competition, spec models.FilterSpec, now time.Time) []models.Competition {
	m := e.compile(spec)

	result := make([]models.Competition, 0, len(competitions))
	for i := range competitions {
		if m.match(&competitions[i], now) {
			result = append(result, competitions[i])
		}
	}
	return result
}

// Matches reports whether a single record passes spec
func (e *Engine) Matches(c *models.Competition, spec models.FilterSpec, now time.Time) bool {
	return e.compile(spec).match(c, now)
}

// matcher is a FilterSpec prepared once per Apply call
type matcher struct {
	search         string
	category       map[string]struct{}
	difficulty     map[string]struct{}
	timeCommitment map[string]struct{}
	quick          []Predicate
	unknownQuick   bool
}

func (e *Engine) compile(spec models.FilterSpec) matcher {
	m := matcher{
		search:         strings.ToLower(spec.Search),
		category:       toSet(spec.Category),
		difficulty:     toSet(spec.Difficulty),
		timeCommitment: toSet(spec.TimeCommitment),
	}

	for _, name := range spec.QuickFilters {
		if name == "" {
			continue
		}
		p, ok := e.quick.Get(name)
		if !ok {
			m.unknownQuick = true
			continue
		}
		m.quick = append(m.quick, p)
	}

	return m
}

func (m matcher) match(c *models.Competition, now time.Time) bool {
	if m.unknownQuick {
		return false
	}
	if m.search != "" && !matchesSearch(c, m.search) {
		return false
	}
	if !inSet(m.category, c.Category) {
		return false
	}
	if !inSet(m.difficulty, c.Difficulty) {
		return false
	}
	if !inSet(m.timeCommitment, string(c.TimeCommitment)) {
		return false
	}
	for _, p := range m.quick {
		if !p(c, now) {
			return false
		}
	}
	return true
}

// matchesSearch expects needle already lower-cased
func matchesSearch(c *models.Competition, needle string) bool {
	if strings.Contains(strings.ToLower(c.Title), needle) ||
		strings.Contains(strings.ToLower(c.Description), needle) ||
		strings.Contains(strings.ToLower(c.Platform), needle) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// toSet returns nil for an empty selection, which inSet treats as "no constraint"
func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, value string) bool {
	if set == nil {
		return true
	}
	_, ok := set[value]
	return ok
}
