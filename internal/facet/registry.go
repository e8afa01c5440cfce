package facet

import (
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/compete-engine/internal/models"
	"github.com/terra-clan/compete-engine/internal/urgency"
)

// Predicate decides whether a competition passes a quick filter at instant now
type Predicate func(c *models.Competition, now time.Time) bool

// Built-in quick filter names
const (
	QuickEndingSoon        = "endingSoon"
	QuickPlacement         = "placement"
	QuickBeginnerFriendly  = "beginnerFriendly"
	QuickAIML              = "aiMl"
	QuickCompetitiveCoding = "competitiveCoding"
	QuickHackathons        = "hackathons"
)

// DefaultEndingSoonDays is the inclusive upper bound of the endingSoon window
const DefaultEndingSoonDays = 7

// Registry maps quick filter names to predicates
type Registry struct {
	mu         sync.RWMutex
	predicates map[string]Predicate
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		predicates: make(map[string]Predicate),
	}
}

// DefaultRegistry returns a registry with the built-in presets
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(QuickEndingSoon, EndingSoon(DefaultEndingSoonDays))
	r.Register(QuickPlacement, Placement())
	r.Register(QuickBeginnerFriendly, DifficultyIs("beginner"))
	r.Register(QuickAIML, CategoryIs("data_science"))
	r.Register(QuickCompetitiveCoding, CategoryIs("coding_contests"))
	r.Register(QuickHackathons, CategoryIs("hackathons"))
	return r
}

// Register adds or replaces a preset
func (r *Registry) Register(name string, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = p
}

// Get retrieves a preset by name
func (r *Registry) Get(name string) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predicates[name]
	return p, ok
}

// Has reports whether a preset is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns all registered preset names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a preset
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.predicates, name)
}

// EndingSoon passes records whose days-until is within [0, maxDays]
func EndingSoon(maxDays int) Predicate {
	return func(c *models.Competition, now time.Time) bool {
		if c.StartDate.IsZero() {
			return false
		}
		days := urgency.DaysUntil(c.StartDate, now)
		return days >= 0 && days <= maxDays
	}
}

// Placement passes records with recruitment potential
func Placement() Predicate {
	return func(c *models.Competition, _ time.Time) bool {
		return c.RecruitmentPotential
	}
}

// DifficultyIs passes records with exactly the given difficulty
func DifficultyIs(difficulty string) Predicate {
	return func(c *models.Competition, _ time.Time) bool {
		return c.Difficulty == difficulty
	}
}

// CategoryIs passes records with exactly the given category
func CategoryIs(category string) Predicate {
	return func(c *models.Competition, _ time.Time) bool {
		return c.Category == category
	}
}
