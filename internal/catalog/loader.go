// Package catalog loads competition records from YAML files and serves them as
// an ordered in-memory snapshot.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/terra-clan/compete-engine/internal/models"
	"github.com/terra-clan/compete-engine/internal/urgency"
)

// Source provides the current competition snapshot
type Source interface {
	Competitions(ctx context.Context) ([]models.Competition, error)
	Ping(ctx context.Context) error
}

// Finder is implemented by sources that can look up a single record without
// reading the whole catalog
type Finder interface {
	GetCompetition(ctx context.Context, id string) (*models.Competition, error)
}

// Querier is implemented by sources that can narrow the catalog before it is
// loaded. The result must keep the order of Competitions.
type Querier interface {
	ListCompetitions(ctx context.Context, q models.CatalogQuery) ([]models.Competition, error)
}

var validate = validator.New()

// Validate checks the struct tags of a competition record
func Validate(c *models.Competition) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid competition %q: %w", c.ID, err)
	}
	return nil
}

// Loader keeps competitions in load order
type Loader struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]models.Competition
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{
		byID: make(map[string]models.Competition),
	}
}

// LoadFromDir loads every *.yaml / *.yml file in dir and its direct subdirectories.
// Files are read in lexical order; invalid files and records are skipped with a warning.
func (l *Loader) LoadFromDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("failed to read catalog directory: %w", err)
	}

	slog.Info("loading catalog from directory", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)

		subMatches, err := filepath.Glob(filepath.Join(dir, "*", pattern))
		if err != nil {
			continue
		}
		files = append(files, subMatches...)
	}
	sort.Strings(files)

	loaded := 0
	for _, file := range files {
		n, err := l.LoadFromFile(file)
		if err != nil {
			slog.Warn("failed to load catalog file", "file", file, "error", err)
			continue
		}
		loaded += n
	}

	slog.Info("catalog loaded", "competitions", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads the competitions listed in one YAML file and returns how many were accepted
func (l *Loader) LoadFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return 0, fmt.Errorf("failed to parse YAML: %w", err)
	}

	loaded := 0
	for i := range cf.Competitions {
		c, err := cf.Competitions[i].toModel()
		if err != nil {
			slog.Warn("skipping competition", "file", path, "index", i, "error", err)
			continue
		}
		if err := l.Add(c); err != nil {
			slog.Warn("skipping competition", "file", path, "id", c.ID, "error", err)
			continue
		}
		loaded++
	}

	slog.Debug("catalog file loaded", "file", path, "count", loaded)
	return loaded, nil
}

// Add validates and stores a competition. Re-adding an id replaces it in place.
func (l *Loader) Add(c models.Competition) error {
	if err := Validate(&c); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byID[c.ID]; !exists {
		l.order = append(l.order, c.ID)
	}
	l.byID[c.ID] = c
	return nil
}

// Remove drops a competition by id
func (l *Loader) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byID[id]; !ok {
		return
	}
	delete(l.byID, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Get retrieves a competition by id
func (l *Loader) Get(id string) (models.Competition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.byID[id]
	return c, ok
}

// List returns all competitions in load order
func (l *Loader) List() []models.Competition {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]models.Competition, 0, len(l.order))
	for _, id := range l.order {
		result = append(result, l.byID[id])
	}
	return result
}

// Len returns the number of loaded competitions
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Competitions implements Source
func (l *Loader) Competitions(_ context.Context) ([]models.Competition, error) {
	return l.List(), nil
}

// Ping implements Source; an in-memory catalog is always ready
func (l *Loader) Ping(_ context.Context) error {
	return nil
}

// --- YAML file structs ---

// catalogFile represents the YAML structure of a catalog file
type catalogFile struct {
	Competitions []competitionFile `yaml:"competitions"`
}

// competitionFile keeps dates as strings so several layouts are accepted.
// The model skips its date fields in YAML.
type competitionFile struct {
	models.Competition `yaml:",inline"`
	StartDate          string `yaml:"start_date"`
	EndDate            string `yaml:"end_date"`
}

func (f competitionFile) toModel() (models.Competition, error) {
	c := f.Competition

	start, err := urgency.ParseTimestamp(f.StartDate)
	if err != nil {
		return models.Competition{}, fmt.Errorf("start_date of %q: %w", c.ID, err)
	}
	c.StartDate = start

	if f.EndDate != "" {
		end, err := urgency.ParseTimestamp(f.EndDate)
		if err != nil {
			return models.Competition{}, fmt.Errorf("end_date of %q: %w", c.ID, err)
		}
		c.EndDate = &end
	} else {
		c.EndDate = nil
	}

	return c, nil
}
