// Package explore combines the catalog, the facet engine, the urgency classifier and
// the saved-items store into the views served by the API.
package explore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/terra-clan/compete-engine/internal/catalog"
	"github.com/terra-clan/compete-engine/internal/facet"
	"github.com/terra-clan/compete-engine/internal/models"
	"github.com/terra-clan/compete-engine/internal/saved"
	"github.com/terra-clan/compete-engine/internal/storage"
	"github.com/terra-clan/compete-engine/internal/urgency"
)

// Common errors
var (
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrUnknownQuickFilter  = errors.New("unknown quick filter")
	ErrInvalidSortKey      = errors.New("invalid sort key")
	ErrSyncDisabled        = errors.New("saved items sync is not configured")
)

// Defaults for the time windows
const (
	DefaultUpcomingDays = 7
)

// View is a competition decorated with its urgency and saved state.
// Exactly one of Urgency and UrgencyError is set.
type View struct {
	models.Competition
	Urgency      *urgency.Result `json:"urgency,omitempty"`
	UrgencyError string          `json:"urgencyError,omitempty"`
	Saved        bool            `json:"saved"`
}

// ListOptions controls List
type ListOptions struct {
	Filter    models.FilterSpec
	Sort      string // empty keeps catalog order
	Ascending bool
	Limit     int
	Offset    int
}

// ListResult is one page of filtered views
type ListResult struct {
	Competitions []View `json:"competitions"`
	Total        int    `json:"total"` // matches before paging
	Count        int    `json:"count"`
}

// Service defines the read and save operations over the catalog
type Service interface {
	List(ctx context.Context, opts ListOptions, now time.Time) (*ListResult, error)
	Get(ctx context.Context, id string, now time.Time) (*View, error)
	Views(ctx context.Context, spec models.FilterSpec, now time.Time) ([]View, error)
	Upcoming(ctx context.Context, days int, now time.Time) ([]View, error)
	Facets(ctx context.Context) (map[models.Field][]string, error)
	QuickFilters() []string
	Stats(ctx context.Context) (models.Stats, error)
	Saved(ctx context.Context, now time.Time) ([]View, error)
	Panic(ctx context.Context, days int, now time.Time) ([]View, error)
	Save(ctx context.Context, id string) error
	Unsave(ctx context.Context, id string) error
	Sync(ctx context.Context) (*saved.Report, error)
	Ping(ctx context.Context) error
}

// HealthCheck is a named dependency that Ping verifies after the catalog source
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Explorer implements Service
type Explorer struct {
	source    catalog.Source
	store     *saved.Store
	engine    *facet.Engine
	policy    urgency.Policy
	syncer    *saved.Syncer
	panicDays int
	checks    []HealthCheck
}

// Option configures an Explorer
type Option func(*Explorer)

// WithEngine sets the facet engine (default: built-in quick filters)
func WithEngine(engine *facet.Engine) Option {
	return func(e *Explorer) { e.engine = engine }
}

// WithPolicy sets the urgency thresholds
func WithPolicy(p urgency.Policy) Option {
	return func(e *Explorer) { e.policy = p }
}

// WithSyncer enables Sync
func WithSyncer(s *saved.Syncer) Option {
	return func(e *Explorer) { e.syncer = s }
}

// WithPanicDays sets the default panic room threshold
func WithPanicDays(days int) Option {
	return func(e *Explorer) {
		if days > 0 {
			e.panicDays = days
		}
	}
}

// WithHealthChecks adds dependencies to readiness, e.g. the saved sink and backend
func WithHealthChecks(checks ...HealthCheck) Option {
	return func(e *Explorer) { e.checks = append(e.checks, checks...) }
}

// New creates an Explorer
func New(source catalog.Source, store *saved.Store, opts ...Option) *Explorer {
	e := &Explorer{
		source:    source,
		store:     store,
		policy:    urgency.DefaultPolicy(),
		panicDays: urgency.DefaultPanicDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.engine == nil {
		e.engine = facet.NewEngine(nil)
	}
	return e
}

// Ping checks the catalog source and every registered health check.
// The first failure is returned, prefixed with the dependency name.
func (e *Explorer) Ping(ctx context.Context) error {
	if err := e.source.Ping(ctx); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	for _, hc := range e.checks {
		if err := hc.Check(ctx); err != nil {
			return fmt.Errorf("%s: %w", hc.Name, err)
		}
	}
	return nil
}

func (e *Explorer) competitions(ctx context.Context) ([]models.Competition, error) {
	list, err := e.source.Competitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load competitions: %w", err)
	}
	return list, nil
}

// List filters, optionally sorts and pages the catalog
func (e *Explorer) List(ctx context.Context, opts ListOptions, now time.Time) (*ListResult, error) {
	if err := e.checkQuickFilters(opts.Filter.QuickFilters); err != nil {
		return nil, err
	}

	var sortKey facet.SortKey
	if opts.Sort != "" {
		k, ok := facet.ParseSortKey(opts.Sort)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSortKey, opts.Sort)
		}
		sortKey = k
	}

	all, err := e.candidates(ctx, opts.Filter)
	if err != nil {
		return nil, err
	}

	matched := e.engine.Apply(all, opts.Filter, now)
	if sortKey != "" {
		matched = facet.Sort(matched, sortKey, opts.Ascending)
	}

	total := len(matched)
	page := paginate(matched, opts.Limit, opts.Offset)

	views := e.views(page, now)
	return &ListResult{
		Competitions: views,
		Total:        total,
		Count:        len(views),
	}, nil
}

// Views returns every match of spec, decorated, in catalog order
func (e *Explorer) Views(ctx context.Context, spec models.FilterSpec, now time.Time) ([]View, error) {
	if err := e.checkQuickFilters(spec.QuickFilters); err != nil {
		return nil, err
	}

	all, err := e.candidates(ctx, spec)
	if err != nil {
		return nil, err
	}
	return e.views(e.engine.Apply(all, spec, now), now), nil
}

// candidates loads the records spec can possibly match. Sources that support it
// get the single-valued facets and the placement preset as a prefilter; the engine
// still applies the full spec afterwards, so the prefilter only has to be a superset.
func (e *Explorer) candidates(ctx context.Context, spec models.FilterSpec) ([]models.Competition, error) {
	q, ok := e.source.(catalog.Querier)
	if !ok {
		return e.competitions(ctx)
	}

	query := Prefilter(spec)
	if query == (models.CatalogQuery{}) {
		return e.competitions(ctx)
	}

	list, err := q.ListCompetitions(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load competitions: %w", err)
	}
	return list, nil
}

// Prefilter translates the exact-match parts of spec into a catalog query.
// Search stays in the engine: SQL ILIKE and Go case folding disagree outside ASCII.
func Prefilter(spec models.FilterSpec) models.CatalogQuery {
	var q models.CatalogQuery
	if len(spec.Category) == 1 {
		q.Category = spec.Category[0]
	}
	if len(spec.Difficulty) == 1 {
		q.Difficulty = spec.Difficulty[0]
	}
	if len(spec.TimeCommitment) == 1 {
		q.TimeCommitment = spec.TimeCommitment[0]
	}
	for _, name := range spec.QuickFilters {
		if name == facet.QuickPlacement {
			q.RecruitmentOnly = true
		}
	}
	return q
}

func (e *Explorer) checkQuickFilters(names []string) error {
	quick := e.engine.QuickFilters()
	for _, name := range names {
		if name != "" && !quick.Has(name) {
			return fmt.Errorf("%w: %s", ErrUnknownQuickFilter, name)
		}
	}
	return nil
}

func paginate(list []models.Competition, limit, offset int) []models.Competition {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []models.Competition{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// Get returns a single decorated competition
func (e *Explorer) Get(ctx context.Context, id string, now time.Time) (*View, error) {
	c, err := e.find(ctx, id)
	if err != nil {
		return nil, err
	}
	v := e.view(*c, now)
	return &v, nil
}

func (e *Explorer) find(ctx context.Context, id string) (*models.Competition, error) {
	if f, ok := e.source.(catalog.Finder); ok {
		c, err := f.GetCompetition(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCompetitionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get competition: %w", err)
		}
		return c, nil
	}

	all, err := e.competitions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, ErrCompetitionNotFound
}

// Upcoming returns competitions starting within days of now, earliest first
func (e *Explorer) Upcoming(ctx context.Context, days int, now time.Time) ([]View, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}

	all, err := e.competitions(ctx)
	if err != nil {
		return nil, err
	}
	return e.views(facet.Upcoming(all, now, days), now), nil
}

// Facets returns the distinct values present per filterable field
func (e *Explorer) Facets(ctx context.Context) (map[models.Field][]string, error) {
	all, err := e.competitions(ctx)
	if err != nil {
		return nil, err
	}
	return facet.Facets(all), nil
}

// QuickFilters lists the registered quick filter names
func (e *Explorer) QuickFilters() []string {
	return e.engine.QuickFilters().List()
}

// Stats summarises the catalog
func (e *Explorer) Stats(ctx context.Context) (models.Stats, error) {
	all, err := e.competitions(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return facet.Summarize(all), nil
}

// Saved returns the saved competitions, oldest save first.
// Saved ids no longer in the catalog are skipped.
func (e *Explorer) Saved(ctx context.Context, now time.Time) ([]View, error) {
	list, err := e.savedCompetitions(ctx)
	if err != nil {
		return nil, err
	}
	return e.views(list, now), nil
}

func (e *Explorer) savedCompetitions(ctx context.Context) ([]models.Competition, error) {
	all, err := e.competitions(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]int, len(all))
	for i := range all {
		byID[all[i].ID] = i
	}

	ids := e.store.IDs()
	result := make([]models.Competition, 0, len(ids))
	for _, id := range ids {
		i, ok := byID[id]
		if !ok {
			slog.Debug("saved competition missing from catalog", "id", id)
			continue
		}
		result = append(result, all[i])
	}
	return result, nil
}

// Panic returns saved competitions due in fewer than days days (default from options)
func (e *Explorer) Panic(ctx context.Context, days int, now time.Time) ([]View, error) {
	if days <= 0 {
		days = e.panicDays
	}

	list, err := e.savedCompetitions(ctx)
	if err != nil {
		return nil, err
	}
	return e.views(urgency.PanicRoom(list, now, days), now), nil
}

// Save saves a competition that exists in the catalog
func (e *Explorer) Save(ctx context.Context, id string) error {
	if _, err := e.find(ctx, id); err != nil {
		return err
	}
	if err := e.store.Save(ctx, id); err != nil {
		return fmt.Errorf("failed to save competition: %w", err)
	}
	return nil
}

// Unsave removes a competition from the saved set. Ids that left the catalog
// can still be unsaved; unknown ids that were never saved are not found.
func (e *Explorer) Unsave(ctx context.Context, id string) error {
	if !e.store.IsSaved(id) {
		if _, err := e.find(ctx, id); err != nil {
			return err
		}
	}
	if err := e.store.Unsave(ctx, id); err != nil {
		return fmt.Errorf("failed to unsave competition: %w", err)
	}
	return nil
}

// Sync runs one reconciliation pass with the backend
func (e *Explorer) Sync(ctx context.Context) (*saved.Report, error) {
	if e.syncer == nil {
		return nil, ErrSyncDisabled
	}
	report, err := e.syncer.RunOnce(ctx)
	if err != nil {
		return &report, err
	}
	return &report, nil
}

func (e *Explorer) views(list []models.Competition, now time.Time) []View {
	views := make([]View, 0, len(list))
	for _, c := range list {
		views = append(views, e.view(c, now))
	}
	return views
}

func (e *Explorer) view(c models.Competition, now time.Time) View {
	v := View{
		Competition: c,
		Saved:       e.store.IsSaved(c.ID),
	}

	res, err := e.policy.Classify(c.StartDate, c.RecruitmentPotential, now)
	if err != nil {
		v.UrgencyError = err.Error()
		return v
	}
	v.Urgency = &res
	return v
}
