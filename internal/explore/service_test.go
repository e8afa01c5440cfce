package explore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/compete-engine/internal/facet"
	"github.com/terra-clan/compete-engine/internal/models"
	"github.com/terra-clan/compete-engine/internal/saved"
	"github.com/terra-clan/compete-engine/internal/urgency"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type staticSource struct {
	list []models.Competition
	err  error
}

func (s *staticSource) Competitions(context.Context) ([]models.Competition, error) {
	return s.list, s.err
}

func (s *staticSource) Ping(context.Context) error { return s.err }

func fixtures() []models.Competition {
	return []models.Competition{
		{ID: "cf", Title: "Codeforces Round", Category: "coding_contests", Difficulty: "intermediate",
			Platform: "Codeforces", StartDate: now.Add(10 * time.Hour), PortfolioValue: 30},
		{ID: "kaggle", Title: "LLM Science Exam", Category: "data_science", Difficulty: "expert",
			Platform: "Kaggle", StartDate: now.AddDate(0, 0, 30), RecruitmentPotential: true, PortfolioValue: 90},
		{ID: "hack", Title: "AI Hackathon", Category: "hackathons", Difficulty: "beginner",
			Platform: "Devpost", StartDate: now.AddDate(0, 0, 2), PortfolioValue: 60},
		{ID: "tba", Title: "Date TBA", Category: "hackathons", Difficulty: "beginner"},
	}
}

func newExplorer(t *testing.T, opts ...Option) (*Explorer, *saved.Store) {
	t.Helper()
	store, err := saved.NewStore(context.Background(), saved.NewMemorySink(), urgency.NewFixedClock(now))
	require.NoError(t, err)
	return New(&staticSource{list: fixtures()}, store, opts...), store
}

func ids(views []View) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestList_FiltersAndDecorates(t *testing.T) {
	e, _ := newExplorer(t)

	res, err := e.List(context.Background(), ListOptions{
		Filter: models.FilterSpec{Difficulty: []string{"beginner", "intermediate"}},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, []string{"cf", "hack", "tba"}, ids(res.Competitions))
	assert.Equal(t, 3, res.Total)

	cf := res.Competitions[0]
	require.NotNil(t, cf.Urgency)
	assert.Equal(t, urgency.TierCritical, cf.Urgency.Tier)
	assert.Equal(t, "Ends Today", cf.Urgency.Label)

	hack := res.Competitions[1]
	require.NotNil(t, hack.Urgency)
	assert.Equal(t, urgency.TierUrgent, hack.Urgency.Tier)

	tba := res.Competitions[2]
	assert.Nil(t, tba.Urgency)
	assert.NotEmpty(t, tba.UrgencyError)
}

func TestList_SortAndPage(t *testing.T) {
	e, _ := newExplorer(t)

	res, err := e.List(context.Background(), ListOptions{
		Sort:   string(facet.SortByPortfolioValue),
		Limit:  2,
		Offset: 1,
	}, now)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, []string{"hack", "cf"}, ids(res.Competitions))

	res, err = e.List(context.Background(), ListOptions{Offset: 10}, now)
	require.NoError(t, err)
	assert.Empty(t, res.Competitions)
	assert.Equal(t, 4, res.Total)
}

func TestList_RejectsUnknownQuickFilterAndSort(t *testing.T) {
	e, _ := newExplorer(t)

	_, err := e.List(context.Background(), ListOptions{
		Filter: models.FilterSpec{QuickFilters: []string{"trending"}},
	}, now)
	assert.ErrorIs(t, err, ErrUnknownQuickFilter)

	_, err = e.List(context.Background(), ListOptions{Sort: "popularity"}, now)
	assert.ErrorIs(t, err, ErrInvalidSortKey)
}

func TestList_SourceError(t *testing.T) {
	store, err := saved.NewStore(context.Background(), saved.NewMemorySink(), nil)
	require.NoError(t, err)
	e := New(&staticSource{err: errors.New("db down")}, store)

	_, err = e.List(context.Background(), ListOptions{}, now)
	assert.Error(t, err)
	assert.Error(t, e.Ping(context.Background()))
}

func TestGet(t *testing.T) {
	e, _ := newExplorer(t)

	v, err := e.Get(context.Background(), "kaggle", now)
	require.NoError(t, err)
	assert.Equal(t, urgency.TierHiring, v.Urgency.Tier)

	_, err = e.Get(context.Background(), "missing", now)
	assert.ErrorIs(t, err, ErrCompetitionNotFound)
}

func TestSaveUnsaveAndPanic(t *testing.T) {
	ctx := context.Background()
	e, store := newExplorer(t)

	require.NoError(t, e.Save(ctx, "kaggle"))
	require.NoError(t, e.Save(ctx, "hack"))
	require.NoError(t, e.Save(ctx, "cf"))
	assert.ErrorIs(t, e.Save(ctx, "missing"), ErrCompetitionNotFound)

	views, err := e.Saved(ctx, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"kaggle", "hack", "cf"}, ids(views))
	for _, v := range views {
		assert.True(t, v.Saved)
	}

	panicViews, err := e.Panic(ctx, 0, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hack", "cf"}, ids(panicViews))

	require.NoError(t, e.Unsave(ctx, "hack"))
	assert.False(t, store.IsSaved("hack"))
	assert.ErrorIs(t, e.Unsave(ctx, "missing"), ErrCompetitionNotFound)
}

func TestUpcomingFacetsStatsQuickFilters(t *testing.T) {
	ctx := context.Background()
	e, _ := newExplorer(t)

	upcoming, err := e.Upcoming(ctx, 0, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"cf", "hack"}, ids(upcoming))

	facets, err := e.Facets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"coding_contests", "data_science", "hackathons"}, facets[models.FieldCategory])

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByCategory["hackathons"])

	assert.Contains(t, e.QuickFilters(), facet.QuickEndingSoon)
}

func TestViews_QuickFilter(t *testing.T) {
	e, _ := newExplorer(t)

	views, err := e.Views(context.Background(), models.FilterSpec{QuickFilters: []string{facet.QuickEndingSoon}}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"cf", "hack"}, ids(views))
}

func TestSync_DisabledWithoutSyncer(t *testing.T) {
	e, _ := newExplorer(t)

	_, err := e.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncDisabled)
}

func TestPing_RunsHealthChecks(t *testing.T) {
	var redisErr error
	e, _ := newExplorer(t, WithHealthChecks(
		HealthCheck{Name: "saved sink", Check: func(context.Context) error { return redisErr }},
		HealthCheck{Name: "saved backend", Check: func(context.Context) error { return nil }},
	))

	require.NoError(t, e.Ping(context.Background()))

	redisErr = errors.New("connection refused")
	err := e.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, redisErr)
	assert.Contains(t, err.Error(), "saved sink")
}
