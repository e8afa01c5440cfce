//go:build integration

package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/compete-engine/internal/models"
	"github.com/terra-clan/compete-engine/internal/pgtest"
)

var testDSN string

func TestMain(m *testing.M) {
	ctx := context.Background()

	pg, err := pgtest.Start(ctx)
	if err != nil {
		fmt.Printf("Failed to start postgres: %v\n", err)
		os.Exit(1)
	}
	testDSN = pg.DSN

	if err := MigrateFromDSN(ctx, testDSN); err != nil {
		fmt.Printf("Failed to migrate: %v\n", err)
		pg.Stop(ctx)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(ctx); err != nil {
		fmt.Printf("Failed to stop postgres: %v\n", err)
	}
	os.Exit(code)
}

func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	ctx := context.Background()

	repo, err := NewPostgresRepository(ctx, PostgresConfig{DSN: testDSN, MaxOpenConns: 4, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Pool().Exec(context.Background(), `TRUNCATE competitions`)
		repo.Close()
	})
	return repo
}

func fixture(id, category string, start time.Time) models.Competition {
	return models.Competition{
		ID:             id,
		Title:          "Competition " + id,
		Category:       category,
		Platform:       "Kaggle",
		StartDate:      start,
		Difficulty:     "beginner",
		TimeCommitment: models.CommitmentMedium,
		Tags:           []string{"ml"},
	}
}

func TestPostgres_UpsertGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	end := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)
	c := fixture("spring-cup", "data_science", time.Time{})
	c.EndDate = &end
	c.Prize = &models.Prize{Type: "cash", Value: "10000", Currency: "USD"}
	c.Location = "Berlin"
	c.SkillsRequired = []string{"python", "sql"}
	require.NoError(t, repo.UpsertCompetition(ctx, &c))

	got, err := repo.GetCompetition(ctx, "spring-cup")
	require.NoError(t, err)
	assert.True(t, got.StartDate.IsZero(), "NULL start_date reads back as zero")
	require.NotNil(t, got.EndDate)
	assert.True(t, got.EndDate.Equal(end))
	assert.Equal(t, c.Prize, got.Prize)
	assert.Equal(t, "Berlin", got.Location)
	assert.Empty(t, got.Company)
	assert.Equal(t, []string{"python", "sql"}, got.SkillsRequired)

	c.Title = "Spring Cup"
	c.Prize = nil
	require.NoError(t, repo.UpsertCompetition(ctx, &c))

	got, err = repo.GetCompetition(ctx, "spring-cup")
	require.NoError(t, err)
	assert.Equal(t, "Spring Cup", got.Title)
	assert.Nil(t, got.Prize)

	require.NoError(t, repo.DeleteCompetition(ctx, "spring-cup"))
	_, err = repo.GetCompetition(ctx, "spring-cup")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteCompetition(ctx, "spring-cup"), ErrNotFound)
}

func TestPostgres_ListCompetitions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	hack := fixture("hack", "hackathons", base.Add(48*time.Hour))
	hack.RecruitmentPotential = true
	hack.Title = "100% Ready Hack"
	undated := fixture("undated", "hackathons", time.Time{})
	kaggle := fixture("kaggle", "data_science", base)
	kaggle.Tags = []string{"Vision"}

	n, err := repo.UpsertCompetitions(ctx, []models.Competition{hack, undated, kaggle})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ids := func(q models.CatalogQuery) []string {
		t.Helper()
		list, err := repo.ListCompetitions(ctx, q)
		require.NoError(t, err)
		out := make([]string, len(list))
		for i, c := range list {
			out[i] = c.ID
		}
		return out
	}

	assert.Equal(t, []string{"kaggle", "hack", "undated"}, ids(models.CatalogQuery{}), "earliest start first, NULL last")
	assert.Equal(t, []string{"hack", "undated"}, ids(models.CatalogQuery{Category: "hackathons"}))
	assert.Equal(t, []string{"hack"}, ids(models.CatalogQuery{RecruitmentOnly: true}))
	assert.Equal(t, []string{"kaggle"}, ids(models.CatalogQuery{Search: "vision"}), "tag match is case-insensitive")
	assert.Equal(t, []string{"hack"}, ids(models.CatalogQuery{Search: "100%"}), "LIKE wildcards are literal")
	assert.Equal(t, []string{"kaggle", "hack", "undated"}, ids(models.CatalogQuery{Platform: "kaggle"}))
	assert.Equal(t, []string{"hack"}, ids(models.CatalogQuery{Limit: 1, Offset: 1}))

	all, err := repo.Competitions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPostgres_UpsertCompetitionsRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	good := fixture("good", "hackathons", time.Now().UTC())
	bad := fixture("bad", "", time.Now().UTC())
	bad.Title = string([]byte{0}) // postgres rejects NUL in text

	_, err := repo.UpsertCompetitions(ctx, []models.Competition{good, bad})
	require.Error(t, err)

	_, err = repo.GetCompetition(ctx, "good")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, testDSN)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, RunMigrations(ctx, pool))
	require.NoError(t, RunMigrations(ctx, pool))

	var versions []int32
	rows, err := pool.Query(ctx, `SELECT version FROM schema_version ORDER BY version`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var v int32
		require.NoError(t, rows.Scan(&v))
		versions = append(versions, v)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int32{1, 2}, versions)
}
