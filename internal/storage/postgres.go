package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/compete-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the underlying pool, e.g. for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const upsertCompetitionSQL = `
	INSERT INTO competitions (
		id, title, description, category, platform, start_date, end_date, difficulty,
		time_commitment, prize, tags, team_size, link, recruitment_potential,
		portfolio_value, company, location, skills_required, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW())
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		category = EXCLUDED.category,
		platform = EXCLUDED.platform,
		start_date = EXCLUDED.start_date,
		end_date = EXCLUDED.end_date,
		difficulty = EXCLUDED.difficulty,
		time_commitment = EXCLUDED.time_commitment,
		prize = EXCLUDED.prize,
		tags = EXCLUDED.tags,
		team_size = EXCLUDED.team_size,
		link = EXCLUDED.link,
		recruitment_potential = EXCLUDED.recruitment_potential,
		portfolio_value = EXCLUDED.portfolio_value,
		company = EXCLUDED.company,
		location = EXCLUDED.location,
		skills_required = EXCLUDED.skills_required,
		updated_at = NOW()
`

func upsertArgs(c *models.Competition) ([]interface{}, error) {
	var prizeJSON []byte
	if c.Prize != nil {
		var err error
		prizeJSON, err = json.Marshal(c.Prize)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal prize: %w", err)
		}
	}

	var start *time.Time
	if !c.StartDate.IsZero() {
		start = &c.StartDate
	}

	return []interface{}{
		c.ID,
		c.Title,
		c.Description,
		c.Category,
		c.Platform,
		nullTime(start),
		nullTime(c.EndDate),
		c.Difficulty,
		string(c.TimeCommitment),
		prizeJSON,
		nonNil(c.Tags),
		nullString(c.TeamSize),
		nullString(c.Link),
		c.RecruitmentPotential,
		c.PortfolioValue,
		nullString(c.Company),
		nullString(c.Location),
		nonNil(c.SkillsRequired),
	}, nil
}

// UpsertCompetition inserts or replaces a competition
func (r *PostgresRepository) UpsertCompetition(ctx context.Context, c *models.Competition) error {
	args, err := upsertArgs(c)
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, upsertCompetitionSQL, args...); err != nil {
		return fmt.Errorf("failed to upsert competition %s: %w", c.ID, err)
	}
	return nil
}

// UpsertCompetitions writes a batch in one transaction and returns the number of rows written
func (r *PostgresRepository) UpsertCompetitions(ctx context.Context, competitions []models.Competition) (int, error) {
	if len(competitions) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range competitions {
		args, err := upsertArgs(&competitions[i])
		if err != nil {
			return 0, err
		}
		batch.Queue(upsertCompetitionSQL, args...)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range competitions {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to upsert competition %s: %w", competitions[i].ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit competitions: %w", err)
	}
	return len(competitions), nil
}

var competitionColumns = []string{
	"id", "title", "description", "category", "platform", "start_date", "end_date",
	"difficulty", "time_commitment", "prize", "tags", "team_size", "link",
	"recruitment_potential", "portfolio_value", "company", "location", "skills_required",
}

// GetCompetition retrieves a competition by ID
func (r *PostgresRepository) GetCompetition(ctx context.Context, id string) (*models.Competition, error) {
	query := fmt.Sprintf(`SELECT %s FROM competitions WHERE id = $1`, strings.Join(competitionColumns, ", "))

	c, err := scanCompetition(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return c, nil
}

// DeleteCompetition removes a competition by ID
func (r *PostgresRepository) DeleteCompetition(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM competitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete competition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCompetitions runs the server-side prefilter described by q
func (r *PostgresRepository) ListCompetitions(ctx context.Context, q models.CatalogQuery) ([]models.Competition, error) {
	query, args, err := buildListQuery(q)
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	defer rows.Close()

	competitions := make([]models.Competition, 0)
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competition: %w", err)
		}
		competitions = append(competitions, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competitions: %w", err)
	}

	return competitions, nil
}

// Competitions returns the whole catalog; it makes the repository a catalog source
func (r *PostgresRepository) Competitions(ctx context.Context) ([]models.Competition, error) {
	return r.ListCompetitions(ctx, models.CatalogQuery{})
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func buildListQuery(q models.CatalogQuery) (string, []interface{}, error) {
	b := psql.Select(competitionColumns...).From("competitions")

	if q.Category != "" {
		b = b.Where(sq.Eq{"category": q.Category})
	}
	if q.Difficulty != "" {
		b = b.Where(sq.Eq{"difficulty": q.Difficulty})
	}
	if q.TimeCommitment != "" {
		b = b.Where(sq.Eq{"time_commitment": q.TimeCommitment})
	}
	if q.Platform != "" {
		b = b.Where(sq.Expr("LOWER(platform) = LOWER(?)", q.Platform))
	}
	if q.RecruitmentOnly {
		b = b.Where(sq.Eq{"recruitment_potential": true})
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		b = b.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
			sq.ILike{"platform": pattern},
			sq.Expr("EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE ?)", pattern),
		})
	}

	b = b.OrderBy("start_date ASC NULLS LAST", "id")

	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		b = b.Offset(uint64(q.Offset))
	}

	return b.ToSql()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanCompetition(row pgx.Row) (*models.Competition, error) {
	var c models.Competition
	var timeCommitment string
	var startDate, endDate sql.NullTime
	var teamSize, link, company, location sql.NullString
	var prizeJSON []byte

	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.Platform,
		&startDate,
		&endDate,
		&c.Difficulty,
		&timeCommitment,
		&prizeJSON,
		&c.Tags,
		&teamSize,
		&link,
		&c.RecruitmentPotential,
		&c.PortfolioValue,
		&company,
		&location,
		&c.SkillsRequired,
	)
	if err != nil {
		return nil, err
	}

	c.TimeCommitment = models.TimeCommitment(timeCommitment)
	c.TeamSize = teamSize.String
	c.Link = link.String
	c.Company = company.String
	c.Location = location.String

	// a NULL start date stays zero; the urgency classifier reports it
	if startDate.Valid {
		c.StartDate = startDate.Time.UTC()
	}
	if endDate.Valid {
		end := endDate.Time.UTC()
		c.EndDate = &end
	}

	if prizeJSON != nil {
		var prize models.Prize
		if err := json.Unmarshal(prizeJSON, &prize); err != nil {
			return nil, fmt.Errorf("failed to unmarshal prize: %w", err)
		}
		c.Prize = &prize
	}

	return &c, nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
