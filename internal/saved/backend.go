package saved

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Backend is the remote source of truth for the saved set
type Backend interface {
	Apply(ctx context.Context, op Op) error
	Snapshot(ctx context.Context) (Snapshot, error)
}

// PostgresBackend stores saved membership in the saved_competitions table.
// Writes are last-writer-wins on the operation timestamp, so replays and
// out-of-order deliveries never regress a newer row.
type PostgresBackend struct {
	db     *sql.DB
	userID string
}

// NewPostgresBackend opens a lib/pq connection and verifies it
func NewPostgresBackend(ctx context.Context, dsn, userID string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return NewPostgresBackendFromDB(db, userID), nil
}

// NewPostgresBackendFromDB wraps an existing handle
func NewPostgresBackendFromDB(db *sql.DB, userID string) *PostgresBackend {
	return &PostgresBackend{db: db, userID: userID}
}

// Apply upserts one operation
func (b *PostgresBackend) Apply(ctx context.Context, op Op) error {
	query := `
		INSERT INTO saved_competitions (user_id, competition_id, saved, updated_at, op_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, competition_id) DO UPDATE SET
			saved = EXCLUDED.saved,
			updated_at = EXCLUDED.updated_at,
			op_id = EXCLUDED.op_id
		WHERE saved_competitions.updated_at <= EXCLUDED.updated_at
	`

	_, err := b.db.ExecContext(ctx, query,
		b.userID, op.CompetitionID, op.Saved, op.At.UTC(), op.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to apply saved op %s: %w", op.ID, err)
	}
	return nil
}

// Snapshot reads the saved ids together with the database clock in one statement
func (b *PostgresBackend) Snapshot(ctx context.Context) (Snapshot, error) {
	query := `
		SELECT now(),
			COALESCE(array_agg(competition_id ORDER BY updated_at) FILTER (WHERE saved), '{}')
		FROM saved_competitions
		WHERE user_id = $1
	`

	var (
		asOf time.Time
		ids  pq.StringArray
	)
	if err := b.db.QueryRowContext(ctx, query, b.userID).Scan(&asOf, &ids); err != nil {
		return Snapshot{}, fmt.Errorf("failed to read saved snapshot: %w", err)
	}

	return Snapshot{IDs: []string(ids), AsOf: asOf.UTC()}, nil
}

// Forget deletes rows for the given competitions, e.g. after they left the catalog
func (b *PostgresBackend) Forget(ctx context.Context, competitionIDs []string) (int64, error) {
	if len(competitionIDs) == 0 {
		return 0, nil
	}

	res, err := b.db.ExecContext(ctx,
		`DELETE FROM saved_competitions WHERE user_id = $1 AND competition_id = ANY($2)`,
		b.userID, pq.Array(competitionIDs),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to forget saved competitions: %w", err)
	}
	return res.RowsAffected()
}

// HealthCheck verifies PostgreSQL connectivity
func (b *PostgresBackend) HealthCheck(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close closes the database handle
func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
