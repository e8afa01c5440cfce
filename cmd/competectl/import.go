package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/compete-engine/internal/models"
	"github.com/terra-clan/compete-engine/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the catalog into PostgreSQL",
	Long:  "Runs the database migrations and upserts every valid catalog record, or only the records selected with --id.",
	RunE:  runImport,
}

var removeCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Delete competitions from PostgreSQL",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

var (
	dbDSN     string
	importIDs []string
)

func init() {
	for _, cmd := range []*cobra.Command{importCmd, removeCmd} {
		cmd.Flags().StringVar(&dbDSN, "dsn", "", "PostgreSQL DSN (overrides DATABASE_DSN env var)")
	}
	importCmd.Flags().StringSliceVar(&importIDs, "id", nil, "Only import these competition ids")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(removeCmd)
}

func openRepository(ctx context.Context) (*storage.PostgresRepository, error) {
	dsn := dbDSN
	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
	}
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required (set DATABASE_DSN environment variable or use --dsn flag)")
	}

	if err := storage.MigrateFromDSN(ctx, dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: dsn})
}

// selectByID keeps the requested records in the order the ids were given
func selectByID(all []models.Competition, ids []string) ([]models.Competition, error) {
	byID := make(map[string]int, len(all))
	for i := range all {
		byID[all[i].ID] = i
	}

	out := make([]models.Competition, 0, len(ids))
	for _, id := range ids {
		i, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("competition %q is not in the catalog", id)
		}
		out = append(out, all[i])
	}
	return out, nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	competitions, err := loadCatalog()
	if err != nil {
		return err
	}

	var selected []models.Competition
	if len(importIDs) > 0 {
		if selected, err = selectByID(competitions, importIDs); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	repo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	if selected != nil {
		for i := range selected {
			if err := repo.UpsertCompetition(ctx, &selected[i]); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d competitions\n", len(selected))
		return nil
	}

	n, err := repo.UpsertCompetitions(ctx, competitions)
	if err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d competitions\n", n)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	repo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	removed := 0
	for _, id := range args {
		err := repo.DeleteCompetition(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "competition %s not found\n", id)
			continue
		}
		if err != nil {
			return err
		}
		removed++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed %d competitions\n", removed)
	return nil
}
