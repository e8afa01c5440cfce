// Package main implements competectl, an offline tool for querying a YAML competition catalog.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/terra-clan/compete-engine/internal/catalog"
	"github.com/terra-clan/compete-engine/internal/models"
	"github.com/terra-clan/compete-engine/internal/urgency"
)

var rootCmd = &cobra.Command{
	Use:           "competectl",
	Short:         "Query and import competition catalogs",
	Long:          "competectl filters, classifies and summarises a YAML competition catalog, and imports it into PostgreSQL.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	catalogDir string
	nowFlag    string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&catalogDir, "catalog", "c", "./catalog", "Catalog directory with YAML files")
	rootCmd.PersistentFlags().StringVar(&nowFlag, "now", "", "Evaluation instant (RFC 3339 or YYYY-MM-DD), defaults to the current time")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadCatalog() ([]models.Competition, error) {
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(catalogDir); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return loader.List(), nil
}

func evaluationTime() (time.Time, error) {
	if nowFlag == "" {
		return urgency.SystemClock{}.Now(), nil
	}
	t, err := urgency.ParseTimestamp(nowFlag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now: %w", err)
	}
	return t, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
