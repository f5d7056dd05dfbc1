package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/gradcafe-backend/internal/config"
	"github.com/stemsi/gradcafe-backend/internal/database"
	"github.com/stemsi/gradcafe-backend/internal/logger"
	"github.com/stemsi/gradcafe-backend/internal/repository"
	"github.com/stemsi/gradcafe-backend/internal/scraper"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "gradcafe",
	Short:        "gradcafe scrapes, cleans, loads and analyzes GradCafe admissions results.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		log = logger.Setup(cfg.LogLevel, cfg.LogFormat)
		return cfg.Validate()
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openRepository connects to Postgres. The returned func closes the pool.
func openRepository(ctx context.Context) (*repository.ApplicantRepository, func(), error) {
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewApplicantRepository(pool, cfg.TableName), pool.Close, nil
}

func newClient() *scraper.Client {
	return scraper.NewClient(cfg.Scraper, log)
}

// dataPath resolves bare file names against DATA_DIR.
func dataPath(name string) string {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(cfg.DataDir, name)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
