package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/stemsi/gradcafe-backend/internal/cleaner"
	"github.com/stemsi/gradcafe-backend/internal/model"
	"github.com/stemsi/gradcafe-backend/internal/scraper"
	"github.com/stemsi/gradcafe-backend/internal/service"
	"github.com/stemsi/gradcafe-backend/internal/standardize"
)

var loadInput *string

func init() {
	loadInput = loadCmd.Flags().String("input", "llm_extend_applicant_data.json", "Cleaned records to insert.")
	rootCmd.AddCommand(loadCmd, queryCmd, pipelineCmd, statsCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load [--input file]",
	Short: "Inserts cleaned records, skipping urls already stored.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var records []model.AdmissionResult
		if err := scraper.ReadJSON(dataPath(*loadInput), &records); err != nil {
			return err
		}

		repo, closeDB, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		report, err := service.NewLoaderService(repo, log).Load(cmd.Context(), records)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Runs the ten report queries and prints the answers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		analysis := service.NewAnalysisService(repo, log).Run(cmd.Context())

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, r := range analysis.Results {
			answer := r.Value
			if r.Error != "" {
				answer = r.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Key, r.Label, answer)
		}
		return tw.Flush()
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Runs incremental scrape, clean, standardize and load.",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		client := newClient()
		pipeline := service.NewPipelineService(
			repo,
			scraper.NewIncremental(client, client.BaseURL(), cfg.Scraper.MaxPages, log),
			cleaner.New(log),
			standardize.NewRules(log),
			service.NewLoaderService(repo, log),
			cfg.DataDir,
			log,
		)

		report, err := pipeline.Run(cmd.Context(), func(msg string) {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints record count, newest date and status/degree breakdowns.",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		svc := service.NewAnalysisService(repo, log)
		sum, err := svc.Summary(cmd.Context())
		if err != nil {
			return err
		}
		dists, err := svc.Distributions(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		latest := "N/A"
		if sum.LatestDate != nil {
			latest = sum.LatestDate.Format(model.DateLayout)
		}
		fmt.Fprintf(out, "Total records: %s\n", humanize.Comma(int64(sum.TotalRecords)))
		fmt.Fprintf(out, "Latest date:   %s\n", latest)

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, col := range []string{"status", "degree"} {
			fmt.Fprintf(tw, "\n%s\t\n", col)
			for _, d := range dists[col] {
				fmt.Fprintf(tw, "  %s\t%s\n", d.Value, humanize.Comma(int64(d.Count)))
			}
		}
		return tw.Flush()
	},
}
