package commands

import (
	"github.com/spf13/cobra"
	"github.com/stemsi/gradcafe-backend/internal/cleaner"
	"github.com/stemsi/gradcafe-backend/internal/model"
	"github.com/stemsi/gradcafe-backend/internal/scraper"
	"github.com/stemsi/gradcafe-backend/internal/standardize"
)

var (
	cleanInput  *string
	cleanOutput *string

	standardizeInput  *string
	standardizeOutput *string
)

func init() {
	cleanInput = cleanCmd.Flags().String("input", "applicant_data.json", "Raw records to clean.")
	cleanOutput = cleanCmd.Flags().String("output", "cleaned_applicant_data.json", "File to write cleaned records to.")
	rootCmd.AddCommand(cleanCmd)

	standardizeInput = standardizeCmd.Flags().String("input", "cleaned_applicant_data.json", "Cleaned records to standardize.")
	standardizeOutput = standardizeCmd.Flags().String("output", "llm_extend_applicant_data.json", "File to write standardized records to.")
	rootCmd.AddCommand(standardizeCmd)
}

var cleanCmd = &cobra.Command{
	Use:   "clean [--input file] [--output file]",
	Short: "Normalizes raw records and removes duplicates.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []model.RawRecord
		if err := scraper.ReadJSON(dataPath(*cleanInput), &raw); err != nil {
			return err
		}

		cleaned := cleaner.New(log).CleanAll(raw)
		if err := scraper.WriteJSON(dataPath(*cleanOutput), cleaned); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), cleaner.Summarize(cleaned))
	},
}

var standardizeCmd = &cobra.Command{
	Use:   "standardize [--input file] [--output file]",
	Short: "Fills the standardized program and university columns.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var records []model.AdmissionResult
		if err := scraper.ReadJSON(dataPath(*standardizeInput), &records); err != nil {
			return err
		}

		out, err := standardize.NewRules(log).Standardize(cmd.Context(), records)
		if err != nil {
			return err
		}
		return scraper.WriteJSON(dataPath(*standardizeOutput), out)
	},
}
