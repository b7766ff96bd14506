package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"quoteflow/internal/port"
	"quoteflow/internal/service"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run several providers on one document and print each outcome",
	RunE: func(cmd *cobra.Command, _ []string) error {
		url, _ := cmd.Flags().GetString("url")
		documentID, _ := cmd.Flags().GetString("document-id")
		providers, _ := cmd.Flags().GetStringSlice("providers")
		if documentID == "" {
			documentID = uuid.New().String()
		}

		svc, _, err := buildExtractor(cmd.Context(), "")
		if err != nil {
			return err
		}

		outcomes, err := service.NewComparisonService(svc).Compare(cmd.Context(),
			port.ExtractInput{DocumentID: documentID, DocumentURL: url}, providers)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), outcomes)
	},
}

func init() {
	f := compareCmd.Flags()
	f.String("url", "", "document URL to extract")
	f.String("document-id", "", "document ID to tag the extractions with (default: random UUID)")
	f.StringSlice("providers", nil, "comma-separated provider names (default: every registered provider)")
	_ = compareCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(compareCmd)
}
