package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"quoteflow/internal/domain"
	"quoteflow/internal/export"
	"quoteflow/internal/port"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract one supplier quote and print the result as JSON",
	Long: `Runs a single extraction and prints the ExtractionResult as JSON.

Examples:
  # Extract with the configured default provider
  extract --url https://example.com/quote.pdf

  # Extract with the text LLM provider and save the line items as a spreadsheet
  extract --provider llm_text --url https://example.com/quote.pdf --export quote.xlsx`,
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.String("provider", "", "provider name (default: EXTRACTION_DEFAULT_PROVIDER)")
	f.String("url", "", "document URL to extract")
	f.String("document-id", "", "document ID to tag the extraction with (default: random UUID)")
	f.String("export", "", "also write the line items to this .csv or .xlsx file")
	_ = extractCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	providerName, _ := cmd.Flags().GetString("provider")
	url, _ := cmd.Flags().GetString("url")
	documentID, _ := cmd.Flags().GetString("document-id")
	exportPath, _ := cmd.Flags().GetString("export")
	if documentID == "" {
		documentID = uuid.New().String()
	}

	svc, _, err := buildExtractor(cmd.Context(), "")
	if err != nil {
		return err
	}

	res, err := svc.Extract(cmd.Context(), port.ExtractInput{DocumentID: documentID, DocumentURL: url}, providerName)
	if err != nil {
		return err
	}

	if exportPath != "" {
		if err := writeExport(exportPath, &res.Normalized); err != nil {
			return err
		}
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func writeExport(path string, ext *domain.CanonicalExtraction) error {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if format != "csv" && format != "xlsx" {
		return eris.Errorf("export path %q must end in .csv or .xlsx", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create export file")
	}
	defer f.Close()

	if format == "xlsx" {
		err = export.WriteXLSX(f, ext)
	} else {
		err = export.WriteCSV(f, ext)
	}
	if err != nil {
		return err
	}
	return eris.Wrap(f.Close(), "close export file")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
