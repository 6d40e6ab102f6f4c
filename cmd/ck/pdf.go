package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/citekit/citekit/internal/config"
	"github.com/citekit/citekit/internal/pdf"
	"github.com/citekit/citekit/internal/resolve"
)

var pdfFlags = struct {
	pipelineFlags
	keyOnly bool
	timeout time.Duration
}{}

func init() {
	pdfCmd.Flags().BoolVar(&pdfFlags.keyOnly, "key-only", false, "Print the extracted citekey without resolving it")
	pdfCmd.Flags().BoolVar(&pdfFlags.noCache, "no-cache", false, "Bypass the persistent response cache")
	pdfCmd.Flags().BoolVar(&pdfFlags.noPrune, "no-prune", false, "Keep fields that violate the CSL schema")
	pdfCmd.Flags().DurationVar(&pdfFlags.timeout, "timeout", config.DefaultTimeout, "Resolution deadline")
	rootCmd.AddCommand(pdfCmd)
}

// PDFKeyResponse is the response for pdf --key-only.
type PDFKeyResponse struct {
	Citekey string `json:"citekey"`
}

var pdfCmd = &cobra.Command{
	Use:   "pdf <file>",
	Short: "Extract a citable identifier from a PDF and resolve it",
	Long: `Scan the first pages of a PDF for a DOI or arXiv identifier and
resolve it to a CSL JSON item.

Example:
  ck pdf paper.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runPDF,
}

func runPDF(cmd *cobra.Command, args []string) error {
	key, err := pdf.ExtractCitekey(args[0])
	if err != nil {
		exitWithError(ExitError, "reading %s: %v", args[0], err)
	}
	if key == "" {
		exitWithError(ExitDataError, "no DOI or arXiv identifier found in %s", args[0])
	}

	if pdfFlags.keyOnly {
		if humanOutput {
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		}
		return outputJSON(PDFKeyResponse{Citekey: key})
	}

	pipeline, store, err := buildPipeline(pdfFlags.pipelineFlags)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if store != nil {
		defer store.Close()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), pdfFlags.timeout)
	defer cancel()

	result, err := pipeline.Resolve(ctx, []string{key})
	if err != nil {
		exitWithError(ExitError, "resolving %s: %v", key, err)
	}
	return resolve.EncodeJSON(cmd.OutOrStdout(), result.Items())
}
