// Package main provides the ck CLI entry point.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ck",
	Short: "Citation resolution and normalization pipeline",
	Long: `ck resolves citation keys (doi:, pubmed:, pmc:, arxiv:, isbn:, url:)
into normalized CSL JSON bibliographic items.

Responses are cached in a persistent SQLite store, manual reference
files can override any source, and output validates against the CSL
JSON Schema. All commands output JSON by default for easy integration
with other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
