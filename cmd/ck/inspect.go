package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/citekit/citekit/internal/resolve"
)

var inspectFlags pipelineFlags

func init() {
	inspectCmd.Flags().StringVar(&inspectFlags.aliasesPath, "aliases", "", "YAML file mapping tag aliases to citation keys")
	inspectCmd.Flags().StringArrayVar(&inspectFlags.bibliographies, "bibliography", nil, "Manual reference file; keys it defines are never reported")
	inspectCmd.Flags().BoolVar(&inspectFlags.noInfer, "no-infer", false, "Disable prefix inference for bare identifiers")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <citekeys...>",
	Short: "Check citation keys for syntax problems without fetching",
	Long: `Check citation keys against their namespace syntax rules.

No network requests are made. Exits non-zero when any key is
malformed.

Example:
  ck inspect doi:10.7554/elife.32822 pubmed:29424689`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	// Inspection never opens the cache.
	flags := inspectFlags
	flags.noCache = true

	pipeline, _, err := buildPipeline(flags)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	problems, err := pipeline.Inspect(args)
	if err != nil {
		exitWithError(ExitError, "inspecting citekeys: %v", err)
	}

	if humanOutput {
		if len(problems) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "all %d citekeys look fine\n", len(args))
			return nil
		}
		for _, p := range problems {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Input, p.Description)
		}
	} else {
		if problems == nil {
			problems = []resolve.Problem{}
		}
		outputJSON(problems)
	}

	if len(problems) > 0 {
		os.Exit(ExitDataError)
	}
	return nil
}
