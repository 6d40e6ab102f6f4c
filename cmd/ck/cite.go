package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/citekit/citekit/internal/config"
	"github.com/citekit/citekit/internal/resolve"
)

var citeFlags = struct {
	pipelineFlags
	output  string
	format  string
	timeout time.Duration
}{}

func init() {
	citeCmd.Flags().StringVar(&citeFlags.aliasesPath, "aliases", "", "YAML file mapping tag aliases to citation keys")
	citeCmd.Flags().StringArrayVar(&citeFlags.bibliographies, "bibliography", nil, "Manual reference file (.json, .yaml, .bib); repeatable, later files win")
	citeCmd.Flags().StringVarP(&citeFlags.output, "output", "o", "", "Write output to file (.yaml/.yml selects CSL YAML)")
	citeCmd.Flags().StringVar(&citeFlags.format, "format", "", "Output format: json, yaml, or tsv (default json, or by output extension)")
	citeCmd.Flags().BoolVar(&citeFlags.noCache, "no-cache", false, "Bypass the persistent response cache")
	citeCmd.Flags().BoolVar(&citeFlags.noPrune, "no-prune", false, "Keep fields that violate the CSL schema")
	citeCmd.Flags().BoolVar(&citeFlags.noInfer, "no-infer", false, "Disable prefix inference for bare identifiers")
	citeCmd.Flags().BoolVar(&citeFlags.fetchURLTitles, "fetch-url-titles", false, "Fetch page titles for url: citations")
	citeCmd.Flags().DurationVar(&citeFlags.timeout, "timeout", config.DefaultTimeout, "Overall resolution deadline")
	rootCmd.AddCommand(citeCmd)
}

var citeCmd = &cobra.Command{
	Use:   "cite [citekeys...]",
	Short: "Resolve citation keys to CSL JSON",
	Long: `Resolve citation keys into normalized CSL JSON items.

Keys are read from arguments, or from stdin (one per line) when no
arguments are given. Duplicate keys and aliases of the same work
collapse into a single item. Keys that cannot be resolved yield stub
items annotated with the failure, so output length always matches the
number of distinct keys.

Examples:
  ck cite doi:10.7554/elife.32822 pubmed:29424689
  ck cite arxiv:1806.05726 --bibliography refs.yaml -o bibliography.json
  echo 10.7554/elife.32822 | ck cite`,
	RunE: runCite,
}

func runCite(cmd *cobra.Command, args []string) error {
	inputs := args
	if len(inputs) == 0 {
		stdin, err := readKeys(cmd.InOrStdin())
		if err != nil {
			exitWithError(ExitError, "reading citekeys from stdin: %v", err)
		}
		inputs = stdin
	}
	if len(inputs) == 0 {
		exitWithError(ExitError, "no citekeys given")
	}

	pipeline, store, err := buildPipeline(citeFlags.pipelineFlags)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if store != nil {
		defer store.Close()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), citeFlags.timeout)
	defer cancel()

	result, err := pipeline.Resolve(ctx, inputs)
	if err != nil {
		exitWithError(ExitError, "resolving citations: %v", err)
	}

	out := cmd.OutOrStdout()
	if citeFlags.output != "" {
		f, err := os.Create(citeFlags.output)
		if err != nil {
			exitWithError(ExitError, "creating output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	if err := writeResult(out, result, outputFormat()); err != nil {
		exitWithError(ExitError, "writing output: %v", err)
	}
	return nil
}

// outputFormat picks the serialization: explicit --format first, then the
// output file extension, then JSON.
func outputFormat() string {
	if citeFlags.format != "" {
		return strings.ToLower(citeFlags.format)
	}
	switch strings.ToLower(filepath.Ext(citeFlags.output)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".tsv":
		return "tsv"
	default:
		return "json"
	}
}

func writeResult(w io.Writer, result *resolve.Result, format string) error {
	switch format {
	case "json":
		return resolve.EncodeJSON(w, result.Items())
	case "yaml":
		return resolve.EncodeYAML(w, result.Items())
	case "tsv":
		_, err := io.WriteString(w, result.CitekeysTSV())
		return err
	default:
		return fmt.Errorf("unknown format %q (want json, yaml, or tsv)", format)
	}
}

// readKeys reads whitespace-trimmed, non-empty lines. Lines starting
// with # are treated as comments.
func readKeys(r io.Reader) ([]string, error) {
	var keys []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	return keys, scanner.Err()
}
