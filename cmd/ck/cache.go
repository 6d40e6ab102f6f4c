package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/citekit/citekit/internal/cache"
	"github.com/citekit/citekit/internal/config"
)

func init() {
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent response cache",
}

// CacheInfoResponse is the response for cache info.
type CacheInfoResponse struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location and entry count",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, path := openCache()
		defer store.Close()

		n, err := store.Len()
		if err != nil {
			exitWithError(ExitError, "counting cache entries: %v", err)
		}
		if humanOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", path, n)
			return nil
		}
		return outputJSON(CacheInfoResponse{Path: path, Entries: n})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, path := openCache()
		defer store.Close()

		if err := store.Clear(); err != nil {
			exitWithError(ExitError, "clearing cache: %v", err)
		}
		if humanOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", path)
			return nil
		}
		return outputJSON(StatusResponse{Status: "cleared", Path: path})
	},
}

func openCache() (*cache.Store, string) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	store, err := cache.Open(cfg.CachePath(), cache.NewLimiters(nil))
	if err != nil {
		exitWithError(ExitError, "opening cache: %v", err)
	}
	return store, cfg.CachePath()
}
