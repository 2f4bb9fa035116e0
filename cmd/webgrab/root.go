// Package main provides the entry point for the webgrab CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webgrab.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webgrab",
		Short: "Mirror websites as Markdown",
		Long: `Webgrab crawls a website within polite bounds and mirrors each page
as a Markdown document, one directory per domain.

By default it stays on the start URL's domain, fetches at most 100 pages
up to 3 links deep, and waits 1 second between requests.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
