// Package main provides the hybridcall command line.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/flynn-ai/hybridcall/internal/config"
	"github.com/flynn-ai/hybridcall/internal/errors"
)

var (
	// Version information (set at build time)
	version = "dev"

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+errors.FormatUserMessage(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "hybridcall",
		Short: "Resolve tool calls on-device, with a single cloud fallback",
		Long: titleStyle.Render("hybridcall") + `

Turns a conversation and a set of tool schemas into validated tool calls.
A small local model answers when it is confident or its samples agree;
compound requests are split into clauses; anything left over goes to the
cloud model exactly once.

` + dimStyle.Render("Use 'hybridcall [command] --help' for more information."),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "override log.format (console, json)")
	flags.BoolVar(&opts.noCloud, "no-cloud", false, "disable the cloud fallback")

	rootCmd.AddCommand(
		newResolveCmd(opts),
		newBenchCmd(opts),
		newServeCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}
