package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flynn-ai/hybridcall/internal/scoring"
)

func newBenchCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "bench [suite]",
		Short: "Score the resolver against a labelled suite",
		Long: `Run every case of a suite through the resolver and report F1, latency and
on-device ratio per difficulty level, plus the weighted total score.

The suite is a YAML or JSON file, or the name of a built-in suite: ` + strings.Join(scoring.Builtin(), ", "),
		Example: `  hybridcall bench
  hybridcall bench ./my-suite.yaml --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "assistant"
			if len(args) == 1 {
				name = args[0]
			}
			suite, err := scoring.Load(name)
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			runner := scoring.NewRunner(a.orchestrator, a.logger.Component("bench"))
			stderr := cmd.ErrOrStderr()
			runner.Progress = func(done, total int, r scoring.CaseResult) {
				mark := successStyle.Render("✓")
				if r.Error != "" || r.F1 < 1 {
					mark = errorStyle.Render("✗")
				}
				fmt.Fprintf(stderr, "%s %s %s\n",
					dimStyle.Render(fmt.Sprintf("[%d/%d]", done, total)), mark, r.Name)
			}

			rep, err := runner.Run(cmd.Context(), suite)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rep.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
