package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/flynn-ai/hybridcall/internal/audit"
	"github.com/flynn-ai/hybridcall/internal/model"
	"github.com/flynn-ai/hybridcall/internal/stats"
)

type statusReport struct {
	Models  map[string]*model.ModelStatus `json:"models"`
	Audit   *audit.Summary                `json:"audit,omitempty"`
	Process *stats.Stats                  `json:"process"`
}

func newStatusCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show model reachability and resolution history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			rep := statusReport{Models: a.models.Status(ctx)}
			var dbSize int64
			var dbPath string
			if a.audit != nil {
				if rep.Audit, err = a.audit.Summary(ctx); err != nil {
					return err
				}
				dbSize, dbPath = a.audit.Size(), a.audit.Path()
			}
			rep.Process = a.stats.Collect(dbSize, dbPath)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printStatus(cmd.OutOrStdout(), rep)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.AddCommand(newHistoryCmd(opts))
	return cmd
}

func printStatus(w io.Writer, rep statusReport) {
	fmt.Fprintln(w, titleStyle.Render("Models"))
	names := make([]string, 0, len(rep.Models))
	for name := range rep.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := rep.Models[name]
		state := successStyle.Render("available")
		if !s.Available {
			state = errorStyle.Render("unavailable")
		}
		fmt.Fprintf(w, "  %-6s %-28s %s", name, s.Name, state)
		if s.Breaker != "" {
			fmt.Fprint(w, dimStyle.Render(" breaker="+s.Breaker))
		}
		if s.Error != "" {
			fmt.Fprint(w, dimStyle.Render(" "+s.Error))
		}
		fmt.Fprintln(w)
	}

	if rep.Audit == nil {
		fmt.Fprintln(w, dimStyle.Render("\nAudit disabled (set audit.enabled = true to keep history)"))
		return
	}

	sum := rep.Audit
	fmt.Fprintln(w, "\n"+titleStyle.Render("History"))
	fmt.Fprintf(w, "  resolutions  %d (on-device %d, cloud %d, errors %d)\n", sum.Total, sum.OnDevice, sum.Cloud, sum.Errors)
	fmt.Fprintf(w, "  fast path    %d\n", sum.FastPath)
	fmt.Fprintf(w, "  on-device    %.1f%%\n", sum.OnDeviceRatio*100)
	fmt.Fprintf(w, "  avg latency  %.0fms\n", sum.AvgLatencyMs)
	if len(sum.Reasons) > 0 {
		reasons := make([]string, 0, len(sum.Reasons))
		for r := range sum.Reasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(w, "  %s %d\n", dimStyle.Render(r), sum.Reasons[r])
		}
	}
	fmt.Fprintf(w, "  database     %s %s\n", rep.Process.DBPath, dimStyle.Render(fmt.Sprintf("(%.2f MB)", rep.Process.DBSizeMB)))
}

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		limit     int
		olderThan time.Duration
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent resolutions from the audit store",
		Example: `  hybridcall status history --limit 5
  hybridcall status history --prune 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.audit == nil {
				return fmt.Errorf("audit store disabled: set audit.enabled = true in %s", opts.configPath)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if olderThan > 0 {
				n, err := a.audit.Prune(ctx, time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("pruned %d resolutions", n)))
				return nil
			}

			entries, err := a.audit.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			for _, e := range entries {
				names := make([]string, 0, len(e.Calls))
				for _, c := range e.Calls {
					names = append(names, c.Name)
				}
				line := fmt.Sprintf("%s  %-9s %6.0fms  %v", e.Started.Format(time.DateTime), e.Source, e.TotalTimeMs, names)
				switch {
				case e.Error != "":
					fmt.Fprintln(out, errorStyle.Render(line+"  "+e.Error))
				case e.Reason != "":
					fmt.Fprintln(out, line+dimStyle.Render("  "+e.Reason))
				default:
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of resolutions to show")
	cmd.Flags().DurationVar(&olderThan, "prune", 0, "delete resolutions older than this instead of listing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
