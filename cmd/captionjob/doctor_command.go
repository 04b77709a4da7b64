package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"captionjob/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var worker bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the job store, dispatch, and worker binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.Coordinator(cmd.Context(), cfg)
			if worker {
				results = append(results, preflight.Worker(cfg)...)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderChecks(results, shouldColorize(out)))
			return preflight.Failed(results)
		},
	}
	cmd.Flags().BoolVar(&worker, "worker", false, "Include worker-side checks")
	return cmd
}

func renderChecks(results []preflight.Result, colorize bool) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, r := range results {
		status, colors := "OK", text.Colors{text.FgGreen}
		switch {
		case !r.Passed && r.Optional:
			status, colors = "WARN", text.Colors{text.FgYellow}
		case !r.Passed:
			status, colors = "FAIL", text.Colors{text.FgRed}
		}
		if colorize {
			status = colors.Sprint(status)
		}
		tw.AppendRow(table.Row{r.Name, status, r.Detail})
	}
	return tw.Render()
}
