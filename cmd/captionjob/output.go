package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"captionjob/internal/jobs"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusColors(status jobs.Status) text.Colors {
	switch status {
	case jobs.StatusCompleted:
		return text.Colors{text.FgGreen}
	case jobs.StatusFailed:
		return text.Colors{text.FgRed}
	case jobs.StatusRunning:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgBlue}
	}
}

func statusText(status jobs.Status, colorize bool) string {
	if !colorize {
		return string(status)
	}
	return statusColors(status).Sprint(string(status))
}

func relativeTime(ts, now time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return humanize.RelTime(ts, now, "ago", "from now")
}

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

func renderJobList(views []jobs.View, now time.Time, colorize bool) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Job", "Status", "Results", "Updated", "Error"})
	for _, v := range views {
		errText := ""
		if v.Error != nil {
			errText = text.Trim(*v.Error, 60)
		}
		tw.AppendRow(table.Row{
			v.JobID,
			statusText(v.Status, colorize),
			strconv.Itoa(len(v.Results)),
			relativeTime(v.UpdatedAt, now),
			errText,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft}})
	return tw.Render()
}

func renderJobView(v jobs.View, now time.Time, colorize bool) string {
	summary := fmt.Sprintf("Job %s: %s (updated %s)", v.JobID, statusText(v.Status, colorize), relativeTime(v.UpdatedAt, now))
	if v.Error != nil {
		summary += "\nError: " + *v.Error
	}
	if len(v.Results) == 0 {
		return summary
	}

	tw := newTableWriter()
	tw.AppendHeader(table.Row{"#", "Title", "File", "Transcript", "Warning"})
	for i, r := range v.Results {
		size := "-"
		if r.Text != nil {
			size = humanize.Bytes(uint64(len(*r.Text)))
		}
		warning := ""
		if r.Warning != nil {
			warning = text.Trim(*r.Warning, 60)
		}
		tw.AppendRow(table.Row{i + 1, r.Title, r.Filename, size, warning})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return summary + "\n" + tw.Render()
}
