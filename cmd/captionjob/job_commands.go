package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"captionjob/internal/coordinator"
	"captionjob/internal/jobs"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Submit and inspect caption jobs",
	}
	jobCmd.AddCommand(newJobCreateCommand(ctx))
	jobCmd.AddCommand(newJobStatusCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobSaveCommand(ctx))
	return jobCmd
}

func newJobCreateCommand(ctx *commandContext) *cobra.Command {
	var cookieFile string
	var urlFile string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create [url...]",
		Short: "Submit video URLs for caption extraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := append([]string(nil), args...)
			if urlFile != "" {
				fromFile, err := readLines(cmd.InOrStdin(), urlFile)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			req := coordinator.CreateRequest{URLs: urls}
			if cookieFile != "" {
				data, err := readInput(cmd.InOrStdin(), cookieFile)
				if err != nil {
					return fmt.Errorf("read cookies: %w", err)
				}
				req.CookieText = string(data)
			}

			result, err := newAPIClient(ctx.serverURL()).create(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s %s\n", result.JobID, result.Status)
			if result.Message != "" {
				fmt.Fprintln(out, result.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cookieFile, "cookies", "", "Cookie file to send with the job (- for stdin)")
	cmd.Flags().StringVar(&urlFile, "from-file", "", "Read URLs from a file, one per line (- for stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

func newJobStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var wait bool
	var interval time.Duration
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job and its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(ctx.serverURL())
			var (
				view jobs.View
				err  error
			)
			if wait {
				view, err = waitForJob(cmd.Context(), client, args[0], interval, timeout)
			} else {
				view, err = client.get(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderJobView(view, time.Now(), shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job as JSON")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the job finishes")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Polling interval for --wait")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Give up waiting after this long")
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := newAPIClient(ctx.serverURL()).list(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			fmt.Fprintln(out, renderJobList(views, time.Now(), shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print jobs as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")
	return cmd
}

func newJobSaveCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "save <job-id>",
		Short: "Write a finished job's transcripts to text files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := newAPIClient(ctx.serverURL()).get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !view.Status.Terminal() {
				return fmt.Errorf("job %s is still %s", view.JobID, view.Status)
			}
			written, err := saveTranscripts(dir, view.Results)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range written {
				fmt.Fprintln(out, path)
			}
			fmt.Fprintf(out, "Saved %d of %d transcripts\n", len(written), len(view.Results))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Output directory")
	return cmd
}

func waitForJob(ctx context.Context, client *apiClient, id string, interval, timeout time.Duration) (jobs.View, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		view, err := client.get(ctx, id)
		if err != nil {
			return jobs.View{}, err
		}
		if view.Status.Terminal() {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return view, fmt.Errorf("job %s still %s: %w", id, view.Status, ctx.Err())
		case <-ticker.C:
		}
	}
}

// saveTranscripts writes each result with text to dir, suffixing duplicate
// file names so no transcript overwrites another.
func saveTranscripts(dir string, results []jobs.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	used := make(map[string]int)
	var written []string
	for _, r := range results {
		if r.Text == nil {
			continue
		}
		name := r.Filename
		if name == "" {
			name = "video.txt"
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)%s", base, n, filepath.Ext(name))
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(*r.Text+"\n"), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func readLines(stdin io.Reader, path string) ([]string, error) {
	data, err := readInput(stdin, path)
	if err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Join(errors.New("read urls"), err)
	}
	return lines, nil
}
