package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"captionjob/internal/captions"
)

func newCaptionsCommand() *cobra.Command {
	captionsCmd := &cobra.Command{
		Use:         "captions",
		Short:       "Caption text helpers",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	var input string
	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Strip timing and markup from a WebVTT file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return fmt.Errorf("read captions: %w", err)
			}
			if text := captions.Clean(string(data)); text != "" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return nil
		},
	}
	cleanCmd.Flags().StringVarP(&input, "input", "i", "-", "WebVTT file (- for stdin)")
	captionsCmd.AddCommand(cleanCmd)
	return captionsCmd
}
