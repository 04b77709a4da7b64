package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"captionjob/internal/cookies"
	"captionjob/internal/sapisid"
)

func newCookiesCommand(ctx *commandContext) *cobra.Command {
	cookiesCmd := &cobra.Command{
		Use:   "cookies",
		Short: "Cookie helpers",
	}
	cookiesCmd.AddCommand(newCookiesNormalizeCommand(ctx))
	cookiesCmd.AddCommand(newCookiesAuthHeaderCommand(ctx))
	return cookiesCmd
}

func newCookiesNormalizeCommand(ctx *commandContext) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Convert pasted cookies into a Netscape cookie jar",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return fmt.Errorf("read cookies: %w", err)
			}
			normalizer := cookies.Normalizer{Domain: cfg.YouTube.CookieDomain}
			fmt.Fprint(cmd.OutOrStdout(), normalizer.Normalize(string(data)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Cookie file (- for stdin)")
	return cmd
}

func newCookiesAuthHeaderCommand(ctx *commandContext) *cobra.Command {
	var input string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "auth-header",
		Short: "Print the signed authorization headers derived from cookies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return fmt.Errorf("read cookies: %w", err)
			}
			normalizer := cookies.Normalizer{Domain: cfg.YouTube.CookieDomain}
			jar := normalizer.Normalize(string(data))
			headers := sapisid.Headers(cookies.ExtractMap(jar), cfg.YouTube.Origin, time.Now())
			if headers == nil {
				return fmt.Errorf("no SAPISID or __Secure-3PAPISID cookie found")
			}
			if asJSON {
				return writeJSON(cmd, headers)
			}
			for _, key := range []string{"Authorization", "Origin", "X-Origin", "X-Youtube-Client-Name", "X-Youtube-Client-Version"} {
				if v, ok := headers[key]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, v)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Cookie file (- for stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print headers as JSON")
	return cmd
}
