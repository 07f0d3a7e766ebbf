package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegrjumin/urlrisk/internal/config"
	"github.com/olegrjumin/urlrisk/internal/logging"
	"github.com/olegrjumin/urlrisk/internal/message"
	"github.com/olegrjumin/urlrisk/internal/safebrowsing"
	"github.com/olegrjumin/urlrisk/internal/service"
	"github.com/olegrjumin/urlrisk/internal/urlnorm"
	"github.com/olegrjumin/urlrisk/internal/urlvoid"
	"github.com/olegrjumin/urlrisk/internal/virustotal"
)

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:                   "urlrisk [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Score URLs and messages for phishing and scam risk.",
		Long: `urlrisk combines URL heuristics with VirusTotal, URLVoid and Google Safe Browsing
reputation lookups into a single safe/suspicious/danger verdict.
API keys are read from the same environment variables as the server.`,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newScanCmd(opts), newCheckCmd(), newMessageCmd())
	return root
}

func newScanCmd(root *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Run the full scan against every configured reputation source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := validURL(args[0])
			if err != nil {
				return err
			}

			cfg := config.Load()
			if timeout > 0 {
				cfg.AdapterTimeout = timeout
				cfg.VirusTotal.Timeout = timeout
				cfg.URLVoid.Timeout = timeout
				cfg.SafeBrowsing.Timeout = timeout
			}
			if err := cfg.Weights.Validate(); err != nil {
				return err
			}

			logger := logging.New(logging.Options{
				Name:   "urlrisk",
				Level:  root.logLevel,
				Output: cmd.ErrOrStderr(),
			})

			vt := virustotal.New(cfg.VirusTotal, logger)
			svc := service.New([]service.Source{
				vt,
				urlvoid.New(cfg.URLVoid, logger),
				safebrowsing.New(cfg.SafeBrowsing, logger),
			}, logger, service.Options{
				Weights:        cfg.Weights,
				AdapterTimeout: cfg.AdapterTimeout,
			})

			v := svc.Scan(cmd.Context(), raw)
			vt.Wait()
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-source timeout (overrides ADAPTER_TIMEOUT)")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Score a URL with the offline heuristics only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := validURL(args[0])
			if err != nil {
				return err
			}
			svc := service.New(nil, logging.NewNop(), service.Options{})
			return printJSON(cmd.OutOrStdout(), svc.QuickCheck(raw))
		},
	}
}

func newMessageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "message <text...>",
		Short: "Score a text message for social-engineering markers; reads stdin when no text is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = strings.TrimRight(string(b), "\r\n")
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("text is required")
			}
			return printJSON(cmd.OutOrStdout(), message.Analyze(text))
		},
	}
}

func validURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if err := urlnorm.ValidateAbsolute(raw); err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	return raw, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
