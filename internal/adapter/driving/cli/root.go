// Package cli defines the phabdigest command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/phabdigest/internal/adapter/driven/changeset"
	"github.com/ericfisherdev/phabdigest/internal/adapter/driven/conduit"
	"github.com/ericfisherdev/phabdigest/internal/adapter/driven/firefox"
	"github.com/ericfisherdev/phabdigest/internal/application"
	"github.com/ericfisherdev/phabdigest/internal/config"
	"github.com/ericfisherdev/phabdigest/internal/domain/port/driven"
	"github.com/ericfisherdev/phabdigest/internal/logging"
)

const (
	formatMarkdown = "markdown"
	formatHTML     = "html"
)

var errTokenRequired = errors.New(`Phabricator API token required. Either:
1. Use --token <TOKEN>
2. Set PHABRICATOR_TOKEN environment variable

Get your token at: https://phabricator.services.mozilla.com/settings/user/<username>/page/apitokens/`)

// Options stores the CLI flags shared with the run function.
type Options struct {
	URL         string
	Revision    string
	BaseURL     string
	Token       string
	Cookies     string
	Output      string
	Format      string
	IncludeDone bool
	Timeout     time.Duration
	Concurrency int
	LogLevel    logging.Level
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(ctx context.Context, args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		Format:   formatMarkdown,
		LogLevel: logging.LevelInfo,
	}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}

// newRootCommand constructs the root cobra.Command with its flags.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phabdigest",
		Short: "phabdigest extracts Phabricator review comments into Markdown",
		Long: "phabdigest pulls every comment of a Differential revision through the Conduit API,\n" +
			"reconstructs inline code suggestions from the review page, and renders the result\n" +
			"as a single Markdown or HTML document.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(cmd.Flag("log-level").Value.String())
			opts.LogLevel = level
			logger = logging.NewLogger(os.Stderr, level)
			slog.SetDefault(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "Full revision URL (e.g. https://phabricator.services.mozilla.com/D123456)")
	cmd.Flags().StringVarP(&opts.Revision, "revision", "r", "", "Revision ID, with or without the D prefix")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "Phabricator base URL (defaults to PHABRICATOR_BASE_URL)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "Conduit API token (defaults to PHABRICATOR_TOKEN)")
	cmd.Flags().StringVar(&opts.Cookies, "cookies", "", `Session cookies as "name=value; name2=value2" (defaults to Firefox profile extraction)`)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output file path (prints to stdout when empty)")
	cmd.Flags().StringVar(&opts.Format, "format", formatMarkdown, "Output format: markdown or html")
	cmd.Flags().BoolVar(&opts.IncludeDone, "include-done", false, "Include inline comments marked as done")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Per-request timeout (defaults to PHABDIGEST_FETCH_TIMEOUT)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Concurrent changeset fetches (defaults to PHABDIGEST_FETCH_CONCURRENCY)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

// runExtract wires configuration and adapters together and runs one
// extraction end to end.
func runExtract(cmd *cobra.Command, opts *Options) error {
	ctx := cmd.Context()
	logger := LoggerFromContext(ctx)

	if opts.Format != formatMarkdown && opts.Format != formatHTML {
		return fmt.Errorf("invalid format %q: must be markdown or html", opts.Format)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	token := opts.Token
	if token == "" {
		token = cfg.Token
	}
	if token == "" {
		return errTokenRequired
	}

	revisionID, baseURL, err := resolveRevision(opts, cfg)
	if err != nil {
		return err
	}

	timeout := cfg.FetchTimeout
	if cmd.Flags().Changed("timeout") {
		if opts.Timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", opts.Timeout)
		}
		timeout = opts.Timeout
	}

	concurrency := cfg.FetchConcurrency
	if cmd.Flags().Changed("concurrency") {
		if opts.Concurrency < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", opts.Concurrency)
		}
		concurrency = opts.Concurrency
	}

	logger.Info("starting extraction", "revision", fmt.Sprintf("D%d", revisionID), "base_url", baseURL, "include_done", opts.IncludeDone)

	client := conduit.NewClient(baseURL, token, timeout)

	var source driven.ChangesetSource
	if cookieHeader := resolveCookies(ctx, opts, cfg, baseURL, logger); cookieHeader != "" {
		source = changeset.NewFetcher(baseURL, revisionID, cookieHeader, timeout)
	}

	service := application.NewExtractService(client, source, baseURL, concurrency)

	doc, err := service.Extract(ctx, revisionID, opts.IncludeDone)
	if err != nil {
		return err
	}

	out := RenderMarkdown(doc)
	if opts.Format == formatHTML {
		out, err = RenderHTML(doc)
		if err != nil {
			return err
		}
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(out), 0o644); err != nil {
			return fmt.Errorf("write output to %q: %w", opts.Output, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Comments extracted and saved to %s\n", opts.Output)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// resolveRevision determines the revision ID and base URL from the flags,
// preferring a full URL over a bare ID.
func resolveRevision(opts *Options, cfg *config.Config) (int, string, error) {
	if opts.URL != "" {
		return ParseRevisionURL(opts.URL)
	}

	if opts.Revision != "" {
		id, err := ParseRevisionID(opts.Revision)
		if err != nil {
			return 0, "", err
		}

		baseURL := strings.TrimRight(opts.BaseURL, "/")
		if baseURL == "" {
			baseURL = cfg.BaseURL
		}
		return id, baseURL, nil
	}

	return 0, "", errors.New("either --url or --revision must be provided")
}

// resolveCookies returns the Cookie header for changeset fetches. An
// explicit override wins; otherwise cookies come from the local Firefox
// profile. An empty return means no session is available and suggestion
// extraction is skipped.
func resolveCookies(ctx context.Context, opts *Options, cfg *config.Config, baseURL string, logger *slog.Logger) string {
	if override := firstNonEmpty(opts.Cookies, cfg.CookieOverride); override != "" {
		cookies := firefox.ParseCookieString(override)
		if len(cookies) == 0 {
			logger.Warn("cookie override contains no valid pairs, suggestions will be skipped")
			return ""
		}
		return firefox.FormatCookieHeader(cookies)
	}

	domain := CookieDomain(baseURL)

	cookies, err := firefox.NewStore().SessionCookies(ctx, domain)
	if err != nil {
		logger.Warn("no browser session cookies found, suggestions will be skipped", "domain", domain, "error", err)
		return ""
	}

	return firefox.FormatCookieHeader(cookies)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
