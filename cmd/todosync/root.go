package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/opensdd/osdd-todosync/core"
	"github.com/opensdd/osdd-todosync/core/annotations"
	"github.com/opensdd/osdd-todosync/core/config"
	"github.com/opensdd/osdd-todosync/core/linker"
	"github.com/opensdd/osdd-todosync/core/pipeline"
	"github.com/opensdd/osdd-todosync/core/tracker"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootOptions struct {
	configFile string
	root       string
	verbose    bool
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"repository":     "repository",
	"token-env":      "token_env",
	"project-number": "project_number",
	"project-owner":  "project_owner",
	"label":          "label",
	"delay":          "delay",
	"dry-run":        "dry_run",
	"report":         "report",
	"api-url":        "api_url",
	"graphql-url":    "graphql_url",
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "todosync",
		Short: "Create GitHub issues for TODO comments that are not tracked yet",
		Long: `todosync scans a source tree for TODO comments and opens a GitHub issue for each one
that has no open issue yet. New issues are added to a Projects board when one is configured.

Running it again is safe: issues carry a fingerprint of the comment they were created from.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(stderr, opts.verbose)
			return run(cmd.Context(), cmd.Flags(), opts, stdout)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "path to a YAML config file (default: "+config.FileName+" in the scan root)")
	f.StringVar(&opts.root, "root", "", "directory to scan (default: current directory)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	f.String("repository", "", "target repository as owner/name")
	f.String("token-env", defaults.TokenEnv, "environment variable holding the GitHub token")
	f.Int("project-number", defaults.ProjectNumber, "project board number, 0 disables linking")
	f.String("project-owner", "", "login owning the project board (default: repository owner)")
	f.String("label", defaults.Label, "label marking TODO issues")
	f.Duration("delay", defaults.Delay, "pause after each processed TODO")
	f.Bool("dry-run", false, "report what would be created without creating anything")
	f.String("report", "", "write a YAML run report to this path")
	f.String("api-url", defaults.APIURL, "GitHub REST API base URL")
	f.String("graphql-url", defaults.GraphQLURL, "GitHub GraphQL endpoint")
	return cmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func run(ctx context.Context, flags *pflag.FlagSet, opts *rootOptions, stdout io.Writer) error {
	root := opts.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}

	v, err := config.New(opts.configFile, root)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	repo, token, err := cfg.Credentials()
	if err != nil {
		return err
	}

	client, err := tracker.NewClient(repo, token)
	if err != nil {
		return err
	}
	client.BaseURL = cfg.APIURL
	client.GraphQLURL = cfg.GraphQLURL

	runner := &pipeline.Runner{
		Scanner: annotations.NewScanner(root),
		Tracker: client,
		Label:   cfg.Label,
		Delay:   cfg.Delay,
		DryRun:  cfg.DryRun,
		RunID:   uuid.New().String(),
	}
	if cfg.ProjectNumber > 0 {
		runner.Linker = &linker.Linker{
			Finder:   client,
			Attacher: client,
			Owner:    cfg.LinkOwner(),
			Number:   cfg.ProjectNumber,
		}
	}

	slog.Info("Starting TODO sync", "run", runner.RunID, "repository", repo.GetFullName(), "root", root, "dry_run", cfg.DryRun)
	summary, runErr := runner.Run(ctx)
	if summary == nil {
		return runErr
	}
	if err := summary.Render(stdout); err != nil {
		slog.Warn("Failed to render summary", "error", err)
	}
	if cfg.Report != "" {
		if err := core.WriteRunReport(context.WithoutCancel(ctx), cfg.Report, summary, repo); err != nil {
			slog.Error("Failed to write run report", "path", cfg.Report, "error", err)
		}
	}
	return runErr
}
