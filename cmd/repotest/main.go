// repotest provisions short-lived CodeArtifact repositories for test
// runs and collects the ones left behind.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IsaacVaswani-Casas/aws-cdk/internal/registry"
	"github.com/IsaacVaswani-Casas/aws-cdk/internal/sandbox"
	"github.com/chainguard-dev/clog"
	charmlog "github.com/charmbracelet/log"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
)

type rootOpts struct {
	region   string
	domain   string
	lifetime time.Duration
	jsonLog  bool
}

func (o *rootOpts) sandboxOptions() sandbox.Options {
	return sandbox.Options{
		Domain:   o.domain,
		Lifetime: o.lifetime,
	}
}

// newAPI is swapped out in tests.
var newAPI = func(ctx context.Context, region string) (registry.API, error) {
	return registry.NewClient(ctx, region)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}
	root := &cobra.Command{
		Use:          "repotest",
		Short:        "Manage temporary CodeArtifact repositories for test runs",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SetContext(setupLog(cmd.Context(), opts.jsonLog))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.region, "region", "us-west-2", "AWS region")
	pf.StringVar(&opts.domain, "domain", sandbox.DefaultDomain, "domain holding the test repositories")
	pf.DurationVar(&opts.lifetime, "lifetime", sandbox.DefaultLifetime, "how long new repositories live before the sweep may collect them")
	pf.BoolVar(&opts.jsonLog, "json", false, "log as JSON")

	root.AddCommand(
		newCreateCmd(opts),
		newLoginCmd(opts),
		newDeleteCmd(opts),
		newGCCmd(opts),
	)
	return root
}

// setupLog sets up the default logging configuration.
func setupLog(ctx context.Context, jsonLog bool) context.Context {
	var handler slog.Handler = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	})
	if jsonLog {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	logger := clog.New(slogmulti.Fanout(handler))
	slog.SetDefault(&logger.Logger)
	return clog.WithLogger(ctx, logger)
}

func newCreateCmd(opts *rootOpts) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a sandbox repository and print its name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			api, err := newAPI(ctx, opts.region)
			if err != nil {
				return err
			}

			var s *sandbox.Sandbox
			if name == "" {
				s, err = sandbox.NewRandom(ctx, api, opts.sandboxOptions())
			} else {
				s, err = sandbox.NewNamed(ctx, api, name, opts.sandboxOptions())
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "repository name (random when empty)")
	return cmd
}

func newLoginCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "login NAME",
		Short: "Print an auth token and the per-format endpoints for a sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := newAPI(ctx, opts.region)
			if err != nil {
				return err
			}

			login, err := sandbox.FromExisting(api, args[0], opts.sandboxOptions()).Login(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, login.Token)
			for _, format := range registry.Formats() {
				fmt.Fprintf(w, "%s\t%s\n", format, login.Endpoints[format])
			}
			return nil
		},
	}
}

func newDeleteCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a sandbox repository (deleting twice is fine)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := newAPI(ctx, opts.region)
			if err != nil {
				return err
			}
			return sandbox.FromExisting(api, args[0], opts.sandboxOptions()).Delete(ctx)
		},
	}
}

func newGCCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Delete every repository in the domain past its collect-by tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			api, err := newAPI(ctx, opts.region)
			if err != nil {
				return err
			}

			deleted, err := sandbox.GarbageCollect(ctx, api, opts.sandboxOptions())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "collected %d repositories\n", deleted)
			return nil
		},
	}
}
