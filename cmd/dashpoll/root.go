package main

import (
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Rin0913/dashpoll/internal/app/dashboard"
	"github.com/Rin0913/dashpoll/internal/config"
	"github.com/Rin0913/dashpoll/internal/resource"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dashpoll",
		Short:         "Poll the ClawAV dashboard API and relay its snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "dashpoll.yaml", "config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides config)")

	cmd.AddCommand(
		newWatchCmd(opts),
		newServeCmd(opts),
		newLastCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return cfg, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)
	return cfg, nil
}

func parseKinds(args []string) ([]resource.Kind, error) {
	kinds := make([]resource.Kind, 0, len(args))
	for _, a := range args {
		k, err := resource.ParseKind(a)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func kindList() string {
	names := make([]string, 0, len(resource.Endpoints))
	for _, k := range resource.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [resource...]",
		Short: "Print every update of the given resources (default: all)",
		Long:  "Print every update of the given resources. Resources: " + kindList() + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return dashboard.Watch(cmd.Context(), cfg, cmd.OutOrStdout(), kinds...)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the polled snapshots over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			err = dashboard.Run(cmd.Context(), cfg)
			if err == nil {
				log.Info("See you!")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}

func newLastCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "last [resource]",
		Short: "Print the last stored snapshot of a resource, or list the stored paths",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				paths, err := dashboard.Stored(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			}

			kind, err := resource.ParseKind(args[0])
			if err != nil {
				return err
			}
			snap, err := dashboard.Last(cmd.Context(), cfg, kind)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}
