package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/virtkit/snapwheel/internal/config"
	"github.com/virtkit/snapwheel/internal/daemon"
	"github.com/virtkit/snapwheel/internal/logging"
	"github.com/virtkit/snapwheel/internal/proxmox"
	"github.com/virtkit/snapwheel/internal/rotation"
)

const defaultConfigPath = "/etc/snapwheel/config.yaml"

// set via -ldflags "-X main.version=..."
var version = "dev"

// errRotationFailed signals a completed pass with at least one failed
// guest; the summary is already logged when it surfaces.
var errRotationFailed = errors.New("rotation completed with failures")

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelInfo)

	logger := logging.New(logging.ModeCLI, os.Stderr, &levelVar)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(&levelVar)
	if err := root.ExecuteContext(ctx); err != nil {
		switch {
		case errors.Is(err, errRotationFailed):
			os.Exit(1)
		case errors.Is(err, context.Canceled):
			slog.Warn("command interrupted", "error", err)
			os.Exit(130)
		default:
			slog.Error("command execution failed", "error", err)
			os.Exit(1)
		}
	}
}

type rootOptions struct {
	levelVar   *slog.LevelVar
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand(levelVar *slog.LevelVar) *cobra.Command {
	opts := &rootOptions{levelVar: levelVar}

	root := &cobra.Command{
		Use:           "snapwheel",
		Short:         "Scheduled snapshot rotation for Proxmox VE guests",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log verbosity (debug, info, warning, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Override log format (cli, json)")

	root.AddCommand(
		newRotateCommand(opts),
		newDaemonCommand(opts),
		newVersionCommand(),
	)
	return root
}

func newRotateCommand(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Run one rotation pass: snapshot due buckets, prune per policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			orchestrator, err := newOrchestrator(cfg, dryRun, logger)
			if err != nil {
				return err
			}

			report, err := orchestrator.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("rotation pass: %w", err)
			}

			report.Log(logger)
			if !report.OK() {
				return errRotationFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log intended snapshot operations without issuing them")
	return cmd
}

func newDaemonCommand(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run rotation passes on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			orchestrator, err := newOrchestrator(cfg, dryRun, logger)
			if err != nil {
				return err
			}

			pass := func(ctx context.Context) error {
				report, err := orchestrator.Run(ctx)
				if err != nil {
					return err
				}
				report.Log(logger)
				return nil
			}
			return daemon.New(cfg.Schedule.Cron, pass, logger).Start(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log intended snapshot operations without issuing them")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the snapwheel version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

// load reads the config and rebuilds the default logger from it, letting
// the --log-level and --log-format flags win over the file.
func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	levelSource := cfg.Logging.Level
	if o.logLevel != "" {
		levelSource = o.logLevel
	}
	level, err := logging.ParseLevel(levelSource)
	if err != nil {
		return nil, nil, err
	}
	o.levelVar.Set(level)

	formatSource := cfg.Logging.Format
	if o.logFormat != "" {
		formatSource = o.logFormat
	}
	mode, err := logging.ParseMode(formatSource)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(mode, os.Stderr, o.levelVar)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newOrchestrator(cfg *config.Config, dryRun bool, logger *slog.Logger) (*rotation.Orchestrator, error) {
	client, err := proxmox.NewClient(proxmox.ClientOptions{
		Address:            cfg.Proxmox.Address,
		TokenID:            cfg.Proxmox.TokenID,
		TokenSecret:        cfg.Proxmox.TokenSecret,
		InsecureSkipVerify: cfg.Proxmox.InsecureSkipVerify,
		PollInterval:       cfg.Proxmox.PollInterval,
	})
	if err != nil {
		return nil, err
	}

	var hypervisor rotation.Hypervisor = client
	if dryRun {
		hypervisor = &proxmox.DryRun{Inner: client, Logger: logger.With("component", "dry-run")}
	}

	weekStart, err := cfg.WeekStart()
	if err != nil {
		return nil, err
	}

	keep := make(map[rotation.Bucket]int, len(cfg.Policy.Keep))
	for bucket, count := range cfg.Policy.Keep {
		keep[rotation.Bucket(bucket)] = count
	}

	return &rotation.Orchestrator{
		Hypervisor: hypervisor,
		Policy:     rotation.Policy{Keep: keep, WeekStart: weekStart},
		Targets: rotation.TargetSpec{
			All:         cfg.Targets.All,
			VMIDs:       cfg.Targets.VMIDs,
			Tags:        cfg.Targets.Tags,
			ExcludeTags: cfg.Targets.ExcludeTags,
		},
		Parallel:    cfg.Rotation.Parallel,
		TaskTimeout: cfg.Proxmox.TaskTimeout,
		Logger:      logger,
	}, nil
}
