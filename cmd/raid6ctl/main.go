// raid6ctl - command line harness for a RAID-6 array of directory or LevelDB disks
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/colorfulnotion/raid6/array"
	"github.com/colorfulnotion/raid6/config"
	"github.com/colorfulnotion/raid6/log"
	"github.com/colorfulnotion/raid6/raiderrors"
	"github.com/colorfulnotion/raid6/storage"
	"github.com/colorfulnotion/raid6/telemetry"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// app carries the global flags and the array opened for one command.
type app struct {
	configPath string
	logLevel   string
	debug      string
	root       string

	cfg      config.Config
	set      *storage.Set
	array    *array.Array
	closers  []func() error
	shutdown func(context.Context) error
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if a.debug != "" {
		cfg.LogModules = a.debug
	}
	if a.root != "" {
		cfg.Root = a.root
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	log.InitLogger(cfg.LogLevel)
	log.EnableModules(cfg.LogModules)

	a.shutdown, err = telemetry.Setup(cmd.Context(), telemetry.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	field, err := cfg.Field()
	if err != nil {
		return err
	}
	var manifests *storage.PersistenceStore
	switch cfg.Backend {
	case config.BackendLevelDB:
		set, store, err := storage.OpenLevelSet(filepath.Join(cfg.Root, "disks"), cfg.Disks)
		if err != nil {
			return err
		}
		a.set, manifests = set, store
	default:
		set, err := storage.OpenDirSet(cfg.Root, cfg.Disks)
		if err != nil {
			return err
		}
		store, err := storage.NewPersistenceStore(cfg.ManifestPath())
		if err != nil {
			return err
		}
		a.set, manifests = set, store
	}
	a.closers = append(a.closers, a.set.Close, manifests.Close)

	a.array, err = array.New(array.Config{
		Unit:         cfg.StripeUnit,
		Workers:      cfg.Workers,
		ChunkSize:    cfg.ChunkSize,
		VerifyOnRead: cfg.VerifyOnRead,
	}, field, a.set, storage.NewManifestStore(manifests))
	if err != nil {
		return err
	}
	log.Debug(log.CLIMonitoring, "array opened", "root", cfg.Root, "backend", cfg.Backend, "disks", cfg.Disks, "field", field)
	return nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
		a.shutdown = nil
	}
	return errors.Join(errs...)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var rootCmd = &cobra.Command{
		Use:           "raid6ctl",
		Short:         "RAID-6 dual parity array over GF(2^8)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, crit)")
	rootCmd.PersistentFlags().StringVar(&a.debug, "debug", "", "Debug modules to enable (gf_mod,parity_mod,recovery_mod,disk_mod,array_mod,cli_mod or all)")
	rootCmd.PersistentFlags().StringVar(&a.root, "root", "", "Array root directory (overrides config)")

	withArray := func(cmd *cobra.Command) {
		run := cmd.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				err = errors.Join(err, a.close(cmd.Context()))
			}()
			if err := a.open(cmd); err != nil {
				return err
			}
			return run(cmd, args)
		}
	}
	for _, cmd := range []*cobra.Command{
		writeCmd(a), readCmd(a), checkCmd(a), detectCmd(a), repairCmd(a),
		statusCmd(a), listCmd(a), deleteCmd(a), failCmd(a), corruptCmd(a),
	} {
		withArray(cmd)
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(benchCmd(), versionCmd())
	return rootCmd
}

// errorLine tags err with its array error code when it carries one.
func errorLine(err error) string {
	if code := raiderrors.GetErrorCodeWithName(err); code != "" {
		return fmt.Sprintf("Error [%s]: %v", code, err)
	}
	return fmt.Sprintf("Error: %v", err)
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}
