package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schaermu/dirreconcile/internal/apperr"
	"github.com/schaermu/dirreconcile/internal/config"
	"github.com/schaermu/dirreconcile/internal/engine"
	"github.com/schaermu/dirreconcile/internal/hasher"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// checksumFlags maps each algorithm flag to the hasher it selects
var checksumFlags = []struct {
	flag   string
	algo   string
	usage  string
	hidden bool
}{
	{flag: "md5", algo: hasher.MD5, usage: "MD5 hash (default)"},
	{flag: "crc", algo: hasher.CRC32, usage: "Cyclic Redundancy Check 32-bit checksum"},
	{flag: "adler32", algo: hasher.Adler32, usage: "Adler 32-bit checksum"},
	{flag: "sha1", algo: hasher.SHA1, usage: "SHA1 hash"},
	{flag: "sha256", algo: hasher.SHA256, usage: "SHA256 hash"},
	{flag: "sha2", algo: hasher.SHA256, usage: "alias for --sha256", hidden: true},
	{flag: "xxhash", algo: hasher.XXHash, usage: "xxHash 64-bit checksum"},
}

// options holds everything parsed from the command line
type options struct {
	cfgFile         string
	logLevel        string
	logFormat       string
	dryRun          bool
	ignoreUnchanged bool
	output          string
	workers         int
	checksums       map[string]*bool
	stdout          io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{
		checksums: make(map[string]*bool, len(checksumFlags)),
		stdout:    stdout,
	}

	cmd := &cobra.Command{
		Use:   "dirreconcile <dirA> <dirB>",
		Short: "Compare two directory trees and write a bidirectional patch",
		Long: `dirreconcile scans two directory trees, fingerprints every file and writes a
report describing, for each side, which files must be added (+), which are
unchanged (=) and which conflict (!) with the other side.

Both trees are scanned concurrently. Nothing is copied or modified; the only
output is the report file. Times in the report are written in UTC.`,
		Version: version,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, opts, args)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("dirreconcile %s\n  commit: %s\n  built:  %s\n", version, commit, date))

	flags := cmd.Flags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.config/dirreconcile/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "log the classification without writing a report")
	flags.BoolVarP(&opts.ignoreUnchanged, "ignore-unchanged", "u", false, "ignore unchanged files in the final output")
	flags.StringVarP(&opts.output, "output", "o", config.DefaultOutput, `report file ("-" for stdout)`)
	flags.IntVar(&opts.workers, "workers", 0, "files hashed concurrently per directory (default: number of CPUs)")

	names := make([]string, 0, len(checksumFlags))
	for _, cf := range checksumFlags {
		opts.checksums[cf.flag] = flags.Bool(cf.flag, false, cf.usage)
		if cf.hidden {
			_ = flags.MarkHidden(cf.flag)
		}
		names = append(names, cf.flag)
	}
	cmd.MarkFlagsMutuallyExclusive(names...)

	return cmd
}

func runReconcile(cmd *cobra.Command, opts *options, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger(opts.logLevel, opts.logFormat, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.cfgFile, logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyFlags(cmd, opts, cfg)
	cfg.SetDirs(args[0], args[1])
	if err := cfg.Validate(); err != nil {
		return apperr.Argument("%v", err)
	}

	// Arguments are valid past this point; runtime failures don't need usage.
	cmd.SilenceUsage = true

	e, err := engine.NewEngine(cfg, logger, opts.dryRun, engine.WithStdout(opts.stdout))
	if err != nil {
		return err
	}

	if _, err := e.Run(ctx); err != nil {
		logger.Error("reconciliation failed", "error", err)
		return err
	}

	return nil
}

// applyFlags overrides config file values with explicitly set flags
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()

	if algo := selectedChecksum(opts.checksums); algo != "" {
		cfg.Checksum = algo
	}
	if flags.Changed("ignore-unchanged") {
		cfg.IgnoreUnchanged = opts.ignoreUnchanged
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
}

// selectedChecksum returns the algorithm chosen by flag, or "" if none was set.
// The checksum flags are mutually exclusive, so at most one is set.
func selectedChecksum(selected map[string]*bool) string {
	for _, cf := range checksumFlags {
		if set := selected[cf.flag]; set != nil && *set {
			return cf.algo
		}
	}
	return ""
}

func setupLogger(logLevel, logFormat string, w io.Writer) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// loadConfig reads the explicit config file, or the default one if it exists
func loadConfig(cfgFile string, logger *slog.Logger) (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Debug("no home directory, using defaults", "error", err)
			return config.Default(), nil
		}
		configPath = filepath.Join(home, ".config", "dirreconcile", "config.yaml")
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			logger.Debug("no config file, using defaults", "path", configPath)
			return config.Default(), nil
		}
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"checksum", cfg.Checksum,
		"ignore_unchanged", cfg.IgnoreUnchanged,
		"output", cfg.Output,
		"workers", cfg.Workers)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
