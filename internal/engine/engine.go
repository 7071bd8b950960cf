package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/schaermu/dirreconcile/internal/apperr"
	"github.com/schaermu/dirreconcile/internal/config"
	"github.com/schaermu/dirreconcile/internal/fingerprint"
	"github.com/schaermu/dirreconcile/internal/hasher"
	"github.com/schaermu/dirreconcile/internal/reconcile"
	"github.com/schaermu/dirreconcile/internal/report"
	"github.com/schaermu/dirreconcile/internal/scan"
)

// Engine orchestrates one reconciliation run
type Engine struct {
	cfg     *config.Config
	hasher  hasher.ContentHasher
	scanner *scan.Scanner
	logger  *slog.Logger
	dryRun  bool
	stdout  io.Writer
	now     func() time.Time
}

// Option customizes an Engine
type Option func(*Engine)

// WithStdout sets where the report goes when the output is "-"
func WithStdout(w io.Writer) Option {
	return func(e *Engine) { e.stdout = w }
}

// WithClock overrides the time stamped into the report header
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithScanOptions passes extra options to the tree scanner
func WithScanOptions(opts ...scan.Option) Option {
	return func(e *Engine) {
		e.scanner = scan.New(e.hasher, append([]scan.Option{scan.WithWorkers(e.cfg.Workers)}, opts...)...)
	}
}

// NewEngine creates a new engine for cfg. The checksum named by cfg must be known.
func NewEngine(cfg *config.Config, logger *slog.Logger, dryRun bool, opts ...Option) (*Engine, error) {
	h, err := hasher.New(cfg.Checksum)
	if err != nil {
		return nil, apperr.Argument("%v", err)
	}

	e := &Engine{
		cfg:     cfg,
		hasher:  h,
		scanner: scan.New(h, scan.WithWorkers(cfg.Workers)),
		logger:  logger,
		dryRun:  dryRun,
		stdout:  os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run scans both trees, reconciles them and writes the report
func (e *Engine) Run(ctx context.Context) (*reconcile.Result, error) {
	runAt := e.now()
	e.logger.Info("starting reconciliation",
		"dir_a", e.cfg.DirA,
		"dir_b", e.cfg.DirB,
		"checksum", e.hasher.Name(),
		"dry_run", e.dryRun)

	snapA, snapB, err := e.scanBoth(ctx)
	if err != nil {
		return nil, err
	}

	res := reconcile.Reconcile(snapA, snapB)
	e.logSummary(res)

	if e.dryRun {
		e.logPlanDetails(res)
		e.logger.Info("dry-run complete, no report written")
		return &res, nil
	}

	header := report.Header{RunAt: runAt, DirA: e.cfg.DirA, DirB: e.cfg.DirB}
	if err := e.writeReport(header, &res); err != nil {
		return nil, err
	}

	e.logger.Info("reconciliation completed successfully", "elapsed", e.now().Sub(runAt).String())
	return &res, nil
}

// scanBoth snapshots both roots concurrently; the first failure wins
func (e *Engine) scanBoth(ctx context.Context) (fingerprint.Snapshot, fingerprint.Snapshot, error) {
	var snapA, snapB fingerprint.Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapA, err = e.scanner.Scan(gctx, e.cfg.DirA)
		return err
	})
	g.Go(func() error {
		var err error
		snapB, err = e.scanner.Scan(gctx, e.cfg.DirB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to scan directories: %w", err)
	}

	e.logger.Info("scanned directories",
		"files_a", len(snapA),
		"files_b", len(snapB))
	return snapA, snapB, nil
}

func (e *Engine) logSummary(res reconcile.Result) {
	a := reconcile.Summarize(res.ForA)
	b := reconcile.Summarize(res.ForB)
	e.logger.Info("reconciliation plan",
		"add_to_a", a.Add,
		"add_to_b", b.Add,
		"unchanged", a.Unchanged,
		"conflicts", a.Conflict)
}

// logPlanDetails logs every classified entry for dry-run
func (e *Engine) logPlanDetails(res reconcile.Result) {
	for _, side := range []struct {
		dir   string
		patch reconcile.Patch
	}{
		{dir: e.cfg.DirA, patch: res.ForA},
		{dir: e.cfg.DirB, patch: res.ForB},
	} {
		for _, line := range report.Lines(side.patch, e.cfg.IgnoreUnchanged) {
			e.logger.Info("[dry-run] "+line.Op.String(),
				"dir", side.dir,
				"path", line.File.Path,
				"size", line.File.Size)
		}
	}
}

// writeReport renders the report and writes it to the configured destination
func (e *Engine) writeReport(h report.Header, res *reconcile.Result) error {
	doc, err := report.Build(h, res, e.cfg.IgnoreUnchanged)
	if err != nil {
		return err
	}

	if e.cfg.WritesToStdout() {
		if _, err := io.WriteString(e.stdout, doc); err != nil {
			return apperr.IO("write report", config.StdoutOutput, err)
		}
		return nil
	}

	dest, err := e.cfg.OutputPath()
	if err != nil {
		return apperr.IO("resolve output", e.cfg.Output, err)
	}
	e.logger.Info("writing report", "dest", dest)
	if err := writeFileAtomic(dest, []byte(doc)); err != nil {
		return apperr.IO("write report", dest, err)
	}
	return nil
}

// writeFileAtomic writes data to dst through a temp file and a rename
func writeFileAtomic(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".dirreconcile-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, dst)
}
