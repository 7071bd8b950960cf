// Package report renders reconciliation results as plain-text patches.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/schaermu/dirreconcile/internal/apperr"
	"github.com/schaermu/dirreconcile/internal/fingerprint"
	"github.com/schaermu/dirreconcile/internal/reconcile"
)

// ErrNotReconciled is returned when a report is requested without a result
var ErrNotReconciled = errors.New("nothing has been reconciled yet")

// Header identifies the run a report belongs to
type Header struct {
	RunAt time.Time
	DirA  string
	DirB  string
}

// Line is one rendered patch entry
type Line struct {
	Op   reconcile.Operation
	File fingerprint.Fingerprint
}

func (l Line) String() string {
	return l.Op.Marker() + " " + l.File.String()
}

// Lines flattens a patch into lines sorted by path. Unchanged entries are
// dropped when ignoreUnchanged is set.
func Lines(p reconcile.Patch, ignoreUnchanged bool) []Line {
	lines := make([]Line, 0, p.Len())
	for _, op := range reconcile.Operations {
		if op == reconcile.Unchanged && ignoreUnchanged {
			continue
		}
		for _, f := range p[op] {
			lines = append(lines, Line{Op: op, File: f})
		}
	}

	// Paths are unique within a patch; the marker keeps the order total regardless.
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].File.Path != lines[j].File.Path {
			return lines[i].File.Path < lines[j].File.Path
		}
		return lines[i].Op < lines[j].Op
	})
	return lines
}

// Render formats one side's patch under its directory label
func Render(label string, p reconcile.Patch, ignoreUnchanged bool) string {
	var b strings.Builder
	b.WriteString(label)
	b.WriteByte('\n')
	for _, l := range Lines(p, ignoreUnchanged) {
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Build renders both patches concurrently and assembles the full report
func Build(h Header, res *reconcile.Result, ignoreUnchanged bool) (string, error) {
	if res == nil {
		return "", apperr.State("build report", ErrNotReconciled)
	}

	var blockA, blockB string
	var g errgroup.Group
	g.Go(func() error {
		blockA = Render(h.DirA, res.ForA, ignoreUnchanged)
		return nil
	})
	g.Go(func() error {
		blockB = Render(h.DirB, res.ForB, ignoreUnchanged)
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Results for %s\n", h.RunAt.UTC().Format(fingerprint.TimeLayout))
	fmt.Fprintf(&b, "# Reconciled '%s' '%s'\n", h.DirA, h.DirB)
	b.WriteString(blockA)
	b.WriteByte('\n')
	b.WriteString(blockB)
	b.WriteByte('\n')
	return b.String(), nil
}

// Write builds the report and writes it to w in a single call
func Write(w io.Writer, h Header, res *reconcile.Result, ignoreUnchanged bool) error {
	doc, err := Build(h, res, ignoreUnchanged)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, doc); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
