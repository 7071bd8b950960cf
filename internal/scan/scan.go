// Package scan captures a Snapshot of a directory tree by fingerprinting every
// regular file below its root.
package scan

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/schaermu/dirreconcile/internal/apperr"
	"github.com/schaermu/dirreconcile/internal/fingerprint"
	"github.com/schaermu/dirreconcile/internal/hasher"
)

// ListerFunc opens a Lister for a root path
type ListerFunc func(root string) (Lister, error)

// OSListers opens roots on the local disk
//
//nolint:ireturn // satisfies ListerFunc
func OSListers(root string) (Lister, error) {
	l, err := NewOSLister(root)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Scanner fingerprints directory trees with a fixed ContentHasher
type Scanner struct {
	hasher  hasher.ContentHasher
	listers ListerFunc
	workers int
}

// Option configures a Scanner
type Option func(*Scanner)

// WithWorkers bounds how many files of one tree are hashed at once
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithListers replaces how roots are opened, e.g. with an in-memory filesystem
func WithListers(fn ListerFunc) Option {
	return func(s *Scanner) { s.listers = fn }
}

// New creates a Scanner that hashes content with h
func New(h hasher.ContentHasher, opts ...Option) *Scanner {
	s := &Scanner{
		hasher:  h,
		listers: OSListers,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root and returns one fingerprint per regular file.
// Any unreadable file fails the whole scan.
func (s *Scanner) Scan(ctx context.Context, root string) (fingerprint.Snapshot, error) {
	lister, err := s.listers(root)
	if err != nil {
		return nil, apperr.IO("scan", root, err)
	}

	var (
		mu       sync.Mutex
		snapshot = make(fingerprint.Snapshot)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	walkErr := lister.List(gctx, func(e Entry) error {
		g.Go(func() error {
			fp, err := s.fingerprint(e)
			if err != nil {
				return apperr.IO("hash", e.Path, err)
			}
			mu.Lock()
			snapshot[fp.Path] = fp
			mu.Unlock()
			return nil
		})
		return nil
	})

	// Wait before inspecting walkErr so no hashing goroutine outlives the scan.
	hashErr := g.Wait()
	if hashErr != nil {
		if apperr.IsKind(hashErr, apperr.KindIO) {
			return nil, fmt.Errorf("failed to scan %s: %w", root, hashErr)
		}
		return nil, apperr.IO("scan", root, hashErr)
	}
	if walkErr != nil {
		return nil, apperr.IO("scan", root, walkErr)
	}

	return snapshot, nil
}

func (s *Scanner) fingerprint(e Entry) (fingerprint.Fingerprint, error) {
	r, err := e.Open()
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	defer func() {
		_ = r.Close()
	}()

	digest, err := s.hasher.Digest(r)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}

	return fingerprint.Fingerprint{
		Path:    e.Path,
		Digest:  digest,
		Size:    e.Size,
		ModTime: e.ModTime,
	}, nil
}
