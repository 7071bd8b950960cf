package scan

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Entry is one regular file produced by a Lister
type Entry struct {
	Path    string // relative to the listed root, slash separated
	Size    int64
	ModTime time.Time

	open func() (io.ReadCloser, error)
}

// NewEntry builds an Entry whose content is provided by open
func NewEntry(path string, size int64, modTime time.Time, open func() (io.ReadCloser, error)) Entry {
	return Entry{Path: path, Size: size, ModTime: modTime, open: open}
}

// Open returns a fresh stream over the entry's content
func (e Entry) Open() (io.ReadCloser, error) {
	if e.open == nil {
		return nil, fmt.Errorf("entry %q has no content source", e.Path)
	}
	return e.open()
}

// Lister enumerates every regular file below a root, recursively.
// A Lister may be walked again after List returns but not concurrently.
type Lister interface {
	List(ctx context.Context, fn func(Entry) error) error
}

// FSLister lists a go-billy filesystem from its root
type FSLister struct {
	fs billy.Filesystem
}

// NewFSLister creates a Lister over fsys
func NewFSLister(fsys billy.Filesystem) *FSLister {
	return &FSLister{fs: fsys}
}

// NewOSLister creates a Lister rooted at a directory on the local disk.
// The walk does not follow a symlink at its root, so root is made absolute
// and resolved first. It fails if root does not exist or is not a directory.
func NewOSLister(root string) (*FSLister, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, syscall.ENOTDIR)
	}
	return NewFSLister(osfs.New(resolved)), nil
}

// List walks the filesystem and calls fn for each regular file.
// Directories are descended into; symlinks and other special files are skipped.
func (l *FSLister) List(ctx context.Context, fn func(Entry) error) error {
	return util.Walk(l.fs, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		name := path
		return fn(Entry{
			Path:    relativePath(path),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			open: func() (io.ReadCloser, error) {
				return l.fs.Open(name)
			},
		})
	})
}

// relativePath strips the walk root and normalizes separators
func relativePath(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(path), "/")
}
