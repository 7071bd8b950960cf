package fingerprint

import (
	"fmt"
	"sort"
	"time"
)

// TimeLayout is the layout used when a fingerprint's modification time is printed
const TimeLayout = "2006-01-02 15:04:05"

// Fingerprint identifies the content state of one file within a scanned tree
type Fingerprint struct {
	Path    string    // relative to the scan root, slash separated
	Digest  string    // hex-encoded content hash
	Size    int64     // bytes
	ModTime time.Time // last modification
}

// Equal reports whether two fingerprints describe the same file state.
// Modification times are compared at whole-second resolution.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Path == other.Path &&
		f.Digest == other.Digest &&
		f.Size == other.Size &&
		f.ModTime.Unix() == other.ModTime.Unix()
}

// String formats the fingerprint as "<path> (<mtime> | <size> bytes)"
func (f Fingerprint) String() string {
	return fmt.Sprintf("%s (%s | %d bytes)", f.Path, f.ModTime.UTC().Format(TimeLayout), f.Size)
}

// Snapshot maps relative paths to the fingerprints captured by one scan
type Snapshot map[string]Fingerprint

// Paths returns the snapshot's keys in ascending order
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
