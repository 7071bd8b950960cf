// Package reconcile compares two snapshots and builds one patch per side.
//
// The patch for a side lists the fingerprints that side would have to adopt to
// match the other one: files it lacks (Add), files it already matches
// (Unchanged) and files present on both sides with differing fingerprints
// (Conflict). Entries are always taken from the opposite snapshot.
package reconcile

import (
	"github.com/schaermu/dirreconcile/internal/fingerprint"
)

// Operation classifies one patch entry
type Operation rune

const (
	Add       Operation = '+'
	Unchanged Operation = '='
	Conflict  Operation = '!'
)

// Operations lists every classification in marker order
var Operations = []Operation{Add, Unchanged, Conflict}

// Marker returns the single-character marker used in reports
func (o Operation) Marker() string {
	return string(rune(o))
}

func (o Operation) String() string {
	switch o {
	case Add:
		return "add"
	case Unchanged:
		return "unchanged"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Patch groups fingerprints by operation. Each bucket is ordered by path.
type Patch map[Operation][]fingerprint.Fingerprint

// Len returns the total number of entries across all buckets
func (p Patch) Len() int {
	n := 0
	for _, entries := range p {
		n += len(entries)
	}
	return n
}

// Result holds the two patches produced by one reconciliation
type Result struct {
	ForA Patch // what A needs to match B, entries taken from B
	ForB Patch // what B needs to match A, entries taken from A
}

// Classification is the set algebra behind a Result. Every path of either
// snapshot appears in exactly one of the four slices, each sorted.
type Classification struct {
	AdditionsForA []string // only in B
	AdditionsForB []string // only in A
	Unchanged     []string
	Conflicts     []string
}

// Classify partitions the union of both snapshots' paths
func Classify(a, b fingerprint.Snapshot) Classification {
	var c Classification

	for _, path := range a.Paths() {
		other, shared := b[path]
		switch {
		case !shared:
			c.AdditionsForB = append(c.AdditionsForB, path)
		case a[path].Equal(other):
			c.Unchanged = append(c.Unchanged, path)
		default:
			c.Conflicts = append(c.Conflicts, path)
		}
	}

	for _, path := range b.Paths() {
		if _, shared := a[path]; !shared {
			c.AdditionsForA = append(c.AdditionsForA, path)
		}
	}

	return c
}

// Reconcile compares a and b and returns the patch for each side
func Reconcile(a, b fingerprint.Snapshot) Result {
	c := Classify(a, b)
	return Result{
		ForA: buildPatch(b, c.AdditionsForA, c.Unchanged, c.Conflicts),
		ForB: buildPatch(a, c.AdditionsForB, c.Unchanged, c.Conflicts),
	}
}

// buildPatch sources every entry from the snapshot the patched side should match
func buildPatch(source fingerprint.Snapshot, additions, unchanged, conflicts []string) Patch {
	return Patch{
		Add:       collect(source, additions),
		Unchanged: collect(source, unchanged),
		Conflict:  collect(source, conflicts),
	}
}

func collect(source fingerprint.Snapshot, paths []string) []fingerprint.Fingerprint {
	entries := make([]fingerprint.Fingerprint, 0, len(paths))
	for _, path := range paths {
		entries = append(entries, source[path])
	}
	return entries
}

// Summary counts entries per operation for one patch
type Summary struct {
	Add       int
	Unchanged int
	Conflict  int
}

// Summarize counts the entries of p
func Summarize(p Patch) Summary {
	return Summary{
		Add:       len(p[Add]),
		Unchanged: len(p[Unchanged]),
		Conflict:  len(p[Conflict]),
	}
}
