package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaermu/dirreconcile/internal/apperr"
	"github.com/schaermu/dirreconcile/internal/fingerprint"
	"github.com/schaermu/dirreconcile/internal/reconcile"
)

var mtime = time.Date(2024, 2, 29, 23, 59, 58, 0, time.UTC)

func fp(path string, size int64) fingerprint.Fingerprint {
	return fingerprint.Fingerprint{Path: path, Digest: "d-" + path, Size: size, ModTime: mtime}
}

func samplePatch() reconcile.Patch {
	return reconcile.Patch{
		reconcile.Add:       {fp("zeta.txt", 1), fp("alpha/new.txt", 2)},
		reconcile.Unchanged: {fp("beta.txt", 3)},
		reconcile.Conflict:  {fp("alpha/clash.txt", 4)},
	}
}

func TestRender(t *testing.T) {
	got := Render("/data/a", samplePatch(), false)

	want := "/data/a\n" +
		"! alpha/clash.txt (2024-02-29 23:59:58 | 4 bytes)\n" +
		"+ alpha/new.txt (2024-02-29 23:59:58 | 2 bytes)\n" +
		"= beta.txt (2024-02-29 23:59:58 | 3 bytes)\n" +
		"+ zeta.txt (2024-02-29 23:59:58 | 1 bytes)\n"
	assert.Equal(t, want, got)
}

func TestRender_IgnoreUnchanged(t *testing.T) {
	p := reconcile.Patch{
		reconcile.Add:       {fp("b.txt", 1)},
		reconcile.Unchanged: {fp("a.txt", 2)},
		reconcile.Conflict:  {},
	}

	got := Render("side", p, true)
	assert.Equal(t, "side\n+ b.txt (2024-02-29 23:59:58 | 1 bytes)\n", got)

	full := Render("side", p, false)
	assert.Equal(t, "side\n= a.txt (2024-02-29 23:59:58 | 2 bytes)\n+ b.txt (2024-02-29 23:59:58 | 1 bytes)\n", full)
}

func TestRender_Idempotent(t *testing.T) {
	p := samplePatch()
	for _, ignore := range []bool{false, true} {
		first := Render("x", p, ignore)
		second := Render("x", p, ignore)
		assert.Equal(t, first, second, "ignoreUnchanged=%v", ignore)
	}
}

func TestRender_EmptyPatch(t *testing.T) {
	assert.Equal(t, "label\n", Render("label", reconcile.Patch{}, false))
}

func TestLines_OrderIsTotal(t *testing.T) {
	// A path in two buckets cannot come out of Reconcile, but ordering must
	// still be deterministic if it does.
	p := reconcile.Patch{
		reconcile.Conflict: {fp("same.txt", 1)},
		reconcile.Add:      {fp("same.txt", 2)},
	}

	lines := Lines(p, false)
	require.Len(t, lines, 2)
	assert.Equal(t, reconcile.Conflict, lines[0].Op)
	assert.Equal(t, reconcile.Add, lines[1].Op)
}

func TestBuild(t *testing.T) {
	res := reconcile.Result{
		ForA: reconcile.Patch{reconcile.Add: {fp("only-b.txt", 5)}},
		ForB: reconcile.Patch{reconcile.Add: {fp("only-a.txt", 6)}},
	}
	h := Header{
		RunAt: time.Date(2025, 7, 4, 14, 3, 2, 0, time.UTC),
		DirA:  "left",
		DirB:  "right",
	}

	got, err := Build(h, &res, false)
	require.NoError(t, err)

	want := "# Results for 2025-07-04 14:03:02\n" +
		"# Reconciled 'left' 'right'\n" +
		"left\n" +
		"+ only-b.txt (2024-02-29 23:59:58 | 5 bytes)\n" +
		"\n" +
		"right\n" +
		"+ only-a.txt (2024-02-29 23:59:58 | 6 bytes)\n" +
		"\n"
	assert.Equal(t, want, got)
}

func TestBuild_NotReconciled(t *testing.T) {
	_, err := Build(Header{}, nil, false)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindState))
	assert.True(t, errors.Is(err, ErrNotReconciled))
}

func TestWrite(t *testing.T) {
	res := reconcile.Reconcile(fingerprint.Snapshot{}, fingerprint.Snapshot{})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Header{RunAt: mtime, DirA: "a", DirB: "b"}, &res, true))
	assert.Equal(t, "# Results for 2024-02-29 23:59:58\n# Reconciled 'a' 'b'\na\n\nb\n\n", buf.String())
}

func TestBuild_HeaderInUTC(t *testing.T) {
	res := reconcile.Reconcile(fingerprint.Snapshot{}, fingerprint.Snapshot{})
	runAt := time.Date(2025, 1, 1, 1, 0, 0, 0, time.FixedZone("CET", 3600))

	doc, err := Build(Header{RunAt: runAt, DirA: "a", DirB: "b"}, &res, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "# Results for 2025-01-01 00:00:00\n"), "got %q", doc)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWrite_Error(t *testing.T) {
	res := reconcile.Reconcile(fingerprint.Snapshot{}, fingerprint.Snapshot{})

	err := Write(failingWriter{}, Header{}, &res, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	err = Write(&bytes.Buffer{}, Header{}, nil, false)
	assert.True(t, apperr.IsKind(err, apperr.KindState))
}
