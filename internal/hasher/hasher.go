// Package hasher provides the interchangeable content fingerprint algorithms.
// An algorithm is selected once per run by name and injected into the scanner.
package hasher

import (
	"crypto/md5"  //nolint:gosec // fingerprinting, not security
	"crypto/sha1" //nolint:gosec // fingerprinting, not security
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"io"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Algorithm names accepted by New
const (
	MD5     = "md5"
	CRC32   = "crc32"
	Adler32 = "adler32"
	SHA1    = "sha1"
	SHA256  = "sha256"
	XXHash  = "xxhash"

	// Default is used when no algorithm is chosen
	Default = MD5
)

const bufferSize = 64 * 1024

// ContentHasher turns a byte stream into a deterministic hex digest.
// Implementations must be safe for concurrent use.
type ContentHasher interface {
	// Name returns the canonical algorithm name
	Name() string
	// Digest consumes r to EOF and returns the hex-encoded hash
	Digest(r io.Reader) (string, error)
}

var constructors = map[string]func() hash.Hash{
	MD5:     md5.New,
	CRC32:   func() hash.Hash { return crc32.NewIEEE() },
	Adler32: func() hash.Hash { return adler32.New() },
	SHA1:    sha1.New,
	SHA256:  sha256.New,
	XXHash:  func() hash.Hash { return xxhash.New() },
}

var aliases = map[string]string{
	"crc":  CRC32,
	"sha2": SHA256,
}

// streamHasher adapts a hash.Hash constructor to ContentHasher
type streamHasher struct {
	name    string
	newHash func() hash.Hash
}

// New returns the ContentHasher registered under name or one of its aliases
//
//nolint:ireturn // callers only depend on the capability
func New(name string) (ContentHasher, error) {
	canonical, err := Canonical(name)
	if err != nil {
		return nil, err
	}
	return &streamHasher{name: canonical, newHash: constructors[canonical]}, nil
}

// Canonical resolves aliases ("crc", "sha2") to the registered algorithm name
func Canonical(name string) (string, error) {
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	if _, ok := constructors[name]; !ok {
		return "", fmt.Errorf("unknown checksum algorithm %q (must be one of %v)", name, Names())
	}
	return name, nil
}

// Names lists the canonical algorithm names in ascending order
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *streamHasher) Name() string {
	return s.name
}

func (s *streamHasher) Digest(r io.Reader) (string, error) {
	h := s.newHash()
	buf := make([]byte, bufferSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
