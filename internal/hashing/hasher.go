// Package hashing computes content digests of indexed files.
package hashing

import (
	"context"
	"crypto/md5"  // #nosec G501 - offered for compatibility with older indexes
	"crypto/sha1" // #nosec G505
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
	"lukechampine.com/blake3"

	"github.com/substantialcattle5/dupefiles/internal/bandwidth"
	"github.com/substantialcattle5/dupefiles/internal/constants"
)

// Result is either a digest or the reason none could be computed.
// A failed result never carries a digest.
type Result struct {
	Digest string
	Err    error
}

// OK reports whether the result holds a usable digest
func (r Result) OK() bool {
	return r.Err == nil && r.Digest != ""
}

// Hasher computes the digest of a file's content
type Hasher interface {
	Sum(ctx context.Context, path string) Result
}

// FileHasher streams a file through a hash.Hash
type FileHasher struct {
	Algorithm  string
	BufferSize int
	Limiter    *bandwidth.Limiter
}

// NewFileHasher validates the algorithm up front
func NewFileHasher(algorithm string, limiter *bandwidth.Limiter) (*FileHasher, error) {
	if _, err := NewHash(algorithm); err != nil {
		return nil, err
	}
	return &FileHasher{
		Algorithm:  algorithm,
		BufferSize: constants.HashBufferSize,
		Limiter:    limiter,
	}, nil
}

// NewHash creates a hash.Hash for the named algorithm
func NewHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case constants.HashAlgorithmSHA256, "": // Default to SHA-256 if empty
		return sha256.New(), nil
	case constants.HashAlgorithmSHA512:
		return sha512.New(), nil
	case constants.HashAlgorithmSHA1:
		// #nosec G401
		return sha1.New(), nil
	case constants.HashAlgorithmMD5:
		// #nosec G401
		return md5.New(), nil
	case constants.HashAlgorithmBLAKE2B:
		return blake2b.New256(nil)
	case constants.HashAlgorithmBLAKE3:
		return blake3.New(32, nil), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// Algorithms lists every supported algorithm name
func Algorithms() []string {
	return []string{
		constants.HashAlgorithmSHA256,
		constants.HashAlgorithmSHA512,
		constants.HashAlgorithmSHA1,
		constants.HashAlgorithmMD5,
		constants.HashAlgorithmBLAKE2B,
		constants.HashAlgorithmBLAKE3,
	}
}

// Sum hashes the file at path. Cancellation is observed between buffer reads.
func (h *FileHasher) Sum(ctx context.Context, path string) Result {
	hasher, err := NewHash(h.Algorithm)
	if err != nil {
		return Result{Err: err}
	}

	file, err := os.Open(path)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to open %s: %w", path, err)}
	}
	defer file.Close()

	bufSize := h.BufferSize
	if bufSize <= 0 {
		bufSize = constants.HashBufferSize
	}

	reader := h.Limiter.Reader(ctx, &contextReader{ctx: ctx, r: file})
	if _, err := io.CopyBuffer(hasher, reader, make([]byte, bufSize)); err != nil {
		return Result{Err: fmt.Errorf("failed to read %s: %w", path, err)}
	}

	return Result{Digest: hex.EncodeToString(hasher.Sum(nil))}
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
