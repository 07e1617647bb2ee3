// Package compare decides byte-for-byte equality of two files.
package compare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/substantialcattle5/dupefiles/internal/bandwidth"
	"github.com/substantialcattle5/dupefiles/internal/constants"
)

// Comparator reads two files in lock-step blocks. Every call opens its own
// handles, so one Comparator may be shared between goroutines.
type Comparator struct {
	BlockSize int
	Limiter   *bandwidth.Limiter
}

// New returns a Comparator using the default block size
func New(limiter *bandwidth.Limiter) *Comparator {
	return &Comparator{BlockSize: constants.CompareBlockSize, Limiter: limiter}
}

// Equal reports whether a and b hold identical bytes. Callers must only
// compare files of equal size.
func (c *Comparator) Equal(ctx context.Context, a, b string) (bool, error) {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true, nil
	}

	fa, err := os.Open(a)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", a, err)
	}
	defer fa.Close()

	fb, err := os.Open(b)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", b, err)
	}
	defer fb.Close()

	if same, err := sameFile(fa, fb); err != nil {
		return false, err
	} else if same {
		return true, nil
	}

	blockSize := c.BlockSize
	if blockSize <= 0 {
		blockSize = constants.CompareBlockSize
	}

	ra := c.Limiter.Reader(ctx, fa)
	rb := c.Limiter.Reader(ctx, fb)
	bufA := make([]byte, blockSize)
	bufB := make([]byte, blockSize)

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		na, errA := io.ReadFull(ra, bufA)
		nb, errB := io.ReadFull(rb, bufB)

		if errA != nil && !isEOF(errA) {
			return false, fmt.Errorf("failed to read %s: %w", a, errA)
		}
		if errB != nil && !isEOF(errB) {
			return false, fmt.Errorf("failed to read %s: %w", b, errB)
		}

		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}

		endA, endB := errA != nil, errB != nil
		if endA || endB {
			// Both streams must end on the same block
			return endA == endB, nil
		}
	}
}

func sameFile(fa, fb *os.File) (bool, error) {
	ia, err := fa.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", fa.Name(), err)
	}
	ib, err := fb.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", fb.Name(), err)
	}
	return os.SameFile(ia, ib), nil
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
