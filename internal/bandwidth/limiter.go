package bandwidth

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/time/rate"

	"github.com/substantialcattle5/dupefiles/util"
)

// Limiter throttles disk reads using a token bucket shared by every reader
// created from it, so hashing workers and comparisons draw from one budget.
type Limiter struct {
	rateLimiter *rate.Limiter
	limit       string // Original limit string for display purposes
}

// NewLimiter creates a new read limiter from a limit string
// Examples: "1M", "100K", "500KB", "2MB"
func NewLimiter(limitStr string) (*Limiter, error) {
	if limitStr == "" {
		return nil, nil // No limiting if empty
	}

	bytesPerSecond, err := util.ParseSize(limitStr)
	if err != nil {
		return nil, fmt.Errorf("invalid io limit '%s': %w", limitStr, err)
	}

	if bytesPerSecond <= 0 {
		return nil, fmt.Errorf("io limit must be positive, got %d bytes/second", bytesPerSecond)
	}

	// Burst of one second of data, at least 64KB so a full buffer fits
	burst := int(bytesPerSecond)
	if burst < 64*1024 {
		burst = 64 * 1024
	}

	return &Limiter{
		rateLimiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
		limit:       limitStr,
	}, nil
}

// WaitN waits for n bytes to be available according to the rate limit
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if l == nil || l.rateLimiter == nil {
		return nil
	}
	if n > l.rateLimiter.Burst() {
		n = l.rateLimiter.Burst()
	}
	return l.rateLimiter.WaitN(ctx, n)
}

// Limit returns the original limit string
func (l *Limiter) Limit() string {
	if l == nil {
		return ""
	}
	return l.limit
}

// Rate returns the current rate limit in bytes per second
func (l *Limiter) Rate() float64 {
	if l == nil || l.rateLimiter == nil {
		return 0
	}
	return float64(l.rateLimiter.Limit())
}

// Reader wraps r so every read is charged against the limiter. A nil
// limiter returns r unchanged.
func (l *Limiter) Reader(ctx context.Context, r io.Reader) io.Reader {
	if l == nil || l.rateLimiter == nil {
		return r
	}
	return &limitedReader{ctx: ctx, r: r, l: l}
}

type limitedReader struct {
	ctx context.Context
	r   io.Reader
	l   *Limiter
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	n, err := lr.r.Read(p)
	if n > 0 {
		if werr := lr.l.WaitN(lr.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
