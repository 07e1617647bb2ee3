package util

import (
	"fmt"
	"strconv"
	"strings"
)

var sizeMultipliers = map[string]int64{
	"":  1,
	"B": 1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
}

// ParseSize converts a size such as "512", "10K", "10KB", "4MiB" or "2G"
// into bytes. Units are binary and case-insensitive.
func ParseSize(s string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return 0, fmt.Errorf("invalid size format: %q", s)
	}

	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size format: %q", s)
	}

	number, err := strconv.ParseInt(trimmed[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %q: %w", s, err)
	}

	suffix := strings.TrimSpace(trimmed[i:])
	if len(suffix) == 3 && strings.HasSuffix(suffix, "IB") {
		suffix = suffix[:1]
	} else if len(suffix) == 2 && suffix[1] == 'B' {
		suffix = suffix[:1]
	}

	multiplier, ok := sizeMultipliers[suffix]
	if !ok {
		return 0, fmt.Errorf("invalid size unit in %q", s)
	}
	if number > 0 && multiplier > 1 && number > (1<<63-1)/multiplier {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return number * multiplier, nil
}
