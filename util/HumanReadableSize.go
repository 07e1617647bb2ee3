package util

import "fmt"

var sizeUnits = []string{"KB", "MB", "GB", "TB"}

// HumanReadableSize formats a byte count using binary units, e.g. "1.5 KB".
// Values beyond the terabyte range stay in TB.
func HumanReadableSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	value := float64(size) / unit
	i := 0
	for value >= unit && i < len(sizeUnits)-1 {
		value /= unit
		i++
	}
	return fmt.Sprintf("%.1f %s", value, sizeUnits[i])
}

// HumanReadableSizeU is HumanReadableSize for unsigned counts
func HumanReadableSizeU(size uint64) string {
	return HumanReadableSize(int64(size))
}
