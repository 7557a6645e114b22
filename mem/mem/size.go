package mem

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Byte sizes in binary units.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
	GB uint64 = 1 << 30
	TB uint64 = 1 << 40
)

// ParseSize converts a human readable size such as "512MB", "2GiB", "4k" or
// "4096" into a number of bytes. Memory sizes are binary, so "MB" and "MiB"
// both mean 2^20 bytes.
func ParseSize(s string) (uint64, error) {
	n, err := humanize.ParseBigBytes(binarySuffix(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	if !n.IsUint64() {
		return 0, fmt.Errorf("size %q does not fit in 64 bits", s)
	}

	return n.Uint64(), nil
}

func binarySuffix(s string) string {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if s == "" {
		return s
	}

	isPrefix := func(c byte) bool {
		return strings.IndexByte("kmgtpe", c) >= 0
	}

	last := s[len(s)-1]
	switch {
	case isPrefix(last):
		return s + "ib"
	case last == 'b' && len(s) >= 2 && isPrefix(s[len(s)-2]):
		return s[:len(s)-1] + "ib"
	}

	return s
}

// FormatSize prints a byte count with binary units, e.g. "2.0 GiB".
func FormatSize(n uint64) string {
	return humanize.IBytes(n)
}
