package engine

import (
	"fmt"
	"strconv"
	"strings"
)

var memoryUnits = map[string]uint64{
	"b":     1,
	"bytes": 1,
	"kb":    1000,
	"k":     1 << 10,
	"kib":   1 << 10,
	"mb":    1000 * 1000,
	"m":     1 << 20,
	"mib":   1 << 20,
	"gb":    1000 * 1000 * 1000,
	"g":     1 << 30,
	"gib":   1 << 30,
	"tb":    1000 * 1000 * 1000 * 1000,
	"t":     1 << 40,
	"tib":   1 << 40,
}

// ParseMemory converts a memory amount with its unit attribute to bytes.
// An empty unit means KiB.
func ParseMemory(value, unit string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory amount %q", value)
	}

	if unit == "" {
		unit = "KiB"
	}
	scale, ok := memoryUnits[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("unknown memory unit %q", unit)
	}
	if n > ^uint64(0)/scale {
		return 0, fmt.Errorf("memory amount %s %s overflows", value, unit)
	}
	return n * scale, nil
}

// ParseInt parses an integer with an optional 0x, 0o or 0b prefix.
func ParseInt(s string) (uint64, error) {
	digits := strings.ToLower(strings.TrimSpace(s))
	base := 10
	switch {
	case strings.HasPrefix(digits, "0x"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0o"):
		base, digits = 8, digits[2:]
	case strings.HasPrefix(digits, "0b"):
		base, digits = 2, digits[2:]
	}
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}
