package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCPU parses a CPU limit string ("2", "1.5", "500m") into cores.
func ParseCPU(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty cpu value")
	}
	if strings.HasSuffix(s, "m") {
		milli, err := strconv.ParseFloat(strings.TrimSuffix(s, "m"), 64)
		if err != nil || milli < 0 {
			return 0, fmt.Errorf("invalid cpu value %q", s)
		}
		return milli / 1000, nil
	}
	cores, err := strconv.ParseFloat(s, 64)
	if err != nil || cores < 0 {
		return 0, fmt.Errorf("invalid cpu value %q", s)
	}
	return cores, nil
}

var memoryUnits = map[string]int64{
	"":   1,
	"B":  1,
	"K":  1 << 10,
	"KI": 1 << 10,
	"M":  1 << 20,
	"MI": 1 << 20,
	"G":  1 << 30,
	"GI": 1 << 30,
	"T":  1 << 40,
	"TI": 1 << 40,
}

// ParseMemory parses a memory limit string ("4096M", "8G", "512Mi") into
// bytes. Suffixes are binary: M and Mi both mean 2^20.
func ParseMemory(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty memory value")
	}
	i := len(s)
	for i > 0 && !isDigit(s[i-1]) {
		i--
	}
	num, unit := s[:i], strings.ToUpper(strings.TrimSuffix(strings.ToUpper(s[i:]), "B"))
	mult, ok := memoryUnits[unit]
	if !ok {
		return 0, fmt.Errorf("invalid memory unit in %q", s)
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid memory value %q", s)
	}
	return n * mult, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
