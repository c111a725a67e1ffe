package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// Bytes formats a byte count with the greatest unit the value reaches.
// Whole numbers at B, or once the value is >= 10; two decimals below that.
func Bytes(b int64) string {
	if b <= 0 {
		return "0 B"
	}

	v := float64(b)
	exp := 0
	for v >= 1024 && exp < len(units)-1 {
		v /= 1024
		exp++
	}

	if exp == 0 || v >= 10 {
		return fmt.Sprintf("%.0f %s", v, units[exp])
	}
	return fmt.Sprintf("%.2f %s", v, units[exp])
}

var sizeRegex = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*([KMGT])i?B`)

// ParseSize converts a human size label like "1.4 GB" to bytes.
// Both KB/MB/GB/TB and KiB/MiB/GiB/TiB use a factor of 1024.
func ParseSize(sizeStr string) int64 {
	if sizeStr == "" {
		return 0
	}

	sizeStr = strings.ReplaceAll(sizeStr, ",", "")
	sizeStr = strings.TrimSpace(sizeStr)

	matches := sizeRegex.FindStringSubmatch(sizeStr)
	if len(matches) != 3 {
		return 0
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0
	}

	switch strings.ToUpper(matches[2]) {
	case "K":
		return int64(value * 1024)
	case "M":
		return int64(value * 1024 * 1024)
	case "G":
		return int64(value * 1024 * 1024 * 1024)
	case "T":
		return int64(value * 1024 * 1024 * 1024 * 1024)
	}

	return 0
}
