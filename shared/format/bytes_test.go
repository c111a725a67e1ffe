package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{10 * 1024, "10 KB"},
		{1024 * 1024, "1.00 MB"},
		{1503238553, "1.40 GB"},
		{15 * 1024 * 1024 * 1024, "15 GB"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Bytes(tc.in))
	}
}

func TestParseSize(t *testing.T) {
	gb14 := 1.4 * 1024 * 1024 * 1024
	cases := []struct {
		in   string
		want int64
	}{
		{"512 KB", 512 * 1024},
		{"1.5 MB", int64(1.5 * 1024 * 1024)},
		{"1.4 GB", int64(gb14)},
		{"2 TB", 2 * 1024 * 1024 * 1024 * 1024},
		// The binary-suffix family uses the same factor.
		{"1.4 GiB", int64(gb14)},
		{"512 KiB", 512 * 1024},
		{"1,024 MB", 1024 * 1024 * 1024},
		{"700MB", 700 * 1024 * 1024},
		{"", 0},
		{"no size here", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseSize(tc.in), tc.in)
	}
}
