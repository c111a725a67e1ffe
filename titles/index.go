// Package titles serves IMDb title.basics lookups from the sorted TSV
// dataset without loading it into memory.
package titles

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// TitleBasics is one row of title.basics.tsv. Zero values stand in for
// the dataset's \N fields.
type TitleBasics struct {
	Tconst         string
	TitleType      string
	PrimaryTitle   string
	OriginalTitle  string
	IsAdult        bool
	StartYear      int
	EndYear        int
	RuntimeMinutes int
	Genres         []string
}

// Index performs binary searches over the sorted TSV by byte offset.
// Lookups, including misses, are memoized for the process lifetime.
type Index struct {
	path string

	mu   sync.RWMutex
	memo map[string]*TitleBasics
}

func NewIndex(path string) *Index {
	return &Index{
		path: path,
		memo: make(map[string]*TitleBasics),
	}
}

// Lookup returns the record for a tconst, or nil. Filesystem errors
// degrade silently to nil.
func (ix *Index) Lookup(tconst string) *TitleBasics {
	ix.mu.RLock()
	basics, cached := ix.memo[tconst]
	ix.mu.RUnlock()
	if cached {
		return basics
	}

	basics = ix.search(tconst)

	ix.mu.Lock()
	ix.memo[tconst] = basics
	ix.mu.Unlock()
	return basics
}

// search opens its own file handle; concurrent lookups never share a
// cursor.
func (ix *Index) search(tconst string) *TitleBasics {
	f, err := os.Open(ix.path)
	if err != nil {
		return nil
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil
	}
	size := stat.Size()

	dataStart, err := dataOffset(f)
	if err != nil || dataStart >= size {
		return nil
	}

	low, high := dataStart, size-1
	for low <= high {
		mid := low + (high-low)/2

		start, err := lineStart(f, mid, dataStart)
		if err != nil {
			return nil
		}
		line, err := readLine(f, start, size)
		if err != nil {
			return nil
		}

		key, _, _ := strings.Cut(line, "\t")
		switch {
		case key == tconst:
			return parseRow(line)
		case key < tconst:
			low = start + int64(len(line)) + 1
		default:
			high = start - 2
		}
	}
	return nil
}

// dataOffset skips the header row.
func dataOffset(f *os.File) (int64, error) {
	header, err := readLine(f, 0, 1<<20)
	if err != nil {
		return 0, err
	}
	return int64(len(header)) + 1, nil
}

// lineStart scans backwards from off to the nearest newline, clamped to
// the start of the data region.
func lineStart(f *os.File, off, dataStart int64) (int64, error) {
	buf := make([]byte, 512)
	cur := off
	for cur > dataStart {
		from := cur - int64(len(buf))
		if from < dataStart {
			from = dataStart
		}
		n, err := f.ReadAt(buf[:cur-from], from)
		if err != nil && err != io.EOF {
			return 0, err
		}
		for i := n - 1; i >= 0; i-- {
			if buf[i] == '\n' {
				return from + int64(i) + 1, nil
			}
		}
		cur = from
	}
	return dataStart, nil
}

func readLine(f *os.File, start, size int64) (string, error) {
	if start >= size {
		return "", io.EOF
	}
	r := bufio.NewReader(io.NewSectionReader(f, start, size-start))
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}

func parseRow(line string) *TitleBasics {
	cols := strings.Split(line, "\t")
	if len(cols) < 9 {
		return nil
	}
	basics := &TitleBasics{
		Tconst:         cols[0],
		TitleType:      field(cols[1]),
		PrimaryTitle:   field(cols[2]),
		OriginalTitle:  field(cols[3]),
		IsAdult:        cols[4] == "1",
		StartYear:      numField(cols[5]),
		EndYear:        numField(cols[6]),
		RuntimeMinutes: numField(cols[7]),
	}
	if genres := field(cols[8]); genres != "" {
		basics.Genres = strings.Split(genres, ",")
	}
	return basics
}

func field(s string) string {
	if s == `\N` {
		return ""
	}
	return s
}

func numField(s string) int {
	if s == `\N` {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
