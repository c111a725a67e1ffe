package providers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"barestreams/shared/format"
)

// DisplayInput feeds the user-visible rendering of one stream.
type DisplayInput struct {
	ImdbTitle   string
	Season      int
	Episode     int
	TorrentName string
	Quality     string
	Source      string
	Seeders     int
	SizeBytes   int64
	SizeLabel   string
}

type Display struct {
	Name        string
	Title       string
	Description string
}

// FormatDisplay builds the name/title/description lines shown by the
// player for one stream.
func FormatDisplay(in DisplayInput) Display {
	name := in.Source
	if name == "" {
		name = "Stream"
	}

	tag := ExtractQuality(in.Quality)
	if tag == "" {
		tag = ExtractQuality(in.TorrentName)
	}
	var title string
	switch tag {
	case "":
		title = "Watch 480p"
	case "2160p":
		title = "Watch 4K"
	default:
		title = "Watch " + tag
	}

	var lines []string
	if in.ImdbTitle != "" {
		lines = append(lines, in.ImdbTitle)
	}
	if in.Season > 0 && in.Episode > 0 {
		lines = append(lines, fmt.Sprintf("Season %d Episode %d", in.Season, in.Episode))
	}

	slug := releaseSlug(in.TorrentName, in.ImdbTitle)
	if slug == "" {
		slug = in.Quality
	}
	if slug == "" {
		slug = "Unknown release"
	}
	sourceLabel := in.Source
	if sourceLabel == "" {
		sourceLabel = "Unknown"
	}
	lines = append(lines, slug+" ("+sourceLabel+")")

	size := in.SizeLabel
	if size == "" && in.SizeBytes > 0 {
		size = format.Bytes(in.SizeBytes)
	}
	if size == "" {
		size = "Unknown size"
	}
	seeders := in.Seeders
	if seeders < 0 {
		seeders = 0
	}
	lines = append(lines, fmt.Sprintf("🌱 %d • 💾 %s", seeders, size))

	return Display{
		Name:        name,
		Title:       title,
		Description: strings.Join(lines, "\n"),
	}
}

var (
	episodeMarker = regexp.MustCompile(`(?i)S\d{1,2}E\d{1,2}`)
	punctRuns     = regexp.MustCompile(`[._\s]+`)
	alnumWords    = regexp.MustCompile(`[a-zA-Z0-9]+`)
)

// releaseSlug reduces a torrent name to its release details: the title
// and episode marker are removed and separator punctuation collapses
// to spaces.
func releaseSlug(name, imdbTitle string) string {
	if name == "" {
		return ""
	}
	if pattern := titlePattern(imdbTitle); pattern != nil {
		name = pattern.ReplaceAllString(name, " ")
	}
	name = episodeMarker.ReplaceAllString(name, " ")
	name = punctRuns.ReplaceAllString(name, " ")
	return strings.TrimFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// titlePattern matches the title as it appears inside release names,
// where any punctuation may stand in for spaces.
func titlePattern(title string) *regexp.Regexp {
	words := alnumWords.FindAllString(title, -1)
	if len(words) == 0 {
		return nil
	}
	for i := range words {
		words[i] = regexp.QuoteMeta(words[i])
	}
	pattern, err := regexp.Compile(`(?i)` + strings.Join(words, `[\W_]*`))
	if err != nil {
		return nil
	}
	return pattern
}
