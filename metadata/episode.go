package metadata

import (
	"regexp"
	"strconv"
)

// Ordered loosest-first: "Season 2 Episode 3", then "S02E03", then "2x03".
var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)S(?:eason)?\s*0?(\d{1,2})\s*E(?:pisode)?\s*0?(\d{1,2})`),
	regexp.MustCompile(`(?i)S(\d{1,2})E(\d{1,2})`),
	regexp.MustCompile(`(\d{1,2})x(\d{1,2})`),
}

// ParseEpisode recognizes a season/episode marker inside a release name.
func ParseEpisode(text string) (season, episode int, ok bool) {
	for _, pattern := range episodePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			season, _ = strconv.Atoi(m[1])
			episode, _ = strconv.Atoi(m[2])
			return season, episode, true
		}
	}
	return 0, 0, false
}

// MatchesEpisode reports whether a release name targets the requested
// episode. With no episode requested everything matches; with one
// requested, names that carry no marker never match.
func MatchesEpisode(name string, season, episode int) bool {
	if season <= 0 || episode <= 0 {
		return true
	}
	s, e, ok := ParseEpisode(name)
	if !ok {
		return false
	}
	return s == season && e == episode
}
