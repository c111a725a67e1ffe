package metadata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"barestreams/titles"
)

// TitleLookup resolves an IMDb tconst to its basics record, nil on miss.
type TitleLookup interface {
	Lookup(tconst string) *titles.TitleBasics
}

// Queries is the search vocabulary derived from a request id.
type Queries struct {
	BaseTitle     string
	Query         string
	FallbackQuery string
	EpisodeSuffix string
	Series        bool
}

var seriesTitleTypes = map[string]struct{}{
	"tvseries":     {},
	"tvminiseries": {},
	"tvepisode":    {},
}

func IsSeriesTitle(titleType string) bool {
	_, ok := seriesTitleTypes[strings.ToLower(titleType)]
	return ok
}

// BuildQueries resolves the base title and produces the primary and
// fallback search queries for a request.
func BuildQueries(rid RequestID, lookup TitleLookup) Queries {
	var basics *titles.TitleBasics
	if lookup != nil {
		basics = lookup.Lookup(rid.BaseID)
	}

	baseTitle := rid.BaseID
	if basics != nil {
		switch {
		case basics.PrimaryTitle != "":
			baseTitle = basics.PrimaryTitle
		case basics.OriginalTitle != "":
			baseTitle = basics.OriginalTitle
		}
	}

	q := Queries{BaseTitle: baseTitle}
	if rid.IsEpisode() {
		q.EpisodeSuffix = fmt.Sprintf("S%02dE%02d", rid.Season, rid.Episode)
	}
	q.Series = q.EpisodeSuffix != "" || (basics != nil && IsSeriesTitle(basics.TitleType))

	if q.EpisodeSuffix != "" {
		q.Query = Normalize(baseTitle + " " + q.EpisodeSuffix)
		q.FallbackQuery = Normalize(baseTitle)
		return q
	}

	primary := baseTitle
	if basics != nil && basics.StartYear > 0 {
		primary += " " + strconv.Itoa(basics.StartYear)
	}
	q.Query = Normalize(primary)
	if fallback := Normalize(baseTitle); fallback != q.Query {
		q.FallbackQuery = fallback
	}
	return q
}

var (
	nonAlnumRuns   = regexp.MustCompile(`[^a-zA-Z0-9\s]+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
	// "Handmaid s Tale" -> "Handmaids Tale": re-attach possessives that
	// punctuation stripping severed.
	severedPossessive = regexp.MustCompile(`([a-zA-Z0-9]+) s\b`)
)

// Normalize strips punctuation to single spaces, collapses whitespace
// and re-attaches severed possessives.
func Normalize(s string) string {
	s = nonAlnumRuns.ReplaceAllString(s, " ")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return severedPossessive.ReplaceAllString(s, "${1}s")
}
