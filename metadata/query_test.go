package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"barestreams/titles"
)

type fakeLookup map[string]*titles.TitleBasics

func (f fakeLookup) Lookup(tconst string) *titles.TitleBasics { return f[tconst] }

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"The Handmaid's Tale", "The Handmaids Tale"},
		{"Spider-Man: No Way Home", "Spider Man No Way Home"},
		{"  many   spaces  ", "many spaces"},
		{"plain title", "plain title"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), tc.in)
	}
}

func TestBuildQueriesMovie(t *testing.T) {
	lookup := fakeLookup{
		"tt10872600": {
			Tconst:       "tt10872600",
			TitleType:    "movie",
			PrimaryTitle: "Spider-Man: No Way Home",
			StartYear:    2021,
		},
	}

	q := BuildQueries(RequestID{BaseID: "tt10872600"}, lookup)
	assert.Equal(t, "Spider-Man: No Way Home", q.BaseTitle)
	assert.Equal(t, "Spider Man No Way Home 2021", q.Query)
	assert.Equal(t, "Spider Man No Way Home", q.FallbackQuery)
	assert.Empty(t, q.EpisodeSuffix)
	assert.False(t, q.Series)
}

func TestBuildQueriesEpisode(t *testing.T) {
	lookup := fakeLookup{
		"tt5834204": {
			Tconst:       "tt5834204",
			TitleType:    "tvSeries",
			PrimaryTitle: "The Handmaid's Tale",
			StartYear:    2017,
		},
	}

	q := BuildQueries(RequestID{BaseID: "tt5834204", Season: 2, Episode: 3}, lookup)
	assert.Equal(t, "The Handmaid's Tale", q.BaseTitle)
	assert.Equal(t, "S02E03", q.EpisodeSuffix)
	assert.Equal(t, "The Handmaids Tale S02E03", q.Query)
	assert.Equal(t, "The Handmaids Tale", q.FallbackQuery)
	assert.True(t, q.Series)
}

func TestBuildQueriesUnresolvedTitle(t *testing.T) {
	q := BuildQueries(RequestID{BaseID: "tt999"}, fakeLookup{})
	assert.Equal(t, "tt999", q.BaseTitle)
	assert.Equal(t, "tt999", q.Query)
	assert.Empty(t, q.FallbackQuery)
}

func TestBuildQueriesOriginalTitleFallback(t *testing.T) {
	lookup := fakeLookup{
		"tt1": {Tconst: "tt1", TitleType: "movie", OriginalTitle: "Le Fabuleux Destin"},
	}
	q := BuildQueries(RequestID{BaseID: "tt1"}, lookup)
	assert.Equal(t, "Le Fabuleux Destin", q.BaseTitle)
}

func TestIsSeriesTitle(t *testing.T) {
	assert.True(t, IsSeriesTitle("tvSeries"))
	assert.True(t, IsSeriesTitle("tvMiniSeries"))
	assert.True(t, IsSeriesTitle("tvEpisode"))
	assert.False(t, IsSeriesTitle("movie"))
	assert.False(t, IsSeriesTitle(""))
}
