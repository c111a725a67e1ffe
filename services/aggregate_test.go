package services

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barestreams/config"
	"barestreams/metadata"
	"barestreams/models"
	"barestreams/providers"
	"barestreams/titles"
)

type memCache struct {
	entries map[string]string
}

func newMemCache() *memCache { return &memCache{entries: make(map[string]string)} }

func (c *memCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) {
	c.entries[key] = value
}

type stubScraper struct {
	name    string
	streams []models.Stream
	calls   int
	// waitForCancel makes the scraper behave like a slow upstream.
	waitForCancel bool
}

func (s *stubScraper) Name() string { return s.name }

func (s *stubScraper) Scrape(ctx context.Context, _ metadata.RequestID) models.StreamResponse {
	s.calls++
	if s.waitForCancel {
		<-ctx.Done()
		return models.StreamResponse{Streams: []models.Stream{}}
	}
	return models.StreamResponse{Streams: s.streams}
}

type noTitles struct{}

func (noTitles) Lookup(string) *titles.TitleBasics { return nil }

func testApp(store *memCache, wait time.Duration, movie, series []providers.Scraper) *App {
	return &App{
		cfg:            &config.Config{MaxRequestWait: wait, RedisTTL: time.Hour},
		cache:          store,
		titles:         noTitles{},
		movieScrapers:  movie,
		seriesScrapers: series,
	}
}

func TestHandleStreamInvalidRequest(t *testing.T) {
	app := testApp(newMemCache(), 0, nil, nil)

	_, err := app.HandleStream(context.Background(), "music", "tt123")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = app.HandleStream(context.Background(), "movie", "123")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = app.HandleStream(context.Background(), "series", "tt123:0:1")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHandleStreamMergesSources(t *testing.T) {
	a := &stubScraper{name: "A", streams: []models.Stream{
		{Name: "A", InfoHash: "dd82", Seeders: 50, Sources: []string{"tracker:udp://one", "tracker:udp://two"}},
	}}
	b := &stubScraper{name: "B", streams: []models.Stream{
		{Name: "B", InfoHash: "dd82", Seeders: 70, Sources: []string{"tracker:udp://two", "tracker:udp://three"}},
	}}
	app := testApp(newMemCache(), 0, []providers.Scraper{a, b}, nil)

	resp, err := app.HandleStream(context.Background(), "movie", "tt10872600")
	require.NoError(t, err)
	require.Len(t, resp.Streams, 1)

	// The first occurrence wins; later duplicates only contribute sources.
	assert.Equal(t, "A", resp.Streams[0].Name)
	assert.ElementsMatch(t,
		[]string{"tracker:udp://one", "tracker:udp://two", "tracker:udp://three"},
		resp.Streams[0].Sources)
}

func TestHandleStreamDropsDeadMagnets(t *testing.T) {
	s := &stubScraper{name: "A", streams: []models.Stream{
		{Name: "dead", InfoHash: "aa11", Seeders: 0},
		{Name: "alive", InfoHash: "bb22", Seeders: 3},
		{Name: "dead url", URL: "magnet:?xt=urn:btih:cc33", Seeders: 0},
		{Name: "hosted", URL: "https://cdn.example/video.mp4", Seeders: 0},
	}}
	app := testApp(newMemCache(), 0, []providers.Scraper{s}, nil)

	resp, err := app.HandleStream(context.Background(), "movie", "tt1")
	require.NoError(t, err)
	require.Len(t, resp.Streams, 2)
	assert.Equal(t, "alive", resp.Streams[0].Name)
	assert.Equal(t, "hosted", resp.Streams[1].Name)
}

func TestHandleStreamSortsBySeeders(t *testing.T) {
	a := &stubScraper{name: "A", streams: []models.Stream{
		{Name: "low", InfoHash: "aa11", Seeders: 2},
		{Name: "tie-first", InfoHash: "bb22", Seeders: 40},
	}}
	b := &stubScraper{name: "B", streams: []models.Stream{
		{Name: "tie-second", InfoHash: "cc33", Seeders: 40},
		{Name: "high", InfoHash: "dd44", Seeders: 90},
	}}
	app := testApp(newMemCache(), 0, []providers.Scraper{a, b}, nil)

	resp, err := app.HandleStream(context.Background(), "movie", "tt1")
	require.NoError(t, err)
	require.Len(t, resp.Streams, 4)
	assert.Equal(t, "high", resp.Streams[0].Name)
	assert.Equal(t, "tie-first", resp.Streams[1].Name)
	assert.Equal(t, "tie-second", resp.Streams[2].Name)
	assert.Equal(t, "low", resp.Streams[3].Name)
}

var bingeGroupPattern = regexp.MustCompile(`-(2160p|1080p|720p|480p|unknown)$`)

func TestHandleStreamBingeGroups(t *testing.T) {
	s := &stubScraper{name: "EZTV", streams: []models.Stream{
		{Name: "EZTV", InfoHash: "aa11", Seeders: 10, Quality: "1080p"},
		{Name: "EZTV", InfoHash: "bb22", Seeders: 5},
	}}
	app := testApp(newMemCache(), 0, nil, []providers.Scraper{s})

	resp, err := app.HandleStream(context.Background(), "series", "tt5834204:2:3")
	require.NoError(t, err)
	require.Len(t, resp.Streams, 2)

	require.NotNil(t, resp.Streams[0].BehaviorHints)
	assert.Equal(t, "barestreams-eztv-1080p", resp.Streams[0].BehaviorHints.BingeGroup)
	assert.Equal(t, "barestreams-eztv-unknown", resp.Streams[1].BehaviorHints.BingeGroup)
	for _, stream := range resp.Streams {
		assert.Regexp(t, bingeGroupPattern, stream.BehaviorHints.BingeGroup)
	}
}

func TestHandleStreamNoBingeGroupForMovies(t *testing.T) {
	s := &stubScraper{name: "YTS", streams: []models.Stream{
		{Name: "YTS", InfoHash: "aa11", Seeders: 10, Quality: "1080p"},
	}}
	app := testApp(newMemCache(), 0, []providers.Scraper{s}, nil)

	resp, err := app.HandleStream(context.Background(), "movie", "tt1")
	require.NoError(t, err)
	require.Len(t, resp.Streams, 1)
	assert.Nil(t, resp.Streams[0].BehaviorHints)
}

func TestHandleStreamCachesNonEmpty(t *testing.T) {
	store := newMemCache()
	s := &stubScraper{name: "A", streams: []models.Stream{
		{Name: "A", InfoHash: "aa11", Seeders: 10},
	}}
	app := testApp(store, 0, []providers.Scraper{s}, nil)

	_, err := app.HandleStream(context.Background(), "movie", "tt10872600")
	require.NoError(t, err)
	require.Contains(t, store.entries, "stream:movie:tt10872600")

	// Seeders never reach the serialized form.
	var cached map[string]any
	require.NoError(t, json.Unmarshal([]byte(store.entries["stream:movie:tt10872600"]), &cached))
	streams := cached["streams"].([]any)
	assert.NotContains(t, streams[0].(map[string]any), "seeders")

	// Second call is served from the cache without touching scrapers.
	resp, err := app.HandleStream(context.Background(), "movie", "tt10872600")
	require.NoError(t, err)
	assert.Len(t, resp.Streams, 1)
	assert.Equal(t, 1, s.calls)
}

func TestHandleStreamEmptyNotCached(t *testing.T) {
	store := newMemCache()
	s := &stubScraper{name: "A"}
	app := testApp(store, 0, []providers.Scraper{s}, nil)

	resp, err := app.HandleStream(context.Background(), "movie", "tt1")
	require.NoError(t, err)
	assert.Empty(t, resp.Streams)
	assert.Empty(t, store.entries)
}

func TestHandleStreamDeadline(t *testing.T) {
	store := newMemCache()
	s := &stubScraper{name: "slow", waitForCancel: true}
	app := testApp(store, time.Millisecond, []providers.Scraper{s}, nil)

	resp, err := app.HandleStream(context.Background(), "movie", "tt1")
	require.NoError(t, err)
	assert.Empty(t, resp.Streams)
	assert.Empty(t, store.entries)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "stream:movie:tt1", cacheKey("movie", metadata.RequestID{BaseID: "tt1"}))
	assert.Equal(t, "stream:series:tt1:2:3", cacheKey("series", metadata.RequestID{BaseID: "tt1", Season: 2, Episode: 3}))
	// Identical requests always share a key.
	assert.Equal(t,
		cacheKey("series", metadata.RequestID{BaseID: "tt1", Season: 2, Episode: 3}),
		cacheKey("series", metadata.RequestID{BaseID: "tt1", Season: 2, Episode: 3}))
}
