// Package services wires the scrapers, cache and title index into the
// stream aggregation flow behind the addon endpoints.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"barestreams/cache"
	"barestreams/config"
	"barestreams/metadata"
	"barestreams/models"
	"barestreams/providers"
	sharedhttp "barestreams/shared/http"
)

// ErrInvalidRequest covers a bad media type or malformed stream id.
var ErrInvalidRequest = errors.New("invalid stream request")

type App struct {
	cfg    *config.Config
	cache  cache.Cache
	titles metadata.TitleLookup
	http   *sharedhttp.Client

	movieScrapers  []providers.Scraper
	seriesScrapers []providers.Scraper
}

func NewApp(cfg *config.Config, store cache.Cache, httpClient *sharedhttp.Client, titles metadata.TitleLookup) *App {
	env := &providers.Env{
		HTTP:           httpClient,
		Titles:         titles,
		TGXDetailLimit: cfg.TGXDetailLimit,
	}

	yts := providers.NewYTS(env, cfg.YTSURLs)
	eztv := providers.NewEZTV(env, cfg.EZTVURLs)
	tgx := providers.NewTorrentGalaxy(env, cfg.TGXURLs)
	x1337 := providers.NewX1337(env, cfg.X1337xURLs)

	return &App{
		cfg:    cfg,
		cache:  store,
		titles: titles,
		http:   httpClient,
		movieScrapers: []providers.Scraper{
			yts,
			tgx,
			providers.NewApiBay(env, cfg.ApiBayURLs, providers.ApiBayMovieCategories),
			x1337,
		},
		seriesScrapers: []providers.Scraper{
			eztv,
			tgx,
			providers.NewApiBay(env, cfg.ApiBayURLs, providers.ApiBaySeriesCategories),
			x1337,
		},
	}
}

// WarmUp registers the bypass pools and probes each enabled scraper's
// front page so bot-protected sites are promoted before traffic hits.
func (a *App) WarmUp(ctx context.Context) {
	fronts := []struct {
		key  string
		urls []string
		par  int
	}{
		{"yts", a.cfg.YTSURLs, 1},
		{"eztv", a.cfg.EZTVURLs, 5},
		{"tgx", a.cfg.TGXURLs, a.cfg.TGXDetailLimit},
		{"apibay", a.cfg.ApiBayURLs, len(providers.ApiBayMovieCategories)},
		{"1337x", a.cfg.X1337xURLs, 5},
	}
	for _, f := range fronts {
		if len(f.urls) == 0 {
			continue
		}
		a.http.RegisterScraper(f.key, f.urls[0], f.par)
		a.http.Probe(ctx, f.key, f.urls[0])
	}
}

// HandleStream resolves a stream request end to end: cache lookup,
// scraper fan-out, merge, rank and cache write.
func (a *App) HandleStream(ctx context.Context, mediaType, id string) (models.StreamResponse, error) {
	start := time.Now()

	var scrapers []providers.Scraper
	switch mediaType {
	case "movie":
		scrapers = a.movieScrapers
	case "series":
		scrapers = a.seriesScrapers
	default:
		return models.StreamResponse{}, fmt.Errorf("%w: unsupported type %q", ErrInvalidRequest, mediaType)
	}

	rid, err := metadata.ParseRequestID(id)
	if err != nil {
		return models.StreamResponse{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	key := cacheKey(mediaType, rid)
	if cached, ok := a.cache.Get(ctx, key); ok {
		var resp models.StreamResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			if resp.Streams == nil {
				resp.Streams = []models.Stream{}
			}
			a.logRequest(mediaType, id, "", true, start, resp.Streams, nil)
			return resp, nil
		}
		slog.Warn("Discarding unreadable cache entry", "key", key, "error", err)
	}

	// Resolve the title while the scrapers run; they look it up again
	// through the memoizing index, so this just warms the entry.
	titleCh := make(chan string, 1)
	go func() {
		q := metadata.BuildQueries(rid, a.titles)
		titleCh <- q.BaseTitle
	}()

	scrapeCtx := ctx
	if a.cfg.MaxRequestWait > 0 {
		var cancel context.CancelFunc
		scrapeCtx, cancel = context.WithTimeout(ctx, a.cfg.MaxRequestWait)
		defer cancel()
	}

	results := make([]models.StreamResponse, len(scrapers))
	g, gctx := errgroup.WithContext(scrapeCtx)
	for i, s := range scrapers {
		i, s := i, s
		g.Go(func() error {
			results[i] = s.Scrape(gctx, rid)
			return nil
		})
	}
	_ = g.Wait()

	sources := make(map[string]int, len(scrapers))
	streams := mergeResults(scrapers, results, sources)
	if rid.IsEpisode() {
		attachBingeGroups(streams)
	}

	resp := models.StreamResponse{Streams: streams}
	if len(streams) > 0 {
		if payload, err := json.Marshal(resp); err == nil {
			a.cache.Set(ctx, key, string(payload), a.cfg.RedisTTL)
		}
	}

	imdbTitle := <-titleCh
	a.logRequest(mediaType, id, imdbTitle, false, start, streams, sources)
	return resp, nil
}

func cacheKey(mediaType string, rid metadata.RequestID) string {
	return "stream:" + mediaType + ":" + rid.String()
}

// mergeResults combines scraper responses in call order: duplicates by
// identity key fold their sources into the first occurrence, then dead
// magnets drop and the rest sort by seeders.
func mergeResults(scrapers []providers.Scraper, results []models.StreamResponse, counts map[string]int) []models.Stream {
	merged := make([]models.Stream, 0)
	index := make(map[string]int)

	for i := range results {
		for _, stream := range results[i].Streams {
			counts[scrapers[i].Name()]++
			id := stream.Identity()
			if id == "" {
				continue
			}
			if at, dup := index[id]; dup {
				merged[at].Sources = unionSources(merged[at].Sources, stream.Sources)
				continue
			}
			index[id] = len(merged)
			merged = append(merged, stream)
		}
	}

	kept := merged[:0]
	for _, stream := range merged {
		dead := stream.Seeders == 0 &&
			(stream.InfoHash != "" || strings.HasPrefix(stream.URL, "magnet:?"))
		if dead {
			continue
		}
		kept = append(kept, stream)
	}

	sortBySeeders(kept)
	return kept
}

func unionSources(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[s] = struct{}{}
	}
	for _, s := range extra {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		existing = append(existing, s)
	}
	return existing
}

func sortBySeeders(streams []models.Stream) {
	sort.SliceStable(streams, func(i, j int) bool {
		return streams[i].Seeders > streams[j].Seeders
	})
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// attachBingeGroups lets the player chain episodes from the same source
// at the same quality.
func attachBingeGroups(streams []models.Stream) {
	for i := range streams {
		quality := streams[i].Quality
		if quality == "" {
			quality = "unknown"
		}
		group := "barestreams-" + slugify(streams[i].Name) + "-" + quality
		if streams[i].BehaviorHints == nil {
			streams[i].BehaviorHints = &models.BehaviorHints{}
		}
		streams[i].BehaviorHints.BingeGroup = group
	}
}

func (a *App) logRequest(mediaType, id, imdbTitle string, cacheHit bool, start time.Time, streams []models.Stream, sources map[string]int) {
	attrs := []any{
		"type", mediaType,
		"id", id,
		"cacheHit", cacheHit,
		"durationMs", time.Since(start).Milliseconds(),
		"magnetLinks", len(streams),
	}
	if imdbTitle != "" {
		attrs = append(attrs, "imdbTitle", imdbTitle)
	}
	if len(sources) > 0 {
		attrs = append(attrs, "sources", sources)
	}
	slog.Info("Stream request served", attrs...)
}
