package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"barestreams/metadata"
	"barestreams/models"
)

const apibayScraperKey = "apibay"

var (
	// HD and SD video categories on the bay.
	ApiBayMovieCategories  = []string{"207", "201"}
	ApiBaySeriesCategories = []string{"208", "205"}
)

type apibayTorrent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	InfoHash string `json:"info_hash"`
	Seeders  string `json:"seeders"`
	Leechers string `json:"leechers"`
	Size     string `json:"size"`
}

// ApiBay queries the q.php search endpoint across every base URL and
// category pair. The API returns a single sentinel row when nothing
// matched.
type ApiBay struct {
	env        *Env
	baseURLs   []string
	categories []string
}

func NewApiBay(env *Env, baseURLs, categories []string) *ApiBay {
	return &ApiBay{env: env, baseURLs: baseURLs, categories: categories}
}

func (a *ApiBay) Name() string { return "TPB" }

func (a *ApiBay) Scrape(ctx context.Context, req metadata.RequestID) models.StreamResponse {
	if len(a.baseURLs) == 0 || ctx.Err() != nil {
		return emptyResponse()
	}
	queries := a.env.queries(req)

	cands := a.search(ctx, queries.Query)
	if len(cands) == 0 && queries.FallbackQuery != "" {
		cands = a.search(ctx, queries.FallbackQuery)
	}

	if queries.EpisodeSuffix != "" {
		cands = filterEpisode(cands, req.Season, req.Episode)
	}
	cands = dedupeCandidates(cands)
	rankBySeeders(cands)
	return a.env.buildStreams(a.Name(), queries, req, cands)
}

func (a *ApiBay) search(ctx context.Context, query string) []Candidate {
	var mu sync.Mutex
	var cands []Candidate

	g, gctx := errgroup.WithContext(ctx)
	for _, base := range a.baseURLs {
		for _, cat := range a.categories {
			apiURL := fmt.Sprintf("%s/q.php?q=%s&cat=%s", base, url.QueryEscape(query), cat)
			g.Go(func() error {
				var torrents []apibayTorrent
				if err := a.env.HTTP.FetchJSON(gctx, apibayScraperKey, apiURL, 0, &torrents); err != nil {
					slog.Warn("ApiBay request failed", "url", apiURL, "error", err)
					return nil
				}
				found := apibayCandidates(torrents)
				if len(found) == 0 {
					return nil
				}
				mu.Lock()
				cands = append(cands, found...)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()
	return cands
}

func apibayCandidates(torrents []apibayTorrent) []Candidate {
	var cands []Candidate
	for _, t := range torrents {
		if t.ID == "0" || t.Name == "No results returned" {
			continue
		}
		hash := strings.ToLower(t.InfoHash)
		if hash == "" || strings.Trim(hash, "0") == "" {
			continue
		}
		seeders, _ := strconv.Atoi(t.Seeders)
		leechers, _ := strconv.Atoi(t.Leechers)
		size, _ := strconv.ParseInt(t.Size, 10, 64)
		cands = append(cands, Candidate{
			Name:      t.Name,
			Magnet:    "magnet:?xt=urn:btih:" + hash,
			InfoHash:  hash,
			Seeders:   seeders,
			Leechers:  leechers,
			SizeBytes: size,
		})
	}
	return cands
}
