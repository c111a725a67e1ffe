package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"barestreams/metadata"
	"barestreams/models"
)

const ytsScraperKey = "yts"

type ytsListResponse struct {
	Status string `json:"status"`
	Data   struct {
		MovieCount int `json:"movie_count"`
		Movies     []struct {
			IMDBCode  string `json:"imdb_code"`
			Title     string `json:"title"`
			TitleLong string `json:"title_long"`
			Year      int    `json:"year"`
			Torrents  []struct {
				Hash      string `json:"hash"`
				Quality   string `json:"quality"`
				Type      string `json:"type"`
				Seeds     int    `json:"seeds"`
				Peers     int    `json:"peers"`
				Size      string `json:"size"`
				SizeBytes int64  `json:"size_bytes"`
			} `json:"torrents"`
		} `json:"movies"`
	} `json:"data"`
}

// YTS queries the movie API by IMDb id. The API lists info hashes
// directly, so no magnet recovery is needed.
type YTS struct {
	env      *Env
	baseURLs []string
}

func NewYTS(env *Env, baseURLs []string) *YTS {
	return &YTS{env: env, baseURLs: baseURLs}
}

func (y *YTS) Name() string { return "YTS" }

func (y *YTS) Scrape(ctx context.Context, req metadata.RequestID) models.StreamResponse {
	if len(y.baseURLs) == 0 || ctx.Err() != nil {
		return emptyResponse()
	}
	queries := y.env.queries(req)

	for _, base := range y.baseURLs {
		apiURL := fmt.Sprintf("%s/api/v2/list_movies.json?query_term=%s&limit=1", base, url.QueryEscape(req.BaseID))

		var resp ytsListResponse
		if err := y.env.HTTP.FetchJSON(ctx, ytsScraperKey, apiURL, 0, &resp); err != nil {
			slog.Warn("YTS request failed", "url", apiURL, "error", err)
			continue
		}

		var cands []Candidate
		for _, movie := range resp.Data.Movies {
			if movie.IMDBCode != req.BaseID {
				continue
			}
			for _, torrent := range movie.Torrents {
				if torrent.Hash == "" {
					continue
				}
				cands = append(cands, Candidate{
					InfoHash:  strings.ToLower(torrent.Hash),
					Seeders:   torrent.Seeds,
					Leechers:  torrent.Peers,
					SizeBytes: torrent.SizeBytes,
					Quality:   strings.TrimSpace(torrent.Quality + " " + torrent.Type),
				})
			}
		}
		if len(cands) == 0 {
			continue
		}

		cands = dedupeCandidates(cands)
		rankBySeeders(cands)
		return y.env.buildStreams(y.Name(), queries, req, cands)
	}

	return emptyResponse()
}
