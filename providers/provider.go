// Package providers implements the torrent scrapers. Each scraper
// turns a parsed request into a stream response, absorbing remote
// failures and honoring cancellation.
package providers

import (
	"context"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"barestreams/magnet"
	"barestreams/metadata"
	"barestreams/models"
	sharedhttp "barestreams/shared/http"
)

// Candidate is a scraper-internal torrent listing. It promotes to a
// Stream only when it yields an info hash.
type Candidate struct {
	Name      string
	DetailURL string
	Magnet    string
	InfoHash  string
	Seeders   int
	Leechers  int
	SizeBytes int64
	SizeLabel string
	Season    int
	Episode   int
	// Quality is a raw label for sources that expose one (e.g. YTS
	// "1080p web"); otherwise the release name carries the hint.
	Quality string
}

type Scraper interface {
	Name() string
	Scrape(ctx context.Context, req metadata.RequestID) models.StreamResponse
}

// Env is the tooling shared by every scraper.
type Env struct {
	HTTP           *sharedhttp.Client
	Titles         metadata.TitleLookup
	TGXDetailLimit int
}

func (e *Env) queries(req metadata.RequestID) metadata.Queries {
	return metadata.BuildQueries(req, e.Titles)
}

func emptyResponse() models.StreamResponse {
	return models.StreamResponse{Streams: []models.Stream{}}
}

// filterEpisode keeps candidates for the requested episode, preferring
// structured season/episode fields over name parsing.
func filterEpisode(cands []Candidate, season, episode int) []Candidate {
	if season <= 0 || episode <= 0 {
		return cands
	}
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Season > 0 && c.Episode > 0 {
			if c.Season == season && c.Episode == episode {
				out = append(out, c)
			}
			continue
		}
		if metadata.MatchesEpisode(c.Name, season, episode) {
			out = append(out, c)
		}
	}
	return out
}

// dedupeCandidates drops repeats by detail URL, magnet or info hash,
// keeping the first occurrence.
func dedupeCandidates(cands []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		key := c.DetailURL
		if key == "" {
			key = c.Magnet
		}
		if key == "" {
			key = strings.ToLower(c.InfoHash)
		}
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, c)
	}
	return out
}

func rankBySeeders(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Seeders > cands[j].Seeders
	})
}

// buildStreams promotes candidates into streams, deduplicated by info
// hash within the scraper.
func (e *Env) buildStreams(source string, q metadata.Queries, req metadata.RequestID, cands []Candidate) models.StreamResponse {
	streams := make([]models.Stream, 0, len(cands))
	seen := make(map[string]struct{}, len(cands))

	for _, c := range cands {
		infoHash := strings.ToLower(c.InfoHash)
		var sources []string
		if c.Magnet != "" {
			if info := magnet.Parse(c.Magnet); info != nil {
				infoHash = info.InfoHash
				sources = info.Sources
			}
		}
		if infoHash == "" {
			continue
		}
		if _, dup := seen[infoHash]; dup {
			continue
		}
		seen[infoHash] = struct{}{}

		display := FormatDisplay(DisplayInput{
			ImdbTitle:   q.BaseTitle,
			Season:      req.Season,
			Episode:     req.Episode,
			TorrentName: c.Name,
			Quality:     c.Quality,
			Source:      source,
			Seeders:     c.Seeders,
			SizeBytes:   c.SizeBytes,
			SizeLabel:   c.SizeLabel,
		})

		var hints *models.BehaviorHints
		if c.SizeBytes > 0 || c.Name != "" {
			hints = &models.BehaviorHints{
				VideoSize: c.SizeBytes,
				Filename:  c.Name,
			}
		}

		streams = append(streams, models.Stream{
			Name:          display.Name,
			Description:   display.Description,
			InfoHash:      infoHash,
			Sources:       sources,
			BehaviorHints: hints,
			Seeders:       c.Seeders,
			Quality:       ExtractQuality(c.Name + " " + c.Quality),
		})
	}

	return models.StreamResponse{Streams: streams}
}

// firstMagnet pulls the first magnet link out of an HTML page.
func firstMagnet(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	href, _ := doc.Find("a[href^='magnet:']").First().Attr("href")
	return href
}
