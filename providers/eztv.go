package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"barestreams/metadata"
	"barestreams/models"
)

const (
	eztvScraperKey      = "eztv"
	eztvMaxPages        = 50
	eztvPageConcurrency = 5
	eztvFallbackLinks   = 15
)

type eztvTorrent struct {
	Hash      string `json:"hash"`
	Filename  string `json:"filename"`
	MagnetURL string `json:"magnet_url"`
	Title     string `json:"title"`
	Season    string `json:"season"`
	Episode   string `json:"episode"`
	SizeBytes string `json:"size_bytes"`
	Seeds     int    `json:"seeds"`
	Peers     int    `json:"peers"`
}

type eztvResponse struct {
	TorrentsCount int           `json:"torrents_count"`
	Limit         int           `json:"limit"`
	Page          int           `json:"page"`
	Torrents      []eztvTorrent `json:"torrents"`
}

// EZTV queries the torrent API by IMDb id, paginating concurrently.
// When the API comes up empty for an episode request it falls back to
// scraping the HTML search page.
type EZTV struct {
	env      *Env
	baseURLs []string
}

func NewEZTV(env *Env, baseURLs []string) *EZTV {
	return &EZTV{env: env, baseURLs: baseURLs}
}

func (e *EZTV) Name() string { return "EZTV" }

func (e *EZTV) Scrape(ctx context.Context, req metadata.RequestID) models.StreamResponse {
	if len(e.baseURLs) == 0 || ctx.Err() != nil {
		return emptyResponse()
	}
	queries := e.env.queries(req)

	// The API is inconsistent about the tt prefix; try both spellings.
	digits := strings.TrimPrefix(req.BaseID, "tt")
	var cands []Candidate
	for _, imdbID := range []string{digits, "tt" + digits} {
		for _, base := range e.baseURLs {
			cands = e.fetchPages(ctx, base, imdbID)
			if len(cands) > 0 {
				break
			}
		}
		if len(cands) > 0 {
			break
		}
	}

	cands = filterEpisode(cands, req.Season, req.Episode)
	if len(cands) == 0 && req.IsEpisode() {
		cands = e.searchHTML(ctx, queries, req)
	}

	cands = dedupeCandidates(cands)
	rankBySeeders(cands)
	return e.env.buildStreams(e.Name(), queries, req, cands)
}

func (e *EZTV) fetchPages(ctx context.Context, base, imdbID string) []Candidate {
	first, err := e.fetchPage(ctx, base, imdbID, 1)
	if err != nil {
		slog.Warn("EZTV request failed", "base", base, "imdb_id", imdbID, "error", err)
		return nil
	}

	cands := eztvCandidates(first.Torrents)
	perPage := first.Limit
	if perPage <= 0 {
		perPage = len(first.Torrents)
	}
	if perPage == 0 || len(cands) >= first.TorrentsCount {
		return cands
	}

	pages := (first.TorrentsCount + perPage - 1) / perPage
	if pages > eztvMaxPages {
		pages = eztvMaxPages
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(eztvPageConcurrency)
	for page := 2; page <= pages; page++ {
		page := page
		g.Go(func() error {
			resp, err := e.fetchPage(gctx, base, imdbID, page)
			if err != nil {
				return nil
			}
			mu.Lock()
			cands = append(cands, eztvCandidates(resp.Torrents)...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return cands
}

func (e *EZTV) fetchPage(ctx context.Context, base, imdbID string, page int) (*eztvResponse, error) {
	apiURL := fmt.Sprintf("%s/api/get-torrents?imdb_id=%s&limit=100&page=%d", base, url.QueryEscape(imdbID), page)
	var resp eztvResponse
	if err := e.env.HTTP.FetchJSON(ctx, eztvScraperKey, apiURL, 0, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func eztvCandidates(torrents []eztvTorrent) []Candidate {
	cands := make([]Candidate, 0, len(torrents))
	for _, t := range torrents {
		name := t.Title
		if name == "" {
			name = t.Filename
		}
		season, _ := strconv.Atoi(t.Season)
		episode, _ := strconv.Atoi(t.Episode)
		size, _ := strconv.ParseInt(t.SizeBytes, 10, 64)
		cands = append(cands, Candidate{
			Name:      name,
			Magnet:    t.MagnetURL,
			InfoHash:  strings.ToLower(t.Hash),
			Seeders:   t.Seeds,
			Leechers:  t.Peers,
			SizeBytes: size,
			Season:    season,
			Episode:   episode,
		})
	}
	return cands
}

// searchHTML scrapes the search page for episode links and pulls the
// first magnet off each episode page.
func (e *EZTV) searchHTML(ctx context.Context, queries metadata.Queries, req metadata.RequestID) []Candidate {
	for _, base := range e.baseURLs {
		searchURL := base + "/search/" + url.PathEscape(strings.ReplaceAll(queries.Query, " ", "-"))
		body, err := e.env.HTTP.FetchText(ctx, eztvScraperKey, searchURL, 0)
		if err != nil {
			slog.Warn("EZTV search page failed", "url", searchURL, "error", err)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			continue
		}

		type epLink struct {
			href  string
			title string
		}
		var links []epLink
		doc.Find("a[href*='/ep/']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Attr("href")
			if !ok {
				return true
			}
			if strings.HasPrefix(href, "/") {
				href = base + href
			}
			links = append(links, epLink{href: href, title: strings.TrimSpace(s.Text())})
			return len(links) < eztvFallbackLinks
		})

		var mu sync.Mutex
		var cands []Candidate
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(eztvPageConcurrency)
		for _, link := range links {
			link := link
			g.Go(func() error {
				if !metadata.MatchesEpisode(link.title, req.Season, req.Episode) {
					return nil
				}
				page, err := e.env.HTTP.FetchText(gctx, eztvScraperKey, link.href, 0)
				if err != nil {
					return nil
				}
				magnetURI := firstMagnet(page)
				if magnetURI == "" {
					return nil
				}
				mu.Lock()
				cands = append(cands, Candidate{Name: link.title, Magnet: magnetURI})
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if len(cands) > 0 {
			return cands
		}
	}
	return nil
}
