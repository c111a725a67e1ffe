package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"barestreams/metadata"
	"barestreams/models"
	"barestreams/shared/format"
)

const tgxScraperKey = "tgx"

// TorrentGalaxy scrapes the HTML search listing; rows without an
// inline magnet get a bounded number of detail-page fetches.
type TorrentGalaxy struct {
	env      *Env
	baseURLs []string
}

func NewTorrentGalaxy(env *Env, baseURLs []string) *TorrentGalaxy {
	return &TorrentGalaxy{env: env, baseURLs: baseURLs}
}

func (t *TorrentGalaxy) Name() string { return "TGX" }

func (t *TorrentGalaxy) Scrape(ctx context.Context, req metadata.RequestID) models.StreamResponse {
	if len(t.baseURLs) == 0 || ctx.Err() != nil {
		return emptyResponse()
	}
	queries := t.env.queries(req)

	cands := t.search(ctx, queries.Query)
	if len(cands) == 0 && queries.FallbackQuery != "" {
		cands = t.search(ctx, queries.FallbackQuery)
	}

	if queries.EpisodeSuffix != "" {
		cands = filterEpisode(cands, req.Season, req.Episode)
	}
	cands = dedupeCandidates(cands)
	rankBySeeders(cands)
	t.recoverMagnets(ctx, cands)

	return t.env.buildStreams(t.Name(), queries, req, cands)
}

func (t *TorrentGalaxy) search(ctx context.Context, query string) []Candidate {
	for _, base := range t.baseURLs {
		searchURL := fmt.Sprintf("%s/lmsearch?q=%s&category=lmsearch&page=1", base, url.QueryEscape(query))
		body, err := t.env.HTTP.FetchText(ctx, tgxScraperKey, searchURL, 0)
		if err != nil {
			slog.Warn("TGX search failed", "url", searchURL, "error", err)
			continue
		}
		if cands := parseTGXListing(base, body); len(cands) > 0 {
			return cands
		}
	}
	return nil
}

func parseTGXListing(base, body string) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var cands []Candidate
	doc.Find(".table-list-wrap tbody tr").Each(func(_ int, row *goquery.Selection) {
		titleLink := row.Find("a[href^='/torrent/']").First()
		name := strings.TrimSpace(titleLink.Text())
		if name == "" {
			name = strings.TrimSpace(titleLink.AttrOr("title", ""))
		}
		detailPath, hasDetail := titleLink.Attr("href")
		if name == "" || !hasDetail {
			return
		}

		counts := row.Find("span[title='Seeders/Leechers'] font")
		seeders, _ := strconv.Atoi(strings.TrimSpace(counts.Eq(0).Text()))
		leechers, _ := strconv.Atoi(strings.TrimSpace(counts.Eq(1).Text()))

		sizeLabel := strings.TrimSpace(row.Find("span.badge-secondary").First().Text())

		cands = append(cands, Candidate{
			Name:      name,
			DetailURL: base + detailPath,
			Magnet:    row.Find("a[href^='magnet:?']").First().AttrOr("href", ""),
			Seeders:   seeders,
			Leechers:  leechers,
			SizeLabel: sizeLabel,
			SizeBytes: format.ParseSize(sizeLabel),
		})
	})
	return cands
}

// recoverMagnets fetches detail pages for the best-ranked candidates
// that listed without a magnet, bounded by the configured limit.
func (t *TorrentGalaxy) recoverMagnets(ctx context.Context, cands []Candidate) {
	limit := t.env.TGXDetailLimit
	if limit <= 0 {
		limit = 5
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	fetched := 0
	for i := range cands {
		if cands[i].Magnet != "" || cands[i].DetailURL == "" {
			continue
		}
		if fetched >= limit {
			break
		}
		fetched++

		i := i
		g.Go(func() error {
			body, err := t.env.HTTP.FetchText(gctx, tgxScraperKey, cands[i].DetailURL, 0)
			if err != nil {
				slog.Warn("TGX detail page failed", "url", cands[i].DetailURL, "error", err)
				return nil
			}
			cands[i].Magnet = firstMagnet(body)
			return nil
		})
	}
	_ = g.Wait()
}
