package providers

import (
	"context"
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

const (
	x1337ScraperKey  = "1337x"
	x1337DetailLimit = 5
)

// X1337 scrapes the HTML search listing. The listing never carries
// magnets, so the top-ranked rows each cost a detail-page fetch.
type X1337 struct {
	env      *Env
	baseURLs []string
}

func NewX1337(env *Env, baseURLs []string) *X1337 {
	return &X1337{env: env, baseURLs: baseURLs}
}

func (x *X1337) Name() string { return "1337x" }

func (x *X1337) Scrape(ctx context.Context, req metadata.RequestID) models.StreamResponse {
	if len(x.baseURLs) == 0 || ctx.Err() != nil {
		return emptyResponse()
	}
	queries := x.env.queries(req)

	cands := x.search(ctx, queries.Query)
	if len(cands) == 0 && queries.FallbackQuery != "" {
		cands = x.search(ctx, queries.FallbackQuery)
	}

	if queries.EpisodeSuffix != "" {
		cands = filterEpisode(cands, req.Season, req.Episode)
	}
	cands = dedupeCandidates(cands)
	rankBySeeders(cands)
	x.fetchMagnets(ctx, cands)

	return x.env.buildStreams(x.Name(), queries, req, cands)
}

func (x *X1337) search(ctx context.Context, query string) []Candidate {
	for _, base := range x.baseURLs {
		searchURL := base + "/search/" + url.PathEscape(query) + "/1/"
		body, err := x.env.HTTP.FetchText(ctx, x1337ScraperKey, searchURL, 0)
		if err != nil {
			slog.Warn("1337x search failed", "url", searchURL, "error", err)
			continue
		}
		if cands := parse1337xListing(base, body); len(cands) > 0 {
			return cands
		}
	}
	return nil
}

func parse1337xListing(base, body string) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var cands []Candidate
	doc.Find(".table-list tbody tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("td.coll-1.name a[href^='/torrent/']").First()
		name := strings.TrimSpace(link.Text())
		detailPath, hasDetail := link.Attr("href")
		if name == "" || !hasDetail {
			return
		}

		seeders, _ := strconv.Atoi(strings.TrimSpace(row.Find("td.coll-2.seeds").Text()))
		leechers, _ := strconv.Atoi(strings.TrimSpace(row.Find("td.coll-3.leeches").Text()))

		// The size cell nests the uploader link; strip children to
		// keep only the size text.
		sizeLabel := strings.TrimSpace(row.Find("td.coll-4.size").Clone().Children().Remove().End().Text())

		cands = append(cands, Candidate{
			Name:      name,
			DetailURL: base + detailPath,
			Seeders:   seeders,
			Leechers:  leechers,
			SizeLabel: sizeLabel,
			SizeBytes: format.ParseSize(sizeLabel),
		})
	})
	return cands
}

// fetchMagnets fills magnets for the best-ranked candidates from their
// detail pages, bounded to keep request volume down.
func (x *X1337) fetchMagnets(ctx context.Context, cands []Candidate) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x1337DetailLimit)
	fetched := 0
	for i := range cands {
		if cands[i].Magnet != "" || cands[i].DetailURL == "" {
			continue
		}
		if fetched >= x1337DetailLimit {
			break
		}
		fetched++

		i := i
		g.Go(func() error {
			body, err := x.env.HTTP.FetchText(gctx, x1337ScraperKey, cands[i].DetailURL, 0)
			if err != nil {
				slog.Warn("1337x detail page failed", "url", cands[i].DetailURL, "error", err)
				return nil
			}
			cands[i].Magnet = firstMagnet(body)
			return nil
		})
	}
	_ = g.Wait()
}
