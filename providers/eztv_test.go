package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barestreams/metadata"
)

const eztvFixture = `{
  "torrents_count": 2,
  "limit": 100,
  "page": 1,
  "torrents": [
    {"hash": "DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C", "title": "Show S02E03 1080p WEB", "magnet_url": "magnet:?xt=urn:btih:dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c&tr=udp%3A%2F%2Ft.one%3A80", "season": "2", "episode": "3", "size_bytes": "1503238553", "seeds": 231, "peers": 12},
    {"hash": "AA8255ECDC7CA55FB0BBF81323D87062DB1F6D1C", "title": "Show S02E02 1080p WEB", "magnet_url": "magnet:?xt=urn:btih:aa8255ecdc7ca55fb0bbf81323d87062db1f6d1c", "season": "2", "episode": "2", "size_bytes": "1503238553", "seeds": 190, "peers": 9}
  ]
}`

func TestEZTVScrapeFiltersEpisode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get-torrents", r.URL.Path)
		w.Write([]byte(eztvFixture))
	}))
	defer srv.Close()

	scraper := NewEZTV(testEnv(fakeTitles{}), []string{srv.URL})
	resp := scraper.Scrape(context.Background(), metadata.RequestID{BaseID: "tt5834204", Season: 2, Episode: 3})

	require.Len(t, resp.Streams, 1)
	stream := resp.Streams[0]
	assert.Equal(t, "EZTV", stream.Name)
	assert.Equal(t, "dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c", stream.InfoHash)
	assert.Equal(t, []string{"tracker:udp://t.one:80"}, stream.Sources)
	assert.Equal(t, 231, stream.Seeders)
}

func TestEZTVScrapeHTMLFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/get-torrents", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"torrents_count":0,"limit":100,"page":1,"torrents":[]}`))
	})
	mux.HandleFunc("/search/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="/ep/1/">Show S02E03 720p</a>
			<a href="/ep/2/">Show S02E01 720p</a>
		</body></html>`))
	})
	mux.HandleFunc("/ep/1/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="magnet:?xt=urn:btih:dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c">magnet</a>`))
	})
	mux.HandleFunc("/ep/2/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("episode page for a non-matching link should not be fetched")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	scraper := NewEZTV(testEnv(fakeTitles{}), []string{srv.URL})
	resp := scraper.Scrape(context.Background(), metadata.RequestID{BaseID: "tt5834204", Season: 2, Episode: 3})

	require.Len(t, resp.Streams, 1)
	assert.Equal(t, "dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c", resp.Streams[0].InfoHash)
}

func TestEZTVScrapePaginates(t *testing.T) {
	page2 := `{"torrents_count": 150, "limit": 100, "page": 2, "torrents": [
		{"hash": "AA8255ECDC7CA55FB0BBF81323D87062DB1F6D1C", "title": "Show S01E01", "season": "1", "episode": "1", "seeds": 5}
	]}`
	page1 := `{"torrents_count": 150, "limit": 100, "page": 1, "torrents": [
		{"hash": "DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C", "title": "Show S01E02", "season": "1", "episode": "2", "seeds": 7}
	]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(page2))
			return
		}
		w.Write([]byte(page1))
	}))
	defer srv.Close()

	scraper := NewEZTV(testEnv(fakeTitles{}), []string{srv.URL})
	resp := scraper.Scrape(context.Background(), metadata.RequestID{BaseID: "tt1", Season: 1, Episode: 1})

	require.Len(t, resp.Streams, 1)
	assert.Equal(t, "aa8255ecdc7ca55fb0bbf81323d87062db1f6d1c", resp.Streams[0].InfoHash)
}
