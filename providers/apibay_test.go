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

func TestApiBayScrape(t *testing.T) {
	var cats []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/q.php", r.URL.Path)
		cats = append(cats, r.URL.Query().Get("cat"))
		if r.URL.Query().Get("cat") == "207" {
			w.Write([]byte(`[{"id":"1","name":"Movie 2021 1080p","info_hash":"DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C","seeders":"55","leechers":"3","size":"1503238553"}]`))
			return
		}
		w.Write([]byte(`[{"id":"0","name":"No results returned","info_hash":"0000000000000000000000000000000000000000","seeders":"0","leechers":"0","size":"0"}]`))
	}))
	defer srv.Close()

	scraper := NewApiBay(testEnv(fakeTitles{}), []string{srv.URL}, ApiBayMovieCategories)
	resp := scraper.Scrape(context.Background(), metadata.RequestID{BaseID: "tt10872600"})

	require.Len(t, resp.Streams, 1)
	stream := resp.Streams[0]
	assert.Equal(t, "TPB", stream.Name)
	assert.Equal(t, "dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c", stream.InfoHash)
	assert.Equal(t, 55, stream.Seeders)
	assert.ElementsMatch(t, []string{"207", "201"}, cats)
}

func TestApiBayCandidatesSkipSentinels(t *testing.T) {
	cands := apibayCandidates([]apibayTorrent{
		{ID: "0", Name: "No results returned", InfoHash: "0000000000000000000000000000000000000000"},
		{ID: "2", Name: "All Zero Hash", InfoHash: "0000000000000000000000000000000000000000", Seeders: "9"},
		{ID: "3", Name: "Good", InfoHash: "DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C", Seeders: "9", Size: "100"},
	})
	require.Len(t, cands, 1)
	assert.Equal(t, "Good", cands[0].Name)
	assert.Equal(t, "magnet:?xt=urn:btih:dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c", cands[0].Magnet)
	assert.Equal(t, int64(100), cands[0].SizeBytes)
}

func TestApiBayCategorySets(t *testing.T) {
	assert.Equal(t, []string{"207", "201"}, ApiBayMovieCategories)
	assert.Equal(t, []string{"208", "205"}, ApiBaySeriesCategories)
}
