package models

// BehaviorHints carries optional playback hints understood by the player.
type BehaviorHints struct {
	CountryWhitelist []string          `json:"countryWhitelist,omitempty"`
	NotWebReady      bool              `json:"notWebReady,omitempty"`
	BingeGroup       string            `json:"bingeGroup,omitempty"`
	ProxyHeaders     map[string]string `json:"proxyHeaders,omitempty"`
	VideoHash        string            `json:"videoHash,omitempty"`
	VideoSize        int64             `json:"videoSize,omitempty"`
	Filename         string            `json:"filename,omitempty"`
}

// Stream describes one playable source. Exactly one of InfoHash or URL is
// set; with InfoHash the player synthesizes the magnet itself.
type Stream struct {
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	URL           string         `json:"url,omitempty"`
	InfoHash      string         `json:"infoHash,omitempty"`
	Sources       []string       `json:"sources,omitempty"`
	BehaviorHints *BehaviorHints `json:"behaviorHints,omitempty"`

	// Seeders ranks streams during aggregation; never serialized.
	Seeders int `json:"-"`
	// Quality is the canonical resolution tag, kept for binge grouping.
	Quality string `json:"-"`
}

// Identity is the dedupe key across scrapers.
func (s *Stream) Identity() string {
	if s.InfoHash != "" {
		return s.InfoHash
	}
	return s.URL
}

type StreamResponse struct {
	Streams []Stream `json:"streams"`
}
