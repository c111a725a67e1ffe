// Package magnet parses magnet URIs into normalized info hashes and
// tracker source lists.
package magnet

import (
	"encoding/base32"
	"encoding/hex"
	"net/url"
	"strings"
)

const btihPrefix = "urn:btih:"

// Info is the normalized form of a magnet URI.
type Info struct {
	// InfoHash is always 40 lowercase hex characters.
	InfoHash string
	// Sources lists trackers, each prefixed with "tracker:".
	Sources []string
}

var base32Encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Parse returns nil for anything that is not a magnet URI carrying a
// usable btih exact-topic.
func Parse(raw string) *Info {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "magnet" {
		return nil
	}

	query := u.Query()

	var topic string
	for _, xt := range query["xt"] {
		if len(xt) >= len(btihPrefix) && strings.EqualFold(xt[:len(btihPrefix)], btihPrefix) {
			topic = xt[len(btihPrefix):]
			break
		}
	}
	if topic == "" {
		return nil
	}

	infoHash := normalizeHash(topic)
	if infoHash == "" {
		return nil
	}

	return &Info{
		InfoHash: infoHash,
		Sources:  trackerSources(query["tr"]),
	}
}

// normalizeHash accepts a 40-char hex or 32-char unpadded base32 digest
// and renders it as lowercase hex.
func normalizeHash(topic string) string {
	switch len(topic) {
	case 40:
		if _, err := hex.DecodeString(topic); err != nil {
			return ""
		}
		return strings.ToLower(topic)
	case 32:
		raw, err := base32Encoding.DecodeString(strings.ToUpper(topic))
		if err != nil || len(raw) != 20 {
			return ""
		}
		return hex.EncodeToString(raw)
	default:
		return ""
	}
}

func trackerSources(trackers []string) []string {
	var sources []string
	seen := make(map[string]struct{}, len(trackers))
	for _, tr := range trackers {
		if tr == "" {
			continue
		}
		if !strings.HasPrefix(tr, "tracker:") {
			tr = "tracker:" + tr
		}
		if _, dup := seen[tr]; dup {
			continue
		}
		seen[tr] = struct{}{}
		sources = append(sources, tr)
	}
	return sources
}
