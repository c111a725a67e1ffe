package metadata

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidID is the base error for every malformed stream id.
var ErrInvalidID = errors.New("invalid stream id")

var (
	ErrBadBaseID       = fmt.Errorf("%w: base id must match tt<digits>", ErrInvalidID)
	ErrBadSegmentCount = fmt.Errorf("%w: expected tt<digits> or tt<digits>:<season>:<episode>", ErrInvalidID)
	ErrBadSeason       = fmt.Errorf("%w: season must be a positive integer", ErrInvalidID)
	ErrBadEpisode      = fmt.Errorf("%w: episode must be a positive integer", ErrInvalidID)
)

var baseIDRegex = regexp.MustCompile(`^tt\d+$`)

// RequestID is a decoded stream id. Season and Episode are either both
// set (positive) or both zero.
type RequestID struct {
	BaseID  string
	Season  int
	Episode int
}

func (r RequestID) IsEpisode() bool {
	return r.Season > 0 && r.Episode > 0
}

// String renders the id back into its wire form.
func (r RequestID) String() string {
	if !r.IsEpisode() {
		return r.BaseID
	}
	return r.BaseID + ":" + strconv.Itoa(r.Season) + ":" + strconv.Itoa(r.Episode)
}

// ParseRequestID decodes "tt123" or "tt123:2:3". The tt prefix is
// case-sensitive.
func ParseRequestID(id string) (RequestID, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 1 && len(parts) != 3 {
		return RequestID{}, ErrBadSegmentCount
	}
	if !baseIDRegex.MatchString(parts[0]) {
		return RequestID{}, ErrBadBaseID
	}

	rid := RequestID{BaseID: parts[0]}
	if len(parts) == 1 {
		return rid, nil
	}

	season, err := strconv.Atoi(parts[1])
	if err != nil || season <= 0 {
		return RequestID{}, ErrBadSeason
	}
	episode, err := strconv.Atoi(parts[2])
	if err != nil || episode <= 0 {
		return RequestID{}, ErrBadEpisode
	}

	rid.Season = season
	rid.Episode = episode
	return rid, nil
}
