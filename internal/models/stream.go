package models

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	hexHashPattern = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	btihPattern    = regexp.MustCompile(`(?i)btih:([a-f0-9]{40})`)
)

// ContentHash is a lowercase 40-character hex info-hash.
type ContentHash string

// ParseContentHash validates s and returns its canonical lowercase form.
func ParseContentHash(s string) (ContentHash, bool) {
	s = strings.TrimSpace(s)
	if !hexHashPattern.MatchString(s) {
		return "", false
	}
	return ContentHash(strings.ToLower(s)), true
}

// String returns the hash as a plain string
func (h ContentHash) String() string {
	return string(h)
}

// Magnet builds a bare magnet URI for the hash.
func (h ContentHash) Magnet() string {
	return "magnet:?xt=urn:btih:" + string(h)
}

// BehaviorHints mirrors the Stremio stream behaviorHints object. Keys not
// declared here (proxyHeaders, videoHash...) are kept in Extra.
type BehaviorHints struct {
	BingeGroup  string `json:"bingeGroup,omitempty"`
	Filename    string `json:"filename,omitempty"`
	VideoSize   int64  `json:"videoSize,omitempty"`
	NotWebReady bool   `json:"notWebReady,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Candidate is one stream entry returned by an upstream addon. Upstream
// keys not declared here are kept in Extra and written back on encode.
type Candidate struct {
	Name          string         `json:"name"`
	Title         string         `json:"title,omitempty"`
	InfoHash      string         `json:"infoHash,omitempty"`
	FileIdx       *int           `json:"fileIdx,omitempty"`
	URL           string         `json:"url,omitempty"`
	Sources       []string       `json:"sources,omitempty"`
	BehaviorHints *BehaviorHints `json:"behaviorHints,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Hash extracts the content hash from the infoHash field, a btih marker in
// the url, or the seventh path segment of debrid-style addon urls.
func (c Candidate) Hash() (ContentHash, bool) {
	if h, ok := ParseContentHash(c.InfoHash); ok {
		return h, true
	}
	return hashFromURL(c.URL)
}

func hashFromURL(rawURL string) (ContentHash, bool) {
	if rawURL == "" {
		return "", false
	}
	if m := btihPattern.FindStringSubmatch(rawURL); m != nil {
		return ContentHash(strings.ToLower(m[1])), true
	}
	// https://host/resolve/realdebrid/<key>/<hash>/...
	parts := strings.Split(rawURL, "/")
	if len(parts) > 6 {
		return ParseContentHash(parts[6])
	}
	return "", false
}
