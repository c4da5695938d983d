package api

import (
	"strings"

	"github.com/Luca1234105/torren/internal/models"
	"github.com/Luca1234105/torren/internal/services/debrid"
	"github.com/Luca1234105/torren/internal/services/streams"
)

// Display labels prefixed to stream names
const (
	LabelRealDebridCached = "[⚡RD+]"
	LabelTorBoxCached     = "[⚡TB+]"
	LabelDownload         = "[⏳DL]"
	LabelP2P              = "[P2P]"

	italianFlag  = "🇮🇹"
	upstreamName = "Torrentio"
)

// streamLabel picks the label for one annotated candidate. Unknown verdicts
// display like NotCached.
func streamLabel(a streams.AnnotatedCandidate) string {
	switch {
	case !a.Checked:
		return LabelP2P
	case a.Cached() && a.Service == debrid.ServiceTorBox:
		return LabelTorBoxCached
	case a.Cached():
		return LabelRealDebridCached
	default:
		return LabelDownload
	}
}

// FormatStream returns the candidate as shown to the player.
func FormatStream(a streams.AnnotatedCandidate) models.Candidate {
	c := a.Candidate
	base := strings.TrimSpace(strings.ReplaceAll(c.Name, upstreamName, ""))
	c.Name = strings.TrimSpace(streamLabel(a) + " " + italianFlag + " " + base)
	return c
}

// FormatStreams formats a ranked batch, keeping its order.
func FormatStreams(items []streams.AnnotatedCandidate) []models.Candidate {
	out := make([]models.Candidate, len(items))
	for i, item := range items {
		out[i] = FormatStream(item)
	}
	return out
}
