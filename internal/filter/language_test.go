package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsItalian(t *testing.T) {
	tests := []struct {
		name   string
		sName  string
		sTitle string
		want   bool
	}{
		{"flag in title", "Torrentio\n1080p", "Film 2023 🇮🇹 / 🇬🇧", true},
		{"dotted release", "Torrentio", "Film.2023.ITA.ENG.1080p.mkv", true},
		{"dash pair", "Torrentio", "Film 2023 ITA-ENG", true},
		{"audio codec", "Torrentio", "Film 2023 AC3 ITA", true},
		{"word italian", "Torrentio", "Film Italian Dub", true},
		{"word italiano mixed case", "Torrentio", "Film iTALiANO", true},
		{"marker in name", "Torrentio ITA", "Film.2023.1080p", true},
		{"token at end", "Torrentio", "Film MULTI ita", true},
		{"substring only", "Torrentio", "Capital.2023.1080p", false},
		{"english only", "Torrentio", "Film.2023.ENG.1080p", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsItalian(tt.sName, tt.sTitle))
		})
	}
}
