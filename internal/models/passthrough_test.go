package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upstreamStream = `{
	"name": "Torrentio\n1080p",
	"title": "Film.ITA.mkv",
	"description": "Film.ITA.mkv\n👤 12",
	"infoHash": "0123456789abcdef0123456789abcdef01234567",
	"fileIdx": 0,
	"ytId": "abc",
	"behaviorHints": {
		"bingeGroup": "torrentio|1080p",
		"videoHash": "8a8d6f3c",
		"proxyHeaders": {"request": {"User-Agent": "x"}}
	}
}`

func TestCandidate_KeepsUnknownFields(t *testing.T) {
	var c Candidate
	require.NoError(t, json.Unmarshal([]byte(upstreamStream), &c))

	assert.Equal(t, "Torrentio\n1080p", c.Name)
	assert.Equal(t, sampleHash, c.InfoHash)
	assert.Contains(t, c.Extra, "description")
	assert.Contains(t, c.Extra, "ytId")
	assert.NotContains(t, c.Extra, "name")
	require.NotNil(t, c.BehaviorHints)
	assert.Equal(t, "torrentio|1080p", c.BehaviorHints.BingeGroup)
	assert.Contains(t, c.BehaviorHints.Extra, "videoHash")
	assert.Contains(t, c.BehaviorHints.Extra, "proxyHeaders")

	c.Name = "[P2P] 🇮🇹 1080p"
	c.InfoHash = ""
	c.FileIdx = nil
	c.URL = "https://download.example/film.mkv"

	out, err := json.Marshal(c)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "[P2P] 🇮🇹 1080p", got["name"])
	assert.Equal(t, "Film.ITA.mkv\n👤 12", got["description"])
	assert.Equal(t, "abc", got["ytId"])
	assert.Equal(t, "https://download.example/film.mkv", got["url"])
	assert.NotContains(t, got, "infoHash")
	assert.NotContains(t, got, "fileIdx")

	hints, ok := got["behaviorHints"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "torrentio|1080p", hints["bingeGroup"])
	assert.Equal(t, "8a8d6f3c", hints["videoHash"])
	assert.Equal(t, map[string]any{"request": map[string]any{"User-Agent": "x"}}, hints["proxyHeaders"])
}

func TestCandidate_NoExtraEncodesDeclaredFieldsOnly(t *testing.T) {
	var c Candidate
	require.NoError(t, json.Unmarshal([]byte(`{"name":"a","title":"b"}`), &c))
	assert.Nil(t, c.Extra)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","title":"b"}`, string(out))
}
