package streams

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luca1234105/torren/internal/models"
	"github.com/Luca1234105/torren/internal/services/debrid"
	"github.com/Luca1234105/torren/internal/services/resolution"
)

type fakeProber struct {
	name   string
	cached debrid.HashSet
	calls  int
	seen   []models.ContentHash
}

func (f *fakeProber) Name() string { return f.name }

func (f *fakeProber) ProbeBatch(_ context.Context, hashes []models.ContentHash, _ string) debrid.HashSet {
	f.calls++
	f.seen = hashes
	out := debrid.HashSet{}
	for _, h := range hashes {
		if f.cached.Has(h) {
			out[h] = struct{}{}
		}
	}
	return out
}

type fakeResolver struct {
	cached  debrid.HashSet
	checks  []models.ContentHash
	resolve []models.ContentHash
}

func (f *fakeResolver) Service() string { return debrid.ServiceRealDebrid }

func (f *fakeResolver) CheckCached(_ context.Context, c models.Candidate, _ string) debrid.CacheVerdict {
	h, _ := c.Hash()
	f.checks = append(f.checks, h)
	if f.cached.Has(h) {
		return debrid.Cached
	}
	return debrid.NotCached
}

func (f *fakeResolver) ResolveLink(_ context.Context, c models.Candidate, _ string) (*resolution.ResolvedLink, bool) {
	h, _ := c.Hash()
	f.resolve = append(f.resolve, h)
	if !f.cached.Has(h) {
		return nil, false
	}
	return &resolution.ResolvedLink{URL: "https://cdn.example/" + h.String(), ResourceID: "R-" + h.String()[:4]}, true
}

func hashN(n int) models.ContentHash {
	return models.ContentHash(fmt.Sprintf("%040x", n))
}

func italian(n int) models.Candidate {
	return models.Candidate{
		Name:     "Torrentio\n1080p",
		Title:    fmt.Sprintf("Film.%d.ITA.ENG.mkv", n),
		InfoHash: hashN(n).String(),
	}
}

func titles(items []AnnotatedCandidate) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Candidate.Title
	}
	return out
}

func rdAccount() Account {
	return Account{Service: debrid.ServiceRealDebrid, Credential: "key"}
}

func TestRunBatch_CheckRanksCachedFirst(t *testing.T) {
	resolver := &fakeResolver{cached: debrid.NewHashSet(hashN(2), hashN(4))}
	svc := NewStreamService(nil, []Resolver{resolver}, 0, nil)

	input := []models.Candidate{italian(1), italian(2), italian(3), italian(4)}
	got := svc.RunBatch(context.Background(), input, rdAccount(), ModeCheck)

	require.Len(t, got, 4)
	assert.Equal(t, []string{
		"Film.2.ITA.ENG.mkv", "Film.4.ITA.ENG.mkv",
		"Film.1.ITA.ENG.mkv", "Film.3.ITA.ENG.mkv",
	}, titles(got))
	assert.Equal(t, debrid.Cached, got[0].Verdict)
	assert.Equal(t, debrid.NotCached, got[3].Verdict)
	assert.True(t, got[3].Checked)
	assert.Equal(t, debrid.ServiceRealDebrid, got[0].Service)
	assert.Equal(t, []models.ContentHash{hashN(1), hashN(2), hashN(3), hashN(4)}, resolver.checks)
}

func TestRunBatch_FiltersThenTruncates(t *testing.T) {
	resolver := &fakeResolver{}
	svc := NewStreamService(nil, []Resolver{resolver}, DefaultMaxCandidates, nil)

	var input []models.Candidate
	for i := 0; i < 30; i++ {
		input = append(input, models.Candidate{Name: "Torrentio", Title: "English.Only.1080p", InfoHash: hashN(1000 + i).String()})
		input = append(input, italian(i))
	}

	got := svc.RunBatch(context.Background(), input, rdAccount(), ModeCheck)

	assert.Len(t, got, DefaultMaxCandidates)
	assert.Len(t, resolver.checks, DefaultMaxCandidates)
	for i, h := range resolver.checks {
		assert.Equal(t, hashN(i), h, "only the first 15 Italian candidates are checked")
	}
}

func TestRunBatch_P2PWithoutCredential(t *testing.T) {
	resolver := &fakeResolver{cached: debrid.NewHashSet(hashN(1))}
	prober := &fakeProber{name: debrid.ServiceRealDebrid}
	svc := NewStreamService([]debrid.Prober{prober}, []Resolver{resolver}, 0, nil)

	tests := []struct {
		name    string
		account Account
		mode    Mode
	}{
		{"no credential", Account{Service: debrid.ServiceRealDebrid}, ModeCheck},
		{"unknown service", Account{Service: "premiumize", Credential: "key"}, ModeCheck},
		{"explicit p2p", rdAccount(), ModeP2P},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.RunBatch(context.Background(), []models.Candidate{italian(1), italian(2)}, tt.account, tt.mode)

			require.Len(t, got, 2)
			for _, item := range got {
				assert.False(t, item.Checked)
				assert.Equal(t, debrid.Unknown, item.Verdict)
			}
			assert.Equal(t, "Film.1.ITA.ENG.mkv", got[0].Candidate.Title)
		})
	}
	assert.Empty(t, resolver.checks)
	assert.Zero(t, prober.calls)
}

func TestRunBatch_HashlessCandidatesAreNotChecked(t *testing.T) {
	resolver := &fakeResolver{}
	svc := NewStreamService(nil, []Resolver{resolver}, 0, nil)

	input := []models.Candidate{
		{Name: "Torrentio", Title: "Film ITA", URL: "https://example.com/stream.mkv"},
		italian(1),
	}
	got := svc.RunBatch(context.Background(), input, rdAccount(), ModeCheck)

	require.Len(t, got, 2)
	assert.False(t, got[0].Checked)
	assert.True(t, got[1].Checked)
	assert.Equal(t, []models.ContentHash{hashN(1)}, resolver.checks)
}

func TestRunBatch_DuplicateHashesCheckedOnce(t *testing.T) {
	resolver := &fakeResolver{cached: debrid.NewHashSet(hashN(7))}
	svc := NewStreamService(nil, []Resolver{resolver}, 0, nil)

	dup := italian(7)
	dup.Title = "Film.7.ITA.720p.mkv"
	got := svc.RunBatch(context.Background(), []models.Candidate{italian(7), dup}, rdAccount(), ModeCheck)

	assert.Len(t, resolver.checks, 1)
	assert.True(t, got[0].Cached())
	assert.True(t, got[1].Cached())
}

func TestRunBatch_Probe(t *testing.T) {
	prober := &fakeProber{name: debrid.ServiceTorBox, cached: debrid.NewHashSet(hashN(3))}
	svc := NewStreamService([]debrid.Prober{prober}, nil, 0, nil)

	input := []models.Candidate{italian(1), italian(2), italian(3)}
	// TorBox has no active workflow, so check falls back to probing
	got := svc.RunBatch(context.Background(), input,
		Account{Service: debrid.ServiceTorBox, Credential: "tb"}, ModeCheck)

	assert.Equal(t, 1, prober.calls)
	assert.Equal(t, []models.ContentHash{hashN(1), hashN(2), hashN(3)}, prober.seen)
	assert.Equal(t, "Film.3.ITA.ENG.mkv", got[0].Candidate.Title)
	assert.Equal(t, debrid.Cached, got[0].Verdict)
	assert.Equal(t, debrid.ServiceTorBox, got[0].Service)
	assert.Equal(t, debrid.NotCached, got[1].Verdict)
}

func TestRunBatch_ResolveReplacesLocator(t *testing.T) {
	resolver := &fakeResolver{cached: debrid.NewHashSet(hashN(2))}
	svc := NewStreamService(nil, []Resolver{resolver}, 0, nil)

	idx := 0
	c := italian(2)
	c.FileIdx = &idx
	got := svc.RunBatch(context.Background(), []models.Candidate{italian(1), c}, rdAccount(), ModeResolve)

	require.Len(t, got, 2)
	first := got[0]
	require.NotNil(t, first.Resolved)
	assert.Equal(t, "https://cdn.example/"+hashN(2).String(), first.Candidate.URL)
	assert.Empty(t, first.Candidate.InfoHash)
	assert.Nil(t, first.Candidate.FileIdx)
	assert.Equal(t, hashN(2), first.Hash)

	assert.Nil(t, got[1].Resolved)
	assert.Equal(t, hashN(1).String(), got[1].Candidate.InfoHash)
	assert.Len(t, resolver.resolve, 2)
	assert.Empty(t, resolver.checks)
}

func TestEffectiveMode(t *testing.T) {
	rdProber := &fakeProber{name: debrid.ServiceRealDebrid}
	tbProber := &fakeProber{name: debrid.ServiceTorBox}
	svc := NewStreamService([]debrid.Prober{rdProber, tbProber}, []Resolver{&fakeResolver{}}, 0, nil)

	tests := []struct {
		account   Account
		requested Mode
		want      Mode
	}{
		{rdAccount(), ModeCheck, ModeCheck},
		{rdAccount(), ModeResolve, ModeResolve},
		{rdAccount(), ModeProbe, ModeProbe},
		{rdAccount(), ModeP2P, ModeP2P},
		{Account{Service: debrid.ServiceTorBox, Credential: "k"}, ModeResolve, ModeProbe},
		{Account{Service: debrid.ServiceTorBox, Credential: "k"}, ModeProbe, ModeProbe},
		{Account{Service: debrid.ServiceRealDebrid}, ModeCheck, ModeP2P},
		{Account{Service: "other", Credential: "k"}, ModeProbe, ModeP2P},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.account.Service, tt.requested), func(t *testing.T) {
			assert.Equal(t, tt.want, svc.EffectiveMode(tt.account, tt.requested))
		})
	}
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeResolve, ParseMode("resolve"))
	assert.Equal(t, ModeProbe, ParseMode("probe"))
	assert.Equal(t, ModeP2P, ParseMode("p2p"))
	assert.Equal(t, ModeCheck, ParseMode(""))
	assert.Equal(t, ModeCheck, ParseMode("bogus"))
}

func TestRankCachedFirst_StablePartitionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("cached first, relative order preserved", prop.ForAll(
		func(flags []bool) bool {
			items := make([]AnnotatedCandidate, len(flags))
			for i, cached := range flags {
				items[i] = AnnotatedCandidate{Hash: hashN(i), Verdict: debrid.NotCached}
				if cached {
					items[i].Verdict = debrid.Cached
				}
			}

			ranked := RankCachedFirst(items)
			if len(ranked) != len(items) {
				return false
			}

			var wantCached, wantRest []models.ContentHash
			for _, item := range items {
				if item.Cached() {
					wantCached = append(wantCached, item.Hash)
				} else {
					wantRest = append(wantRest, item.Hash)
				}
			}
			want := append(wantCached, wantRest...)
			for i, item := range ranked {
				if item.Hash != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
