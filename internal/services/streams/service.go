package streams

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Luca1234105/torren/internal/filter"
	"github.com/Luca1234105/torren/internal/metrics"
	"github.com/Luca1234105/torren/internal/models"
	"github.com/Luca1234105/torren/internal/services/debrid"
	"github.com/Luca1234105/torren/internal/services/resolution"
)

// DefaultMaxCandidates caps how many streams are checked per request
const DefaultMaxCandidates = 15

// Mode selects how candidates are checked against the debrid service.
type Mode string

const (
	ModeCheck   Mode = "check"   // active create/read/delete per candidate
	ModeResolve Mode = "resolve" // active check plus direct link
	ModeProbe   Mode = "probe"   // one batch availability request
	ModeP2P     Mode = "p2p"     // no debrid lookups
)

// ParseMode maps a user-supplied mode string, defaulting to ModeCheck.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeResolve, ModeProbe, ModeP2P:
		return Mode(s)
	default:
		return ModeCheck
	}
}

// Account identifies the user's debrid account for one request.
type Account struct {
	Service    string
	Credential string
}

// Resolver is the active resolution workflow for one service.
type Resolver interface {
	Service() string
	CheckCached(ctx context.Context, candidate models.Candidate, credential string) debrid.CacheVerdict
	ResolveLink(ctx context.Context, candidate models.Candidate, credential string) (*resolution.ResolvedLink, bool)
}

// AnnotatedCandidate is a candidate with its cache verdict.
type AnnotatedCandidate struct {
	Candidate models.Candidate
	Hash      models.ContentHash
	Verdict   debrid.CacheVerdict
	// Checked is false when no debrid lookup applied (P2P)
	Checked  bool
	Resolved *resolution.ResolvedLink
	Service  string
}

// Cached reports whether the candidate is instantly playable.
func (a AnnotatedCandidate) Cached() bool {
	return a.Verdict == debrid.Cached || a.Resolved != nil
}

// StreamService annotates upstream candidates with debrid availability
type StreamService struct {
	probers       map[string]debrid.Prober
	resolvers     map[string]Resolver
	maxCandidates int
	logger        *slog.Logger
}

// NewStreamService creates a new stream service
func NewStreamService(probers []debrid.Prober, resolvers []Resolver, maxCandidates int, logger *slog.Logger) *StreamService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	s := &StreamService{
		probers:       make(map[string]debrid.Prober, len(probers)),
		resolvers:     make(map[string]Resolver, len(resolvers)),
		maxCandidates: maxCandidates,
		logger:        logger.With("component", "streams"),
	}
	for _, p := range probers {
		s.probers[p.Name()] = p
	}
	for _, r := range resolvers {
		s.resolvers[r.Service()] = r
	}
	return s
}

// EffectiveMode returns the mode a batch will actually run in for account.
// Services without an active workflow fall back to probing; accounts
// without a credential or a known service run as P2P.
func (s *StreamService) EffectiveMode(account Account, requested Mode) Mode {
	if account.Credential == "" || requested == ModeP2P {
		return ModeP2P
	}
	_, hasProber := s.probers[account.Service]
	_, hasResolver := s.resolvers[account.Service]

	switch requested {
	case ModeProbe:
		if hasProber {
			return ModeProbe
		}
	case ModeCheck, ModeResolve:
		if hasResolver {
			return requested
		}
		if hasProber {
			return ModeProbe
		}
	}
	if hasResolver {
		return ModeCheck
	}
	return ModeP2P
}

// RunBatch filters candidates to Italian streams, truncates them, checks
// each against the debrid service and ranks cached ones first. It never
// fails: lookup errors surface as Unknown verdicts.
func (s *StreamService) RunBatch(ctx context.Context, candidates []models.Candidate, account Account, requested Mode) []AnnotatedCandidate {
	mode := s.EffectiveMode(account, requested)
	logger := s.logger.With("run_id", uuid.NewString(), "mode", string(mode), "service", account.Service)
	start := time.Now()
	defer func() {
		metrics.BatchDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
		metrics.StreamRequestsTotal.WithLabelValues(string(mode)).Inc()
	}()

	selected := s.selectCandidates(candidates)
	logger.Info("Selected candidates",
		"total", len(candidates),
		"italian", countItalian(candidates),
		"checked", len(selected))

	annotated := make([]AnnotatedCandidate, len(selected))
	for i, c := range selected {
		annotated[i] = AnnotatedCandidate{Candidate: c, Verdict: debrid.Unknown}
		if h, ok := c.Hash(); ok {
			annotated[i].Hash = h
		}
	}

	switch mode {
	case ModeProbe:
		s.runProbe(ctx, annotated, account, logger)
	case ModeCheck, ModeResolve:
		s.runActive(ctx, annotated, account, mode, logger)
	}

	ranked := RankCachedFirst(annotated)
	logger.Info("Annotated candidates",
		"cached", countCached(ranked),
		"duration", time.Since(start))
	return ranked
}

// selectCandidates applies the language filter and the candidate cap.
func (s *StreamService) selectCandidates(candidates []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, 0, min(len(candidates), s.maxCandidates))
	for _, c := range candidates {
		if len(out) == s.maxCandidates {
			break
		}
		if filter.IsItalian(c.Name, c.Title) {
			out = append(out, c)
		}
	}
	return out
}

func (s *StreamService) runProbe(ctx context.Context, items []AnnotatedCandidate, account Account, logger *slog.Logger) {
	prober := s.probers[account.Service]

	hashes := make([]models.ContentHash, 0, len(items))
	for _, item := range items {
		if item.Hash != "" {
			hashes = append(hashes, item.Hash)
		}
	}
	cached := prober.ProbeBatch(ctx, hashes, account.Credential)

	for i := range items {
		if items[i].Hash == "" {
			continue
		}
		items[i].Checked = true
		items[i].Service = account.Service
		items[i].Verdict = debrid.NotCached
		if cached.Has(items[i].Hash) {
			items[i].Verdict = debrid.Cached
		}
	}
	logger.Debug("Probed candidates", "hashes", len(hashes), "cached", len(cached))
}

// runActive runs the resolution workflow sequentially. Candidates sharing
// a hash within the batch reuse the first outcome.
func (s *StreamService) runActive(ctx context.Context, items []AnnotatedCandidate, account Account, mode Mode, logger *slog.Logger) {
	resolver := s.resolvers[account.Service]

	type outcome struct {
		verdict  debrid.CacheVerdict
		resolved *resolution.ResolvedLink
	}
	seen := make(map[models.ContentHash]outcome)

	for i := range items {
		item := &items[i]
		if item.Hash == "" {
			continue
		}
		item.Checked = true
		item.Service = account.Service

		out, ok := seen[item.Hash]
		if !ok {
			if mode == ModeResolve {
				link, resolved := resolver.ResolveLink(ctx, item.Candidate, account.Credential)
				out.verdict = debrid.NotCached
				if resolved {
					out.verdict = debrid.Cached
					out.resolved = link
				}
			} else {
				out.verdict = resolver.CheckCached(ctx, item.Candidate, account.Credential)
			}
			seen[item.Hash] = out
		}

		item.Verdict = out.verdict
		if out.resolved != nil {
			item.Resolved = out.resolved
			item.Candidate.URL = out.resolved.URL
			item.Candidate.InfoHash = ""
			item.Candidate.FileIdx = nil
			item.Candidate.Sources = nil
		}
		logger.Debug("Checked candidate", "hash", item.Hash.String(), "verdict", item.Verdict.String())
	}
}

// RankCachedFirst returns items with cached candidates first, preserving
// relative order within both groups.
func RankCachedFirst(items []AnnotatedCandidate) []AnnotatedCandidate {
	ranked := slices.Clone(items)
	slices.SortStableFunc(ranked, func(a, b AnnotatedCandidate) int {
		return rank(a) - rank(b)
	})
	return ranked
}

func rank(a AnnotatedCandidate) int {
	if a.Cached() {
		return 0
	}
	return 1
}

func countItalian(candidates []models.Candidate) int {
	n := 0
	for _, c := range candidates {
		if filter.IsItalian(c.Name, c.Title) {
			n++
		}
	}
	return n
}

func countCached(items []AnnotatedCandidate) int {
	n := 0
	for _, item := range items {
		if item.Cached() {
			n++
		}
	}
	return n
}
