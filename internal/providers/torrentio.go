package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Luca1234105/torren/internal/metrics"
	"github.com/Luca1234105/torren/internal/models"
)

const (
	// DefaultTorrentioURL is the public Torrentio addon root
	DefaultTorrentioURL = "https://torrentio.strem.fun"

	// DefaultUpstreamTimeout bounds one upstream stream fetch
	DefaultUpstreamTimeout = 15 * time.Second

	maxUpstreamBytes = 8 << 20
)

var (
	// ErrInvalidRequest means the media type or id is not acceptable upstream
	ErrInvalidRequest = errors.New("invalid stream request")

	stremioIDPattern = regexp.MustCompile(`^[A-Za-z0-9:._-]+$`)
)

// StreamProvider returns candidate streams for a Stremio media id.
type StreamProvider interface {
	GetStreams(ctx context.Context, mediaType, id, options string) ([]models.Candidate, error)
}

// TorrentioProvider queries a Torrentio-compatible addon on demand
type TorrentioProvider struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewTorrentioProvider creates a new Torrentio provider
func NewTorrentioProvider(baseURL string, client *http.Client, timeout time.Duration, logger *slog.Logger) *TorrentioProvider {
	if baseURL == "" {
		baseURL = DefaultTorrentioURL
	}
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TorrentioProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
		logger:  logger.With("component", "torrentio"),
	}
}

// ValidateRequest checks the media type and id of a stream request.
func ValidateRequest(mediaType, id string) error {
	if mediaType != "movie" && mediaType != "series" {
		return fmt.Errorf("%w: type %q", ErrInvalidRequest, mediaType)
	}
	if !stremioIDPattern.MatchString(id) {
		return fmt.Errorf("%w: id %q", ErrInvalidRequest, id)
	}
	return nil
}

// GetStreams fetches upstream streams. On any failure it returns an empty
// list together with the error.
func (p *TorrentioProvider) GetStreams(ctx context.Context, mediaType, id, options string) ([]models.Candidate, error) {
	if err := ValidateRequest(mediaType, id); err != nil {
		return []models.Candidate{}, err
	}

	sourceURL := p.streamURL(mediaType, id, options)
	streams, err := p.querySource(ctx, sourceURL)
	metrics.UpstreamRequestsTotal.WithLabelValues(metrics.ResultLabel(err)).Inc()
	if err != nil {
		p.logger.Warn("Upstream fetch failed", "type", mediaType, "id", id, "error", err)
		return []models.Candidate{}, err
	}

	p.logger.Info("Fetched upstream streams", "type", mediaType, "id", id, "count", len(streams))
	return streams, nil
}

// streamURL builds {base}[/{options}]/stream/{type}/{id}.json
func (p *TorrentioProvider) streamURL(mediaType, id, options string) string {
	options = sanitizeOptions(options)
	if options == "" {
		return fmt.Sprintf("%s/stream/%s/%s.json", p.baseURL, mediaType, id)
	}
	return fmt.Sprintf("%s/%s/stream/%s/%s.json", p.baseURL, options, mediaType, id)
}

// sanitizeOptions keeps the options a single path segment.
func sanitizeOptions(options string) string {
	options = strings.TrimSpace(options)
	options = strings.Trim(options, "/")
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '?', '#', ' ', '\\':
			return -1
		}
		return r
	}, options)
}

// querySource queries a single upstream source
func (p *TorrentioProvider) querySource(ctx context.Context, sourceURL string) ([]models.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Streams []models.Candidate `json:"streams"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUpstreamBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode streams: %w", err)
	}
	if result.Streams == nil {
		return []models.Candidate{}, nil
	}
	return result.Streams, nil
}
