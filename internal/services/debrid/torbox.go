package debrid

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Luca1234105/torren/internal/models"
)

const (
	// DefaultTorBoxURL is the TorBox API root
	DefaultTorBoxURL = "https://api.torbox.app/v1/api"
)

// TorBox implements the batch availability check for TorBox.
// Only probing is supported; TorBox resources are never created.
type TorBox struct {
	api    *apiClient
	logger *slog.Logger
}

// NewTorBox creates a new TorBox service instance
func NewTorBox(baseURL string, httpClient *http.Client, timeout time.Duration, logger *slog.Logger) *TorBox {
	if baseURL == "" {
		baseURL = DefaultTorBoxURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TorBox{
		api:    newAPIClient(baseURL, httpClient, timeout),
		logger: logger.With("component", "torbox"),
	}
}

// Name returns the service name
func (tb *TorBox) Name() string {
	return ServiceTorBox
}

type tbCheckCachedResponse struct {
	Success bool              `json:"success"`
	Detail  string            `json:"detail"`
	Data    []json.RawMessage `json:"data"`
}

// FetchCached queries the checkcached endpoint in list format.
// Items in data are either bare hash strings or objects with a hash field.
func (tb *TorBox) FetchCached(ctx context.Context, hashes []models.ContentHash, credential string) (HashSet, error) {
	list := make([]string, len(hashes))
	for i, h := range hashes {
		list[i] = h.String()
	}

	query := url.Values{}
	query.Set("hash_list", strings.Join(list, ","))
	query.Set("format", "list")

	var resp tbCheckCachedResponse
	err := tb.api.call(ctx, apiRequest{
		op:         "probe",
		method:     http.MethodGet,
		path:       "/torrents/checkcached",
		query:      query,
		credential: credential,
	}, &resp)
	if err != nil {
		return nil, err
	}

	cached := make(HashSet)
	for _, item := range resp.Data {
		if h, ok := torboxItemHash(item); ok {
			cached[h] = struct{}{}
		}
	}
	return cached, nil
}

func torboxItemHash(raw json.RawMessage) (models.ContentHash, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return models.ParseContentHash(s)
	}
	var obj struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return models.ParseContentHash(obj.Hash)
	}
	return "", false
}
