package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Luca1234105/torren/internal/models"
)

const (
	// DefaultRealDebridURL is the Real-Debrid REST API root
	DefaultRealDebridURL = "https://api.real-debrid.com/rest/1.0"
)

// RealDebrid talks to the Real-Debrid API. It is safe for concurrent use;
// credentials are supplied per call and never stored.
type RealDebrid struct {
	api    *apiClient
	logger *slog.Logger
}

// NewRealDebrid creates a new Real-Debrid service instance
func NewRealDebrid(baseURL string, httpClient *http.Client, timeout time.Duration, logger *slog.Logger) *RealDebrid {
	if baseURL == "" {
		baseURL = DefaultRealDebridURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RealDebrid{
		api:    newAPIClient(baseURL, httpClient, timeout),
		logger: logger.With("component", "realdebrid"),
	}
}

// Name returns the service name
func (rd *RealDebrid) Name() string {
	return ServiceRealDebrid
}

// FetchCached queries instant availability for all hashes in one request.
// Response format: { "hash1": { "rd": [{...}] }, "hash2": [] }
func (rd *RealDebrid) FetchCached(ctx context.Context, hashes []models.ContentHash, credential string) (HashSet, error) {
	segments := make([]string, len(hashes))
	for i, h := range hashes {
		segments[i] = h.String()
	}

	var availability map[string]json.RawMessage
	err := rd.api.call(ctx, apiRequest{
		op:         "probe",
		method:     http.MethodGet,
		path:       "/torrents/instantAvailability/" + strings.Join(segments, "/"),
		credential: credential,
	}, &availability)
	if err != nil {
		return nil, err
	}

	cached := make(HashSet)
	for key, raw := range availability {
		var variants map[string]json.RawMessage
		if err := json.Unmarshal(raw, &variants); err != nil {
			// arrays and scalars mean no cached variant
			continue
		}
		if _, ok := variants["rd"]; !ok {
			continue
		}
		if h, ok := models.ParseContentHash(key); ok {
			cached[h] = struct{}{}
		}
	}
	return cached, nil
}

// ForCredential returns a lifecycle client bound to one account credential.
func (rd *RealDebrid) ForCredential(credential string) ResourceClient {
	return &realDebridSession{rd: rd, credential: credential}
}

// realDebridSession implements ResourceClient for a single credential
type realDebridSession struct {
	rd         *RealDebrid
	credential string
}

type rdAddMagnetResponse struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

type rdTorrentFile struct {
	ID       int    `json:"id"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	Selected int    `json:"selected"`
}

type rdTorrentInfo struct {
	ID       string          `json:"id"`
	Filename string          `json:"filename"`
	Hash     string          `json:"hash"`
	Bytes    int64           `json:"bytes"`
	Status   string          `json:"status"`
	Files    []rdTorrentFile `json:"files"`
	Links    []string        `json:"links"`
}

type rdUnrestrictLink struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	Link     string `json:"link"`
	Host     string `json:"host"`
	Download string `json:"download"`
}

// Create adds a magnet for hash to the account
func (s *realDebridSession) Create(ctx context.Context, hash models.ContentHash) (string, error) {
	form := url.Values{}
	form.Set("magnet", hash.Magnet())

	var result rdAddMagnetResponse
	err := s.rd.api.call(ctx, apiRequest{
		op:         "create",
		method:     http.MethodPost,
		path:       "/torrents/addMagnet",
		form:       form,
		credential: s.credential,
	}, &result)
	if err != nil {
		return "", fmt.Errorf("add magnet: %w", err)
	}
	if result.ID == "" {
		return "", &RemoteError{Op: "create", Kind: ErrCreationFailed}
	}
	return result.ID, nil
}

// SelectAll selects every file of the torrent
func (s *realDebridSession) SelectAll(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("files", "all")

	err := s.rd.api.call(ctx, apiRequest{
		op:         "select_all",
		method:     http.MethodPost,
		path:       "/torrents/selectFiles/" + url.PathEscape(id),
		form:       form,
		credential: s.credential,
	}, nil)
	if err != nil {
		return fmt.Errorf("select files: %w", err)
	}
	return nil
}

// ReadStatus retrieves information about a torrent
func (s *realDebridSession) ReadStatus(ctx context.Context, id string) (*ResourceStatus, error) {
	var info rdTorrentInfo
	err := s.rd.api.call(ctx, apiRequest{
		op:         "status",
		method:     http.MethodGet,
		path:       "/torrents/info/" + url.PathEscape(id),
		credential: s.credential,
	}, &info)
	if err != nil {
		return nil, fmt.Errorf("get torrent info: %w", err)
	}

	status := &ResourceStatus{
		ID:       info.ID,
		Filename: info.Filename,
		Hash:     strings.ToLower(info.Hash),
		Status:   info.Status,
		Bytes:    info.Bytes,
		Links:    info.Links,
		Files:    make([]ResourceFile, 0, len(info.Files)),
	}
	for _, f := range info.Files {
		status.Files = append(status.Files, ResourceFile{
			ID:       f.ID,
			Path:     f.Path,
			Bytes:    f.Bytes,
			Selected: f.Selected == 1,
		})
	}
	return status, nil
}

// Delete removes a torrent from the account
func (s *realDebridSession) Delete(ctx context.Context, id string) error {
	err := s.rd.api.call(ctx, apiRequest{
		op:         "delete",
		method:     http.MethodDelete,
		path:       "/torrents/delete/" + url.PathEscape(id),
		credential: s.credential,
	}, nil)
	if err != nil {
		return fmt.Errorf("delete torrent: %w", err)
	}
	return nil
}

// Unrestrict converts a hoster link to a direct download link
func (s *realDebridSession) Unrestrict(ctx context.Context, link string) (*UnrestrictedLink, error) {
	form := url.Values{}
	form.Set("link", link)

	var result rdUnrestrictLink
	err := s.rd.api.call(ctx, apiRequest{
		op:         "unrestrict",
		method:     http.MethodPost,
		path:       "/unrestrict/link",
		form:       form,
		credential: s.credential,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("unrestrict link: %w", err)
	}
	if result.Download == "" && result.Link == "" {
		return nil, &RemoteError{Op: "unrestrict", Kind: ErrRemoteMalformed, Body: "no download url"}
	}

	return &UnrestrictedLink{
		ID:       result.ID,
		Filename: result.Filename,
		Filesize: result.Filesize,
		Link:     result.Link,
		Host:     result.Host,
		Download: result.Download,
	}, nil
}
