package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Luca1234105/torren/internal/metrics"
)

const (
	// DefaultRequestTimeout bounds every single debrid API call.
	DefaultRequestTimeout = 10 * time.Second

	maxResponseBytes = 4 << 20
	maxErrorBody     = 256
)

// apiClient performs single, non-retried requests against a debrid REST API.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

func newAPIClient(baseURL string, httpClient *http.Client, timeout time.Duration) *apiClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// apiRequest describes one API call.
type apiRequest struct {
	op         string     // metrics and error label
	method     string     // HTTP method
	path       string     // path relative to baseURL
	query      url.Values // optional query string
	form       url.Values // optional urlencoded body
	credential string     // bearer token
}

// call executes req and decodes a JSON body into out when out is non-nil.
func (c *apiClient) call(ctx context.Context, req apiRequest, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.RemoteCallsTotal.WithLabelValues(req.op, metrics.ResultLabel(err)).Inc()
		metrics.RemoteCallDuration.WithLabelValues(req.op).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.form != nil {
		body = strings.NewReader(req.form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return &RemoteError{Op: req.op, Kind: ErrInputInvalid, Cause: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.credential)
	httpReq.Header.Set("Accept", "application/json")
	if req.form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &RemoteError{Op: req.op, Kind: ErrRemoteUnavailable, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &RemoteError{Op: req.op, Status: resp.StatusCode, Kind: ErrRemoteUnavailable, Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{Op: req.op, Status: resp.StatusCode, Body: snippet(data), Kind: ErrRemoteUnavailable}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RemoteError{Op: req.op, Status: resp.StatusCode, Body: snippet(data), Kind: ErrRemoteMalformed, Cause: err}
	}
	return nil
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
