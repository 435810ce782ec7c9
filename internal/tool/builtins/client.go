package builtins

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inquestai/inquest/internal/tool"
)

// SearchClient executes a query DSL body against an index pattern of the
// security event store and returns the matching documents.
type SearchClient interface {
	Search(ctx context.Context, index string, body map[string]any) ([]map[string]any, error)
}

// HTTPClientConfig configures the HTTP search client.
type HTTPClientConfig struct {
	Endpoint string
	Username string
	Password string
	Insecure bool
	Timeout  time.Duration
}

// HTTPClient talks to a Wazuh indexer or OpenSearch-compatible store over
// its REST search API.
type HTTPClient struct {
	endpoint string
	username string
	password string
	client   *http.Client
}

// NewHTTPClient creates a search client for the given endpoint.
func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if _, err := url.Parse(endpoint); err != nil || endpoint == "" {
		return nil, fmt.Errorf("invalid event store endpoint %q", cfg.Endpoint)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &HTTPClient{
		endpoint: endpoint,
		username: cfg.Username,
		password: cfg.Password,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search posts the query body to {endpoint}/{index}/_search and returns the
// _source of every hit. Connection failures and backend overload surface as
// transient errors so the engine retries them; malformed queries do not.
func (c *HTTPClient) Search(ctx context.Context, index string, body map[string]any) ([]map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, tool.Permanent("encoding search body", err)
	}

	u := fmt.Sprintf("%s/%s/_search", c.endpoint, url.PathEscape(index))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, tool.Permanent("building search request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, tool.Transient("event store unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, tool.Transient("reading search response", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, tool.Transient(
			fmt.Sprintf("event store returned %d for %s", resp.StatusCode, index), nil)
	case resp.StatusCode >= 400:
		return nil, tool.Permanent(
			fmt.Sprintf("event store rejected search on %s with %d: %s", index, resp.StatusCode, truncate(raw, 256)), nil)
	}

	var decoded searchResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, tool.Permanent("decoding search response", err)
	}

	out := make([]map[string]any, 0, len(decoded.Hits.Hits))
	for _, h := range decoded.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
