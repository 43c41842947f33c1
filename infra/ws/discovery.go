package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// discoverEndpoint asks the backend where the websocket lives and returns
// the fully resolved ws/wss URL including the configured query parameters.
func discoverEndpoint(ctx context.Context, cfg Config) (string, error) {
	if cfg.EndpointURL != "" {
		return withQueryParams(cfg.EndpointURL, cfg.QueryParams)
	}

	infoURL := strings.TrimRight(cfg.BaseURL, "/") + cfg.InfoEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		return "", fmt.Errorf("building discovery request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("querying websocket info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("websocket info returned status %d", resp.StatusCode)
	}

	var info struct {
		WebsocketURL string `json:"websocket_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decoding websocket info: %w", err)
	}
	if info.WebsocketURL == "" {
		return "", fmt.Errorf("websocket info missing websocket_url")
	}

	resolved, err := resolveEndpoint(cfg.BaseURL, info.WebsocketURL)
	if err != nil {
		return "", err
	}
	return withQueryParams(resolved, cfg.QueryParams)
}

// resolveEndpoint turns the advertised URL into a ws/wss URL. Absolute http
// URLs have their scheme swapped; relative paths are resolved against the
// base host, keeping its security level.
func resolveEndpoint(baseURL, advertised string) (string, error) {
	u, err := url.Parse(advertised)
	if err != nil {
		return "", fmt.Errorf("parsing advertised websocket url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return u.String(), nil
	case "http":
		u.Scheme = "ws"
		return u.String(), nil
	case "https":
		u.Scheme = "wss"
		return u.String(), nil
	case "":
		base, err := url.Parse(baseURL)
		if err != nil {
			return "", fmt.Errorf("parsing base url: %w", err)
		}
		scheme := "ws"
		if base.Scheme == "https" {
			scheme = "wss"
		}
		path := u.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		resolved := url.URL{Scheme: scheme, Host: base.Host, Path: path, RawQuery: u.RawQuery}
		return resolved.String(), nil
	default:
		return "", fmt.Errorf("unsupported websocket scheme %q", u.Scheme)
	}
}

func withQueryParams(endpoint string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return endpoint, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing websocket url: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
