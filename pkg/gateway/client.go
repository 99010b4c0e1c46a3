// Package gateway implements the remote state gateway: the HTTP client for
// the platform's resource APIs and the adapters that expose it through the
// narrow interfaces the reconciliation core consumes.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"
)

// Config is the connection configuration for the platform API, loaded from
// a JSON file at process start.
type Config struct {
	// BaseURL is the API host, e.g. "https://api.nimbus.example".
	BaseURL string `json:"base_url" validate:"required,url"`

	// OrganizationID is sent as the x-org-id header on every request.
	OrganizationID string `json:"organization_id" validate:"required"`

	// ClientID is the OAuth2 client id, also sent as the x-api-key header.
	ClientID string `json:"client_id" validate:"required"`

	// ClientSecret is the OAuth2 client secret.
	ClientSecret string `json:"client_secret" validate:"required"`

	// TokenURL is the OAuth2 token endpoint.
	TokenURL string `json:"token_url" validate:"required,url"`

	// Scopes are the OAuth2 scopes to request.
	Scopes []string `json:"scopes,omitempty"`

	// Timeout bounds each HTTP request. Zero means 30 seconds.
	Timeout time.Duration `json:"-"`
}

// Client talks to the platform's resource APIs. All requests carry the
// organization and API-key headers and an OAuth2 bearer token acquired via
// the client-credentials flow; the token source caches and refreshes
// transparently.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	orgID   string
	apiKey  string
	log     zerolog.Logger
}

// NewClient creates a client from the connection configuration.
func NewClient(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	httpClient := cc.Client(ctx)
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	} else {
		httpClient.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		orgID:   cfg.OrganizationID,
		apiKey:  cfg.ClientID,
		log:     log.With().Str("component", "gateway").Logger(),
	}, nil
}

// do issues one API request and decodes a JSON response into out, when out
// is non-nil. Non-2xx responses are decoded into a classified remote error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-org-id", c.orgID)
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("api request")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, payload)
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// download issues one API request and streams the raw response body into
// w. Used for endpoints serving file content rather than JSON.
func (c *Client) download(ctx context.Context, path string, query url.Values, w io.Writer) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-org-id", c.orgID)
	req.Header.Set("x-api-key", c.apiKey)

	c.log.Debug().Str("method", "GET").Str("path", path).Msg("api download")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}
		return decodeAPIError(resp.StatusCode, payload)
	}

	_, err = io.Copy(w, resp.Body)
	return err
}

// listPageSize is the page size used when walking paged list endpoints.
const listPageSize = 100

// pageQuery builds the start/limit paging parameters of list endpoints.
func pageQuery(start, limit int) url.Values {
	q := url.Values{}
	q.Set("start", fmt.Sprintf("%d", start))
	q.Set("limit", fmt.Sprintf("%d", limit))
	return q
}
