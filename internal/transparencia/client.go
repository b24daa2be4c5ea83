// Package transparencia is a client for the Portal da Transparência
// notas-fiscais API: paginated GET requests authenticated with an API key
// header, answered with JSON arrays of invoice objects.
package transparencia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gmendonca/nfe-pipeline/internal/httpretry"
)

// Configuration errors, raised before any network request is made.
var (
	ErrMissingBaseURL = errors.New("transparencia: API base URL is not configured")
	ErrMissingAPIKey  = errors.New("transparencia: API key is not configured")
)

const (
	apiKeyHeader = "chave-api-dados"

	// DefaultMaxPages caps pagination when the caller does not set a limit.
	DefaultMaxPages = 1000
)

// Client queries the notas-fiscais endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a Client for the given endpoint and credential. Both
// strings are validated here; an empty value is a configuration error and
// no request will ever be issued from a client that failed construction.
func NewClient(baseURL, apiKey string) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimSpace(baseURL),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 30 * time.Second,
		}, 3, 2*time.Second),
	}
	if err := c.checkConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) checkConfig() error {
	if c.baseURL == "" {
		return ErrMissingBaseURL
	}
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// FetchPage requests a single page of invoices for the given agency. The
// underlying client already retried transient failures, so any error
// returned here is terminal for the page.
func (c *Client) FetchPage(ctx context.Context, agencyCode string, page int) ([]Record, error) {
	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("codigoOrgao", agencyCode)
	params.Set("pagina", strconv.Itoa(page))
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("transparencia: create request for page %d: %w", page, err)
	}
	req.Header.Set("accept", "*/*")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transparencia: page %d: %w", page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transparencia: read page %d: %w", page, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transparencia: page %d: API error (status %d): %s", page, resp.StatusCode, string(body))
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("transparencia: decode page %d: %w", page, err)
	}
	return records, nil
}
