// Package remote provides an HTTP client for the partner registry backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mastera/partnerdesk/internal/textutil"
)

// Client talks to the partner registry REST API.
type Client struct {
	baseURL string

	// httpClient retries; onceClient is used for requests that change
	// backend state and must not be replayed.
	httpClient *http.Client
	onceClient *http.Client

	mu    sync.RWMutex
	token string
}

// Config holds configuration for creating a Client.
type Config struct {
	URL           string
	Token         string
	AllowInsecure bool
	Timeout       time.Duration
	RetryMax      int
	Logger        *slog.Logger
}

// Compile-time check.
var _ registry.Backend = (*Client)(nil)

// New creates a new backend client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsedURL.Scheme == "http" && !cfg.AllowInsecure {
		return nil, fmt.Errorf("HTTPS required for backend connections\n\n" +
			"Options:\n" +
			"  1. Use HTTPS: [backend] url = \"https://registry.example.com\"\n" +
			"  2. For a local dev server: add 'allow_insecure = true' to [backend] in config.toml")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return nil, fmt.Errorf("backend URL must include a host (e.g., http://localhost:8090)")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	retryMax := cfg.RetryMax
	if retryMax < 0 {
		retryMax = 0
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Timeout: timeout}
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 250 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil
	if cfg.Logger != nil {
		retryClient.Logger = cfg.Logger
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		httpClient: retryClient.StandardClient(),
		onceClient: &http.Client{Timeout: timeout},
		token:      cfg.Token,
	}, nil
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// newRequest builds a request against the backend with auth headers set.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req with client. Failures to get any response are wrapped in
// registry.ErrTransport.
func (c *Client) do(client *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, registry.ErrTransport, err)
	}
	return resp, nil
}

// clientFor returns the retrying client for GET and the single-shot client
// for everything else.
func (c *Client) clientFor(method string) *http.Client {
	if method == http.MethodGet {
		return c.httpClient
	}
	return c.onceClient
}

// doJSON sends a request with an optional JSON body.
func (c *Client) doJSON(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(c.clientFor(method), req)
}

// errorBody represents an error response from the API.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// handleErrorResponse reads an error response into a *registry.APIError.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &registry.APIError{Status: resp.StatusCode}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Code = eb.Error
		apiErr.Message = eb.Message
		if apiErr.Message == "" {
			apiErr.Message = eb.Details
		}
		return apiErr
	}

	apiErr.Message = textutil.Printable(textutil.FirstLine(strings.TrimSpace(string(body))))
	return apiErr
}
