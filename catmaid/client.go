/*
	Package catmaid is a client for the subset of the CATMAID REST API needed to export
	annotations, skeletons, landmarks and volumes from a single project.

	Requests are sent one at a time, optionally capped to a maximum rate.  Failed requests
	are reported as *APIError and are never retried.
*/
package catmaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/janelia-flyem/catpub/catpub"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// DefaultTimeout is used for requests if the ClientConfig gives no timeout.
const DefaultTimeout = 2 * time.Minute

// maximum number of response bytes echoed in an APIError
const maxErrorBody = 2000

// ClientConfig describes how to reach a CATMAID project.
type ClientConfig struct {
	Server       string
	ProjectID    int
	APIToken     string
	HTTPUser     string
	HTTPPassword string

	// Timeout for each request.  If zero, DefaultTimeout is used.
	Timeout time.Duration

	// RequestsPerSecond caps the request rate.  Zero is unlimited.
	RequestsPerSecond float64

	// HTTPClient, if non-nil, is used instead of a newly constructed client.
	HTTPClient *http.Client
}

// Client talks to one project on a CATMAID server.
type Client struct {
	base      *url.URL
	projectID int
	token     string
	user      string
	password  string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// APIError is returned when the server responds with an HTTP error status or a
// CATMAID error payload.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("CATMAID %s %s (status %d): %s: %s", e.Method, e.URL, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("CATMAID %s %s (status %d): %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// NewClient returns a client for the configured server and project.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("no CATMAID server URL given")
	}
	if cfg.ProjectID <= 0 {
		return nil, fmt.Errorf("bad CATMAID project ID %d", cfg.ProjectID)
	}
	base, err := url.Parse(strings.TrimRight(cfg.Server, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("bad CATMAID server URL %q: %w", cfg.Server, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("CATMAID server URL %q must be http or https", cfg.Server)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		jar, err := cookiejar.New(&cookiejar.Options{
			PublicSuffixList: publicsuffix.List,
		})
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Jar:     jar,
		}
	}

	c := &Client{
		base:      base,
		projectID: cfg.ProjectID,
		token:     cfg.APIToken,
		user:      cfg.HTTPUser,
		password:  cfg.HTTPPassword,
		userAgent: fmt.Sprintf("catpub/%s", catpub.Version()),
		http:      httpClient,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// ProjectID returns the ID of the project this client reads from.
func (c *Client) ProjectID() int {
	return c.projectID
}

// Server returns the base URL of the CATMAID server.
func (c *Client) Server() string {
	return strings.TrimRight(c.base.String(), "/")
}

// projectURL returns the URL of an endpoint of this client's project.
func (c *Client) projectURL(endpoint string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strconv.Itoa(c.projectID) + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) != 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// getJSON sends a GET to a project endpoint and decodes the response into dst.
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, dst interface{}) error {
	return c.do(ctx, http.MethodGet, c.projectURL(endpoint, query), nil, dst)
}

// postJSON sends form data to a project endpoint and decodes the response into dst.
func (c *Client) postJSON(ctx context.Context, endpoint string, form url.Values, dst interface{}) error {
	return c.do(ctx, http.MethodPost, c.projectURL(endpoint, nil), form, dst)
}

func (c *Client) do(ctx context.Context, method, reqURL string, form url.Values, dst interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("X-Authorization", "Token "+c.token)
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	catpub.Debugf("%s %s\n", method, reqURL)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error on %s of %q: %w", method, reqURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response from %q: %w", reqURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, URL: reqURL, StatusCode: resp.StatusCode}
		apiErr.Type, apiErr.Message = parseErrorPayload(data)
		return apiErr
	}
	if errType, msg := parseErrorPayload(data); errType != "" {
		return &APIError{Method: method, URL: reqURL, StatusCode: resp.StatusCode, Type: errType, Message: msg}
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("could not decode response from %q: %w", reqURL, err)
	}
	return nil
}

// parseErrorPayload extracts a CATMAID error of the form {"error": ..., "type": ...}.
// A non-error payload gives an empty type; a non-JSON payload gives a truncated body as
// message.
func parseErrorPayload(data []byte) (errType, message string) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var payload struct {
			Error *string `json:"error"`
			Type  string  `json:"type"`
		}
		if err := json.Unmarshal(trimmed, &payload); err == nil && payload.Error != nil {
			errType = payload.Type
			if errType == "" {
				errType = "Exception"
			}
			return errType, *payload.Error
		}
	}
	if len(trimmed) > maxErrorBody {
		trimmed = trimmed[:maxErrorBody]
	}
	return "", string(trimmed)
}

// listForm adds a list parameter in the key[0], key[1], ... form understood by CATMAID.
func listForm(form url.Values, key string, values []string) {
	for i, v := range values {
		form.Set(fmt.Sprintf("%s[%d]", key, i), v)
	}
}

func int64Strings(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}
