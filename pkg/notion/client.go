package notion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"

	// FallbackVersion is a known-good Notion-Version header value. When the
	// server rejects the configured version, the client switches to it once
	// and keeps going.
	FallbackVersion = "2022-06-28"

	// DefaultRateLimit is the request rate the Notion API documents for
	// integrations.
	DefaultRateLimit = 3

	// DefaultMaxInFlight bounds concurrent requests to the API.
	DefaultMaxInFlight = 8

	maxAttempts     = 8
	maxBackoffUnits = 30
	pageSize        = 100
)

// RemoteError is a terminal (non-retryable) error response from the API.
type RemoteError struct {
	Status int
	Body   string
}

func (err RemoteError) Error() string {
	return fmt.Sprintf("notion API error %d: %s", err.Status, err.Body)
}

// Client talks to the Notion API. All requests flow through a shared rate
// limiter, a semaphore bounding in-flight requests, and a retry loop with
// exponential backoff, so callers can fan out without overwhelming the API.
type Client struct {
	token   string
	baseURL string

	httpClient *http.Client
	limiter    *RateLimiter
	inFlight   chan struct{}
	clock      clockwork.Clock

	// backoffUnit is one backoff time unit. It's one second in production,
	// and shortened in tests.
	backoffUnit time.Duration

	mu      sync.Mutex
	version string
}

// Params are optional settings for New. Zero values use production defaults.
type Params struct {
	BaseURL     string
	RateLimit   int
	MaxInFlight int
	HTTPClient  *http.Client
	Clock       clockwork.Clock
	BackoffUnit time.Duration
}

// New creates a Client authenticated with `token`, sending `notionVersion`
// as the protocol version header.
func New(token, notionVersion string, params Params) *Client {
	if params.BaseURL == "" {
		params.BaseURL = defaultBaseURL
	}
	if params.RateLimit == 0 {
		params.RateLimit = DefaultRateLimit
	}
	if params.MaxInFlight == 0 {
		params.MaxInFlight = DefaultMaxInFlight
	}
	if params.HTTPClient == nil {
		params.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if params.Clock == nil {
		params.Clock = clockwork.NewRealClock()
	}
	if params.BackoffUnit == 0 {
		params.BackoffUnit = time.Second
	}

	return &Client{
		token:       token,
		version:     notionVersion,
		baseURL:     params.BaseURL,
		httpClient:  params.HTTPClient,
		limiter:     NewRateLimiter(params.RateLimit, params.Clock),
		inFlight:    make(chan struct{}, params.MaxInFlight),
		clock:       params.Clock,
		backoffUnit: params.BackoffUnit,
	}
}

// SearchPages lists every page shared with the integration.
func (c *Client) SearchPages() ([]Object, error) {
	return c.search("page")
}

// SearchDatabases lists every database shared with the integration.
func (c *Client) SearchDatabases() ([]Object, error) {
	return c.search("database")
}

// SearchAll lists everything shared with the integration, bucketed by
// object type.
func (c *Client) SearchAll() (pages, databases, others []Object, err error) {
	cursor := ""
	for {
		payload := map[string]interface{}{"page_size": pageSize}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}

		var list objectList
		if err := c.request("POST", c.baseURL+"/search", payload, &list); err != nil {
			return nil, nil, nil, err
		}

		for _, obj := range list.Results {
			switch obj.Object {
			case "page":
				pages = append(pages, obj)
			case "database":
				databases = append(databases, obj)
			default:
				others = append(others, obj)
			}
		}

		if !list.HasMore {
			return pages, databases, others, nil
		}
		cursor = list.NextCursor
	}
}

// GetPage fetches the full metadata for one page.
func (c *Client) GetPage(id string) (Object, error) {
	var page Object
	err := c.request("GET", c.baseURL+"/pages/"+id, nil, &page)
	return page, err
}

// GetDatabase fetches the full metadata for one database.
func (c *Client) GetDatabase(id string) (Object, error) {
	var db Object
	err := c.request("GET", c.baseURL+"/databases/"+id, nil, &db)
	return db, err
}

// QueryDatabase lists the member pages of a database.
func (c *Client) QueryDatabase(id string) ([]Object, error) {
	var pages []Object
	cursor := ""
	for {
		payload := map[string]interface{}{"page_size": pageSize}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}

		var list objectList
		url := c.baseURL + "/databases/" + id + "/query"
		if err := c.request("POST", url, payload, &list); err != nil {
			return nil, err
		}

		pages = append(pages, list.Results...)
		if !list.HasMore {
			return pages, nil
		}
		cursor = list.NextCursor
	}
}

// ListBlockChildren lists the direct child blocks of a page or block.
func (c *Client) ListBlockChildren(id string) ([]Block, error) {
	var blocks []Block
	cursor := ""
	for {
		url := fmt.Sprintf("%s/blocks/%s/children?page_size=%d", c.baseURL, id, pageSize)
		if cursor != "" {
			url += "&start_cursor=" + cursor
		}

		var list blockList
		if err := c.request("GET", url, nil, &list); err != nil {
			return nil, err
		}

		blocks = append(blocks, list.Results...)
		if !list.HasMore {
			return blocks, nil
		}
		cursor = list.NextCursor
	}
}

type objectList struct {
	Results    []Object `json:"results"`
	HasMore    bool     `json:"has_more"`
	NextCursor string   `json:"next_cursor"`
}

type blockList struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

func (c *Client) search(objectType string) ([]Object, error) {
	// The search API filters databases under the value "data_source" since
	// the data source rename.
	filterValue := objectType
	if objectType == "database" {
		filterValue = "data_source"
	}

	var results []Object
	cursor := ""
	retriedFilter := false
	for {
		payload := map[string]interface{}{
			"page_size": pageSize,
			"filter": map[string]string{
				"property": "object",
				"value":    filterValue,
			},
		}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}

		var list objectList
		err := c.request("POST", c.baseURL+"/search", payload, &list)
		if err != nil {
			// Older API versions reject "data_source". Fall back to the
			// legacy filter value once.
			remoteErr, isRemote := errors.RootCause(err).(RemoteError)
			if isRemote && objectType == "database" && !retriedFilter &&
				strings.Contains(remoteErr.Body, "data_source") {
				filterValue = "database"
				retriedFilter = true
				continue
			}
			return nil, err
		}

		results = append(results, list.Results...)
		if !list.HasMore {
			return results, nil
		}
		cursor = list.NextCursor
	}
}

// request performs one logical API call: rate limit, bounded concurrency,
// and retries with exponential backoff on rate-limit and transient server
// errors. The decoded response is written into `out`.
func (c *Client) request(method, url string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return errors.WithContext(err, "marshal request")
		}
	}

	backoff := c.backoffUnit
	for attempt := 0; attempt < maxAttempts; attempt++ {
		c.limiter.Acquire()

		status, respBody, retryAfter, err := c.do(method, url, body)
		if err != nil {
			return errors.WithContext(err, "send request")
		}

		if status == http.StatusBadRequest &&
			strings.Contains(string(respBody), "Notion-Version") &&
			c.currentVersion() != FallbackVersion {
			// Common misconfig: invalid Notion-Version header. Fall back
			// once to a known stable version. The retry consumes an attempt.
			log.WithField("version", FallbackVersion).Warn(
				"Notion rejected the configured API version. Falling back.")
			c.setVersion(FallbackVersion)
			continue
		}

		switch status {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			if hint := c.parseRetryAfter(retryAfter); hint > backoff {
				backoff = hint
			}
			log.WithFields(log.Fields{
				"status":  status,
				"backoff": backoff,
			}).Debug("Transient Notion API error. Retrying.")
			c.clock.Sleep(backoff)

			backoff *= 2
			if max := maxBackoffUnits * c.backoffUnit; backoff > max {
				backoff = max
			}
			continue
		}

		if status < 200 || status >= 300 {
			return RemoteError{Status: status, Body: string(respBody)}
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return errors.WithContext(err, "parse response")
			}
		}
		return nil
	}

	return errors.New(fmt.Sprintf(
		"notion API request failed after %d attempts: %s %s", maxAttempts, method, url))
}

// do sends one HTTP request while holding an in-flight slot.
func (c *Client) do(method, url string, body []byte) (
	status int, respBody []byte, retryAfter string, err error) {

	c.inFlight <- struct{}{}
	defer func() { <-c.inFlight }()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return 0, nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.currentVersion())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, "", err
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, "", err
	}
	return resp.StatusCode, respBody, resp.Header.Get("Retry-After"), nil
}

// parseRetryAfter converts a Retry-After header (in seconds) to a backoff
// duration. Malformed values are ignored.
func (c *Client) parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(c.backoffUnit))
}

func (c *Client) currentVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *Client) setVersion(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = version
}
