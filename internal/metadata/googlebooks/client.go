// Package googlebooks implements a metadata source backed by the Google
// Books volumes API. Works without an API key at a lower quota.
package googlebooks

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nistake0/bookmemo-server/internal/metadata"
)

const (
	defaultBaseURL = "https://www.googleapis.com/books/v1"
	defaultTimeout = 10 * time.Second
)

// Client queries the Google Books volumes API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// New creates a Google Books client. An empty apiKey is allowed.
func New(logger *slog.Logger, apiKey string) *Client {
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

// Name identifies this source in resolver logs and rate limit keys.
func (c *Client) Name() string { return "googlebooks" }

// LookupISBN searches volumes by ISBN-13.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*metadata.BookInfo, error) {
	query := url.Values{}
	query.Set("q", "isbn:"+isbn)
	query.Set("maxResults", "1")
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	reqURL := c.baseURL + "/volumes?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "BookMemo/1.0")

	c.logger.Debug("googlebooks request", "isbn", isbn)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited by google books")
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result volumesResponse
	if err := json.UnmarshalRead(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if result.TotalItems == 0 || len(result.Items) == 0 {
		return nil, metadata.ErrNotFound
	}

	return result.Items[0].toBookInfo(isbn), nil
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle"`
	Authors       []string   `json:"authors"`
	Publisher     string     `json:"publisher"`
	PublishedDate string     `json:"publishedDate"`
	Description   string     `json:"description"`
	ImageLinks    imageLinks `json:"imageLinks"`
}

type imageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

func (v *volume) toBookInfo(isbn string) *metadata.BookInfo {
	vi := v.VolumeInfo

	title := vi.Title
	if vi.Subtitle != "" {
		title = title + " " + vi.Subtitle
	}

	info := &metadata.BookInfo{
		ISBN:        isbn,
		Title:       title,
		Authors:     vi.Authors,
		Publisher:   vi.Publisher,
		Description: vi.Description,
		CoverURL:    coverURL(vi.ImageLinks),
		Source:      "googlebooks",
	}

	// publishedDate is "YYYY", "YYYY-MM" or "YYYY-MM-DD"
	if len(vi.PublishedDate) >= 4 {
		info.PublishYear = vi.PublishedDate[:4]
	}

	return info
}

// coverURL prefers the larger thumbnail and upgrades the scheme; the API
// still hands out http URLs for images.
func coverURL(links imageLinks) string {
	u := links.Thumbnail
	if u == "" {
		u = links.SmallThumbnail
	}
	return strings.Replace(u, "http://", "https://", 1)
}
