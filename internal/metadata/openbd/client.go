// Package openbd implements a metadata source backed by the openBD API,
// a free catalog of Japanese book data maintained by Hanmoto and Calil.
package openbd

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
	defaultBaseURL = "https://api.openbd.jp/v2"
	defaultTimeout = 10 * time.Second
)

// Client queries the openBD v2 API.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// New creates an openBD client.
func New(logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

// Name identifies this source in resolver logs and rate limit keys.
func (c *Client) Name() string { return "openbd" }

// LookupISBN fetches the record for an ISBN-13. openBD returns a JSON array
// with a null element when the ISBN is unknown.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*metadata.BookInfo, error) {
	query := url.Values{}
	query.Set("isbn", isbn)

	reqURL := c.baseURL + "/get?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "BookMemo/1.0")

	c.logger.Debug("openbd request", "isbn", isbn)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var records []*record
	if err := json.UnmarshalRead(resp.Body, &records); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(records) == 0 || records[0] == nil {
		return nil, metadata.ErrNotFound
	}

	return records[0].toBookInfo(), nil
}

// record is the relevant slice of an openBD response element. The full
// payload carries ONIX data too; the summary block has everything we need.
type record struct {
	Summary summary `json:"summary"`
	Onix    onix    `json:"onix"`
}

type summary struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	PubDate   string `json:"pubdate"`
	Cover     string `json:"cover"`
}

type onix struct {
	CollateralDetail collateralDetail `json:"CollateralDetail"`
}

type collateralDetail struct {
	TextContent []textContent `json:"TextContent"`
}

type textContent struct {
	TextType string `json:"TextType"`
	Text     string `json:"Text"`
}

func (r *record) toBookInfo() *metadata.BookInfo {
	info := &metadata.BookInfo{
		ISBN:      r.Summary.ISBN,
		Title:     r.Summary.Title,
		Authors:   parseAuthors(r.Summary.Author),
		Publisher: r.Summary.Publisher,
		CoverURL:  r.Summary.Cover,
		Source:    "openbd",
	}

	// pubdate is "YYYYMMDD" or "YYYYMM"; keep the year
	if len(r.Summary.PubDate) >= 4 {
		info.PublishYear = r.Summary.PubDate[:4]
	}

	// ONIX TextType 03 is the main description
	for _, tc := range r.Onix.CollateralDetail.TextContent {
		if tc.TextType == "03" {
			info.Description = tc.Text
			break
		}
	}

	return info
}

// parseAuthors splits openBD's author string. Names come as
// "夏目漱石／著 山田太郎／訳": space-separated entries, each with a
// role suffix after a full-width solidus.
func parseAuthors(raw string) []string {
	if raw == "" {
		return nil
	}

	var authors []string
	for _, part := range strings.Fields(raw) {
		if i := strings.Index(part, "／"); i >= 0 {
			part = part[:i]
		}
		if part != "" {
			authors = append(authors, part)
		}
	}
	return authors
}
