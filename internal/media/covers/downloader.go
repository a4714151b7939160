// Package covers downloads cover images from metadata catalogs.
package covers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nistake0/bookmemo-server/internal/media/images"
)

const (
	// maxCoverSize limits download size to prevent memory exhaustion.
	maxCoverSize = 10 * 1024 * 1024 // 10MB

	downloadTimeout = 30 * time.Second
)

// DownloadResult contains the outcome of a cover download.
type DownloadResult struct {
	Success  bool
	Width    int
	Height   int
	Size     int64
	BlurHash string
	Path     string
	Source   string // e.g. "openbd", "googlebooks"
	Error    error  // Set when Success is false
}

// Downloader fetches covers over HTTP and runs them through the image
// processor for validation, BlurHash, and storage.
type Downloader struct {
	httpClient *http.Client
	processor  *images.Processor
	logger     *slog.Logger
}

// NewDownloader creates a cover downloader.
func NewDownloader(processor *images.Processor, logger *slog.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: downloadTimeout,
		},
		processor: processor,
		logger:    logger,
	}
}

// Download fetches a cover from the URL and stores it for the book.
// Failures are reported in the result rather than returned, since cover
// downloads are best-effort decoration on a book record.
func (d *Downloader) Download(ctx context.Context, bookID, url string) *DownloadResult {
	result := &DownloadResult{Source: DetectSource(url)}

	if url == "" {
		result.Error = errors.New("empty cover URL")
		return result
	}

	downloadCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = fmt.Errorf("create request: %w", err)
		return result
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("download: %w", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Errorf("download failed: status %d", resp.StatusCode)
		return result
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize))
	if err != nil {
		result.Error = fmt.Errorf("read data: %w", err)
		return result
	}

	info, err := d.processor.Process(bookID, data)
	if err != nil {
		result.Error = fmt.Errorf("process cover: %w", err)
		return result
	}

	result.Success = true
	result.Width = info.Width
	result.Height = info.Height
	result.Size = info.Size
	result.BlurHash = info.BlurHash
	result.Path = info.Path

	d.logger.Info("downloaded cover",
		"book_id", bookID,
		"source", result.Source,
		"size", result.Size,
		"width", result.Width,
		"height", result.Height,
	)

	return result
}

// DetectSource determines the catalog a cover URL came from.
func DetectSource(url string) string {
	switch {
	case strings.Contains(url, "openbd.jp"):
		return "openbd"
	case strings.Contains(url, "books.google.com") || strings.Contains(url, "googleapis.com"):
		return "googlebooks"
	default:
		return "unknown"
	}
}
