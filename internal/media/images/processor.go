package images

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
)

// maxUploadSize limits accepted cover uploads.
const maxUploadSize = 10 * 1024 * 1024 // 10MB

// Info describes a processed and stored cover image.
type Info struct {
	Path     string
	BlurHash string
	Width    int
	Height   int
	Size     int64
	Hash     string // SHA256 for cache validation
}

// Processor validates, analyzes, and stores cover images.
type Processor struct {
	storage *Storage
	logger  *slog.Logger
}

// NewProcessor creates a Processor backed by the given storage.
func NewProcessor(storage *Storage, logger *slog.Logger) *Processor {
	return &Processor{
		storage: storage,
		logger:  logger,
	}
}

// Storage exposes the backing storage, for callers that need direct file
// access (serving covers, deleting on book removal).
func (p *Processor) Storage() *Storage {
	return p.storage
}

// Process validates image data, computes dimensions and a BlurHash
// placeholder, and stores the image for the book. JPEG, PNG, GIF, and WebP
// are accepted.
func (p *Processor) Process(bookID string, data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image data cannot be empty")
	}
	if len(data) > maxUploadSize {
		return nil, fmt.Errorf("image too large: %d bytes (max %d)", len(data), maxUploadSize)
	}

	// DecodeConfig reads only the header, so this is cheap
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a supported image: %w", err)
	}

	hash, err := ComputeBlurHash(data)
	if err != nil {
		p.logger.Warn("failed to compute blurhash",
			"book_id", bookID,
			"error", err,
		)
		hash = "" // Cover is still usable without a placeholder
	}

	if err := p.storage.Save(bookID, data); err != nil {
		return nil, fmt.Errorf("failed to save cover: %w", err)
	}

	sha, err := p.storage.Hash(bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute cover hash: %w", err)
	}

	p.logger.Debug("processed cover",
		"book_id", bookID,
		"format", format,
		"width", cfg.Width,
		"height", cfg.Height,
		"size", len(data),
	)

	return &Info{
		Path:     p.storage.Path(bookID),
		BlurHash: hash,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     int64(len(data)),
		Hash:     sha,
	}, nil
}
