package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/nistake0/bookmemo-server/internal/config"
	"github.com/nistake0/bookmemo-server/internal/logger"
	"github.com/nistake0/bookmemo-server/internal/media/covers"
	"github.com/nistake0/bookmemo-server/internal/media/images"
)

// ProvideCoverStorage provides the on-disk storage for cover images.
func ProvideCoverStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := images.NewStorage(cfg.CoversPath())
	if err != nil {
		return nil, fmt.Errorf("cover storage: %w", err)
	}

	log.Info("Cover storage initialized", "path", cfg.CoversPath())

	return storage, nil
}

// ProvideImageProcessor provides the image processor for cover art.
func ProvideImageProcessor(i do.Injector) (*images.Processor, error) {
	storage := do.MustInvoke[*images.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)

	return images.NewProcessor(storage, log.Logger), nil
}

// ProvideCoverDownloader provides the cover image downloader.
func ProvideCoverDownloader(i do.Injector) (*covers.Downloader, error) {
	processor := do.MustInvoke[*images.Processor](i)
	log := do.MustInvoke[*logger.Logger](i)

	return covers.NewDownloader(processor, log.Logger), nil
}
