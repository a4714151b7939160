package providers

import (
	"github.com/samber/do/v2"

	"github.com/nistake0/bookmemo-server/internal/config"
	"github.com/nistake0/bookmemo-server/internal/logger"
	"github.com/nistake0/bookmemo-server/internal/metadata"
	"github.com/nistake0/bookmemo-server/internal/metadata/googlebooks"
	"github.com/nistake0/bookmemo-server/internal/metadata/openbd"
	"github.com/nistake0/bookmemo-server/internal/service"
)

// ProvideMetadataResolver provides the ISBN metadata resolver with its
// upstream sources. openBD goes first: it has the richer records for the
// Japanese books this server mostly holds, Google Books fills the gaps.
func ProvideMetadataResolver(i do.Injector) (*metadata.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Metadata.Enabled {
		log.Info("External metadata lookups disabled")
		return metadata.NewResolver(log.Logger), nil
	}

	resolver := metadata.NewResolver(log.Logger,
		openbd.New(log.Logger),
		googlebooks.New(log.Logger, cfg.Metadata.GoogleBooksAPIKey),
	)

	log.Info("Metadata resolver initialized",
		"sources", []string{"openbd", "googlebooks"},
		"google_books_key", cfg.Metadata.GoogleBooksAPIKey != "",
	)

	return resolver, nil
}

// ProvideMetadataService provides the metadata lookup service.
func ProvideMetadataService(i do.Injector) (*service.MetadataService, error) {
	resolver := do.MustInvoke[*metadata.Resolver](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMetadataService(resolver, log.Logger), nil
}
