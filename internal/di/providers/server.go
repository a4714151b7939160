package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/samber/do/v2"

	"github.com/nistake0/bookmemo-server/internal/api"
	"github.com/nistake0/bookmemo-server/internal/config"
	"github.com/nistake0/bookmemo-server/internal/logger"
	"github.com/nistake0/bookmemo-server/internal/media/images"
	"github.com/nistake0/bookmemo-server/internal/service"
	"github.com/nistake0/bookmemo-server/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// sseUserResolver authenticates SSE connections. EventSource cannot set
// headers, so the token may also arrive as a query parameter.
func sseUserResolver(authService *service.AuthService) sse.UserResolver {
	return func(r *http.Request) string {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			return ""
		}
		claims, err := authService.VerifyAccessToken(token)
		if err != nil {
			return ""
		}
		return claims.UserID
	}
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	processor := do.MustInvoke[*images.Processor](i)

	authService := do.MustInvoke[*service.AuthService](i)

	services := &api.Services{
		Auth:     authService,
		Sessions: do.MustInvoke[*service.SessionService](i),
		Books:    do.MustInvoke[*service.BookService](i),
		Memos:    do.MustInvoke[*service.MemoService](i),
		History:  do.MustInvoke[*service.StatusHistoryService](i),
		Metadata: do.MustInvoke[*service.MetadataService](i),
		Search:   do.MustInvoke[*service.SearchService](i),
	}

	sseHandler := sse.NewHandler(sseHandle.Manager, log.Logger, sseUserResolver(authService))

	handler := api.NewServer(storeHandle.Store, services, processor, sseHandler, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
