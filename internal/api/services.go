package api

import (
	"github.com/nistake0/bookmemo-server/internal/service"
)

// Services bundles the application services the API layer depends on.
type Services struct {
	Auth     *service.AuthService
	Sessions *service.SessionService
	Books    *service.BookService
	Memos    *service.MemoService
	History  *service.StatusHistoryService
	Metadata *service.MetadataService
	Search   *service.SearchService
}
