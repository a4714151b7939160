package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nistake0/bookmemo-server/internal/http/response"
)

// handleGetCoverFile streams a book's cover image. Served outside huma so the
// bytes go out raw with caching headers.
func (s *Server) handleGetCoverFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := GetUserID(ctx)
	if err != nil {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	bookID := chi.URLParam(r, "id")
	book, err := s.store.GetBookForUser(ctx, bookID, userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if book.Cover == nil || s.images == nil {
		response.NotFound(w, "Book has no cover", s.logger)
		return
	}

	hash, err := s.images.Storage().Hash(bookID)
	if err == nil && hash != "" {
		etag := `"` + hash + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	data, err := s.images.Storage().Get(bookID)
	if err != nil {
		response.NotFound(w, "Cover image not found", s.logger)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	_, _ = w.Write(data)
}
