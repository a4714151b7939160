package metadata_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/metadata"
)

type stubSource struct {
	name    string
	info    *metadata.BookInfo
	err     error
	gotISBN string
	calls   int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) LookupISBN(_ context.Context, isbn string) (*metadata.BookInfo, error) {
	s.calls++
	s.gotISBN = isbn
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

func newTestResolver(sources ...metadata.Source) *metadata.Resolver {
	return metadata.NewResolver(slog.New(slog.NewTextHandler(io.Discard, nil)), sources...)
}

func TestResolverFirstSourceWins(t *testing.T) {
	primary := &stubSource{name: "primary", info: &metadata.BookInfo{Title: "from primary"}}
	fallback := &stubSource{name: "fallback", info: &metadata.BookInfo{Title: "from fallback"}}
	r := newTestResolver(primary, fallback)

	info, err := r.LookupISBN(context.Background(), "9784101010014")
	require.NoError(t, err)

	assert.Equal(t, "from primary", info.Title)
	assert.Equal(t, 0, fallback.calls)
}

func TestResolverFallsBackOnNotFound(t *testing.T) {
	primary := &stubSource{name: "primary", err: metadata.ErrNotFound}
	fallback := &stubSource{name: "fallback", info: &metadata.BookInfo{Title: "from fallback"}}
	r := newTestResolver(primary, fallback)

	info, err := r.LookupISBN(context.Background(), "9784101010014")
	require.NoError(t, err)

	assert.Equal(t, "from fallback", info.Title)
	assert.Equal(t, 1, primary.calls)
}

func TestResolverFallsBackOnError(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("catalog down")}
	fallback := &stubSource{name: "fallback", info: &metadata.BookInfo{Title: "from fallback"}}
	r := newTestResolver(primary, fallback)

	info, err := r.LookupISBN(context.Background(), "9784101010014")
	require.NoError(t, err)
	assert.Equal(t, "from fallback", info.Title)
}

func TestResolverAllSourcesEmpty(t *testing.T) {
	primary := &stubSource{name: "primary", err: metadata.ErrNotFound}
	fallback := &stubSource{name: "fallback", err: metadata.ErrNotFound}
	r := newTestResolver(primary, fallback)

	_, err := r.LookupISBN(context.Background(), "9784101010014")
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func TestResolverRejectsInvalidISBN(t *testing.T) {
	source := &stubSource{name: "primary"}
	r := newTestResolver(source)

	_, err := r.LookupISBN(context.Background(), "not-an-isbn")
	require.Error(t, err)
	assert.Equal(t, 0, source.calls)
}

func TestResolverConvertsISBN10(t *testing.T) {
	source := &stubSource{name: "primary", info: &metadata.BookInfo{Title: "ok"}}
	r := newTestResolver(source)

	_, err := r.LookupISBN(context.Background(), "0-306-40615-2")
	require.NoError(t, err)
	assert.Equal(t, "9780306406157", source.gotISBN)
}

func TestResolverNormalizesFullWidthISBN(t *testing.T) {
	source := &stubSource{name: "primary", info: &metadata.BookInfo{Title: "ok"}}
	r := newTestResolver(source)

	_, err := r.LookupISBN(context.Background(), "９７８４１０１０１００１４")
	require.NoError(t, err)
	assert.Equal(t, "9784101010014", source.gotISBN)
}
