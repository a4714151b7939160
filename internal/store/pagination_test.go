package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/store"
)

func TestPaginationParamsValidate(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero gets default", 0, 100},
		{"negative gets default", -5, 100},
		{"within range unchanged", 50, 50},
		{"above max clamped", 5000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := store.PaginationParams{Limit: tt.limit}
			p.Validate()
			assert.Equal(t, tt.want, p.Limit)
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	key := "idx:books:user:usr-A:book-42"
	cursor := store.EncodeCursor(key)
	assert.NotEmpty(t, cursor)
	assert.NotEqual(t, key, cursor)

	decoded, err := store.DecodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, key, decoded)
}

func TestCursorEmpty(t *testing.T) {
	assert.Empty(t, store.EncodeCursor(""))

	decoded, err := store.DecodeCursor("")
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeCursorInvalid(t *testing.T) {
	_, err := store.DecodeCursor("not base64!!!")
	assert.Error(t, err)
}
