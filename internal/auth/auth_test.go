package auth_test

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nistake0/bookmemo-server/internal/auth"
	"github.com/nistake0/bookmemo-server/internal/domain"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := auth.VerifyPassword(hash, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.VerifyPassword(hash, "wrong password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_Validation(t *testing.T) {
	_, err := auth.HashPassword("")
	assert.Error(t, err)

	long := make([]byte, 2048)
	_, err = auth.HashPassword(string(long))
	assert.Error(t, err)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	ok, err := auth.VerifyPassword("not a real hash", "password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := auth.HashPassword("same password")
	require.NoError(t, err)
	h2, err := auth.HashPassword("same password")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestLoadOrGenerateKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "auth.key")

	key, err := auth.LoadOrGenerateKey(keyPath)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	// Key file was written with restricted permissions
	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Second load returns the same key
	again, err := auth.LoadOrGenerateKey(keyPath)
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestLoadOrGenerateKey_CorruptFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "auth.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("too short"), 0o600))

	_, err := auth.LoadOrGenerateKey(keyPath)
	assert.Error(t, err)
}

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	svc, err := auth.NewTokenService(key, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)
	return svc
}

func newTokenUser() *domain.User {
	user := &domain.User{
		Email:  "reader@example.com",
		IsRoot: true,
	}
	user.ID = "usr-1"
	user.InitTimestamps()
	return user
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.GenerateAccessToken(newTokenUser())
	require.NoError(t, err)
	assert.Contains(t, token, "v4.local.")

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, "reader@example.com", claims.Email)
	assert.True(t, claims.IsRoot)
	assert.Equal(t, "usr-1", claims.Subject)
	assert.NotEmpty(t, claims.TokenID)
}

func TestVerifyAccessToken_WrongKey(t *testing.T) {
	svc := newTestTokenService(t)
	other := newTestTokenService(t)

	token, err := svc.GenerateAccessToken(newTokenUser())
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	svc, err := auth.NewTokenService(key, -time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(newTokenUser())
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestVerifyAccessToken_Garbage(t *testing.T) {
	svc := newTestTokenService(t)

	_, err := svc.VerifyAccessToken("v4.local.garbage")
	assert.Error(t, err)
}

func TestNewTokenService_BadKey(t *testing.T) {
	_, err := auth.NewTokenService([]byte("short"), time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestRefreshTokens(t *testing.T) {
	svc := newTestTokenService(t)

	t1, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	t2, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)

	// Hash is deterministic and never the raw token
	h1 := auth.HashRefreshToken(t1)
	assert.Equal(t, h1, auth.HashRefreshToken(t1))
	assert.NotEqual(t, t1, h1)
	assert.Len(t, h1, 64)
}

func TestClientInfoIsValid(t *testing.T) {
	assert.True(t, auth.ClientInfo{ClientName: "BookMemo Web"}.IsValid())
	assert.False(t, auth.ClientInfo{DeviceName: "tablet"}.IsValid())
}
