package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlinlabs/merlin-api/internal/auth"
)

func newTestService() *auth.Service {
	service := auth.NewService("test-jwt-secret")
	service.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)
	return service
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	service := newTestService()

	token, err := service.GenerateToken(auth.Credentials{
		APIKey:    auth.TestAPIKey,
		APISecret: auth.TestAPISecret,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), token.Expiration, time.Minute)
}

func TestGenerateTokenInvalidCredentials(t *testing.T) {
	t.Parallel()

	service := newTestService()

	tests := []struct {
		name  string
		creds auth.Credentials
	}{
		{name: "wrong secret", creds: auth.Credentials{APIKey: auth.TestAPIKey, APISecret: "wrong"}},
		{name: "unknown key", creds: auth.Credentials{APIKey: "unknown", APISecret: auth.TestAPISecret}},
		{name: "empty", creds: auth.Credentials{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := service.GenerateToken(tt.creds)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		})
	}
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	service := newTestService()

	token, err := service.GenerateToken(auth.Credentials{
		APIKey:    auth.TestAPIKey,
		APISecret: auth.TestAPISecret,
	})
	require.NoError(t, err)

	claims, err := service.ValidateToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.TestAPIKey, claims.ClientID)
	assert.Contains(t, claims.Permissions, "trade")
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := newTestService().GenerateToken(auth.Credentials{
		APIKey:    auth.TestAPIKey,
		APISecret: auth.TestAPISecret,
	})
	require.NoError(t, err)

	other := auth.NewService("a-different-secret")
	_, err = other.ValidateToken(token.Token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	t.Parallel()

	_, err := newTestService().ValidateToken("not.a.token")
	assert.Error(t, err)
}
