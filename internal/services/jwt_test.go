package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pklive-backend/internal/config"
	"pklive-backend/internal/models"
	"pklive-backend/internal/services"
)

func TestJWTService(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour}
	jwtService := services.NewJWTService(cfg)

	token, err := jwtService.GenerateToken(42, "alice")
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.SessionID)

	_, err = jwtService.ValidateToken(token + "tampered")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	other := services.NewJWTService(&config.Config{JWTSecret: "other-secret", JWTExpiry: time.Hour})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
