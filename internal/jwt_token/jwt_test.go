package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
)

func newTestService() *Service {
	return NewService("test-signing-key", "cohort", "cohort-api")
}

func TestRoundTrip(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateAccessToken(id.UserID(42), time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.UserID(42), claims.UserID)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateAccessToken(id.UserID(42), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := newTestService().GenerateAccessToken(id.UserID(42), time.Hour)
	require.NoError(t, err)

	other := NewService("different-key", "cohort", "cohort-api")
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := newTestService().ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
