package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/QuaichGo/internal/auth"
	"github.com/utafrali/QuaichGo/internal/domain"
)

func TestDevToken_AcceptedByValidator(t *testing.T) {
	m := domain.Member{ID: "3f0c9f4e-2b1a-4d6e-9c8b-7a6f5e4d3c2b", Role: domain.RoleAdmin}

	token, err := devToken("dev-secret", "quaich-idp", m, time.Hour)
	require.NoError(t, err)

	claims, err := auth.NewValidator("dev-secret", "quaich-idp").Validate(token)
	require.NoError(t, err)
	assert.Equal(t, m.ID, claims.MemberID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestDevToken_Expired(t *testing.T) {
	token, err := devToken("dev-secret", "", domain.Member{ID: "3f0c9f4e-2b1a-4d6e-9c8b-7a6f5e4d3c2b", Role: domain.RoleUser}, -time.Minute)
	require.NoError(t, err)

	_, err = auth.NewValidator("dev-secret", "").Validate(token)
	assert.Error(t, err)
}

func TestSeedDefinitions(t *testing.T) {
	assert.Equal(t, domain.RoleAdmin, memberDefs[0].Role)
	for i, w := range whiskyDefs {
		assert.NotEmpty(t, w.Name, "whisky %d", i)
	}
}
