package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qless-server/internal/domain"
)

func newJWTer(ttl time.Duration) *JWTer {
	return &JWTer{Secret: []byte("test-secret"), Issuer: "qless", TTL: ttl}
}

func TestIssueAndParse(t *testing.T) {
	j := newJWTer(30 * time.Minute)

	tok, err := j.Issue("john_doe", domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "john_doe", claims.UID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestParseRejectsExpiredSession(t *testing.T) {
	// 过期即会话超时；Parse 有 60s leeway，所以要退得更远
	j := newJWTer(-5 * time.Minute)
	tok, err := j.Issue("john_doe", domain.RoleStudent)
	require.NoError(t, err)

	_, err = j.Parse(tok)
	assert.Error(t, err)
}

func TestParseRejectsForeignToken(t *testing.T) {
	j := newJWTer(30 * time.Minute)
	other := &JWTer{Secret: []byte("other-secret"), Issuer: "qless", TTL: 30 * time.Minute}

	tok, err := other.Issue("john_doe", domain.RoleStudent)
	require.NoError(t, err)
	_, err = j.Parse(tok)
	assert.Error(t, err)

	_, err = j.Parse("not-a-token")
	assert.Error(t, err)
}
