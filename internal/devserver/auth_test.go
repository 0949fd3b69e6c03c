package devserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := &tokenIssuer{secret: []byte("s3cret"), ttl: time.Hour, now: func() time.Time { return now }}

	token, err := issuer.issue("user-1")
	require.NoError(t, err)

	id, err := issuer.verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	t.Run("expired", func(t *testing.T) {
		later := &tokenIssuer{secret: issuer.secret, ttl: time.Hour, now: func() time.Time { return now.Add(2 * time.Hour) }}
		_, err := later.verify(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := &tokenIssuer{secret: []byte("other"), ttl: time.Hour, now: issuer.now}
		_, err := other.verify(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.verify("not-a-jwt")
		assert.Error(t, err)
	})
}
