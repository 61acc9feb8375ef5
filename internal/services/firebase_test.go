package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier(t *testing.T) {
	verifier := NewJWTVerifier("local-secret")
	identity := Identity{UID: "uid-1", Email: "ana@example.com", Name: "Ana"}

	token, err := verifier.Issue(identity, time.Hour)
	require.NoError(t, err)

	got, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, identity, *got)

	tests := []struct {
		name  string
		token func() string
	}{
		{name: "expired", token: func() string {
			tok, err := verifier.Issue(identity, -time.Minute)
			require.NoError(t, err)
			return tok
		}},
		{name: "wrong secret", token: func() string {
			tok, err := NewJWTVerifier("other-secret").Issue(identity, time.Hour)
			require.NoError(t, err)
			return tok
		}},
		{name: "missing subject", token: func() string {
			tok, err := verifier.Issue(Identity{Email: "ana@example.com"}, time.Hour)
			require.NoError(t, err)
			return tok
		}},
		{name: "garbage", token: func() string { return "not-a-token" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), tt.token())
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

type staticVerifier struct {
	identity *Identity
	err      error
	calls    int
}

func (v *staticVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	v.calls++
	return v.identity, v.err
}

func TestChainVerifier(t *testing.T) {
	failing := &staticVerifier{err: errors.New("first provider rejected")}
	passing := &staticVerifier{identity: &Identity{UID: "uid-2"}}
	unused := &staticVerifier{identity: &Identity{UID: "uid-3"}}

	got, err := ChainVerifier{failing, passing, unused}.Verify(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "uid-2", got.UID)
	assert.Equal(t, 0, unused.calls)

	_, err = ChainVerifier{failing}.Verify(context.Background(), "token")
	assert.ErrorContains(t, err, "first provider rejected")

	_, err = ChainVerifier{}.Verify(context.Background(), "token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
