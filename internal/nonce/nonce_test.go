package nonce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMintAndVerify(t *testing.T) {
	s := New(time.Hour)

	token := s.Mint()
	assert.NotEmpty(t, token)
	assert.True(t, s.Verify(token))
	assert.True(t, s.Verify(token), "token stays valid for every link in a render")

	assert.NotEqual(t, token, s.Mint())
}

func TestVerifyRejects(t *testing.T) {
	s := New(time.Hour)

	assert.False(t, s.Verify(""))
	assert.False(t, s.Verify("not-a-uuid"))
	assert.False(t, s.Verify("6f1c1f4e-3c1b-4a55-9d0b-2f5e8f1f7a10"), "unknown token")
}

func TestRevoke(t *testing.T) {
	s := New(time.Hour)

	token := s.Mint()
	s.Revoke(token)
	assert.False(t, s.Verify(token))
}

func TestExpiry(t *testing.T) {
	s := New(50 * time.Millisecond)

	token := s.Mint()
	time.Sleep(120 * time.Millisecond)
	assert.False(t, s.Verify(token))
}
