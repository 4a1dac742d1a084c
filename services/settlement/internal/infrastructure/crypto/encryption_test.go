package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewDestinationCipher(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", testKey, false},
		{"not hex", strings.Repeat("z", 64), true},
		{"too short", testKey[:32], true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDestinationCipher(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDestinationCipher_RoundTrip(t *testing.T) {
	c, err := NewDestinationCipher(testKey)
	require.NoError(t, err)

	ct1, iv1, err := c.Encrypt("+256700000001")
	require.NoError(t, err)
	ct2, iv2, err := c.Encrypt("+256700000001")
	require.NoError(t, err)

	assert.NotEqual(t, iv1, iv2, "fresh nonce per encryption")
	assert.NotEqual(t, ct1, ct2)
	assert.NotContains(t, ct1, "256700000001")

	plain, err := c.Decrypt(ct1, iv1)
	require.NoError(t, err)
	assert.Equal(t, "+256700000001", plain)

	t.Run("wrong nonce", func(t *testing.T) {
		_, err := c.Decrypt(ct1, iv2)
		assert.Error(t, err)
	})

	t.Run("other key", func(t *testing.T) {
		other, err := NewDestinationCipher(strings.Repeat("ab", 32))
		require.NoError(t, err)
		_, err = other.Decrypt(ct1, iv1)
		assert.Error(t, err)
	})

	t.Run("bad encoding", func(t *testing.T) {
		_, err := c.Decrypt("%%%", iv1)
		assert.Error(t, err)
		_, err = c.Decrypt(ct1, "AAAA")
		assert.Error(t, err)
	})
}
