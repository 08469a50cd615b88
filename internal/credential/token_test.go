package credential_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-bo/meridian/internal/credential"
)

func TestTokenRoundTrip(t *testing.T) {
	codec := credential.NewTokenCodec("test-secret", "meridian", time.Hour)

	token, err := codec.Encode(42)
	require.NoError(t, err)

	id, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestTokenDecodeFailures(t *testing.T) {
	codec := credential.NewTokenCodec("test-secret", "meridian", time.Hour)
	token, err := codec.Encode(42)
	require.NoError(t, err)

	t.Run("malformed", func(t *testing.T) {
		_, err := codec.Decode("not-a-token")
		require.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := credential.NewTokenCodec("other-secret", "meridian", time.Hour)
		_, err := other.Decode(token)
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := credential.NewTokenCodec("test-secret", "elsewhere", time.Hour)
		_, err := other.Decode(token)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired := credential.NewTokenCodec("test-secret", "meridian", -time.Minute)
		token, err := expired.Encode(42)
		require.NoError(t, err)
		_, err = expired.Decode(token)
		require.Error(t, err)
	})
}
