package gateway_test

import (
	"testing"

	"github.com/pquerna/otp"
	"github.com/stretchr/testify/require"
)

func secretFromURL(t *testing.T, url string) string {
	t.Helper()
	key, err := otp.NewKeyFromURL(url)
	require.NoError(t, err)
	return key.Secret()
}
