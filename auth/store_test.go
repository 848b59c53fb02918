package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthCredentialsIsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	never := AuthCredentials{AccessToken: "a"}
	require.False(t, never.IsExpired(now))

	expired := AuthCredentials{AccessToken: "a", Expiry: now.Add(-time.Minute)}
	require.True(t, expired.IsExpired(now))

	fresh := AuthCredentials{AccessToken: "a", Expiry: now.Add(time.Hour)}
	require.False(t, fresh.IsExpired(now))
}

func TestAuthCredentialsNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	farOut := AuthCredentials{Expiry: now.Add(time.Hour)}
	require.False(t, farOut.NeedsRefresh(now, 0))

	withinDefault := AuthCredentials{Expiry: now.Add(2 * time.Minute)}
	require.True(t, withinDefault.NeedsRefresh(now, 0))

	withinCustom := AuthCredentials{Expiry: now.Add(20 * time.Minute)}
	require.True(t, withinCustom.NeedsRefresh(now, 30*time.Minute))
	require.False(t, withinCustom.NeedsRefresh(now, 5*time.Minute))

	noExpiry := AuthCredentials{}
	require.False(t, noExpiry.NeedsRefresh(now, 0))
}
