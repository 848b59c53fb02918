package ws

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fluxhttp/flux"
)

func TestWSURLUpgradesScheme(t *testing.T) {
	cases := map[string]string{
		"http://h/p":  "ws://h/p",
		"https://h/p": "wss://h/p",
		"ws://h/p":    "ws://h/p",
	}
	for in, want := range cases {
		u, err := url.Parse(in)
		require.NoError(t, err)
		require.Equal(t, want, wsURL(u).String(), "wsURL(%q)", in)
	}
}

func TestReconnectDelayIsBoundedByMax(t *testing.T) {
	cfg := ReconnectConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2,
	}

	require.Equal(t, 100*time.Millisecond, cfg.delay(0))
	require.Equal(t, 200*time.Millisecond, cfg.delay(1))
	require.Equal(t, 1*time.Second, cfg.delay(10), "expected delay capped at MaxDelay")
}

func TestConnectBodyIsStrippedAndSchemeUpgraded(t *testing.T) {
	req, err := flux.NewRequest(flux.MethodPost, "https://example.com/socket")
	require.NoError(t, err)
	req = req.WithBody(flux.NewDataBody([]byte("payload"), ""))

	c := New(req, Config{})
	upgraded := c.req.WithURL(wsURL(c.req.URL())).WithoutBody()

	require.Equal(t, "wss", upgraded.URL().Scheme)
	require.Nil(t, upgraded.Body(), "expected the body to be stripped for a WebSocket call")
}

func TestCloseIsIdempotentAndReportsAlreadyClosed(t *testing.T) {
	req, err := flux.NewRequest(flux.MethodGet, "https://example.com/socket")
	require.NoError(t, err)
	c := New(req, Config{})

	require.NoError(t, c.Close(1000, "bye"))
	require.True(t, c.isExplicitlyClosed())
	require.Error(t, c.Close(1000, "bye again"), "expected the second Close to report already-closed")
}

func TestDefaultReconnectConfigIsValid(t *testing.T) {
	cfg := DefaultReconnectConfig()
	require.GreaterOrEqual(t, cfg.MaxAttempts, 0)
	require.Greater(t, cfg.InitialDelay, time.Duration(0))
	require.GreaterOrEqual(t, cfg.Multiplier, float64(1))
}

func TestNewReconnectConfigRejectsInvalidBounds(t *testing.T) {
	_, err := NewReconnectConfig(0, 0, time.Second, 2)
	require.Error(t, err, "expected a zero InitialDelay to be rejected")

	_, err = NewReconnectConfig(0, 100*time.Millisecond, time.Second, 0.5)
	require.Error(t, err, "expected a sub-1 multiplier to be rejected")

	cfg, err := NewReconnectConfig(5, 100*time.Millisecond, time.Second, 2)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.MaxAttempts)
}

func TestMessageConstructors(t *testing.T) {
	text := NewTextMessage("hello")
	require.Equal(t, Text, text.Kind)
	require.Equal(t, "hello", text.Text)

	bin := NewBinaryMessage([]byte{1, 2, 3})
	require.Equal(t, Binary, bin.Kind)
	require.Len(t, bin.Data, 3)
}
