package webdriver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

func TestCapabilities(t *testing.T) {
	t.Run("chrome", func(t *testing.T) {
		caps, err := Capabilities(browser.LaunchOptions{Browser: browser.Chrome, Headless: true, BinaryPath: "/opt/chrome"})
		require.NoError(t, err)
		assert.Equal(t, "chrome", caps["browserName"])

		opts, ok := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
		require.True(t, ok)
		assert.Equal(t, []string{"--start-maximized", "--log-level=OFF", "--headless"}, opts.Args)
		assert.Equal(t, "/opt/chrome", opts.Path)
	})

	t.Run("edge", func(t *testing.T) {
		caps, err := Capabilities(browser.LaunchOptions{Browser: browser.Edge, Args: []string{"--lang=en"}})
		require.NoError(t, err)
		assert.Equal(t, "MicrosoftEdge", caps["browserName"])

		opts, ok := caps[edgeOptionsKey].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, []string{"--start-maximized", "--log-level=OFF", "--lang=en"}, opts["args"])
		assert.NotContains(t, opts, "binary")
	})

	t.Run("firefox", func(t *testing.T) {
		caps, err := Capabilities(browser.LaunchOptions{Browser: browser.Firefox, Headless: true})
		require.NoError(t, err)
		assert.Equal(t, "firefox", caps["browserName"])

		opts, ok := caps[firefox.CapabilitiesKey].(firefox.Capabilities)
		require.True(t, ok)
		assert.Contains(t, opts.Args, "-headless")
	})

	t.Run("safari gets no options", func(t *testing.T) {
		caps, err := Capabilities(browser.LaunchOptions{Browser: browser.Safari, Headless: true, Args: []string{"--x"}})
		require.NoError(t, err)
		assert.Equal(t, selenium.Capabilities{"browserName": "safari"}, caps)
	})

	t.Run("unknown browser", func(t *testing.T) {
		_, err := Capabilities(browser.LaunchOptions{Browser: "opera"})
		assert.ErrorIs(t, err, browser.ErrUnsupportedBrowser)
	})
}

func TestURLPrefix(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:9515/wd/hub", urlPrefix(browser.Chrome, 9515))
	assert.Equal(t, "http://127.0.0.1:9515/wd/hub", urlPrefix(browser.Edge, 9515))
	assert.Equal(t, "http://127.0.0.1:4444", urlPrefix(browser.Firefox, 4444))
	assert.Equal(t, "http://127.0.0.1:4444", urlPrefix(browser.Safari, 4444))
}

func TestFreePort(t *testing.T) {
	port, err := freePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError("op", nil))

	err := mapError("find element //a", &selenium.Error{Err: "no such element", Message: "Unable to locate element"})
	assert.ErrorIs(t, err, browser.ErrNoSuchElement)

	err = mapError("alert text", &selenium.Error{Err: "no such alert"})
	assert.ErrorIs(t, err, browser.ErrNoAlert)

	err = mapError("switch window", &selenium.Error{LegacyCode: 23})
	assert.ErrorIs(t, err, browser.ErrNoSuchWindow)

	plain := errors.New("connection refused")
	err = mapError("navigate", plain)
	assert.ErrorIs(t, err, plain)
	assert.NotErrorIs(t, err, browser.ErrTimeout)
}

func TestNewHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(ctx, browser.LaunchOptions{Browser: browser.Chrome}, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewMissingDriverBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := New(context.Background(), browser.LaunchOptions{Browser: browser.Firefox}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geckodriver not found on PATH")
}
