package cdp

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

func TestAllocatorFlags(t *testing.T) {
	flags := allocatorFlags(browser.LaunchOptions{
		Browser:  browser.Chrome,
		Headless: true,
		Args:     []string{"--window-size=1280,720", "--incognito"},
	})

	got := make(map[string]interface{}, len(flags))
	for _, f := range flags {
		got[f.name] = f.value
	}

	assert.Equal(t, true, got["start-maximized"])
	assert.Equal(t, "OFF", got["log-level"])
	assert.Equal(t, "1280,720", got["window-size"])
	assert.Equal(t, true, got["incognito"])
	assert.NotContains(t, got, "headless", "headless is set separately")
	if runtime.GOOS == "linux" {
		assert.Equal(t, true, got["no-sandbox"])
	}

	opts := buildAllocatorOptions(browser.LaunchOptions{Browser: browser.Edge, BinaryPath: "/usr/bin/msedge"})
	assert.NotEmpty(t, opts)
}

func TestWrapScript(t *testing.T) {
	expr, err := wrapScript("return arguments[0] + arguments[1];", []any{"a'b", 2})
	require.NoError(t, err)
	assert.Equal(t, `(function(){ var r = (function(){ return arguments[0] + arguments[1]; }).apply(null, ["a'b",2]); return r === undefined ? null : r; })()`, expr)

	expr, err = wrapScript("return document.readyState;", nil)
	require.NoError(t, err)
	assert.Contains(t, expr, ".apply(null, [])")

	_, err = wrapScript("return 1;", []any{&element{}})
	assert.ErrorIs(t, err, browser.ErrUnsupportedLocator)
}

func TestElementFunction(t *testing.T) {
	decl := elementFunction(browser.EnabledFunc, "null")
	assert.Equal(t, "function() { return (function(el) { return !el.disabled; })(this, null); }", decl)
}

func TestPageTargets(t *testing.T) {
	infos := []*target.Info{
		{TargetID: "1", Type: "page"},
		{TargetID: "2", Type: "service_worker"},
		{TargetID: "3", Type: "page"},
	}
	assert.Equal(t, []string{"1", "3"}, pageTargets(infos))
}

func TestTranslateKeys(t *testing.T) {
	assert.Equal(t, "abc"+kb.Enter, translateKeys("abc"+browser.KeyEnter))
	assert.Equal(t, kb.ArrowDown+kb.Tab, translateKeys(browser.KeyDown+browser.KeyTab))
	assert.Equal(t, "plain text", translateKeys("plain text"))
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError("op", nil))

	err := mapError("accept alert", &cdproto.Error{Code: -32602, Message: "No dialog is showing"})
	assert.ErrorIs(t, err, browser.ErrNoAlert)

	err = mapError("attribute", &cdproto.Error{Code: -32000, Message: "No node with given id found"})
	assert.ErrorIs(t, err, browser.ErrStaleElement)

	err = mapError("click", context.DeadlineExceeded)
	assert.ErrorIs(t, err, browser.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	inner := browser.WrapError("set value", browser.CodeStaleElement, errors.New("gone"))
	assert.Same(t, inner, mapError("set value", inner), "driver errors pass through")

	plain := errors.New("websocket closed")
	err = mapError("navigate", plain)
	assert.ErrorIs(t, err, plain)
	assert.False(t, browser.IsNotYet(err))
}

func TestNewRejectsNonChromium(t *testing.T) {
	_, err := New(context.Background(), browser.LaunchOptions{Browser: browser.Firefox}, zap.NewNop())
	assert.ErrorIs(t, err, browser.ErrUnsupportedBrowser)
}
