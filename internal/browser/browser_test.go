package browser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		in      string
		want    Name
		wantErr bool
	}{
		{in: "chrome", want: Chrome},
		{in: "  EDGE ", want: Edge},
		{in: "Firefox", want: Firefox},
		{in: "safari", want: Safari},
		{in: "opera", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedBrowser)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEngine(t *testing.T) {
	e, err := ParseEngine("")
	require.NoError(t, err)
	assert.Equal(t, WebDriver, e)

	e, err = ParseEngine("CDP")
	require.NoError(t, err)
	assert.Equal(t, CDP, e)

	_, err = ParseEngine("playwright")
	assert.ErrorIs(t, err, ErrUnsupportedEngine)
}

func TestEngineSupports(t *testing.T) {
	for _, n := range Names {
		assert.True(t, WebDriver.Supports(n), "webdriver drives %s", n)
	}
	assert.True(t, CDP.Supports(Chrome))
	assert.True(t, Rod.Supports(Edge))
	assert.False(t, CDP.Supports(Firefox))
	assert.False(t, Rod.Supports(Safari))
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("Enter")
	require.NoError(t, err)
	assert.Equal(t, KeyEnter, k)

	k, err = ParseKey("page_down")
	require.NoError(t, err)
	assert.Equal(t, KeyPageDown, k)

	k, err = ParseKey("a")
	require.NoError(t, err)
	assert.Equal(t, "a", k)

	_, err = ParseKey("hyper")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enter")
}

func TestLaunchArgs(t *testing.T) {
	tests := []struct {
		name     string
		browser  Name
		headless bool
		extra    []string
		want     []string
	}{
		{
			name:    "chrome windowed",
			browser: Chrome,
			want:    []string{"--start-maximized", "--log-level=OFF"},
		},
		{
			name:     "edge headless with extras",
			browser:  Edge,
			headless: true,
			extra:    []string{"--window-size=800,600", "--headless"},
			want:     []string{"--start-maximized", "--log-level=OFF", "--headless", "--window-size=800,600"},
		},
		{
			name:     "firefox headless",
			browser:  Firefox,
			headless: true,
			want:     []string{"--start-maximized", "--log-level=OFF", "-headless"},
		},
		{
			name:     "safari takes no options",
			browser:  Safari,
			headless: true,
			extra:    []string{"--anything"},
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LaunchArgs(tt.browser, tt.headless, tt.extra)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("LaunchArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitFlag(t *testing.T) {
	k, v := SplitFlag("--window-size=800,600")
	assert.Equal(t, "window-size", k)
	assert.Equal(t, "800,600", v)

	k, v = SplitFlag("--headless")
	assert.Equal(t, "headless", k)
	assert.Equal(t, "true", v)
}

func TestDriverError(t *testing.T) {
	cause := errors.New("element //div not found")
	err := WrapError("find element", CodeNoSuchElement, cause)

	assert.ErrorIs(t, err, ErrNoSuchElement)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNoAlert)
	assert.Equal(t, "find element failed [no such element]: element //div not found", err.Error())

	wrapped := fmt.Errorf("click: %w", WrapError("execute script", CodeScriptTimeout, cause))
	assert.ErrorIs(t, wrapped, ErrTimeout)

	var de *DriverError
	require.ErrorAs(t, wrapped, &de)
	assert.Equal(t, "execute script", de.Op)

	assert.NoError(t, WrapError("noop", "", nil))
	assert.Equal(t, "quit failed: boom", WrapError("quit", "", errors.New("boom")).Error())
}

func TestIsNotYet(t *testing.T) {
	assert.True(t, IsNotYet(WrapError("find", CodeNoSuchElement, errors.New("x"))))
	assert.True(t, IsNotYet(ErrNoAlert))
	assert.True(t, IsNotYet(fmt.Errorf("attr: %w", ErrStaleElement)))
	assert.False(t, IsNotYet(ErrNoSuchWindow))
	assert.False(t, IsNotYet(errors.New("connection refused")))
}

func TestMergeHandles(t *testing.T) {
	got := MergeHandles([]string{"A", "B", "C"}, []string{"D", "C", "A"})
	if diff := cmp.Diff([]string{"A", "C", "D"}, got); diff != "" {
		t.Errorf("MergeHandles() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, MergeHandles([]string{"A"}, nil))
	assert.Equal(t, []string{"x", "y"}, MergeHandles(nil, []string{"x", "y"}))
}

func TestRemoveAndContainsHandle(t *testing.T) {
	handles := []string{"A", "B", "C"}
	assert.Equal(t, []string{"A", "C"}, RemoveHandle(handles, "B"))
	assert.Equal(t, []string{"A", "B", "C"}, handles, "input is not modified")
	assert.True(t, ContainsHandle(handles, "C"))
	assert.False(t, ContainsHandle(handles, "Z"))
}
