package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/browser"
	"github.com/xkilldash9x/w3automaton/internal/config"
	"github.com/xkilldash9x/w3automaton/internal/observability"
)

// resetForTest restores package state and the global logger, and moves into
// a scratch directory so default log paths stay out of the source tree.
func resetForTest(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfgFile = ""
	fatal = observability.Fatal
	newSession = defaultNewSession
	observability.ResetForTest()
	t.Cleanup(func() {
		cfgFile = ""
		fatal = observability.Fatal
		newSession = defaultNewSession
		observability.ResetForTest()
	})
}

var defaultNewSession = newSession

// writeConfig writes a config file whose logs live in dir.
func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	if body == "" {
		body = `{
			"logger": {
				"level": "debug",
				"format": "json",
				"info_log_file": "` + filepath.ToSlash(filepath.Join(dir, "info.log")) + `",
				"warn_log_file": "` + filepath.ToSlash(filepath.Join(dir, "warn.log")) + `"
			},
			"browser": {"name": "chrome", "engine": "webdriver", "headless": true},
			"wait": {"timeout": "2s", "poll_interval": "10ms"}
		}`
	}
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// execute runs the command tree with args and returns its output.
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// fatalRecorder stands in for observability.Fatal.
type fatalRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *fatalRecorder) fatal(_ *zap.Logger, err error, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// fakeSession records the calls a script makes.
type fakeSession struct {
	mu    sync.Mutex
	calls []string
	quits int
	fail  map[string]error
}

func (f *fakeSession) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.fail[call]
}

type fakeElement struct{ browser.Element }

func (f *fakeSession) Open(ctx context.Context, url string) error { return f.record("open " + url) }
func (f *fakeSession) ReloadPage(ctx context.Context) error       { return f.record("reload") }
func (f *fakeSession) WaitPage(ctx context.Context) error         { return f.record("wait_page") }

func (f *fakeSession) Element(ctx context.Context, xpath string) (browser.Element, error) {
	return &fakeElement{}, f.record("element " + xpath)
}

func (f *fakeSession) ClickElement(ctx context.Context, xpath string) (browser.Element, error) {
	return &fakeElement{}, f.record("click " + xpath)
}

func (f *fakeSession) WriteInElement(ctx context.Context, xpath, input string) (browser.Element, error) {
	return &fakeElement{}, f.record("write " + xpath + " " + input)
}

func (f *fakeSession) SelectInElement(ctx context.Context, xpath, option string, ignoreSelection bool) (browser.Element, error) {
	return &fakeElement{}, f.record("select " + xpath + " " + option)
}

func (f *fakeSession) AttrFromElement(ctx context.Context, xpath, attr string) (string, error) {
	return attr + "@" + xpath, f.record("attr " + xpath)
}

func (f *fakeSession) PressKey(ctx context.Context, el browser.Element, key string) error {
	return f.record("press_key")
}

func (f *fakeSession) AcceptAlert(ctx context.Context, timeout time.Duration) (bool, error) {
	return true, f.record("accept_alert")
}

func (f *fakeSession) PickTableAsElement(ctx context.Context, xpath, sliceTag string) (browser.Element, error) {
	return &fakeElement{}, f.record("pick_table " + xpath)
}

func (f *fakeSession) PickWindow(ctx context.Context, index, windows int) error {
	return f.record("pick_window")
}

func (f *fakeSession) ClosePage(ctx context.Context) error { return f.record("close_page") }
func (f *fakeSession) CloseAll(ctx context.Context) error  { return f.record("close_all") }

func (f *fakeSession) Quit(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quits++
	return nil
}

// stubSessions makes newSession return s and capture the configuration.
func stubSessions(s *fakeSession) *config.Interface {
	var got config.Interface
	newSession = func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (scriptSession, error) {
		got = cfg
		return s, nil
	}
	return &got
}
