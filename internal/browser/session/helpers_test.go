package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/w3automaton/internal/browser"
	"github.com/xkilldash9x/w3automaton/internal/config"
)

// fakeDriver is an in-memory browser.Driver. Elements appear once their
// appearAfter count of lookups has passed, which lets tests exercise the
// polling paths without sleeping.
type fakeDriver struct {
	mu sync.Mutex

	windows []string
	current string
	nextID  int

	elements map[string]*fakeElement
	lookups  map[string]int

	readyState string
	readyAfter int
	readyCalls int

	alert     *string
	accepted  []string
	navigated []string
	refreshes int
	quits     int

	// closeLag keeps a closed window listed for this many handle queries.
	closeLag int
	closing  []string
	lagLeft  int

	failNavigate error
}

func newFakeDriver(windows ...string) *fakeDriver {
	if len(windows) == 0 {
		windows = []string{"w0"}
	}
	return &fakeDriver{
		windows:    append([]string(nil), windows...),
		current:    windows[0],
		elements:   make(map[string]*fakeElement),
		lookups:    make(map[string]int),
		readyState: "complete",
	}
}

func (d *fakeDriver) add(xpath string, el *fakeElement) *fakeElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[xpath] = el
	return el
}

func (d *fakeDriver) setAlert(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alert = &text
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNavigate != nil {
		return d.failNavigate
	}
	d.navigated = append(d.navigated, url)
	d.readyCalls = 0
	return nil
}

func (d *fakeDriver) Refresh(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshes++
	d.readyCalls = 0
	return nil
}

func (d *fakeDriver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if script != browser.ReadyStateScript {
		return nil, fmt.Errorf("unexpected script %q", script)
	}
	d.readyCalls++
	if d.readyCalls <= d.readyAfter {
		return "loading", nil
	}
	return d.readyState, nil
}

func (d *fakeDriver) FindElement(ctx context.Context, by browser.By, value string) (browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if by != browser.ByXPath {
		return nil, browser.ErrUnsupportedLocator
	}
	d.lookups[value]++
	el, ok := d.elements[value]
	if !ok || d.lookups[value] <= el.appearAfter {
		return nil, browser.WrapError("find element", browser.CodeNoSuchElement, fmt.Errorf("no element at %s", value))
	}
	return el, nil
}

func (d *fakeDriver) WindowHandles(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lagLeft > 0 {
		d.lagLeft--
		return append(append([]string(nil), d.windows...), d.closing...), nil
	}
	d.closing = nil
	return append([]string(nil), d.windows...), nil
}

func (d *fakeDriver) CurrentWindow(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !browser.ContainsHandle(d.windows, d.current) {
		return "", browser.WrapError("current window", browser.CodeNoSuchWindow, errors.New("window closed"))
	}
	return d.current, nil
}

func (d *fakeDriver) SwitchWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !browser.ContainsHandle(d.windows, handle) {
		return browser.WrapError("switch window", browser.CodeNoSuchWindow, fmt.Errorf("no window %s", handle))
	}
	d.current = handle
	d.readyCalls = 0
	return nil
}

func (d *fakeDriver) CloseWindow(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !browser.ContainsHandle(d.windows, d.current) {
		return browser.WrapError("close window", browser.CodeNoSuchWindow, errors.New("window closed"))
	}
	d.windows = browser.RemoveHandle(d.windows, d.current)
	d.closing = append(d.closing, d.current)
	d.lagLeft = d.closeLag
	return nil
}

// openWindow simulates a page opening a new window.
func (d *fakeDriver) openWindow() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	h := fmt.Sprintf("popup%d", d.nextID)
	d.windows = append(d.windows, h)
	return h
}

func (d *fakeDriver) AlertText(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.alert == nil {
		return "", browser.WrapError("alert text", browser.CodeNoAlert, errors.New("no alert open"))
	}
	return *d.alert, nil
}

func (d *fakeDriver) AcceptAlert(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.alert == nil {
		return browser.WrapError("accept alert", browser.CodeNoAlert, errors.New("no alert open"))
	}
	d.accepted = append(d.accepted, *d.alert)
	d.alert = nil
	return nil
}

func (d *fakeDriver) Quit(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quits++
	return nil
}

type fakeElement struct {
	mu sync.Mutex

	appearAfter int
	hidden      bool
	disabled    bool

	attrs    map[string]string
	options  []string
	value    string
	selected string
	keys     []string
	clicks   int
	children map[string]*fakeElement
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clicks++
	return nil
}

func (e *fakeElement) SendKeys(ctx context.Context, keys string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = append(e.keys, keys)
	return nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attrs[name], nil
}

func (e *fakeElement) IsDisplayed(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.hidden, nil
}

func (e *fakeElement) IsEnabled(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.disabled, nil
}

func (e *fakeElement) SetValue(ctx context.Context, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = value
	return nil
}

func (e *fakeElement) SelectOption(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range e.options {
		if o == text {
			e.selected = text
			return nil
		}
	}
	return browser.WrapError("select option", browser.CodeNoSuchElement, fmt.Errorf("no option %q", text))
}

func (e *fakeElement) FindElement(ctx context.Context, by browser.By, value string) (browser.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if by != browser.ByTagName {
		return nil, browser.ErrUnsupportedLocator
	}
	child, ok := e.children[value]
	if !ok {
		return nil, browser.WrapError("find element", browser.CodeNoSuchElement, fmt.Errorf("no <%s>", value))
	}
	return child, nil
}

// fatalRecorder captures errors handed to the fatal handler.
type fatalRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *fatalRecorder) handle(_ *zap.Logger, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *fatalRecorder) calls() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// testConfig returns a configuration with waits short enough for unit tests.
func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.WaitCfg = config.WaitConfig{
		Timeout:         300 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
		AlertTimeout:    40 * time.Millisecond,
		KeyPressDelay:   time.Millisecond,
		KeyReleaseDelay: time.Millisecond,
	}
	return cfg
}

type fixture struct {
	session *Session
	driver  *fakeDriver
	fatal   *fatalRecorder
	logs    *observer.ObservedLogs
}

func setup(t *testing.T, driver *fakeDriver) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &fatalRecorder{}
	s, err := New(context.Background(), testConfig(), zap.New(core),
		WithDriver(driver), WithFatalHandler(rec.handle))
	require.NoError(t, err)
	return &fixture{session: s, driver: driver, fatal: rec, logs: logs}
}
