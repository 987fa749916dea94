// Package rod drives Chrome and Edge through github.com/go-rod/rod. Window
// handles are page target IDs.
package rod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

// page is an attached page target.
type page struct {
	p *rod.Page
	// dialog holds the message of the open JavaScript dialog, if any.
	dialog *string
	// cancel stops the page's dialog listener.
	cancel context.CancelFunc
}

// Driver is a browser.Driver backed by go-rod.
type Driver struct {
	logger   *zap.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser

	// ctx bounds the event listeners; it ends with Quit.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pages   map[string]*page
	order   []string
	current string

	quitOnce sync.Once
	quitErr  error
}

var _ browser.Driver = (*Driver)(nil)

// New launches the browser (or connects to opts.RemoteURL, a DevTools
// websocket URL) and attaches to its first page.
func New(ctx context.Context, opts browser.LaunchOptions, logger *zap.Logger) (*Driver, error) {
	if !browser.Rod.Supports(opts.Browser) {
		return nil, fmt.Errorf("%w: %q cannot be driven by rod", browser.ErrUnsupportedBrowser, opts.Browser)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.Named("rod").With(zap.String("browser", opts.Browser.String()))

	var l *launcher.Launcher
	controlURL := opts.RemoteURL
	if controlURL == "" {
		l = newLauncher(opts).Context(ctx)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	lifetime, cancel := context.WithCancel(context.Background())
	d := &Driver{
		logger:   log,
		launcher: l,
		browser:  b,
		ctx:      lifetime,
		cancel:   cancel,
		pages:    make(map[string]*page),
	}

	first, err := d.firstPage()
	if err != nil {
		_ = d.Quit(ctx)
		return nil, err
	}
	id := string(first.TargetID)
	d.attach(first)
	d.order = []string{id}
	d.current = id

	log.Info("Browser launched.", zap.String("target_id", id))
	return d, nil
}

func (d *Driver) firstPage() (*rod.Page, error) {
	pages, err := d.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	if len(pages) > 0 {
		return pages[0], nil
	}
	p, err := d.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to open a page: %w", err)
	}
	return p, nil
}

// attach starts tracking dialogs for p.
func (d *Driver) attach(p *rod.Page) *page {
	pctx, cancel := context.WithCancel(d.ctx)
	pg := &page{p: p, cancel: cancel}
	d.mu.Lock()
	d.pages[string(p.TargetID)] = pg
	d.mu.Unlock()

	wait := p.Context(pctx).EachEvent(
		func(e *proto.PageJavascriptDialogOpening) {
			msg := e.Message
			d.mu.Lock()
			pg.dialog = &msg
			d.mu.Unlock()
		},
		func(e *proto.PageJavascriptDialogClosed) {
			d.mu.Lock()
			pg.dialog = nil
			d.mu.Unlock()
		},
	)
	go wait()
	return pg
}

func (d *Driver) currentPage() (*page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pages == nil {
		return nil, browser.ErrSessionClosed
	}
	pg, ok := d.pages[d.current]
	if !ok {
		return nil, browser.WrapError("current window", browser.CodeNoSuchWindow, errors.New("the current window has been closed"))
	}
	return pg, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	pg, err := d.currentPage()
	if err != nil {
		return err
	}
	return mapError("navigate", pg.p.Context(ctx).Navigate(url))
}

func (d *Driver) Refresh(ctx context.Context) error {
	pg, err := d.currentPage()
	if err != nil {
		return err
	}
	return mapError("refresh", pg.p.Context(ctx).Reload())
}

// ExecuteScript evaluates script as a function body in the current page.
// Element arguments are not supported by this engine.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	for _, a := range args {
		if _, ok := a.(*element); ok {
			return nil, fmt.Errorf("%w: element arguments are not supported by the rod engine", browser.ErrUnsupportedLocator)
		}
	}
	pg, err := d.currentPage()
	if err != nil {
		return nil, err
	}
	res, err := pg.p.Context(ctx).Eval(scriptFunction(script), args...)
	if err != nil {
		return nil, mapError("execute script", err)
	}
	return res.Value.Val(), nil
}

// scriptFunction wraps a WebDriver style script body as a function.
// Undefined results become null.
func scriptFunction(script string) string {
	return "function() { var r = (function(){ " + script + " }).apply(null, arguments); return r === undefined ? null : r; }"
}

func (d *Driver) FindElement(ctx context.Context, by browser.By, value string) (browser.Element, error) {
	pg, err := d.currentPage()
	if err != nil {
		return nil, err
	}
	p := pg.p.Context(ctx)

	var els rod.Elements
	switch by {
	case browser.ByXPath:
		els, err = p.ElementsX(value)
	case browser.ByTagName, browser.ByCSS:
		els, err = p.Elements(value)
	default:
		return nil, fmt.Errorf("%w: %q", browser.ErrUnsupportedLocator, by)
	}
	return firstElement(value, by, els, err)
}

func firstElement(value string, by browser.By, els rod.Elements, err error) (browser.Element, error) {
	if err != nil {
		return nil, mapError("find element "+value, err)
	}
	if len(els) == 0 {
		return nil, browser.WrapError("find element "+value, browser.CodeNoSuchElement, fmt.Errorf("no element matches %s %q", by, value))
	}
	return &element{el: els[0]}, nil
}

func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	pages, err := d.browser.Context(ctx).Pages()
	if err != nil {
		return nil, mapError("window handles", err)
	}
	live := make([]string, 0, len(pages))
	for _, p := range pages {
		live = append(live, string(p.TargetID))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.order = browser.MergeHandles(d.order, live)
	return append([]string(nil), d.order...), nil
}

func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	pg, err := d.currentPage()
	if err != nil {
		return "", err
	}
	return string(pg.p.TargetID), nil
}

// SwitchWindow attaches to the target if needed and activates it.
func (d *Driver) SwitchWindow(ctx context.Context, handle string) error {
	handles, err := d.WindowHandles(ctx)
	if err != nil {
		return err
	}
	if !browser.ContainsHandle(handles, handle) {
		return browser.WrapError("switch window", browser.CodeNoSuchWindow, fmt.Errorf("no window with handle %q", handle))
	}

	d.mu.Lock()
	pg, ok := d.pages[handle]
	d.mu.Unlock()
	if !ok {
		p, err := d.browser.Context(ctx).PageFromTarget(proto.TargetTargetID(handle))
		if err != nil {
			return mapError("switch window", err)
		}
		pg = d.attach(p)
	}

	if _, err := pg.p.Context(ctx).Activate(); err != nil {
		return mapError("switch window", err)
	}

	d.mu.Lock()
	d.current = handle
	d.mu.Unlock()
	return nil
}

// CloseWindow closes the current page. Until SwitchWindow is called again
// commands fail with ErrNoSuchWindow.
func (d *Driver) CloseWindow(ctx context.Context) error {
	pg, err := d.currentPage()
	if err != nil {
		return err
	}
	if err := pg.p.Context(ctx).Close(); err != nil {
		return mapError("close window", err)
	}

	d.forget(string(pg.p.TargetID))
	return nil
}

// forget drops a closed page and stops its listener.
func (d *Driver) forget(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if pg, ok := d.pages[id]; ok && pg.cancel != nil {
		pg.cancel()
	}
	delete(d.pages, id)
	d.order = browser.RemoveHandle(d.order, id)
	if d.current == id {
		d.current = ""
	}
}

func (d *Driver) AlertText(ctx context.Context) (string, error) {
	pg, err := d.currentPage()
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if pg.dialog == nil {
		return "", browser.WrapError("alert text", browser.CodeNoAlert, errors.New("no dialog is open"))
	}
	return *pg.dialog, nil
}

func (d *Driver) AcceptAlert(ctx context.Context) error {
	pg, err := d.currentPage()
	if err != nil {
		return err
	}
	d.mu.Lock()
	open := pg.dialog != nil
	d.mu.Unlock()
	if !open {
		return browser.WrapError("accept alert", browser.CodeNoAlert, errors.New("no dialog is open"))
	}

	if err := (proto.PageHandleJavaScriptDialog{Accept: true}).Call(pg.p.Context(ctx)); err != nil {
		return mapError("accept alert", err)
	}
	d.mu.Lock()
	pg.dialog = nil
	d.mu.Unlock()
	return nil
}

// Quit closes the browser and, when it was launched here, kills the process
// and removes its profile directory.
func (d *Driver) Quit(_ context.Context) error {
	d.quitOnce.Do(func() {
		err := d.browser.Close()
		d.cancel()

		d.mu.Lock()
		d.pages = nil
		d.order = nil
		d.current = ""
		d.mu.Unlock()

		if d.launcher != nil {
			d.launcher.Kill()
			d.launcher.Cleanup()
		}
		if err != nil && !isClosedConnection(err) {
			d.quitErr = mapError("quit", err)
		}
		d.logger.Info("Browser closed.")
	})
	return d.quitErr
}

func isClosedConnection(err error) bool {
	return errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "use of closed network connection")
}
