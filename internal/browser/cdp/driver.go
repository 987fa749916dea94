// Package cdp drives Chrome and Edge over the DevTools protocol using
// github.com/chromedp/chromedp. Window handles are page target IDs.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tab is an attached page target.
type tab struct {
	id     target.ID
	ctx    context.Context
	cancel context.CancelFunc // nil for the tab that owns the browser
	// dialog holds the message of the open JavaScript dialog, if any.
	dialog *string
}

// Driver is a browser.Driver backed by chromedp.
type Driver struct {
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu      sync.Mutex
	tabs    map[target.ID]*tab
	order   []string
	current target.ID

	quitOnce sync.Once
	quitErr  error
}

var _ browser.Driver = (*Driver)(nil)

// New launches the browser, or connects to opts.RemoteURL (a DevTools
// websocket URL), and attaches to its first tab.
func New(ctx context.Context, opts browser.LaunchOptions, logger *zap.Logger) (*Driver, error) {
	if !browser.CDP.Supports(opts.Browser) {
		return nil, fmt.Errorf("%w: %q cannot be driven over cdp", browser.ErrUnsupportedBrowser, opts.Browser)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.Named("cdp").With(zap.String("browser", opts.Browser.String()))

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, buildAllocatorOptions(opts)...)
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	d := &Driver{
		logger:        log,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          make(map[target.ID]*tab),
	}

	first := &tab{ctx: browserCtx}
	d.listenDialogs(first)

	// The first Run starts the browser and must use the context from NewContext.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}
	first.id = chromedp.FromContext(browserCtx).Target.TargetID

	d.tabs[first.id] = first
	d.order = []string{string(first.id)}
	d.current = first.id

	log.Info("Browser launched.", zap.String("target_id", string(first.id)))
	return d, nil
}

func (d *Driver) listenDialogs(t *tab) {
	chromedp.ListenTarget(t.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			msg := e.Message
			d.mu.Lock()
			t.dialog = &msg
			d.mu.Unlock()
		case *page.EventJavascriptDialogClosed:
			d.mu.Lock()
			t.dialog = nil
			d.mu.Unlock()
		}
	})
}

// runIn runs actions against the chromedp context tabCtx while honouring the
// caller's ctx for cancellation and deadlines.
func runIn(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *Driver) currentTab() (*tab, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tabs == nil {
		return nil, browser.ErrSessionClosed
	}
	t, ok := d.tabs[d.current]
	if !ok {
		return nil, browser.WrapError("current window", browser.CodeNoSuchWindow, errors.New("the current window has been closed"))
	}
	return t, nil
}

func (d *Driver) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	t, err := d.currentTab()
	if err != nil {
		return err
	}
	if err := runIn(ctx, t.ctx, actions...); err != nil {
		return mapError(op, err)
	}
	return nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, "navigate", chromedp.Navigate(url))
}

func (d *Driver) Refresh(ctx context.Context) error {
	return d.run(ctx, "refresh", chromedp.Reload())
}

// ExecuteScript evaluates script as a function body in the current page.
// Element arguments are not supported by this engine.
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	expr, err := wrapScript(script, args)
	if err != nil {
		return nil, err
	}
	var res any
	if err := d.run(ctx, "execute script", chromedp.Evaluate(expr, &res)); err != nil {
		return nil, err
	}
	return res, nil
}

// wrapScript turns a WebDriver style script body into an expression.
// Undefined results become null.
func wrapScript(script string, args []any) (string, error) {
	for _, a := range args {
		if _, ok := a.(*element); ok {
			return "", fmt.Errorf("%w: element arguments are not supported by the cdp engine", browser.ErrUnsupportedLocator)
		}
	}
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode script arguments: %w", err)
	}
	return fmt.Sprintf("(function(){ var r = (function(){ %s }).apply(null, %s); return r === undefined ? null : r; })()", script, encoded), nil
}

func (d *Driver) FindElement(ctx context.Context, by browser.By, value string) (browser.Element, error) {
	t, err := d.currentTab()
	if err != nil {
		return nil, err
	}
	return d.find(ctx, t, by, value, nil)
}

func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(d.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, mapError("window handles", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.order = browser.MergeHandles(d.order, pageTargets(infos))
	return append([]string(nil), d.order...), nil
}

func pageTargets(infos []*target.Info) []string {
	var ids []string
	for _, info := range infos {
		if info.Type == "page" {
			ids = append(ids, string(info.TargetID))
		}
	}
	return ids
}

func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	t, err := d.currentTab()
	if err != nil {
		return "", err
	}
	return string(t.id), nil
}

// SwitchWindow attaches to the target if needed and brings it to front.
func (d *Driver) SwitchWindow(ctx context.Context, handle string) error {
	handles, err := d.WindowHandles(ctx)
	if err != nil {
		return err
	}
	if !browser.ContainsHandle(handles, handle) {
		return browser.WrapError("switch window", browser.CodeNoSuchWindow, fmt.Errorf("no window with handle %q", handle))
	}

	id := target.ID(handle)
	d.mu.Lock()
	t, ok := d.tabs[id]
	d.mu.Unlock()

	if !ok {
		tabCtx, cancel := chromedp.NewContext(d.browserCtx, chromedp.WithTargetID(id))
		t = &tab{id: id, ctx: tabCtx, cancel: cancel}
		d.listenDialogs(t)
		// Attaching must use the context from NewContext.
		if err := chromedp.Run(tabCtx); err != nil {
			cancel()
			return mapError("switch window", err)
		}
		d.mu.Lock()
		d.tabs[id] = t
		d.mu.Unlock()
	}

	if err := runIn(ctx, t.ctx, page.BringToFront()); err != nil {
		return mapError("switch window", err)
	}

	d.mu.Lock()
	d.current = id
	d.mu.Unlock()
	return nil
}

// CloseWindow closes the current page target. Until SwitchWindow is called
// again commands fail with ErrNoSuchWindow.
func (d *Driver) CloseWindow(ctx context.Context) error {
	t, err := d.currentTab()
	if err != nil {
		return err
	}

	closeTarget := chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		return target.CloseTarget(t.id).Do(cdpWithBrowser(ctx, c))
	})
	if err := runIn(ctx, d.browserCtx, closeTarget); err != nil {
		return mapError("close window", err)
	}

	d.mu.Lock()
	delete(d.tabs, t.id)
	d.order = browser.RemoveHandle(d.order, string(t.id))
	if d.current == t.id {
		d.current = ""
	}
	d.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

func (d *Driver) AlertText(ctx context.Context) (string, error) {
	t, err := d.currentTab()
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if t.dialog == nil {
		return "", browser.WrapError("alert text", browser.CodeNoAlert, errors.New("no dialog is open"))
	}
	return *t.dialog, nil
}

func (d *Driver) AcceptAlert(ctx context.Context) error {
	t, err := d.currentTab()
	if err != nil {
		return err
	}
	d.mu.Lock()
	open := t.dialog != nil
	d.mu.Unlock()
	if !open {
		return browser.WrapError("accept alert", browser.CodeNoAlert, errors.New("no dialog is open"))
	}

	if err := runIn(ctx, t.ctx, page.HandleJavaScriptDialog(true)); err != nil {
		return mapError("accept alert", err)
	}
	d.mu.Lock()
	t.dialog = nil
	d.mu.Unlock()
	return nil
}

// Quit closes the browser and releases the allocator.
func (d *Driver) Quit(_ context.Context) error {
	d.quitOnce.Do(func() {
		err := chromedp.Cancel(d.browserCtx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}

		d.mu.Lock()
		for _, t := range d.tabs {
			if t.cancel != nil {
				t.cancel()
			}
		}
		d.tabs = nil
		d.order = nil
		d.current = ""
		d.mu.Unlock()

		d.browserCancel()
		d.allocCancel()
		if err != nil {
			d.quitErr = mapError("quit", err)
		}
		d.logger.Info("Browser closed.")
	})
	return d.quitErr
}
