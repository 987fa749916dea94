// Package webdriver drives Chrome, Edge, Firefox and Safari through their
// W3C WebDriver services using github.com/tebeka/selenium.
package webdriver

import (
	"context"
	"fmt"
	"io"
	"net"
	"os/exec"
	"sync"

	"github.com/tebeka/selenium"
	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

// Driver is a browser.Driver backed by a WebDriver session.
type Driver struct {
	wd      selenium.WebDriver
	service *selenium.Service
	logger  *zap.Logger

	quitOnce sync.Once
	quitErr  error
}

var _ browser.Driver = (*Driver)(nil)

// New starts the driver service for opts.Browser (or dials opts.RemoteURL)
// and opens a session.
func New(ctx context.Context, opts browser.LaunchOptions, logger *zap.Logger) (*Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.Named("webdriver").With(zap.String("browser", opts.Browser.String()))

	caps, err := Capabilities(opts)
	if err != nil {
		return nil, err
	}

	var (
		service *selenium.Service
		url     = opts.RemoteURL
	)
	if url == "" {
		service, url, err = startService(opts, log)
		if err != nil {
			return nil, err
		}
	}

	log.Debug("Opening WebDriver session.", zap.String("url", url), zap.Strings("args", browser.LaunchArgs(opts.Browser, opts.Headless, opts.Args)))
	wd, err := selenium.NewRemote(caps, url)
	if err != nil {
		if service != nil {
			_ = service.Stop()
		}
		return nil, fmt.Errorf("failed to open %s session: %w", opts.Browser, err)
	}

	log.Info("WebDriver session started.", zap.String("session_id", wd.SessionID()))
	return &Driver{wd: wd, service: service, logger: log}, nil
}

// Wrap adapts an existing selenium session. The caller keeps ownership of any
// driver service behind it.
func Wrap(wd selenium.WebDriver, logger *zap.Logger) *Driver {
	return &Driver{wd: wd, logger: logger.Named("webdriver")}
}

// startService launches the local driver binary on the configured port.
func startService(opts browser.LaunchOptions, log *zap.Logger) (*selenium.Service, string, error) {
	path := opts.DriverPath
	if path == "" {
		binary := driverBinaries[opts.Browser]
		found, err := exec.LookPath(binary)
		if err != nil {
			return nil, "", fmt.Errorf("%s not found on PATH (set browser.driver_path): %w", binary, err)
		}
		path = found
	}

	port := opts.DriverPort
	if port == 0 {
		free, err := freePort()
		if err != nil {
			return nil, "", fmt.Errorf("failed to pick a driver port: %w", err)
		}
		port = free
	}

	serviceOpts := []selenium.ServiceOption{selenium.Output(io.Discard)}
	var (
		service *selenium.Service
		err     error
	)
	if opts.Browser.Chromium() {
		// msedgedriver accepts the chromedriver command line.
		service, err = selenium.NewChromeDriverService(path, port, serviceOpts...)
	} else {
		// safaridriver accepts the geckodriver command line.
		service, err = selenium.NewGeckoDriverService(path, port, serviceOpts...)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to start %s: %w", path, err)
	}

	log.Debug("Driver service started.", zap.String("path", path), zap.Int("port", port))
	return service, urlPrefix(opts.Browser, port), nil
}

// freePort asks the kernel for an unused TCP port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError("navigate", d.wd.Get(url))
}

func (d *Driver) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError("refresh", d.wd.Refresh())
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Elements are passed through as their selenium handles so the remote
	// end can resolve them.
	wireArgs := make([]interface{}, len(args))
	for i, a := range args {
		if el, ok := a.(*element); ok {
			wireArgs[i] = el.we
			continue
		}
		wireArgs[i] = a
	}
	res, err := d.wd.ExecuteScript(script, wireArgs)
	return res, mapError("execute script", err)
}

func (d *Driver) FindElement(ctx context.Context, by browser.By, value string) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	we, err := d.wd.FindElement(string(by), value)
	if err != nil {
		return nil, mapError("find element "+value, err)
	}
	return &element{we: we, driver: d}, nil
}

func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := d.wd.WindowHandles()
	return handles, mapError("window handles", err)
}

func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	handle, err := d.wd.CurrentWindowHandle()
	return handle, mapError("current window", err)
}

func (d *Driver) SwitchWindow(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError("switch window", d.wd.SwitchWindow(handle))
}

func (d *Driver) CloseWindow(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError("close window", d.wd.Close())
}

func (d *Driver) AlertText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := d.wd.AlertText()
	return text, mapError("alert text", err)
}

func (d *Driver) AcceptAlert(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError("accept alert", d.wd.AcceptAlert())
}

// Quit ends the session and stops the driver service. Subsequent calls
// return the first result.
func (d *Driver) Quit(_ context.Context) error {
	d.quitOnce.Do(func() {
		err := mapError("quit", d.wd.Quit())
		if d.service != nil {
			if stopErr := d.service.Stop(); stopErr != nil && err == nil {
				err = fmt.Errorf("failed to stop driver service: %w", stopErr)
			}
		}
		d.quitErr = err
		d.logger.Info("WebDriver session closed.")
	})
	return d.quitErr
}

// element is a browser.Element backed by a selenium.WebElement.
type element struct {
	we     selenium.WebElement
	driver *Driver
}

var _ browser.Element = (*element)(nil)

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError("click", e.we.Click())
}

func (e *element) SendKeys(ctx context.Context, keys string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError("send keys", e.we.SendKeys(keys))
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.we.GetAttribute(name)
	return v, mapError("attribute "+name, err)
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.we.IsDisplayed()
	return ok, mapError("is displayed", err)
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.we.IsEnabled()
	return ok, mapError("is enabled", err)
}

func (e *element) SetValue(ctx context.Context, value string) error {
	_, err := e.driver.ExecuteScript(ctx, browser.SetValueScript, e, value)
	return err
}

func (e *element) SelectOption(ctx context.Context, text string) error {
	res, err := e.driver.ExecuteScript(ctx, browser.SelectOptionScript, e, text)
	if err != nil {
		return err
	}
	if ok, _ := res.(bool); !ok {
		return browser.WrapError("select option", browser.CodeNoSuchElement, fmt.Errorf("no option with text %q", text))
	}
	return nil
}

func (e *element) FindElement(ctx context.Context, by browser.By, value string) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	we, err := e.we.FindElement(string(by), value)
	if err != nil {
		return nil, mapError("find element "+value, err)
	}
	return &element{we: we, driver: e.driver}, nil
}
