// Package session wraps a browser.Driver with the preset waits every
// interaction goes through: wait for the element, act on it, and wait for
// the page to settle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/browser"
	"github.com/xkilldash9x/w3automaton/internal/browser/wait"
	"github.com/xkilldash9x/w3automaton/internal/config"
	"github.com/xkilldash9x/w3automaton/internal/observability"
)

// FatalFunc handles errors the session cannot continue after. The default
// logs through observability.Fatal and terminates the process.
type FatalFunc func(logger *zap.Logger, err error)

func defaultFatal(logger *zap.Logger, err error) {
	// Skip this function and Session.fail so the report names the method.
	observability.FatalSkip(logger, err, false, 2)
}

// Session owns one driver session and the waiter used around it.
type Session struct {
	id     string
	driver browser.Driver
	waiter wait.Waiter
	delays config.WaitConfig
	logger *zap.Logger
	fatal  FatalFunc

	factory DriverFactory

	quitOnce sync.Once
	quitErr  error
}

// Option customizes a Session.
type Option func(*Session)

// WithDriver uses d instead of launching a browser.
func WithDriver(d browser.Driver) Option {
	return func(s *Session) { s.driver = d }
}

// WithFactory replaces the engine factory used to launch the browser.
func WithFactory(f DriverFactory) Option {
	return func(s *Session) { s.factory = f }
}

// WithFatalHandler replaces the log-and-terminate handler.
func WithFatalHandler(f FatalFunc) Option {
	return func(s *Session) { s.fatal = f }
}

// New launches the configured browser and returns a session around it. An
// unsupported browser or engine, or a launch failure, is fatal.
func New(ctx context.Context, cfg config.Interface, logger *zap.Logger, opts ...Option) (*Session, error) {
	id := uuid.New().String()
	waitCfg := cfg.Wait()

	s := &Session{
		id:      id,
		waiter:  wait.New(waitCfg.Timeout, waitCfg.PollInterval),
		delays:  waitCfg,
		logger:  logger.Named("session").With(zap.String("session_id", id)),
		fatal:   defaultFatal,
		factory: NewDriver,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.driver != nil {
		s.logger.Debug("Session attached to an existing driver.")
		return s, nil
	}

	browserCfg := cfg.Browser()
	name, err := browser.ParseName(browserCfg.Name)
	if err != nil {
		return nil, s.fail(err)
	}
	engine, err := browser.ParseEngine(browserCfg.Engine)
	if err != nil {
		return nil, s.fail(err)
	}
	if !engine.Supports(name) {
		return nil, s.fail(fmt.Errorf("%w: engine %s cannot drive %s", browser.ErrUnsupportedBrowser, engine, name))
	}

	s.logger = s.logger.With(zap.String("browser", name.String()), zap.String("engine", engine.String()))
	s.logger.Info("Starting browser session.", zap.Bool("headless", browserCfg.Headless))

	driver, err := s.factory(ctx, engine, LaunchOptions(name, browserCfg), s.logger)
	if err != nil {
		return nil, s.fail(fmt.Errorf("failed to create %s driver: %w", name, err))
	}
	s.driver = driver
	return s, nil
}

// fail hands err to the fatal handler and returns it for handlers that do
// not terminate.
func (s *Session) fail(err error) error {
	s.fatal(s.logger, err)
	return err
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Driver exposes the underlying driver for calls the session does not wrap.
func (s *Session) Driver() browser.Driver { return s.driver }

// Waiter returns the waiter applied around interactions.
func (s *Session) Waiter() wait.Waiter { return s.waiter }

// CloseAll closes every open window, waiting after each close until the
// browser reports one window fewer.
func (s *Session) CloseAll(ctx context.Context) error {
	handles, err := s.driver.WindowHandles(ctx)
	if err != nil {
		return err
	}

	remaining := len(handles)
	for remaining > 0 {
		if err := s.driver.CloseWindow(ctx); err != nil {
			return err
		}
		remaining--
		if err := s.waiter.Until(ctx, fmt.Sprintf("%d open windows", remaining), s.numberOfWindows(remaining)); err != nil {
			return err
		}
		if remaining == 0 {
			break
		}
		// The next close acts on the current window, so move to a live one.
		left, err := s.driver.WindowHandles(ctx)
		if err != nil {
			return err
		}
		if err := s.driver.SwitchWindow(ctx, left[0]); err != nil {
			return err
		}
	}
	s.logger.Debug("All windows closed.")
	return nil
}

// Quit ends the driver session. Later calls return the first result.
func (s *Session) Quit(ctx context.Context) error {
	s.quitOnce.Do(func() {
		s.quitErr = s.driver.Quit(ctx)
		s.logger.Info("Browser session ended.")
	})
	return s.quitErr
}

// Open navigates to url and waits for the page to load.
func (s *Session) Open(ctx context.Context, url string) error {
	s.logger.Debug("Opening URL.", zap.String("url", url))
	if err := s.driver.Navigate(ctx, url); err != nil {
		return err
	}
	return s.WaitPage(ctx)
}

// ReloadPage refreshes the current page and waits for it to load.
func (s *Session) ReloadPage(ctx context.Context) error {
	if err := s.driver.Refresh(ctx); err != nil {
		return err
	}
	return s.WaitPage(ctx)
}

// AcceptAlert waits up to timeout for a dialog, logs its text and accepts
// it. It reports false when no dialog shows up. A non-positive timeout uses
// the configured alert timeout.
func (s *Session) AcceptAlert(ctx context.Context, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = s.delays.AlertTimeout
	}

	var text string
	err := s.waiter.WithTimeout(timeout).Until(ctx, "alert", s.alertPresent(&text))
	if err != nil {
		if errors.Is(err, browser.ErrTimeout) || errors.Is(err, browser.ErrNoAlert) {
			return false, nil
		}
		return false, err
	}

	s.logger.Warn(fmt.Sprintf(`[!]ALERT: ["%s"]`, text))
	if err := s.driver.AcceptAlert(ctx); err != nil {
		if errors.Is(err, browser.ErrNoAlert) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PressKey sends key to el, pausing before and after the key press.
func (s *Session) PressKey(ctx context.Context, el browser.Element, key string) error {
	if err := sleep(ctx, s.delays.KeyPressDelay); err != nil {
		return err
	}
	if err := el.SendKeys(ctx, key); err != nil {
		return err
	}
	return sleep(ctx, s.delays.KeyReleaseDelay)
}

// Element waits for the element at xpath to be present and returns it.
func (s *Session) Element(ctx context.Context, xpath string) (browser.Element, error) {
	return s.waitPresence(ctx, xpath)
}

// AttrFromElement waits for the element at xpath and returns attribute attr.
func (s *Session) AttrFromElement(ctx context.Context, xpath, attr string) (string, error) {
	el, err := s.waitPresence(ctx, xpath)
	if err != nil {
		return "", err
	}
	return el.Attribute(ctx, attr)
}

// WriteInElement waits for the element at xpath and sets its value to input.
func (s *Session) WriteInElement(ctx context.Context, xpath, input string) (browser.Element, error) {
	el, err := s.waitPresence(ctx, xpath)
	if err != nil {
		return nil, err
	}
	if err := el.SetValue(ctx, input); err != nil {
		return nil, err
	}
	return el, nil
}

// ClickElement waits until the element at xpath is clickable and clicks it.
func (s *Session) ClickElement(ctx context.Context, xpath string) (browser.Element, error) {
	el, err := s.waitClickable(ctx, xpath)
	if err != nil {
		return nil, err
	}
	if err := el.Click(ctx); err != nil {
		return nil, err
	}
	return el, nil
}

// SelectInElement waits for the <select> at xpath and for an option with the
// given text, then selects it unless ignoreSelection is set.
func (s *Session) SelectInElement(ctx context.Context, xpath, option string, ignoreSelection bool) (browser.Element, error) {
	el, err := s.waitClickable(ctx, xpath)
	if err != nil {
		return nil, err
	}
	if _, err := s.waitPresence(ctx, OptionXPath(option)); err != nil {
		return nil, err
	}
	if !ignoreSelection {
		if err := el.SelectOption(ctx, option); err != nil {
			return nil, err
		}
	}
	return el, nil
}

// PickTableAsElement waits for the table at xpath and returns its first
// descendant with tag sliceTag.
func (s *Session) PickTableAsElement(ctx context.Context, xpath, sliceTag string) (browser.Element, error) {
	table, err := s.waitPresence(ctx, xpath)
	if err != nil {
		return nil, err
	}
	return table.FindElement(ctx, browser.ByTagName, sliceTag)
}

// WaitPage waits until document.readyState is "complete". A timeout is fatal.
func (s *Session) WaitPage(ctx context.Context) error {
	if err := s.waiter.Until(ctx, "document ready", s.documentReady()); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return s.fail(err)
		}
		return err
	}
	return nil
}

// ClosePage closes the current window.
func (s *Session) ClosePage(ctx context.Context) error {
	handle, herr := s.driver.CurrentWindow(ctx)
	if err := s.driver.CloseWindow(ctx); err != nil {
		return err
	}
	if herr == nil {
		s.logger.Debug("Window closed.", zap.String("handle", handle))
	}
	return nil
}

// PickWindow waits until exactly windows windows are open, switches to the
// one at index and waits for it to load. Every failure is fatal.
func (s *Session) PickWindow(ctx context.Context, index, windows int) error {
	if index < 0 || index >= windows {
		return s.fail(browser.WrapError("pick window", browser.CodeNoSuchWindow,
			fmt.Errorf("window index %d out of range for %d windows", index, windows)))
	}

	if err := s.waiter.Until(ctx, fmt.Sprintf("%d open windows", windows), s.numberOfWindows(windows)); err != nil {
		return s.fail(err)
	}

	handles, err := s.driver.WindowHandles(ctx)
	if err != nil {
		return s.fail(err)
	}
	if index >= len(handles) {
		return s.fail(browser.WrapError("pick window", browser.CodeNoSuchWindow,
			fmt.Errorf("window index %d out of range for %d handles", index, len(handles))))
	}
	if err := s.driver.SwitchWindow(ctx, handles[index]); err != nil {
		return s.fail(err)
	}
	s.logger.Debug("Switched window.", zap.Int("index", index), zap.String("handle", handles[index]))
	return s.WaitPage(ctx)
}

// sleep pauses for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
