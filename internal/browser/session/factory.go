package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/browser"
	"github.com/xkilldash9x/w3automaton/internal/browser/cdp"
	"github.com/xkilldash9x/w3automaton/internal/browser/rod"
	"github.com/xkilldash9x/w3automaton/internal/browser/webdriver"
	"github.com/xkilldash9x/w3automaton/internal/config"
)

// DriverFactory starts a driver for the given engine.
type DriverFactory func(ctx context.Context, engine browser.Engine, opts browser.LaunchOptions, logger *zap.Logger) (browser.Driver, error)

// NewDriver is the default DriverFactory.
func NewDriver(ctx context.Context, engine browser.Engine, opts browser.LaunchOptions, logger *zap.Logger) (browser.Driver, error) {
	switch engine {
	case browser.WebDriver:
		return webdriver.New(ctx, opts, logger)
	case browser.CDP:
		return cdp.New(ctx, opts, logger)
	case browser.Rod:
		return rod.New(ctx, opts, logger)
	}
	return nil, fmt.Errorf("%w: %q", browser.ErrUnsupportedEngine, engine)
}

// LaunchOptions maps the browser configuration onto engine launch options.
func LaunchOptions(name browser.Name, cfg config.BrowserConfig) browser.LaunchOptions {
	return browser.LaunchOptions{
		Browser:    name,
		Headless:   cfg.Headless,
		DriverPath: cfg.DriverPath,
		DriverPort: cfg.DriverPort,
		RemoteURL:  cfg.RemoteURL,
		BinaryPath: cfg.BinaryPath,
		Args:       append([]string(nil), cfg.Args...),
	}
}
