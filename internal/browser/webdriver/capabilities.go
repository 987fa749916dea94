package webdriver

import (
	"fmt"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

// edgeOptionsKey is the vendor capability msedgedriver reads its options from.
const edgeOptionsKey = "ms:edgeOptions"

// driverBinaries maps each browser to the WebDriver service it is driven by.
var driverBinaries = map[browser.Name]string{
	browser.Chrome:  "chromedriver",
	browser.Edge:    "msedgedriver",
	browser.Firefox: "geckodriver",
	browser.Safari:  "safaridriver",
}

// Capabilities builds the session capabilities for opts.Browser.
func Capabilities(opts browser.LaunchOptions) (selenium.Capabilities, error) {
	args := browser.LaunchArgs(opts.Browser, opts.Headless, opts.Args)

	switch opts.Browser {
	case browser.Chrome:
		caps := selenium.Capabilities{"browserName": "chrome"}
		caps.AddChrome(chrome.Capabilities{Args: args, Path: opts.BinaryPath, W3C: true})
		return caps, nil

	case browser.Edge:
		edge := map[string]interface{}{"args": args}
		if opts.BinaryPath != "" {
			edge["binary"] = opts.BinaryPath
		}
		return selenium.Capabilities{
			"browserName":  "MicrosoftEdge",
			edgeOptionsKey: edge,
		}, nil

	case browser.Firefox:
		caps := selenium.Capabilities{"browserName": "firefox"}
		caps.AddFirefox(firefox.Capabilities{Args: args, Binary: opts.BinaryPath})
		return caps, nil

	case browser.Safari:
		// safaridriver rejects vendor options.
		return selenium.Capabilities{"browserName": "safari"}, nil
	}
	return nil, fmt.Errorf("%w: %q", browser.ErrUnsupportedBrowser, opts.Browser)
}

// urlPrefix returns the base URL of a locally started driver service.
// tebeka/selenium starts chromedriver-style services under /wd/hub and
// geckodriver-style services at the root.
func urlPrefix(name browser.Name, port int) string {
	if name.Chromium() {
		return fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port)
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}
