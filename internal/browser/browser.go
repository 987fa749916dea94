// Package browser defines the engine-neutral vocabulary shared by every
// automation backend: browser names, engines, locator strategies, keys and
// the Driver/Element contracts.
package browser

import (
	"fmt"
	"sort"
	"strings"
)

// Name identifies a browser family.
type Name string

const (
	Chrome  Name = "chrome"
	Edge    Name = "edge"
	Firefox Name = "firefox"
	Safari  Name = "safari"
)

// Names lists every supported browser.
var Names = []Name{Chrome, Edge, Firefox, Safari}

// ParseName maps a case-insensitive browser name onto a Name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Names {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedBrowser, s)
}

// Chromium reports whether the browser speaks the DevTools protocol.
func (n Name) Chromium() bool { return n == Chrome || n == Edge }

func (n Name) String() string { return string(n) }

// Engine identifies the library used to drive the browser.
type Engine string

const (
	// WebDriver drives any browser through its W3C WebDriver service.
	WebDriver Engine = "webdriver"
	// CDP drives Chromium browsers directly through chromedp.
	CDP Engine = "cdp"
	// Rod drives Chromium browsers through go-rod.
	Rod Engine = "rod"
)

// Engines lists every supported engine.
var Engines = []Engine{WebDriver, CDP, Rod}

// ParseEngine maps a case-insensitive engine name onto an Engine. An empty
// string selects WebDriver.
func ParseEngine(s string) (Engine, error) {
	e := Engine(strings.ToLower(strings.TrimSpace(s)))
	if e == "" {
		return WebDriver, nil
	}
	for _, known := range Engines {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedEngine, s)
}

// Supports reports whether the engine can drive the given browser.
func (e Engine) Supports(n Name) bool {
	if e == WebDriver {
		return true
	}
	return n.Chromium()
}

func (e Engine) String() string { return string(e) }

// By is a locator strategy.
type By string

const (
	ByXPath   By = "xpath"
	ByTagName By = "tag name"
	ByCSS     By = "css selector"
)

// W3C WebDriver key code points. They can be passed to Element.SendKeys
// directly or mixed with regular text.
const (
	KeyBackspace = "\ue003"
	KeyTab       = "\ue004"
	KeyReturn    = "\ue006"
	KeyEnter     = "\ue007"
	KeyShift     = "\ue008"
	KeyControl   = "\ue009"
	KeyAlt       = "\ue00a"
	KeyEscape    = "\ue00c"
	KeySpace     = "\ue00d"
	KeyPageUp    = "\ue00e"
	KeyPageDown  = "\ue00f"
	KeyEnd       = "\ue010"
	KeyHome      = "\ue011"
	KeyLeft      = "\ue012"
	KeyUp        = "\ue013"
	KeyRight     = "\ue014"
	KeyDown      = "\ue015"
	KeyDelete    = "\ue017"
)

var namedKeys = map[string]string{
	"backspace": KeyBackspace,
	"tab":       KeyTab,
	"return":    KeyReturn,
	"enter":     KeyEnter,
	"shift":     KeyShift,
	"control":   KeyControl,
	"alt":       KeyAlt,
	"escape":    KeyEscape,
	"space":     KeySpace,
	"page_up":   KeyPageUp,
	"page_down": KeyPageDown,
	"end":       KeyEnd,
	"home":      KeyHome,
	"left":      KeyLeft,
	"up":        KeyUp,
	"right":     KeyRight,
	"down":      KeyDown,
	"delete":    KeyDelete,
}

// ParseKey resolves a key name such as "enter" or "page_down" to its code
// point. Single characters are returned as-is.
func ParseKey(name string) (string, error) {
	if k, ok := namedKeys[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	if len([]rune(name)) == 1 {
		return name, nil
	}
	return "", fmt.Errorf("unknown key %q (expected one of %s)", name, strings.Join(KeyNames(), ", "))
}

// KeyNames returns the accepted key names, sorted.
func KeyNames() []string {
	names := make([]string, 0, len(namedKeys))
	for n := range namedKeys {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
