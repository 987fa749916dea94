package session

import (
	"context"
	"strings"

	"github.com/xkilldash9x/w3automaton/internal/browser"
	"github.com/xkilldash9x/w3automaton/internal/browser/wait"
)

func (s *Session) waitPresence(ctx context.Context, xpath string) (browser.Element, error) {
	var el browser.Element
	if err := s.waiter.Until(ctx, "presence of "+xpath, s.presenceOf(xpath, &el)); err != nil {
		return nil, err
	}
	return el, nil
}

func (s *Session) waitClickable(ctx context.Context, xpath string) (browser.Element, error) {
	var el browser.Element
	if err := s.waiter.Until(ctx, "clickable "+xpath, s.clickable(xpath, &el)); err != nil {
		return nil, err
	}
	return el, nil
}

// presenceOf holds once an element matches xpath.
func (s *Session) presenceOf(xpath string, out *browser.Element) wait.Condition {
	return func(ctx context.Context) (bool, error) {
		el, err := s.driver.FindElement(ctx, browser.ByXPath, xpath)
		if err != nil {
			return false, err
		}
		*out = el
		return true, nil
	}
}

// clickable holds once the element at xpath is displayed and enabled.
func (s *Session) clickable(xpath string, out *browser.Element) wait.Condition {
	return func(ctx context.Context) (bool, error) {
		el, err := s.driver.FindElement(ctx, browser.ByXPath, xpath)
		if err != nil {
			return false, err
		}
		displayed, err := el.IsDisplayed(ctx)
		if err != nil || !displayed {
			return false, err
		}
		enabled, err := el.IsEnabled(ctx)
		if err != nil || !enabled {
			return false, err
		}
		*out = el
		return true, nil
	}
}

// numberOfWindows holds once exactly n windows are open.
func (s *Session) numberOfWindows(n int) wait.Condition {
	return func(ctx context.Context) (bool, error) {
		handles, err := s.driver.WindowHandles(ctx)
		if err != nil {
			return false, err
		}
		return len(handles) == n, nil
	}
}

// alertPresent holds once a dialog is open, storing its text.
func (s *Session) alertPresent(text *string) wait.Condition {
	return func(ctx context.Context) (bool, error) {
		t, err := s.driver.AlertText(ctx)
		if err != nil {
			return false, err
		}
		*text = t
		return true, nil
	}
}

// documentReady holds once document.readyState is "complete".
func (s *Session) documentReady() wait.Condition {
	return func(ctx context.Context) (bool, error) {
		state, err := s.driver.ExecuteScript(ctx, browser.ReadyStateScript)
		if err != nil {
			return false, err
		}
		return state == "complete", nil
	}
}

// OptionXPath returns the XPath of an <option> whose text is exactly text.
func OptionXPath(text string) string {
	return "//option[text()=" + xpathLiteral(text) + "]"
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings holding both quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
