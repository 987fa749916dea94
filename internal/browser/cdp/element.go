package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto"
	cdpproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

// element is a browser.Element bound to a DOM node of one tab.
type element struct {
	d    *Driver
	tab  *tab
	node *cdpproto.Node
}

var _ browser.Element = (*element)(nil)

// find runs a non-waiting query in the tab, optionally scoped to a node.
func (d *Driver) find(ctx context.Context, t *tab, by browser.By, value string, from *cdpproto.Node) (browser.Element, error) {
	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	switch by {
	case browser.ByXPath:
		if from != nil {
			return nil, fmt.Errorf("%w: xpath below an element is not supported by the cdp engine", browser.ErrUnsupportedLocator)
		}
		opts = append(opts, chromedp.BySearch)
	case browser.ByTagName, browser.ByCSS:
		opts = append(opts, chromedp.ByQuery)
	default:
		return nil, fmt.Errorf("%w: %q", browser.ErrUnsupportedLocator, by)
	}
	if from != nil {
		opts = append(opts, chromedp.FromNode(from))
	}

	var nodes []*cdpproto.Node
	if err := runIn(ctx, t.ctx, chromedp.Nodes(value, &nodes, opts...)); err != nil {
		return nil, mapError("find element "+value, err)
	}
	if len(nodes) == 0 {
		return nil, browser.WrapError("find element "+value, browser.CodeNoSuchElement, fmt.Errorf("no element matches %s %q", by, value))
	}
	return &element{d: d, tab: t, node: nodes[0]}, nil
}

func (e *element) ids() []cdpproto.NodeID {
	return []cdpproto.NodeID{e.node.NodeID}
}

func (e *element) Click(ctx context.Context) error {
	if err := runIn(ctx, e.tab.ctx, chromedp.Click(e.ids(), chromedp.ByNodeID)); err != nil {
		return mapError("click", err)
	}
	return nil
}

func (e *element) SendKeys(ctx context.Context, keys string) error {
	if err := runIn(ctx, e.tab.ctx, chromedp.SendKeys(e.ids(), translateKeys(keys), chromedp.ByNodeID)); err != nil {
		return mapError("send keys", err)
	}
	return nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	var v string
	err := e.call(ctx, "attribute "+name, browser.AttributeFunc, name, &v)
	return v, err
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, "is displayed", browser.DisplayedFunc, nil, &ok)
	return ok, err
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, "is enabled", browser.EnabledFunc, nil, &ok)
	return ok, err
}

func (e *element) SetValue(ctx context.Context, value string) error {
	return e.call(ctx, "set value", browser.SetValueFunc, value, nil)
}

func (e *element) SelectOption(ctx context.Context, text string) error {
	var found bool
	if err := e.call(ctx, "select option", browser.SelectOptionFunc, text, &found); err != nil {
		return err
	}
	if !found {
		return browser.WrapError("select option", browser.CodeNoSuchElement, fmt.Errorf("no option with text %q", text))
	}
	return nil
}

func (e *element) FindElement(ctx context.Context, by browser.By, value string) (browser.Element, error) {
	return e.d.find(ctx, e.tab, by, value, e.node)
}

// call invokes fn(element, arg) in the page and decodes the result into out.
// The argument is embedded as a JSON literal, never as script text.
func (e *element) call(ctx context.Context, op, fn string, arg any, out any) error {
	encoded, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("failed to encode %s argument: %w", op, err)
	}
	decl := elementFunction(fn, string(encoded))

	action := chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return browser.WrapError(op, browser.CodeStaleElement, err)
		}
		defer func() { _ = cdpruntime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		res, exc, err := cdpruntime.CallFunctionOn(decl).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exceptionText(exc))
		}
		if out != nil && res != nil && len(res.Value) > 0 {
			return json.Unmarshal([]byte(res.Value), out)
		}
		return nil
	})

	if err := runIn(ctx, e.tab.ctx, action); err != nil {
		return mapError(op, err)
	}
	return nil
}

// elementFunction binds an element helper to `this`.
func elementFunction(fn, encodedArg string) string {
	return "function() { return (" + fn + ")(this, " + encodedArg + "); }"
}

func exceptionText(exc *cdpruntime.ExceptionDetails) string {
	if exc.Exception != nil && exc.Exception.Description != "" {
		return exc.Exception.Description
	}
	return exc.Text
}

func cdpWithBrowser(ctx context.Context, c *chromedp.Context) context.Context {
	return cdpproto.WithExecutor(ctx, c.Browser)
}

// w3cToKB translates WebDriver key code points to chromedp's key strings.
var w3cToKB = strings.NewReplacer(
	browser.KeyBackspace, kb.Backspace,
	browser.KeyTab, kb.Tab,
	browser.KeyReturn, kb.Enter,
	browser.KeyEnter, kb.Enter,
	browser.KeyShift, kb.Shift,
	browser.KeyControl, kb.Control,
	browser.KeyAlt, kb.Alt,
	browser.KeyEscape, kb.Escape,
	browser.KeySpace, " ",
	browser.KeyPageUp, kb.PageUp,
	browser.KeyPageDown, kb.PageDown,
	browser.KeyEnd, kb.End,
	browser.KeyHome, kb.Home,
	browser.KeyLeft, kb.ArrowLeft,
	browser.KeyUp, kb.ArrowUp,
	browser.KeyRight, kb.ArrowRight,
	browser.KeyDown, kb.ArrowDown,
	browser.KeyDelete, kb.Delete,
)

func translateKeys(keys string) string {
	return w3cToKB.Replace(keys)
}

// Protocol error messages that correspond to WebDriver error codes.
var protocolMessages = []struct {
	fragment string
	code     string
}{
	{"No dialog is showing", browser.CodeNoAlert},
	{"No node with given id found", browser.CodeStaleElement},
	{"Could not find node with given id", browser.CodeStaleElement},
	{"No target with given id found", browser.CodeNoSuchWindow},
}

// mapError wraps chromedp and protocol errors as browser.DriverError.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *browser.DriverError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return browser.WrapError(op, browser.CodeTimeout, err)
	}
	if errors.Is(err, chromedp.ErrInvalidTarget) {
		return browser.WrapError(op, browser.CodeNoSuchWindow, err)
	}

	msg := err.Error()
	var pe *cdproto.Error
	if errors.As(err, &pe) {
		msg = pe.Message
	}
	for _, m := range protocolMessages {
		if strings.Contains(msg, m.fragment) {
			return browser.WrapError(op, m.code, err)
		}
	}
	return browser.WrapError(op, "", err)
}
