package rod

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	rodcdp "github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

// element is a browser.Element backed by a rod.Element.
type element struct {
	el *rod.Element
}

var _ browser.Element = (*element)(nil)

func (e *element) Click(ctx context.Context) error {
	return mapError("click", e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

// SendKeys types plain text with Input and WebDriver key code points as key
// presses.
func (e *element) SendKeys(ctx context.Context, keys string) error {
	el := e.el.Context(ctx)
	for _, chunk := range splitKeys(keys) {
		var err error
		if chunk.key != nil {
			err = el.Type(*chunk.key)
		} else {
			err = el.Input(chunk.text)
		}
		if err != nil {
			return mapError("send keys", err)
		}
	}
	return nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	res, err := e.eval(ctx, browser.AttributeFunc, name)
	if err != nil {
		return "", mapError("attribute "+name, err)
	}
	return res.Value.Str(), nil
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	res, err := e.eval(ctx, browser.DisplayedFunc, nil)
	if err != nil {
		return false, mapError("is displayed", err)
	}
	return res.Value.Bool(), nil
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	res, err := e.eval(ctx, browser.EnabledFunc, nil)
	if err != nil {
		return false, mapError("is enabled", err)
	}
	return res.Value.Bool(), nil
}

func (e *element) SetValue(ctx context.Context, value string) error {
	_, err := e.eval(ctx, browser.SetValueFunc, value)
	return mapError("set value", err)
}

func (e *element) SelectOption(ctx context.Context, text string) error {
	res, err := e.eval(ctx, browser.SelectOptionFunc, text)
	if err != nil {
		return mapError("select option", err)
	}
	if !res.Value.Bool() {
		return browser.WrapError("select option", browser.CodeNoSuchElement, fmt.Errorf("no option with text %q", text))
	}
	return nil
}

func (e *element) FindElement(ctx context.Context, by browser.By, value string) (browser.Element, error) {
	el := e.el.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	switch by {
	case browser.ByXPath:
		els, err = el.ElementsX(value)
	case browser.ByTagName, browser.ByCSS:
		els, err = el.Elements(value)
	default:
		return nil, fmt.Errorf("%w: %q", browser.ErrUnsupportedLocator, by)
	}
	return firstElement(value, by, els, err)
}

// eval calls fn(element, arg) with the element bound to this.
func (e *element) eval(ctx context.Context, fn string, arg any) (*proto.RuntimeRemoteObject, error) {
	return e.el.Context(ctx).Eval(elementFunction(fn), arg)
}

func elementFunction(fn string) string {
	return "function(arg) { return (" + fn + ")(this, arg); }"
}

// keyChunk is either a run of text or a single special key.
type keyChunk struct {
	text string
	key  *input.Key
}

var w3cKeys = map[rune]input.Key{
	[]rune(browser.KeyBackspace)[0]: input.Backspace,
	[]rune(browser.KeyTab)[0]:       input.Tab,
	[]rune(browser.KeyReturn)[0]:    input.Enter,
	[]rune(browser.KeyEnter)[0]:     input.Enter,
	[]rune(browser.KeyShift)[0]:     input.ShiftLeft,
	[]rune(browser.KeyControl)[0]:   input.ControlLeft,
	[]rune(browser.KeyAlt)[0]:       input.AltLeft,
	[]rune(browser.KeyEscape)[0]:    input.Escape,
	[]rune(browser.KeySpace)[0]:     input.Space,
	[]rune(browser.KeyPageUp)[0]:    input.PageUp,
	[]rune(browser.KeyPageDown)[0]:  input.PageDown,
	[]rune(browser.KeyEnd)[0]:       input.End,
	[]rune(browser.KeyHome)[0]:      input.Home,
	[]rune(browser.KeyLeft)[0]:      input.ArrowLeft,
	[]rune(browser.KeyUp)[0]:        input.ArrowUp,
	[]rune(browser.KeyRight)[0]:     input.ArrowRight,
	[]rune(browser.KeyDown)[0]:      input.ArrowDown,
	[]rune(browser.KeyDelete)[0]:    input.Delete,
}

func splitKeys(keys string) []keyChunk {
	var (
		out  []keyChunk
		text strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			out = append(out, keyChunk{text: text.String()})
			text.Reset()
		}
	}
	for _, r := range keys {
		if k, ok := w3cKeys[r]; ok {
			flush()
			k := k
			out = append(out, keyChunk{key: &k})
			continue
		}
		text.WriteRune(r)
	}
	flush()
	return out
}

// Protocol error messages that correspond to WebDriver error codes.
var protocolMessages = []struct {
	fragment string
	code     string
}{
	{"No dialog is showing", browser.CodeNoAlert},
	{"No node with given id found", browser.CodeStaleElement},
	{"Could not find node with given id", browser.CodeStaleElement},
	{"Cannot find context with specified id", browser.CodeStaleElement},
	{"No target with given id found", browser.CodeNoSuchWindow},
}

// mapError wraps rod and protocol errors as browser.DriverError.
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
	var notFound *rod.ObjectNotFoundError
	if errors.As(err, &notFound) {
		return browser.WrapError(op, browser.CodeStaleElement, err)
	}

	msg := err.Error()
	var pe *rodcdp.Error
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
