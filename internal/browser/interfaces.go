package browser

import "context"

// Driver is a live browser session. Every engine implements it; the session
// wrapper only ever talks to this interface.
//
// Window handles are opaque strings whose order is the order the browser
// reports. Implementations return errors that match the sentinels in this
// package through errors.Is.
type Driver interface {
	// Navigate loads url in the current window.
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	// ExecuteScript runs script as the body of a function; args are
	// available as arguments[i]. The returned value is JSON-decoded.
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)
	// FindElement returns the first match or an error matching ErrNoSuchElement.
	FindElement(ctx context.Context, by By, value string) (Element, error)

	WindowHandles(ctx context.Context) ([]string, error)
	CurrentWindow(ctx context.Context) (string, error)
	SwitchWindow(ctx context.Context, handle string) error
	// CloseWindow closes the current window.
	CloseWindow(ctx context.Context) error

	// AlertText returns the text of the open dialog or ErrNoAlert.
	AlertText(ctx context.Context) (string, error)
	AcceptAlert(ctx context.Context) error

	// Quit ends the session and releases the browser and driver processes.
	Quit(ctx context.Context) error
}

// Element is a handle to a DOM element.
type Element interface {
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, keys string) error
	Attribute(ctx context.Context, name string) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	// SetValue assigns the element's value property through script. The value
	// is passed as data and never spliced into script source.
	SetValue(ctx context.Context, value string) error
	// SelectOption selects the option of a <select> whose visible text is text.
	SelectOption(ctx context.Context, text string) error
	FindElement(ctx context.Context, by By, value string) (Element, error)
}
