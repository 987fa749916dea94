package webdriver

import (
	"errors"

	"github.com/tebeka/selenium"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

// legacyCodes maps JSON wire protocol status codes, still reported by some
// older drivers, onto W3C error codes.
var legacyCodes = map[int]string{
	7:  browser.CodeNoSuchElement,
	10: browser.CodeStaleElement,
	21: browser.CodeTimeout,
	23: browser.CodeNoSuchWindow,
	27: browser.CodeNoAlert,
	28: browser.CodeScriptTimeout,
}

// mapError wraps a selenium error as a browser.DriverError carrying its
// error code.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return browser.WrapError(op, errorCode(err), err)
}

func errorCode(err error) string {
	var se *selenium.Error
	if !errors.As(err, &se) {
		return ""
	}
	if se.Err != "" {
		return se.Err
	}
	return legacyCodes[se.LegacyCode]
}
