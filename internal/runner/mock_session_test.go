package runner

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/w3automaton/internal/browser"
	"github.com/xkilldash9x/w3automaton/internal/browser/session"
)

var _ Session = (*session.Session)(nil)

// mockSession is a testify mock of Session.
type mockSession struct {
	mock.Mock
}

func element(args mock.Arguments, i int) browser.Element {
	if el, ok := args.Get(i).(browser.Element); ok {
		return el
	}
	return nil
}

func (m *mockSession) Open(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *mockSession) ReloadPage(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSession) WaitPage(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSession) Element(ctx context.Context, xpath string) (browser.Element, error) {
	args := m.Called(ctx, xpath)
	return element(args, 0), args.Error(1)
}

func (m *mockSession) ClickElement(ctx context.Context, xpath string) (browser.Element, error) {
	args := m.Called(ctx, xpath)
	return element(args, 0), args.Error(1)
}

func (m *mockSession) WriteInElement(ctx context.Context, xpath, input string) (browser.Element, error) {
	args := m.Called(ctx, xpath, input)
	return element(args, 0), args.Error(1)
}

func (m *mockSession) SelectInElement(ctx context.Context, xpath, option string, ignoreSelection bool) (browser.Element, error) {
	args := m.Called(ctx, xpath, option, ignoreSelection)
	return element(args, 0), args.Error(1)
}

func (m *mockSession) AttrFromElement(ctx context.Context, xpath, attr string) (string, error) {
	args := m.Called(ctx, xpath, attr)
	return args.String(0), args.Error(1)
}

func (m *mockSession) PressKey(ctx context.Context, el browser.Element, key string) error {
	return m.Called(ctx, el, key).Error(0)
}

func (m *mockSession) AcceptAlert(ctx context.Context, timeout time.Duration) (bool, error) {
	args := m.Called(ctx, timeout)
	return args.Bool(0), args.Error(1)
}

func (m *mockSession) PickTableAsElement(ctx context.Context, xpath, sliceTag string) (browser.Element, error) {
	args := m.Called(ctx, xpath, sliceTag)
	return element(args, 0), args.Error(1)
}

func (m *mockSession) PickWindow(ctx context.Context, index, windows int) error {
	return m.Called(ctx, index, windows).Error(0)
}

func (m *mockSession) ClosePage(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSession) CloseAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// stubElement is a browser.Element that records nothing; tests compare it by
// identity.
type stubElement struct {
	browser.Element
	name string
}
