package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

// Session is the part of session.Session a script drives.
type Session interface {
	Open(ctx context.Context, url string) error
	ReloadPage(ctx context.Context) error
	WaitPage(ctx context.Context) error
	Element(ctx context.Context, xpath string) (browser.Element, error)
	ClickElement(ctx context.Context, xpath string) (browser.Element, error)
	WriteInElement(ctx context.Context, xpath, input string) (browser.Element, error)
	SelectInElement(ctx context.Context, xpath, option string, ignoreSelection bool) (browser.Element, error)
	AttrFromElement(ctx context.Context, xpath, attr string) (string, error)
	PressKey(ctx context.Context, el browser.Element, key string) error
	AcceptAlert(ctx context.Context, timeout time.Duration) (bool, error)
	PickTableAsElement(ctx context.Context, xpath, sliceTag string) (browser.Element, error)
	PickWindow(ctx context.Context, index, windows int) error
	ClosePage(ctx context.Context) error
	CloseAll(ctx context.Context) error
}

// Result collects what a run produced.
type Result struct {
	// Values holds attr results keyed by save_as.
	Values map[string]string `json:"values"`
	// Alerts counts accepted dialogs.
	Alerts int `json:"alerts"`
	// Steps counts completed steps.
	Steps int `json:"steps"`
}

// StepError reports which step halted a run.
type StepError struct {
	Index  int
	Action string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner executes scripts against a session.
type Runner struct {
	session Session
	logger  *zap.Logger

	// last is the element produced by the latest element step, the default
	// target of press_key.
	last browser.Element
}

// New returns a Runner driving s.
func New(s Session, logger *zap.Logger) *Runner {
	return &Runner{session: s, logger: logger.Named("runner")}
}

// Run executes the steps of script in order. The first failing step halts the
// run; the partial result is returned alongside a *StepError.
func (r *Runner) Run(ctx context.Context, script *Script) (*Result, error) {
	res := &Result{Values: make(map[string]string)}
	r.last = nil

	r.logger.Info("Running script.", zap.String("script", script.Name), zap.Int("steps", len(script.Steps)))
	for i := range script.Steps {
		st := &script.Steps[i]
		n := i + 1
		log := r.logger.With(zap.Int("step", n), zap.String("action", st.Action))
		if st.Description != "" {
			log = log.With(zap.String("description", st.Description))
		}

		var err error
		for attempt := 0; attempt <= st.Retry; attempt++ {
			if attempt > 0 {
				log.Warn("Retrying step.", zap.Int("attempt", attempt), zap.Error(err))
			}
			if err = ctx.Err(); err != nil {
				break
			}
			if err = r.step(ctx, n, st, res); err == nil || errors.Is(err, context.Canceled) {
				break
			}
		}
		if err != nil {
			log.Error("Step failed.", zap.Error(err))
			return res, &StepError{Index: n, Action: st.Action, Err: err}
		}
		res.Steps++
		log.Debug("Step done.")
	}
	r.logger.Info("Script finished.", zap.String("script", script.Name), zap.Int("values", len(res.Values)))
	return res, nil
}

func (r *Runner) step(ctx context.Context, n int, st *Step, res *Result) error {
	s := r.session
	switch st.Action {
	case ActionOpen:
		return s.Open(ctx, st.URL)
	case ActionReload:
		return s.ReloadPage(ctx)
	case ActionWaitPage:
		return s.WaitPage(ctx)
	case ActionClick:
		return r.keep(s.ClickElement(ctx, st.XPath))
	case ActionWrite:
		return r.keep(s.WriteInElement(ctx, st.XPath, st.Value))
	case ActionSelect:
		return r.keep(s.SelectInElement(ctx, st.XPath, st.Option, st.IgnoreSelection))
	case ActionPickTable:
		return r.keep(s.PickTableAsElement(ctx, st.XPath, st.Tag))
	case ActionAttr:
		v, err := s.AttrFromElement(ctx, st.XPath, st.Attr)
		if err != nil {
			return err
		}
		key := st.SaveAs
		if key == "" {
			key = fmt.Sprintf("step_%d", n)
		}
		res.Values[key] = v
		return nil
	case ActionPressKey:
		key, err := browser.ParseKey(st.Key)
		if err != nil {
			return err
		}
		el := r.last
		if st.XPath != "" {
			if el, err = s.Element(ctx, st.XPath); err != nil {
				return err
			}
		}
		if el == nil {
			return fmt.Errorf("no target element: set xpath or run an element step first")
		}
		return s.PressKey(ctx, el, key)
	case ActionAcceptAlert:
		timeout, err := optionalDuration(st.Timeout)
		if err != nil {
			return err
		}
		ok, err := s.AcceptAlert(ctx, timeout)
		if err != nil {
			return err
		}
		if ok {
			res.Alerts++
		}
		return nil
	case ActionPickWindow:
		return s.PickWindow(ctx, st.Index, st.Windows)
	case ActionClosePage:
		return s.ClosePage(ctx)
	case ActionCloseAll:
		return s.CloseAll(ctx)
	case ActionSleep:
		d, err := time.ParseDuration(st.Duration)
		if err != nil {
			return err
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
	return fmt.Errorf("unknown action %q", st.Action)
}

func (r *Runner) keep(el browser.Element, err error) error {
	if err != nil {
		return err
	}
	r.last = el
	return nil
}
