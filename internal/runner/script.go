// Package runner executes JSON automation scripts against a browser session.
package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/w3automaton/internal/browser"
	"github.com/xkilldash9x/w3automaton/internal/config"
)

// Action names accepted in a script step.
const (
	ActionOpen        = "open"
	ActionReload      = "reload"
	ActionWaitPage    = "wait_page"
	ActionClick       = "click"
	ActionWrite       = "write"
	ActionSelect      = "select"
	ActionAttr        = "attr"
	ActionPressKey    = "press_key"
	ActionAcceptAlert = "accept_alert"
	ActionPickTable   = "pick_table"
	ActionPickWindow  = "pick_window"
	ActionClosePage   = "close_page"
	ActionCloseAll    = "close_all"
	ActionSleep       = "sleep"
)

// Script is an ordered list of steps run against one session.
type Script struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Step is a single action and its parameters. Fields an action does not use
// are ignored.
type Step struct {
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`

	URL    string `json:"url,omitempty"`
	XPath  string `json:"xpath,omitempty"`
	Value  string `json:"value,omitempty"`
	Attr   string `json:"attr,omitempty"`
	Option string `json:"option,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Key    string `json:"key,omitempty"`

	IgnoreSelection bool `json:"ignore_selection,omitempty"`

	Index   int `json:"index,omitempty"`
	Windows int `json:"windows,omitempty"`

	// Timeout applies to accept_alert; Duration to sleep. Both use
	// time.ParseDuration syntax.
	Timeout  string `json:"timeout,omitempty"`
	Duration string `json:"duration,omitempty"`

	// SaveAs names the result of attr steps. It defaults to step_<n>.
	SaveAs string `json:"save_as,omitempty"`

	// Retry reruns a failed step this many extra times.
	Retry int `json:"retry,omitempty"`
}

// LoadScript reads and validates the script at path.
func LoadScript(path string) (*Script, error) {
	var s Script
	if err := config.LoadJSON(path, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks that every step names a known action and carries the
// parameters it needs.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script has no steps")
	}
	for i := range s.Steps {
		if err := s.Steps[i].Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// Validate checks a single step.
func (st *Step) Validate() error {
	if st.Retry < 0 {
		return fmt.Errorf("%s: retry must not be negative", st.Action)
	}

	var missing []string
	need := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}

	switch st.Action {
	case ActionOpen:
		need("url", st.URL)
	case ActionReload, ActionWaitPage, ActionClosePage, ActionCloseAll:
	case ActionClick:
		need("xpath", st.XPath)
	case ActionWrite:
		need("xpath", st.XPath)
	case ActionSelect:
		need("xpath", st.XPath)
		need("option", st.Option)
	case ActionAttr:
		need("xpath", st.XPath)
		need("attr", st.Attr)
	case ActionPressKey:
		need("key", st.Key)
		if st.Key != "" {
			if _, err := browser.ParseKey(st.Key); err != nil {
				return fmt.Errorf("%s: %w", st.Action, err)
			}
		}
	case ActionAcceptAlert:
		if _, err := optionalDuration(st.Timeout); err != nil {
			return fmt.Errorf("%s: timeout: %w", st.Action, err)
		}
	case ActionPickTable:
		need("xpath", st.XPath)
		need("tag", st.Tag)
	case ActionPickWindow:
		if st.Index < 0 || st.Windows <= st.Index {
			return fmt.Errorf("%s: index %d out of range for %d windows", st.Action, st.Index, st.Windows)
		}
	case ActionSleep:
		need("duration", st.Duration)
		if st.Duration != "" {
			d, err := time.ParseDuration(st.Duration)
			if err != nil {
				return fmt.Errorf("%s: duration: %w", st.Action, err)
			}
			if d < 0 {
				return fmt.Errorf("%s: duration must not be negative", st.Action)
			}
		}
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s: missing %s", st.Action, strings.Join(missing, ", "))
	}
	return nil
}

func optionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
