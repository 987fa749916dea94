package browser

import "strings"

// LaunchOptions carries everything an engine needs to start a session.
type LaunchOptions struct {
	Browser  Name
	Headless bool
	// DriverPath is the WebDriver service binary. Empty means look it up on PATH.
	DriverPath string
	// DriverPort is the service port; 0 picks a free one.
	DriverPort int
	// RemoteURL dials an existing WebDriver endpoint instead of starting one.
	RemoteURL string
	// BinaryPath overrides the browser executable.
	BinaryPath string
	// Args are extra browser flags appended after the common ones.
	Args []string
}

// Flags every Chromium and Firefox session is started with.
var commonArgs = []string{"--start-maximized", "--log-level=OFF"}

// LaunchArgs returns the command-line flags a browser is started with: the
// common flags, the headless flag when requested, then extra. Safari accepts
// no launch options, so it always gets nil. Duplicate flags are dropped.
func LaunchArgs(name Name, headless bool, extra []string) []string {
	if name == Safari {
		return nil
	}

	args := append([]string{}, commonArgs...)
	if headless {
		if name == Firefox {
			args = append(args, "-headless")
		} else {
			args = append(args, "--headless")
		}
	}
	args = append(args, extra...)
	return dedupe(args)
}

// SplitFlag splits "--key=value" into its key (without dashes) and value.
// Flags without a value report "true".
func SplitFlag(arg string) (key, value string) {
	trimmed := strings.TrimLeft(arg, "-")
	if k, v, ok := strings.Cut(trimmed, "="); ok {
		return k, v
	}
	return trimmed, "true"
}

func dedupe(args []string) []string {
	seen := make(map[string]bool, len(args))
	out := args[:0]
	for _, a := range args {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
