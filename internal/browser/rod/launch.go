package rod

import (
	"os/exec"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

// edgeBinaries are looked up on PATH when Edge is requested without an
// explicit binary path.
var edgeBinaries = []string{"microsoft-edge", "microsoft-edge-stable", "msedge"}

// launchFlag is a browser flag in launcher form. An empty value means a
// switch without a value.
type launchFlag struct {
	name  flags.Flag
	value string
}

// launchFlags converts the launch args into launcher flags. Headless is left
// to Launcher.Headless.
func launchFlags(opts browser.LaunchOptions) []launchFlag {
	var out []launchFlag
	for _, arg := range browser.LaunchArgs(opts.Browser, opts.Headless, opts.Args) {
		key, value := browser.SplitFlag(arg)
		if key == "headless" {
			continue
		}
		if value == "true" {
			value = ""
		}
		out = append(out, launchFlag{name: flags.Flag(key), value: value})
	}
	return out
}

// newLauncher configures a launcher for opts.
func newLauncher(opts browser.LaunchOptions) *launcher.Launcher {
	l := launcher.New().Headless(opts.Headless)

	if bin := browserBinary(opts); bin != "" {
		l = l.Bin(bin)
	}
	for _, f := range launchFlags(opts) {
		if f.value == "" {
			l = l.Set(f.name)
		} else {
			l = l.Set(f.name, f.value)
		}
	}
	return l
}

// browserBinary returns the executable to launch. Empty lets the launcher
// find or download a Chromium build.
func browserBinary(opts browser.LaunchOptions) string {
	if opts.BinaryPath != "" {
		return opts.BinaryPath
	}
	if opts.Browser == browser.Edge {
		for _, name := range edgeBinaries {
			if path, err := exec.LookPath(name); err == nil {
				return path
			}
		}
		return ""
	}
	if path, ok := launcher.LookPath(); ok {
		return path
	}
	return ""
}
