package cdp

import (
	"runtime"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/w3automaton/internal/browser"
)

// buildAllocatorOptions assembles the exec allocator flags: chromedp's
// defaults, then the common launch args and the user's extra flags. Later
// flags override earlier ones with the same name, so the explicit headless
// flag replaces the default.
func buildAllocatorOptions(opts browser.LaunchOptions) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	if opts.BinaryPath != "" {
		out = append(out, chromedp.ExecPath(opts.BinaryPath))
	}

	out = append(out, chromedp.Flag("headless", opts.Headless))
	for _, arg := range allocatorFlags(opts) {
		out = append(out, chromedp.Flag(arg.name, arg.value))
	}
	return out
}

type flag struct {
	name  string
	value interface{}
}

// allocatorFlags converts the launch args into chromedp flag pairs.
func allocatorFlags(opts browser.LaunchOptions) []flag {
	var flags []flag
	for _, arg := range browser.LaunchArgs(opts.Browser, opts.Headless, opts.Args) {
		key, value := browser.SplitFlag(arg)
		if key == "headless" {
			continue
		}
		if value == "true" {
			flags = append(flags, flag{key, true})
		} else {
			flags = append(flags, flag{key, value})
		}
	}

	// Flags required for running inside containers.
	if runtime.GOOS == "linux" {
		flags = append(flags, flag{"no-sandbox", true}, flag{"disable-dev-shm-usage", true})
	}
	return flags
}
