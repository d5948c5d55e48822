// Package browser runs the portal in a Chrome tab driven over CDP.
package browser

import (
	"sort"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/autopermit/internal/config"
)

// allocatorFlags translates the browser config into Chrome command line
// flags. A false value removes a flag that chromedp enables by default.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		// Required on hardened hosts and in containers.
		"no-sandbox":            true,
		"disable-dev-shm-usage": true,
		"headless":              cfg.Headless,
		"hide-scrollbars":       cfg.Headless,
		"mute-audio":            cfg.Headless,
		"disable-gpu":           cfg.DisableGPU,
	}

	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		// Handle key=value flags
		if key, value, ok := strings.Cut(arg, "="); ok {
			flags[key] = value
			continue
		}
		flags[arg] = true
	}
	return flags
}

// allocatorOptions builds the chromedp exec allocator options for cfg.
func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)

	flags := allocatorFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	return opts
}
