// Package flagx lets several independent loaders share os.Args without
// tripping over each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigEnvName is consulted by ConfigPath when no config flag is given.
const ConfigEnvName = "CONFIG"

// FilterArgs keeps only the flags listed in allowedFlags, together with their
// values. Both "-f value" and "-f=value" forms are understood. A value is the
// next argument when it does not itself start with a dash.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = true
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, found := strings.Cut(arg, "="); found && strings.HasPrefix(arg, "-") {
			if allowed[name] {
				filtered = append(filtered, arg)
			}
			continue
		}

		if !allowed[arg] {
			continue
		}
		filtered = append(filtered, arg)
		if next := i + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			filtered = append(filtered, args[next])
			i = next
		}
	}

	return filtered
}

// ConfigPath returns the JSON config file path from -c/-config, falling back
// to the CONFIG environment variable. Empty means no file.
func ConfigPath() string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(os.Args[1:], []string{"-c", "-config"}))

	if path == "" {
		path = os.Getenv(ConfigEnvName)
	}
	return path
}
