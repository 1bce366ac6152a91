// Package flagx contains helpers for cooperating flag parsers. Several
// packages define their own flag sets over the same os.Args, so each one
// filters the arguments down to the flags it owns before parsing.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns only the arguments belonging to the allowed flags.
// Both `-f value` and `--flag=value` forms are recognized. A token after an
// allowed flag is treated as its value unless it starts with a dash.
func FilterArgs(args []string, allowed []string) []string {
	set := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		set[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := set[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}
		if _, ok := set[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}

// JsonConfigFlags extracts the config file path given via -c or -config.
// Returns "" when neither flag is present. Other flags are ignored so the
// caller's own flag set stays unaffected.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "path to config file")
	fs.StringVar(&config, "c", "", "path to config file (short)")
	_ = fs.Parse(args)

	return config
}
