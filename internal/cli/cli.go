package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/modkit/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("modkit", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Modkit - a dependency-aware plugin loader for embedded module trees.

Usage:
  modkit [options] [ROOT_PATH]

Arguments:
  ROOT_PATH
    Path to the module tree root directory.

Options:
`)
		flagSet.PrintDefaults()
	}

	rootFlag := flagSet.String("root", "", "Path to the module tree root directory.")
	namespaceFlag := flagSet.String("namespace", "", "Root module name. Defaults to the root directory's base name.")
	patternsFlag := flagSet.String("patterns", "*", "Comma-separated dotted-name patterns selecting submodules.")
	hostVersionFlag := flagSet.String("host-version", "", "Host version checked against manifest requires_host constraints.")
	policyFlag := flagSet.String("policy", "", "Path to a YAML bucket-policy file for the cycle fallback.")
	forceOrderFlag := flagSet.String("force-order", "", "Comma-separated module names; bypasses the dependency sorter.")
	strictFlag := flagSet.Bool("strict", false, "Treat dangling manifest references as hard errors.")
	debugGraphFlag := flagSet.Bool("debug-graph", false, "Write a Mermaid dependency diagram under <root>/debug/.")
	watchFlag := flagSet.Bool("watch", false, "Keep running and reload the tree on filesystem changes.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *rootFlag != "" {
		path = *rootFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Root path determined.", "path", path)

	if path == "" {
		slog.Debug("No root path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		RootPath:    path,
		Namespace:   *namespaceFlag,
		Patterns:    splitList(*patternsFlag),
		HostVersion: *hostVersionFlag,
		PolicyPath:  *policyFlag,
		ForceOrder:  splitList(*forceOrderFlag),
		Strict:      *strictFlag,
		DebugGraph:  *debugGraphFlag,
		Watch:       *watchFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// splitList parses a comma-separated flag value, trimming whitespace and
// dropping empty items.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
