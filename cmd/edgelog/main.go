// Command edgelog streams live driver logs from automation hubs on the local
// network.
//
// Logging:
//   - Base logger is created once the --log-level flag is parsed
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"fmt"
	"os"

	"edgelog/cmd/edgelog/cli"
)

var version = "dev"

func main() {
	env := cli.NewEnv()
	if err := cli.NewRootCommand(env, version).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
