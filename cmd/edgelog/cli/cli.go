// Package cli implements the edgelog command tree: streaming live logs from
// a hub, listing its drivers and managing the known hubs cache.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"edgelog/internal/config"
	"edgelog/internal/home"
	"edgelog/internal/hub"
	"edgelog/internal/logging"
	"edgelog/internal/trust"
)

// Env is the process state shared by every command. Logger, Home and
// Settings are filled in before a command runs.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger   *slog.Logger
	Home     home.Dir
	Settings config.Settings
}

// NewEnv returns an Env bound to the process's standard streams.
func NewEnv() *Env {
	return &Env{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// NewRootCommand returns the edgelog command with every subcommand wired in.
func NewRootCommand(env *Env, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "edgelog",
		Short:         "Stream live logs from drivers on a local automation hub",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.setup(cmd)
		},
	}
	cmd.SetIn(env.Stdin)
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)

	cmd.PersistentFlags().String("home", "", "root for settings and known hubs (default: platform config and cache dirs)")
	cmd.PersistentFlags().String("log-level", "warn", "diagnostic log level: debug, info, warn or error")
	cmd.PersistentFlags().String("token", "", "bearer token for the hub (or "+tokenEnv+" env)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	cmd.AddCommand(
		newLogcatCmd(env),
		newDriversCmd(env),
		newKnownHubsCmd(env),
		versionCmd,
	)
	return cmd
}

// setup resolves the home directory, reads the settings file and builds the
// base logger.
func (e *Env) setup(cmd *cobra.Command) error {
	homeFlag, _ := cmd.Flags().GetString("home")
	hd, err := home.Resolve(homeFlag)
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	e.Home = hd

	settings, err := config.Load(hd.SettingsPath())
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	e.Settings = settings

	levelName := settings.LogLevel
	if cmd.Flags().Changed("log-level") {
		levelName, _ = cmd.Flags().GetString("log-level")
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	e.Logger = logging.New(e.Stderr, level)
	e.Logger.Debug("home directory", "config", hd.ConfigDir(), "cache", hd.CacheDir())
	return nil
}

func (e *Env) trustStore() *trust.Store {
	return trust.NewStore(e.Home.KnownHubsPath())
}

func (e *Env) console() *Console {
	return NewConsole(e.Stdin, e.Stderr, isTerminal(e.Stdin))
}

// authorityFromCmd reads --hub-address, falling back to the settings file and
// then to asking the operator.
func (e *Env) authorityFromCmd(ctx context.Context, cmd *cobra.Command, console *Console) (hub.Authority, error) {
	address, _ := cmd.Flags().GetString("hub-address")
	if !cmd.Flags().Changed("hub-address") && e.Settings.HubAddress != "" {
		address = e.Settings.HubAddress
	}
	if address == "" {
		answer, err := console.Input(ctx, "Enter hub IP address with optionally appended port number:", "", func(s string) error {
			_, err := hub.ParseAuthority(s, hub.DefaultPort)
			return err
		})
		if err != nil {
			return hub.Authority{}, fmt.Errorf("hub address: %w", err)
		}
		address = answer
	}
	return hub.ParseAuthority(address, hub.DefaultPort)
}

// durationFromCmd returns the flag value when set on the command line,
// otherwise the settings value.
func durationFromCmd(cmd *cobra.Command, name string, fromSettings time.Duration) (time.Duration, error) {
	if !cmd.Flags().Changed(name) {
		return fromSettings, nil
	}
	d, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("--%s must not be negative", name)
	}
	return d, nil
}

// interrupted drops err when the operator pressed Ctrl-C.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
