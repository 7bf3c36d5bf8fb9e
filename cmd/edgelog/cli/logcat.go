package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"edgelog/internal/logcat"
	"edgelog/internal/render"
)

func newLogcatCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logcat [driver-id-or-index]",
		Short: "Stream logs from installed drivers",
		Long: "Connect to a hub on the local network and stream live logs from one driver or all of them. " +
			"The first connection to a hub asks you to confirm its certificate fingerprint, " +
			"which is then remembered in the known hubs file.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			output, _ := cmd.Flags().GetString("output")
			if !cmd.Flags().Changed("output") {
				output = env.Settings.Output
			}
			connectTimeout, err := durationFromCmd(cmd, "connect-timeout", env.Settings.ConnectTimeout)
			if err != nil {
				return err
			}
			requestTimeout, err := durationFromCmd(cmd, "request-timeout", env.Settings.RequestTimeout)
			if err != nil {
				return err
			}

			sink, err := render.New(output, env.Stdout, isTerminal(env.Stdout))
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			console := env.console()
			authority, err := env.authorityFromCmd(ctx, cmd, console)
			if err != nil {
				return interrupted(ctx, err)
			}

			var input string
			if len(args) == 1 {
				input = args[0]
			}

			return logcat.Run(ctx, logcat.Options{
				Authority:      authority,
				Authenticator:  env.authenticatorFromCmd(cmd),
				Store:          env.trustStore(),
				Confirmer:      console,
				Prompter:       console,
				Notifier:       console,
				Out:            env.Stderr,
				Sink:           sink,
				Input:          input,
				All:            all,
				ConnectTimeout: connectTimeout,
				RequestTimeout: requestTimeout,
				Logger:         env.Logger,
			})
		},
	}

	cmd.Flags().String("hub-address", "", "IPv4 address of hub with optionally appended port number")
	cmd.Flags().BoolP("all", "a", false, "stream from all installed drivers")
	cmd.Flags().Duration("connect-timeout", 0, "time to wait for the log stream to open (default from settings, 30s)")
	cmd.Flags().Duration("request-timeout", 0, "timeout for hub requests other than the stream (default from settings, 5s)")
	cmd.Flags().StringP("output", "o", "text", "output format: text or json")
	return cmd
}
