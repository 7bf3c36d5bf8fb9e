package cli

import (
	"context"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"edgelog/internal/logcat"
)

func newDriversCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "List drivers running on a hub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			p, err := newPrinter(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			requestTimeout, err := durationFromCmd(cmd, "request-timeout", env.Settings.RequestTimeout)
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

			drivers, err := logcat.ListDrivers(ctx, logcat.Options{
				Authority:      authority,
				Authenticator:  env.authenticatorFromCmd(cmd),
				Store:          env.trustStore(),
				Confirmer:      console,
				Notifier:       console,
				RequestTimeout: requestTimeout,
				Logger:         env.Logger,
			})
			if err != nil {
				return interrupted(ctx, err)
			}

			if p.isJSON() {
				return p.json(drivers)
			}
			if len(drivers) == 0 {
				console.Warn("No drivers currently installed.")
				return nil
			}
			rows := make([][]string, 0, len(drivers))
			for i, d := range drivers {
				hash := ""
				if d.ArchiveHash != nil {
					hash = *d.ArchiveHash
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), d.DriverID, d.DriverName, d.Status.String(), hash})
			}
			p.table([]string{"#", "Driver Id", "Name", "Status", "Archive Hash"}, rows)
			return nil
		},
	}

	cmd.Flags().String("hub-address", "", "IPv4 address of hub with optionally appended port number")
	cmd.Flags().Duration("request-timeout", 0, "timeout for hub requests (default from settings, 5s)")
	cmd.Flags().StringP("output", "o", "table", "output format: table or json")
	return cmd
}
