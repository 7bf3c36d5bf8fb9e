package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"edgelog/internal/hub"
)

func newKnownHubsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "known-hubs",
		Aliases: []string{"known-hub"},
		Short:   "Inspect and prune trusted hub certificates",
	}
	cmd.AddCommand(newKnownHubsListCmd(env), newKnownHubsForgetCmd(env))
	return cmd
}

func newKnownHubsListCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List hubs whose certificates are trusted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			p, err := newPrinter(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			hubs, err := env.trustStore().Load()
			if err != nil {
				return fmt.Errorf("load known hubs: %w", err)
			}
			if p.isJSON() {
				return p.json(hubs)
			}

			authorities := make([]string, 0, len(hubs))
			for a := range hubs {
				authorities = append(authorities, a)
			}
			slices.Sort(authorities)
			rows := make([][]string, 0, len(hubs))
			for _, a := range authorities {
				rows = append(rows, []string{a, hubs[a].Fingerprint})
			}
			p.table([]string{"Authority", "Fingerprint"}, rows)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "table", "output format: table or json")
	return cmd
}

func newKnownHubsForgetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <ip[:port]>",
		Short: "Remove a hub from the known hubs so its certificate is confirmed again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			authority, err := hub.ParseAuthority(args[0], hub.DefaultPort)
			if err != nil {
				return err
			}
			removed, err := env.trustStore().Delete(authority.String())
			if err != nil {
				return fmt.Errorf("forget %s: %w", authority, err)
			}
			if !removed {
				return fmt.Errorf("%s is not in the list of known hubs", authority)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from the list of known hubs.\n", authority)
			return nil
		},
	}
}
