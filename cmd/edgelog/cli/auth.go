package cli

import (
	"os"

	"github.com/spf13/cobra"

	"edgelog/internal/hub"
)

const tokenEnv = "EDGELOG_TOKEN"

// envToken reads the token from EDGELOG_TOKEN if set.
func envToken() string {
	return os.Getenv(tokenEnv)
}

// authenticatorFromCmd picks the bearer token from --token, then
// EDGELOG_TOKEN, then the settings file. No token means no Authorization
// header.
func (e *Env) authenticatorFromCmd(cmd *cobra.Command) hub.Authenticator {
	token, _ := cmd.Flags().GetString("token")
	if !cmd.Flags().Changed("token") {
		token = envToken()
	}
	if token == "" {
		token = e.Settings.Token
	}
	if token == "" {
		return hub.NoAuth()
	}
	return hub.BearerToken(token)
}
