package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewAuthCommand fetches a token eagerly and caches it in the token store.
func NewAuthCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate against the container and cache the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.clientSecret() == "" {
				secret, err := promptSecret(cmd, "Client secret: ")
				if err != nil {
					return err
				}
				opts.ClientSecret = secret
			}

			client, cleanup, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := client.Authenticate(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("authenticated")
			return nil
		},
	}
}

// promptSecret reads a secret without echo when stdin is a terminal and
// falls back to a plain line read otherwise (pipes, tests).
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	var secret string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &secret); err != nil {
		return "", err
	}
	return secret, nil
}
