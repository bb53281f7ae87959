package cli

import (
	"github.com/spf13/cobra"
)

// NewInfoCommand shows the container's self-description.
func NewInfoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show container name, capabilities and version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			ctx := cmd.Context()

			support, err := client.Support(ctx)
			if err != nil {
				return err
			}
			info, err := client.Info(ctx)
			if err != nil {
				return err
			}
			version, err := client.Version(ctx)
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]any{
				"name":        info.Name,
				"description": info.Description,
				"version":     version,
				"auth":        support.Auth,
				"scopes":      support.Scopes,
			})
		},
	}
}
