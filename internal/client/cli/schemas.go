package cli

import (
	"github.com/spf13/cobra"
)

// NewSchemasCommand lists the distinct schema values.
func NewSchemasCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List schema values known to the container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			schemas, err := client.Schemas(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, schemas)
		},
	}
}
