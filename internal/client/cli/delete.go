package cli

import (
	"github.com/spf13/cobra"

	"github.com/ownyourdata/semcon/internal/client/semcon"
)

// NewDeleteCommand removes one record.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	var (
		dri string
		id  int64
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a record by --id or --dri",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			ref, err := client.DeleteItem(cmd.Context(), semcon.Locator{DRI: dri, ID: id})
			if err != nil {
				return err
			}
			return printJSON(cmd, ref)
		},
	}

	cmd.Flags().StringVar(&dri, "dri", "", "record DRI")
	cmd.Flags().Int64Var(&id, "id", 0, "record id")
	cmd.MarkFlagsOneRequired("dri", "id")

	return cmd
}
