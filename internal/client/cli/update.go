package cli

import (
	"github.com/spf13/cobra"

	"github.com/ownyourdata/semcon/internal/client/semcon"
)

// NewUpdateCommand rewrites one record's content.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		dri    string
		id     int64
		schema string
	)

	cmd := &cobra.Command{
		Use:   "update [json|-]",
		Short: "Update a record by --id or --dri (body from argument or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(cmd, args)
			if err != nil {
				return err
			}
			if schema != "" {
				body, err = withSchema(body, schema)
				if err != nil {
					return err
				}
			}

			client, cleanup, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := client.UpdateItem(cmd.Context(), semcon.Locator{DRI: dri, ID: id}, body)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().StringVar(&dri, "dri", "", "record DRI")
	cmd.Flags().Int64Var(&id, "id", 0, "record id")
	cmd.Flags().StringVarP(&schema, "schema", "s", "", "schema recorded in meta.schema")
	cmd.MarkFlagsOneRequired("dri", "id")

	return cmd
}
