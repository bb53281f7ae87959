package cli

import (
	"github.com/spf13/cobra"
)

// NewWriteCommand posts an envelope body to the container.
func NewWriteCommand(opts *RootOptions) *cobra.Command {
	var schema string
	var sealSecret string

	cmd := &cobra.Command{
		Use:   "write [json|-]",
		Short: "Write a record (body from argument or stdin)",
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
			if sealSecret != "" {
				body, err = sealBody(body, sealSecret)
				if err != nil {
					return err
				}
			}

			client, cleanup, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := client.PostData(cmd.Context(), body)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().StringVarP(&schema, "schema", "s", "", "schema recorded in meta.schema")
	cmd.Flags().StringVar(&sealSecret, "seal", "", "encrypt the item with this secret before writing")
	return cmd
}
