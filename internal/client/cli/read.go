package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ownyourdata/semcon/internal/client/semcon"
)

// NewReadCommand reads records by locator, schema, containment query or
// full listing.
func NewReadCommand(opts *RootOptions) *cobra.Command {
	var (
		dri      string
		id       int64
		schema   string
		format   string
		page     int
		items    int
		all      bool
		query    string
		metaOnly bool
		unseal   string
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read records from the container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			ctx := cmd.Context()

			if dri != "" || id != 0 {
				item, err := client.GetItem(ctx, semcon.Locator{DRI: dri, ID: id}, format)
				if err != nil {
					return err
				}
				if unseal != "" {
					item, err = openSealed(item, unseal)
					if err != nil {
						return err
					}
				}
				return printJSON(cmd, json.RawMessage(item))
			}

			listOpts := semcon.ListOptions{
				Schema:   schema,
				Format:   format,
				Page:     page,
				PageSize: items,
				All:      all,
			}

			var result *semcon.ItemsPage
			switch {
			case query != "":
				var q semcon.Query
				if err := json.Unmarshal([]byte(query), &q); err != nil {
					return err
				}
				result, err = client.QueryItems(ctx, q, listOpts)
			case metaOnly:
				result, err = client.GetMetaItems(ctx, listOpts)
			default:
				result, err = client.GetItems(ctx, listOpts)
			}
			if err != nil {
				return err
			}

			cmd.PrintErrf("page %d/%d, %d item(s) of %d total\n",
				result.Page.CurrentPage, result.Page.TotalPages,
				result.Page.PageItems, result.Page.TotalCount)
			return printJSON(cmd, result.Items)
		},
	}

	cmd.Flags().StringVar(&dri, "dri", "", "read one record by DRI")
	cmd.Flags().Int64Var(&id, "id", 0, "read one record by id")
	cmd.Flags().StringVarP(&schema, "schema", "s", "", "filter by schema")
	cmd.Flags().StringVarP(&format, "format", "f", "", "projection: plain, meta or full")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&items, "items", 0, "items per page")
	cmd.Flags().BoolVar(&all, "all", false, "fetch the full result in one page")
	cmd.Flags().StringVarP(&query, "query", "q", "", "containment query JSON")
	cmd.Flags().BoolVar(&metaOnly, "meta", false, "identity and meta only")
	cmd.Flags().StringVar(&unseal, "unseal", "", "decrypt a sealed record with this secret")

	return cmd
}
