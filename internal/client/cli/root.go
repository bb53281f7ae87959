// Package cli implements the semcon command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ownyourdata/semcon/internal/client/config"
	"github.com/ownyourdata/semcon/internal/client/semcon"
	"github.com/ownyourdata/semcon/internal/client/tokenstore"
)

// RootOptions holds global flags shared by all commands. Flag values
// override the config file and environment.
type RootOptions struct {
	cfg *config.Config

	ServerURL    string
	ClientID     string
	ClientSecret string
	TokenDB      string
}

// NewRootCommand creates the root command for the semcon CLI.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	opts := &RootOptions{cfg: cfg}

	cmd := &cobra.Command{
		Use:           "semcon",
		Short:         "Client for semantic containers",
		Long:          "Read, write and query content-addressed records in a semantic container.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ServerURL, "url", "u", "", "container base URL")
	cmd.PersistentFlags().StringVar(&opts.ClientID, "client-id", "", "oauth client id")
	cmd.PersistentFlags().StringVar(&opts.ClientSecret, "client-secret", "", "oauth client secret")
	cmd.PersistentFlags().StringVar(&opts.TokenDB, "token-db", "", "sqlite token cache path")

	cmd.AddCommand(NewWriteCommand(opts))
	cmd.AddCommand(NewReadCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewSchemasCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))

	return cmd
}

func (o *RootOptions) serverURL() string {
	if o.ServerURL != "" {
		return o.ServerURL
	}
	return o.cfg.ServerURL
}

func (o *RootOptions) clientID() string {
	if o.ClientID != "" {
		return o.ClientID
	}
	return o.cfg.ClientID
}

func (o *RootOptions) clientSecret() string {
	if o.ClientSecret != "" {
		return o.ClientSecret
	}
	return o.cfg.ClientSecret
}

func (o *RootOptions) tokenDB() string {
	if o.TokenDB != "" {
		return o.TokenDB
	}
	return o.cfg.TokenDB
}

// newClient builds the container client for a command invocation. The
// returned cleanup closes the token store when one was opened.
func (o *RootOptions) newClient(ctx context.Context) (*semcon.Client, func(), error) {
	cleanup := func() {}

	var tokens tokenstore.Store
	if path := o.tokenDB(); path != "" {
		store, err := tokenstore.OpenSQLiteStore(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		tokens = store
		cleanup = func() { store.Close() }
	}

	client, err := semcon.New(ctx, semcon.Options{
		BaseURL:      o.serverURL(),
		ClientID:     o.clientID(),
		ClientSecret: o.clientSecret(),
		Tokens:       tokens,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return client, cleanup, nil
}

// readBody returns the request body: the literal argument, or stdin when
// the argument is "-" or absent.
func readBody(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 0 && args[0] != "-" {
		return []byte(args[0]), nil
	}
	body, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return body, nil
}

// printJSON renders v indented on the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the CLI.
func Execute() {
	cfg := config.LoadConfig()
	cmd := NewRootCommand(cfg)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
