// Package cli implements the imgvault command-line client on top of the
// upload pipeline and the server API transport.
package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/imgvault/internal/client/config"
	"github.com/dmitrijs2005/imgvault/internal/client/transport"
)

// CLI carries the shared state of all subcommands.
type CLI struct {
	cfg *config.Config
	out io.Writer
}

func New(cfg *config.Config, out io.Writer) *CLI {
	if out == nil {
		out = os.Stdout
	}
	return &CLI{cfg: cfg, out: out}
}

// RootCmd assembles the command tree.
func (c *CLI) RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "imgvault",
		Short:         "Image hosting client: concurrent uploads, folders, dedup",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&c.cfg.ServerURL, "server", "a", c.cfg.ServerURL, "base URL of the catalog server")

	root.AddCommand(
		c.uploadCmd(),
		c.listCmd(),
		c.deleteCmd(),
		c.foldersCmd(),
		c.dedupCmd(),
		c.statsCmd(),
	)
	return root
}

// api builds a plain API client (no upload metadata attached).
func (c *CLI) api() *transport.Client {
	return transport.New(c.cfg.ServerURL, transport.UploadMeta{},
		transport.WithHTTPClient(&http.Client{Timeout: c.cfg.RequestTimeout}))
}

func (c *CLI) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	cfg := config.LoadConfig()
	return New(cfg, os.Stdout).RootCmd().Execute()
}
