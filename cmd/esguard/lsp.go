package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/santosr2/esguard/internal/lsp"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Start the Language Server Protocol server",
	Long: `Start the esguard Language Server Protocol (LSP) server.

The LSP server communicates via stdin/stdout using the JSON-RPC protocol
as defined by the Language Server Protocol. The workspace
.esguard.yaml is loaded on initialize.

The server provides:
  - Real-time diagnostics for open JavaScript, JSX and Flow files
  - Quick-fix code actions for fixable findings
  - A fix-all code action and document formatting that applies every fix

Example configuration for Neovim (lua):
  vim.lsp.config('esguard', {
    cmd = { "esguard", "lsp" },
    filetypes = { "javascript", "javascriptreact" },
  })`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var logger *log.Logger
		if verbose {
			logger = log.New(os.Stderr, "esguard-lsp: ", log.LstdFlags)
		}
		// An exit without shutdown comes back as lsp.ErrExitWithoutShutdown,
		// which main turns into exit status 1.
		return lsp.NewServer(os.Stdin, os.Stdout, version, logger).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(lspCmd)
}
