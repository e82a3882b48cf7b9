// Package commands implements the escrowctl command tree.
package commands

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	client    *Client
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "escrowctl",
		Short:         "Drive a crowdfunding escrow server",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = &Client{Base: serverURL, HTTP: &http.Client{Timeout: 10 * time.Second}}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "escrow server base URL")

	root.AddCommand(statusCmd(), contributeCmd(), refundCmd(), fundCmd(), balanceCmd(), advanceCmd())
	return root
}
