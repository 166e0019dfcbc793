package main

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newShowChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-chain",
		Short: "Print every entry of the local hash chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, "/api/chain", nil)
		},
	}
}

func newVerifyChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-chain",
		Short: "Recompute every link and report chain integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, "/api/chain/verify", nil)
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync PEER",
		Short: "Deliver all queued messages for a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/sync/%s", args[0]), nil)
		},
	}
}

func newEnqueueMessageCmd() *cobra.Command {
	var sender, recipient, payload string
	cmd := &cobra.Command{
		Use:   "enqueue-message",
		Short: "Queue a message for later delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/messages", map[string]string{
				"sender":    sender,
				"recipient": recipient,
				"payload":   base64.StdEncoding.EncodeToString([]byte(payload)),
			})
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "Sending identity ID")
	cmd.Flags().StringVar(&recipient, "recipient", "", "Peer name to deliver to")
	cmd.Flags().StringVar(&payload, "payload", "", "Message payload")
	cmd.MarkFlagRequired("sender")
	cmd.MarkFlagRequired("recipient")
	cmd.MarkFlagRequired("payload")
	return cmd
}
