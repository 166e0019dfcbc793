package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newCreateProposalCmd() *cobra.Command {
	var proposerID, description string
	cmd := &cobra.Command{
		Use:   "create-proposal",
		Short: "Open a new proposal for voting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/proposals", map[string]string{
				"proposerId":  proposerID,
				"description": description,
			})
		},
	}
	cmd.Flags().StringVar(&proposerID, "proposer", "", "Proposer identity ID")
	cmd.Flags().StringVar(&description, "description", "", "What is being proposed")
	cmd.MarkFlagRequired("proposer")
	cmd.MarkFlagRequired("description")
	return cmd
}

func newVoteCmd() *cobra.Command {
	var voterID, choice string
	cmd := &cobra.Command{
		Use:   "vote PROPOSAL_ID",
		Short: "Cast or replace a vote on an open proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/proposals/%s/votes", args[0]),
				map[string]string{"voterId": voterID, "choice": choice})
		},
	}
	cmd.Flags().StringVar(&voterID, "voter", "", "Voter identity ID")
	cmd.Flags().StringVar(&choice, "choice", "", "APPROVE or REJECT")
	cmd.MarkFlagRequired("voter")
	cmd.MarkFlagRequired("choice")
	return cmd
}

func newTallyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tally PROPOSAL_ID",
		Short: "Close a proposal, record the outcome and anchor it to the chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/proposals/%s/tally", args[0]), nil)
		},
	}
}
