package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newAddEndorsementCmd() *cobra.Command {
	var fromID, toID string
	var weight float64
	cmd := &cobra.Command{
		Use:   "add-endorsement",
		Short: "Endorse another member with a positive weight",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/endorsements", map[string]interface{}{
				"fromId": fromID,
				"toId":   toID,
				"weight": weight,
			})
		},
	}
	cmd.Flags().StringVar(&fromID, "from", "", "Endorsing identity ID")
	cmd.Flags().StringVar(&toID, "to", "", "Endorsed identity ID")
	cmd.Flags().Float64Var(&weight, "weight", 1.0, "Endorsement weight, must be positive")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newComputeScoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compute-scores",
		Short: "Compute normalized reputation scores for all members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, "/api/reputation", nil)
		},
	}
}

func newRegisterAccountCmd() *cobra.Command {
	var identityID string
	var initial float64
	cmd := &cobra.Command{
		Use:   "register-account",
		Short: "Open an incentive account for an identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/accounts", map[string]interface{}{
				"identityId":     identityID,
				"initialBalance": initial,
			})
		},
	}
	cmd.Flags().StringVar(&identityID, "identity", "", "Identity ID")
	cmd.Flags().Float64Var(&initial, "initial", 0, "Initial balance")
	cmd.MarkFlagRequired("identity")
	return cmd
}

func newRewardCmd() *cobra.Command {
	var amount float64
	var reason string
	cmd := &cobra.Command{
		Use:   "reward IDENTITY_ID",
		Short: "Credit an identity's account and anchor the reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/accounts/%s/rewards", args[0]),
				map[string]interface{}{"amount": amount, "reason": reason})
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 0, "Amount to credit, must be positive")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the reward is granted")
	cmd.MarkFlagRequired("amount")
	return cmd
}
