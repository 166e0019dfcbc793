package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newSubmitDeedCmd() *cobra.Command {
	var ownerID, actionType, description, proofHash string
	cmd := &cobra.Command{
		Use:   "submit-deed",
		Short: "Record a deed awaiting peer verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/deeds", map[string]string{
				"ownerId":     ownerID,
				"actionType":  actionType,
				"description": description,
				"proofHash":   proofHash,
			})
		},
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "Identity that performed the deed")
	cmd.Flags().StringVar(&actionType, "action", "", "Action type, e.g. water_delivery")
	cmd.Flags().StringVar(&description, "description", "", "Free-form description")
	cmd.Flags().StringVar(&proofHash, "proof-hash", "", "Optional hash of external evidence")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("action")
	return cmd
}

func newVerifyDeedCmd() *cobra.Command {
	var verifierID string
	cmd := &cobra.Command{
		Use:   "verify-deed DEED_ID",
		Short: "Verify a pending deed as a second member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/deeds/%s/verify", args[0]),
				map[string]string{"verifierId": verifierID})
		},
	}
	cmd.Flags().StringVar(&verifierID, "verifier", "", "Verifying identity ID")
	cmd.MarkFlagRequired("verifier")
	return cmd
}

func newRaiseScarCmd() *cobra.Command {
	var raiserID, note string
	cmd := &cobra.Command{
		Use:   "raise-scar DEED_ID",
		Short: "Dispute a deed, opening a scar against its owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/deeds/%s/scars", args[0]),
				map[string]string{"raiserId": raiserID, "note": note})
		},
	}
	cmd.Flags().StringVar(&raiserID, "raiser", "", "Identity raising the dispute")
	cmd.Flags().StringVar(&note, "note", "", "Why the deed is disputed")
	cmd.MarkFlagRequired("raiser")
	return cmd
}

func newSubmitRecoveryCmd() *cobra.Command {
	var recovererID, note string
	cmd := &cobra.Command{
		Use:   "submit-recovery SCAR_ID",
		Short: "Submit a recovery deed against an open scar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/scars/%s/recovery", args[0]),
				map[string]string{"recovererId": recovererID, "note": note})
		},
	}
	cmd.Flags().StringVar(&recovererID, "recoverer", "", "Identity attempting recovery")
	cmd.Flags().StringVar(&note, "note", "", "What was done to make amends")
	cmd.MarkFlagRequired("recoverer")
	return cmd
}

func newReviewRecoveryCmd() *cobra.Command {
	var reviewerID string
	var approve bool
	cmd := &cobra.Command{
		Use:   "review-recovery RECOVERY_ID",
		Short: "Approve or reject a pending recovery deed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/recoveries/%s/review", args[0]),
				map[string]interface{}{"reviewerId": reviewerID, "approve": approve})
		},
	}
	cmd.Flags().StringVar(&reviewerID, "reviewer", "", "Reviewing identity ID")
	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the recovery (omit to reject)")
	cmd.MarkFlagRequired("reviewer")
	return cmd
}
