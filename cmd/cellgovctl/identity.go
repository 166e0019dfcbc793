package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newCreateIdentityCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "create-identity",
		Short: "Register a new member identity with a fresh keypair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/identities", map[string]string{"owner": owner})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Human-readable owner label")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func newListIdentitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-identities",
		Short: "List all identities known to this node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, "/api/identities", nil)
		},
	}
}

func newSetIdentityStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-identity-status IDENTITY_ID",
		Short: "Mark an identity ACTIVE or DORMANT; dormant members stop counting toward quorum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/identities/%s/status", args[0]),
				map[string]string{"status": status})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Target status (ACTIVE or DORMANT)")
	cmd.MarkFlagRequired("status")
	return cmd
}

func newIssueCredentialCmd() *cobra.Command {
	var issuerID, subjectID, credType string
	var claims map[string]string
	cmd := &cobra.Command{
		Use:   "issue-credential",
		Short: "Issue a signed credential with per-claim commitments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/credentials", map[string]interface{}{
				"issuerId":  issuerID,
				"subjectId": subjectID,
				"type":      credType,
				"claims":    claims,
			})
		},
	}
	cmd.Flags().StringVar(&issuerID, "issuer", "", "Issuer identity ID")
	cmd.Flags().StringVar(&subjectID, "subject", "", "Subject identity ID")
	cmd.Flags().StringVar(&credType, "type", "membership", "Credential type")
	cmd.Flags().StringToStringVar(&claims, "claim", nil, "Claim field=value (repeatable)")
	cmd.MarkFlagRequired("issuer")
	cmd.MarkFlagRequired("subject")
	return cmd
}

func newVerifyCredentialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-credential CREDENTIAL_ID",
		Short: "Check a credential's signature, commitments and revocation status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/credentials/%s/verify", args[0]), nil)
		},
	}
}

func newDiscloseCmd() *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "disclose CREDENTIAL_ID",
		Short: "Selectively disclose a subset of credential claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/credentials/%s/disclose", args[0]),
				map[string]interface{}{"fields": fields})
		},
	}
	cmd.Flags().StringSliceVar(&fields, "field", nil, "Claim field to disclose (repeatable)")
	cmd.MarkFlagRequired("field")
	return cmd
}

func newRevokeCredentialCmd() *cobra.Command {
	var issuerID string
	cmd := &cobra.Command{
		Use:   "revoke-credential CREDENTIAL_ID",
		Short: "Issue a revocation for a previously issued credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/credentials/%s/revoke", args[0]),
				map[string]string{"issuerId": issuerID})
		},
	}
	cmd.Flags().StringVar(&issuerID, "issuer", "", "Issuer identity ID")
	cmd.MarkFlagRequired("issuer")
	return cmd
}
