package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serviceURL string
var debug bool

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cellgovctl",
		Short: "cellgovctl manages a cell node: identities, proposals, deeds and the chain",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
			log.Logger = log.Output(zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: "2006-01-02 15:04:05",
				NoColor:    true,
			})
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				log.Debug().Msg("debug logging enabled")
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	defaultURL := getEnv("CELLGOV_SERVICE_URL", "http://localhost:8080")
	rootCmd.PersistentFlags().StringVar(&serviceURL, "service-url", defaultURL, "Base URL of the cell node")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")

	// Sub-commands
	rootCmd.AddCommand(newCreateIdentityCmd())
	rootCmd.AddCommand(newListIdentitiesCmd())
	rootCmd.AddCommand(newSetIdentityStatusCmd())
	rootCmd.AddCommand(newIssueCredentialCmd())
	rootCmd.AddCommand(newVerifyCredentialCmd())
	rootCmd.AddCommand(newDiscloseCmd())
	rootCmd.AddCommand(newRevokeCredentialCmd())
	rootCmd.AddCommand(newCreateProposalCmd())
	rootCmd.AddCommand(newVoteCmd())
	rootCmd.AddCommand(newTallyCmd())
	rootCmd.AddCommand(newSubmitDeedCmd())
	rootCmd.AddCommand(newVerifyDeedCmd())
	rootCmd.AddCommand(newRaiseScarCmd())
	rootCmd.AddCommand(newSubmitRecoveryCmd())
	rootCmd.AddCommand(newReviewRecoveryCmd())
	rootCmd.AddCommand(newAddEndorsementCmd())
	rootCmd.AddCommand(newComputeScoresCmd())
	rootCmd.AddCommand(newRegisterAccountCmd())
	rootCmd.AddCommand(newRewardCmd())
	rootCmd.AddCommand(newShowChainCmd())
	rootCmd.AddCommand(newVerifyChainCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newEnqueueMessageCmd())

	return rootCmd
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func client() *resty.Client {
	return resty.New().SetBaseURL(serviceURL)
}

// call posts body (nil for GET) and pretty-prints the JSON response.
func call(method, path string, body interface{}) error {
	req := client().R()
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return printJSON(resp.Body())
}

func printJSON(raw []byte) error {
	if len(raw) == 0 {
		fmt.Println("ok")
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
