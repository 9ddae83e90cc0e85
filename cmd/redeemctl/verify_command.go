package main

import (
	"errors"
	"fmt"

	"redeem/internal/scan"
	"redeem/internal/verifyclient"

	"github.com/spf13/cobra"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <code-or-scan-text>",
		Short: "Verify a redemption code without consuming it",
		Long: "Verify accepts a bare code, a verify-page URL or the raw text " +
			"a scanner produced, normalizes it and asks the server to classify it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			code, err := scan.Normalize(args[0])
			if err != nil {
				return fmt.Errorf("not a redemption code: %w", err)
			}

			client := verifyclient.New(cfg.ServerURL, cfg.Token, cfg.VerifyTimeoutDuration())
			result := client.Verify(cmd.Context(), code)

			out := cmd.OutOrStdout()
			switch result.Outcome {
			case verifyclient.OutcomeVerified:
				fmt.Fprintln(out, "VERIFIED: ready for approval")
				fmt.Fprintln(out, renderRecord(result.Record))
				return nil
			case verifyclient.OutcomeAlreadyUsed:
				fmt.Fprintln(out, "ALREADY USED: original transaction below")
				fmt.Fprintln(out, renderRecord(result.Record))
				return nil
			case verifyclient.OutcomeForeignMerchant:
				return errors.New("this code belongs to another merchant")
			case verifyclient.OutcomeNetworkFailure:
				return fmt.Errorf("could not reach the server, try again: %w", result.Err)
			default:
				return fmt.Errorf("rejected: %s", result.Reason)
			}
		},
	}
}
