package main

import (
	"bufio"
	"fmt"
	"strings"

	"redeem/internal/scan"
	"redeem/internal/verifyclient"

	"github.com/spf13/cobra"
)

func newApproveCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "approve <code>",
		Short: "Mark a verified redemption as fulfilled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			code, err := scan.Normalize(args[0])
			if err != nil {
				return fmt.Errorf("not a redemption code: %w", err)
			}

			if cfg.ConfirmApprove && !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Fulfil %s? This cannot be undone. [y/N] ", code)
				answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read confirmation: %w", err)
				}
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted; nothing changed.")
					return nil
				}
			}

			client := verifyclient.New(cfg.ServerURL, cfg.Token, cfg.VerifyTimeoutDuration())
			result := client.Approve(cmd.Context(), code)

			out := cmd.OutOrStdout()
			switch result.Outcome {
			case verifyclient.ApproveFulfilled:
				fmt.Fprintln(out, "APPROVED: redemption fulfilled")
				fmt.Fprintln(out, renderRecord(result.Record))
				return nil
			case verifyclient.ApproveAlreadyFulfilled:
				fmt.Fprintln(out, "Already fulfilled; nothing changed.")
				return nil
			case verifyclient.ApproveNetworkFailure:
				return fmt.Errorf("could not reach the server, try again: %w", result.Err)
			default:
				return fmt.Errorf("rejected: %s", result.Reason)
			}
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
