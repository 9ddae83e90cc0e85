package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"redeem/internal/scan"
	"redeem/internal/verifyclient"

	"github.com/spf13/cobra"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a check-in session reading scans from stdin",
		Long: "Scan starts a capture session fed by a keyboard-wedge scanner " +
			"(or typed input): each line is treated as one detection. The first " +
			"verified or already-used code resolves the session.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			capture := scan.NewCaptureSession(
				&wedgeSource{in: os.Stdin},
				lineDetector{},
				scan.CaptureConfig{Cadence: cfg.ScanCadenceDuration()},
			)
			client := verifyclient.New(cfg.ServerURL, cfg.Token, cfg.VerifyTimeoutDuration())

			states := make(chan scan.State, 16)
			session := scan.NewSession(capture, client, scan.SessionConfig{
				VerifyTimeout: cfg.VerifyTimeoutDuration(),
				OnChange: func(st scan.State) {
					states <- st
				},
			})
			defer session.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Scan a code (or type it and press Enter). Ctrl-D to quit.")
			session.StartScan(cmd.Context())

			for {
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case st := <-states:
					switch st.Phase {
					case scan.PhaseScanning:
						if st.Notice != "" {
							fmt.Fprintf(out, "rejected: %s (keep scanning)\n", st.Notice)
						}
					case scan.PhaseVerifying:
						fmt.Fprintf(out, "verifying %s ...\n", st.Code)
					case scan.PhaseResolved:
						return resolveScan(out, st)
					}
				}
			}
		},
	}
}

func resolveScan(out io.Writer, st scan.State) error {
	switch st.Resolution {
	case scan.ResolutionSuccess:
		fmt.Fprintln(out, "VERIFIED: ready for approval")
		fmt.Fprintln(out, renderRecord(st.Record))
		fmt.Fprintf(out, "Fulfil with: redeemctl approve %s\n", st.Code)
		return nil
	case scan.ResolutionAlreadyUsed:
		fmt.Fprintln(out, "ALREADY USED: original transaction below")
		fmt.Fprintln(out, renderRecord(st.Record))
		return nil
	default:
		if st.Retryable {
			return fmt.Errorf("network failure: %s, scan again or use 'redeemctl verify'", st.Reason)
		}
		return errors.New(st.Reason + "; manual entry via 'redeemctl verify' is still available")
	}
}
