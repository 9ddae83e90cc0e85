package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"redeem/internal/operator"
	"redeem/internal/verifyclient"

	"github.com/spf13/cobra"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Authenticate and store the operator token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			reader := bufio.NewReader(os.Stdin)
			password, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimRight(password, "\r\n")

			token, err := verifyclient.Login(cmd.Context(), cfg.ServerURL, args[0], password, cfg.VerifyTimeoutDuration())
			if err != nil {
				return err
			}

			cfg.Token = token
			if err := operator.Save(ctx.configPath(), cfg); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged in; token stored in", ctx.configPath())
			return nil
		},
	}
}
