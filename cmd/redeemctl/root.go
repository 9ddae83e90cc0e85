package main

import (
	"redeem/internal/operator"

	"github.com/spf13/cobra"
)

// commandContext carries lazily-loaded configuration shared by all
// subcommands.
type commandContext struct {
	configFlag *string
	cfg        *operator.Config
}

func (c *commandContext) ensureConfig() (*operator.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := *c.configFlag
	if path == "" {
		path = operator.DefaultPath()
	}
	cfg, err := operator.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) configPath() string {
	if *c.configFlag != "" {
		return *c.configFlag
	}
	return operator.DefaultPath()
}

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "redeemctl",
		Short:         "Merchant-side redemption check-in console",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newLoginCommand(ctx))
	rootCmd.AddCommand(newVerifyCommand(ctx))
	rootCmd.AddCommand(newApproveCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))

	return rootCmd
}
