package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func TestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run unit tests (simulator backed, no hardware needed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Test(); err != nil {
				return fmt.Errorf("failed to run tests: %w", err)
			}
			return nil
		},
	}
}

func LintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Run linting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Lint(); err != nil {
				return fmt.Errorf("failed to run linting: %w", err)
			}
			return nil
		},
	}
}
