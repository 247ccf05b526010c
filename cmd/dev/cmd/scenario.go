package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mklimuk/i2cctl/sim"
)

// ScenarioCmd validates simulator scenario files before they are used in
// tests or demos.
func ScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario FILE...",
		Short: "Validate simulated bus scenarios",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				s, err := sim.LoadScenarioFile(path)
				if err != nil {
					return err
				}
				if _, err := s.Build(sim.NewInterrupts()); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				slog.Info("scenario ok", "file", path, "devices", len(s.Devices))
			}
			return nil
		},
	}
}
