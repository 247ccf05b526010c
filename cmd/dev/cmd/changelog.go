package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

func ChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Generate or update CHANGELOG.md from git history",
		Long: `Generate CHANGELOG.md with git-chglog from conventional commits.

Examples:
  dev changelog
  dev changelog --next v0.2.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return fmt.Errorf("could not get output flag: %w", err)
			}
			next, err := cmd.Flags().GetString("next")
			if err != nil {
				return fmt.Errorf("could not get next flag: %w", err)
			}
			if _, err := exec.LookPath("git-chglog"); err != nil {
				slog.Error("git-chglog not found in PATH, install it with: go install github.com/git-chglog/git-chglog/cmd/git-chglog@latest")
				return fmt.Errorf("git-chglog not installed: %w", err)
			}
			chglogArgs := []string{"--output", output}
			if next != "" {
				chglogArgs = append(chglogArgs, "--next-tag", next)
			}
			slog.Info("running git-chglog", "args", chglogArgs)
			gitChglog := exec.Command("git-chglog", chglogArgs...)
			gitChglog.Stdout = os.Stdout
			gitChglog.Stderr = os.Stderr
			if err := gitChglog.Run(); err != nil {
				return fmt.Errorf("failed to generate changelog: %w", err)
			}
			slog.Info("changelog generated", "output", output)
			return nil
		},
	}
	cmd.Flags().String("next", "", "next version tag (e.g. v0.2.0)")
	cmd.Flags().String("output", "CHANGELOG.md", "output file path")
	return cmd
}
