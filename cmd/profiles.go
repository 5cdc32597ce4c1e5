package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/chatscribe/internal/config"
)

func newProfilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Lists the selector/timing profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), renderProfiles(a.cfg))
			return nil
		},
	}
	cmd.AddCommand(newProfilesShowCmd(a))
	return cmd
}

func newProfilesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Prints one profile as YAML, the active one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.cfg.Extract.Profile
			if len(args) == 1 {
				name = args[0]
			}
			p, err := a.cfg.Profile(name)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(p)
			if err != nil {
				return fmt.Errorf("failed to encode profile: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// renderProfiles draws the profile table. The active profile is starred.
func renderProfiles(cfg *config.Config) string {
	activeName := strings.ToLower(cfg.Extract.Profile)
	if activeName == "" {
		activeName = config.DefaultProfileName
	}

	header := lipgloss.NewStyle().Bold(true)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("", "NAME", "MESSAGES", "CANCEL", "SCROLL")

	for _, name := range cfg.ProfileNames() {
		p := cfg.Profiles[name]
		mark := ""
		if name == activeName {
			mark = "*"
		}
		t.Row(mark, name, p.MessageSelector, p.CancelText, p.ScrollBehavior)
	}
	return t.String() + "\n"
}
