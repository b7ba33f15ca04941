// ABOUTME: Cobra command for interactive board setup.
// ABOUTME: Launches a bubbletea TUI wizard to pick the API URL and sign in.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/adboard/internal/config"
	"github.com/2389-research/adboard/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect to a listings board",
	Long:  "Interactive wizard to configure the board API URL and sign in.",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	// Save what is on disk, not env or flag overrides.
	cfg, err := config.LoadFile()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(cfg.API.URL, globalSession.UserName())

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	apiURL, _, login := final.Result()
	cfg.API.URL = apiURL
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}

	if login.Token != "" {
		if err := globalSession.Set(login); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", globalSession.UserName())
	}
	return nil
}
