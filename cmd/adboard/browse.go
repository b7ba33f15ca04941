// ABOUTME: Cobra command for the interactive listings browser.
// ABOUTME: Starts a board engine and hands its views to the bubbletea browser.
package main

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/adboard/internal/board"
	"github.com/2389-research/adboard/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse listings interactively",
	Long: `Open a full-screen listings browser.

Type / to search, n and p to page, g to toggle the distance filter around
geo.home, d to delete the selected listing, and q to quit.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

var browseSearch string

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringVarP(&browseSearch, "search", "s", "", "Initial search term")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	// Log lines on stderr would tear the full-screen view.
	logger := globalLogger
	if globalConfig.Log.File == "" {
		logger = slog.New(slog.DiscardHandler)
	}

	engine := newEngine(board.WithInitialSearch(browseSearch), board.WithLogger(logger))
	defer engine.Close()
	engine.Start(ctx)

	var opts []tui.BoardOption
	loc, err := homeLocator()
	if err != nil {
		return err
	}
	if loc != nil {
		opts = append(opts, tui.WithLocator(loc, globalConfig.GetRadiusKm()))
	}

	p := tea.NewProgram(tui.NewBoardModel(ctx, engine, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
