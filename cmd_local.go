package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/stegogram/middleware"
	"github.com/spf13/cobra"
)

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run the terminal ui in this terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		svc, closeServices, err := openServices(ctx)
		if err != nil {
			return err
		}
		defer closeServices()

		m, stop := middleware.NewSessionModel(svc, logger, 0, 0)
		defer stop()

		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("run ui: %w", err)
		}
		return nil
	},
}
