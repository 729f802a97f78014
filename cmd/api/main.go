package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/kanban/cmd/api/commands"
)

// @title Kanban API
// @version 1.0
// @description Boards, lists and cards with drag-and-drop reordering

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "kanban",
		Short:         "Kanban API server",
		Long:          `Kanban serves boards, lists and cards for a drag-and-drop board client and ships a small CLI client for the same API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewBoardCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
