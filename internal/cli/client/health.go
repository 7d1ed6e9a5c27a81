package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HealthCmd returns the health command
func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API server is up",
		RunE:  runHealth,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := apiClient.Get("/health"); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
