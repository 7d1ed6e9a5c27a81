package main

import (
	"fmt"
	"os"

	"github.com/aspire-solutions/councilkb/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "councilkb",
		Short: "Council knowledge-base CLI",
		Long: `Query a running councilkb server the way the voice agent does.

Environment variables:
  COUNCILKB_API_URL          API base URL (default: http://localhost:8080)
  COUNCILKB_WEBHOOK_SECRET   Shared secret for tool routes, if the server requires one`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	rootCmd.PersistentFlags().String("secret", "", "Webhook shared secret (overrides env)")

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.HealthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
