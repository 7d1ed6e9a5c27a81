package admin

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/aspire-solutions/councilkb/internal/config"
	"github.com/aspire-solutions/councilkb/internal/database"
	"github.com/aspire-solutions/councilkb/internal/repository"
	"github.com/spf13/cobra"
)

// ChunksCmd returns the chunks inspection command
func ChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Show the active chunk inventory for a tenant",
		RunE:  runChunks,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant identifier (required)")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func runChunks(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tenant, _ := cmd.Flags().GetString("tenant")

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	chunkRepo := repository.NewKnowledgeChunkRepository(pool)
	counts, err := chunkRepo.CountBySection(ctx, tenant)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	if len(counts) == 0 {
		fmt.Printf("no active chunks for tenant %s\n", tenant)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tKIND\tCOUNT")
	total := 0
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%s\t%d\n", c.Section, c.Kind, c.Count)
		total += c.Count
	}
	fmt.Fprintf(w, "total\t\t%d\n", total)
	return w.Flush()
}
