package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aspire-solutions/councilkb/internal/config"
	"github.com/aspire-solutions/councilkb/internal/database"
	"github.com/aspire-solutions/councilkb/internal/openai"
	"github.com/aspire-solutions/councilkb/internal/repository"
	"github.com/aspire-solutions/councilkb/internal/service"
	"github.com/aspire-solutions/councilkb/internal/storage"
	"github.com/aspire-solutions/councilkb/internal/telemetry"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a knowledge document for a tenant",
		Long: `Parse a heading-block knowledge document, embed its chunks and upsert
them for the given tenant. Re-running on an unchanged document is a no-op;
changed sections insert new rows and retire the superseded ones.

The document comes from a local file argument or from S3 via --s3-key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant identifier (required)")
	cmd.Flags().StringP("source", "s", "", "Source label for the document (defaults to the file name)")
	cmd.Flags().String("s3-key", "", "Read the document from this S3 key instead of a local file")
	cmd.Flags().Bool("archive", false, "Archive the raw document to S3 after ingesting")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to embed chunks")
	}

	tenant, _ := cmd.Flags().GetString("tenant")
	source, _ := cmd.Flags().GetString("source")
	s3Key, _ := cmd.Flags().GetString("s3-key")
	archive, _ := cmd.Flags().GetBool("archive")

	var s3Client *storage.S3Client
	if s3Key != "" || archive {
		if !cfg.HasS3() {
			return fmt.Errorf("S3 is not configured (S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY)")
		}
		s3Client, err = storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
	}

	var raw []byte
	switch {
	case s3Key != "":
		raw, err = s3Client.GetDocument(ctx, s3Key)
		if err != nil {
			return fmt.Errorf("failed to read document from S3: %w", err)
		}
		if source == "" {
			source = filepath.Base(s3Key)
		}
	case len(args) == 1:
		raw, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}
		if source == "" {
			source = filepath.Base(args[0])
		}
	default:
		return fmt.Errorf("provide a file argument or --s3-key")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	chunkRepo := repository.NewKnowledgeChunkRepository(pool)
	aiClient := openai.NewClient(cfg.OpenAIAPIKey)
	ingestSvc := service.NewIngestionService(aiClient, chunkRepo)

	spanCtx, span := telemetry.StartSpan(ctx, "ingest.document", telemetry.SpanAttributes{
		TenantID:  tenant,
		Source:    source,
		Operation: "ingest",
	})
	result, err := ingestSvc.Ingest(spanCtx, tenant, source, string(raw))
	if err != nil {
		span.SetError(err)
		span.End()
		return fmt.Errorf("ingest failed: %w", err)
	}
	span.End()

	if archive {
		key := fmt.Sprintf("%s/%s", tenant, source)
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		if meta, err := s3Client.HeadDocument(ctx, key); err == nil && meta.ContentLength == int64(len(raw)) {
			fmt.Printf("archive already current at s3://%s/%s\n", cfg.S3Bucket, key)
		} else {
			if err := s3Client.PutDocument(ctx, key, raw); err != nil {
				return fmt.Errorf("failed to archive document: %w", err)
			}
			fmt.Printf("archived document to s3://%s/%s\n", cfg.S3Bucket, key)
		}
	}

	fmt.Printf("ingested %q for tenant %s: %d blocks, %d chunks, %d inserted, %d retired\n",
		source, tenant, result.Blocks, result.Chunks, result.Inserted, result.Deactivated)
	return nil
}
