package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bsm/redislock"
	"github.com/spf13/cobra"

	"github.com/artur-silva-empresa/Texdex/internal/application"
	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/internal/infrastructure/export"
	mongoRepo "github.com/artur-silva-empresa/Texdex/internal/infrastructure/mongodb"
	"github.com/artur-silva-empresa/Texdex/internal/infrastructure/redis"
	"github.com/artur-silva-empresa/Texdex/internal/ingest"
	"github.com/artur-silva-empresa/Texdex/pkg/mongodb"
)

type importOptions struct {
	mongoURI  string
	database  string
	redisAddr string
	user      string
	timeout   time.Duration
}

func newImportCmd(opts *globalOptions) *cobra.Command {
	var importOpts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a file into the MongoDB ledger",
		Long: `Merge an ERP spreadsheet or a ledger backup into the ledger, the same
way an upload through the API does. ERP fields are replaced; priorities,
observations, stop reasons and forecasts already in the ledger are kept.

With --redis-addr the import takes the shared import lock and connected
dashboards are notified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, importOpts, args[0])
		},
	}

	defaults := mongodb.DefaultConfig()
	cmd.Flags().StringVar(&importOpts.mongoURI, "mongo-uri", getEnv("MONGODB_URI", defaults.URI), "MongoDB connection string")
	cmd.Flags().StringVar(&importOpts.database, "database", getEnv("MONGODB_DATABASE", defaults.Database), "MongoDB database")
	cmd.Flags().StringVar(&importOpts.redisAddr, "redis-addr", getEnv("REDIS_ADDR", ""), "Redis address for the import lock and notifications")
	cmd.Flags().StringVar(&importOpts.user, "user", cliName, "User recorded in the import log")
	cmd.Flags().DurationVar(&importOpts.timeout, "timeout", 5*time.Minute, "Merge timeout")
	return cmd
}

func runImport(ctx context.Context, stdout, stderr io.Writer, opts *globalOptions, importOpts importOptions, path string) error {
	loc, err := opts.location()
	if err != nil {
		return err
	}
	logger := opts.logger(stderr)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = importOpts.mongoURI
	mongoConfig.Database = importOpts.database
	mongoConfig.MinPoolSize = 0

	client, err := mongodb.NewClient(ctx, mongoConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Close(closeCtx)
	}()

	db := client.Database()
	ledger := mongoRepo.NewOrderRepository(db, nil, logger)

	var lock domain.ImportLock = &application.LocalImportLock{}
	var notifier domain.ChangeNotifier
	if importOpts.redisAddr != "" {
		rdb, err := redis.NewClient(ctx, redis.Config{Addr: importOpts.redisAddr})
		if err != nil {
			return err
		}
		defer rdb.Close()
		lock = redis.NewImportLock(redislock.New(rdb), 0, logger)
		notifier = redis.NewNotificationBus(rdb, redis.DefaultChannel, logger)
	}

	service := application.NewImportService(application.ImportServiceConfig{
		Merge:        application.NewMergeEngine(ledger, logger, nil),
		Decoder:      ingest.NewExcelDecoder(),
		Backups:      export.BackupReader{},
		Normalizer:   ingest.NewNormalizer(loc),
		Configs:      mongoRepo.NewConfigRepository(db, nil),
		ImportLogs:   mongoRepo.NewImportLogRepository(db, nil),
		Lock:         lock,
		Notifier:     notifier,
		Logger:       logger,
		Clock:        func() time.Time { return time.Now().In(loc) },
		MergeTimeout: importOpts.timeout,
	})

	result, err := service.Import(ctx, application.ImportCommand{
		Filename: filepath.Base(path),
		Content:  f,
		User:     importOpts.user,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Imported %s: %d records, %d added, %d updated in %d batches",
		result.Filename, result.Records, result.Added, result.Updated, result.Batches)
	if result.Warnings > 0 {
		fmt.Fprintf(stdout, ", %d parse warnings", result.Warnings)
	}
	fmt.Fprintln(stdout)
	return nil
}
