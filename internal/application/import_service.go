package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/internal/ingest"
	"github.com/artur-silva-empresa/Texdex/pkg/errors"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/metrics"
)

// ErrEmptyImport is returned when a file holds no importable rows
var ErrEmptyImport = stderrors.New("no valid rows in file")

// DefaultMergeTimeout bounds a merge once it has started writing
const DefaultMergeTimeout = 5 * time.Minute

const maxWarningSamples = 20

// BackupReader reads orders back from a database backup
type BackupReader interface {
	ReadBackup(r io.Reader) ([]*domain.Order, map[string]string, error)
}

// ImportService runs spreadsheet and backup imports into the ledger
type ImportService struct {
	merge        *MergeEngine
	decoder      ingest.Decoder
	backups      BackupReader
	normalizer   *ingest.Normalizer
	configs      domain.ConfigStore
	importLogs   domain.ImportLogStore
	lock         domain.ImportLock
	publisher    domain.EventPublisher
	notifier     domain.ChangeNotifier
	logger       *logging.Logger
	metrics      *metrics.Metrics
	clock        func() time.Time
	mergeTimeout time.Duration
}

// ImportServiceConfig wires an ImportService. Lock, Backups, Publisher and
// Notifier are optional.
type ImportServiceConfig struct {
	Merge        *MergeEngine
	Decoder      ingest.Decoder
	Backups      BackupReader
	Normalizer   *ingest.Normalizer
	Configs      domain.ConfigStore
	ImportLogs   domain.ImportLogStore
	Lock         domain.ImportLock
	Publisher    domain.EventPublisher
	Notifier     domain.ChangeNotifier
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
	Clock        func() time.Time
	MergeTimeout time.Duration
}

// NewImportService creates a new ImportService
func NewImportService(cfg ImportServiceConfig) *ImportService {
	s := &ImportService{
		merge:        cfg.Merge,
		decoder:      cfg.Decoder,
		backups:      cfg.Backups,
		normalizer:   cfg.Normalizer,
		configs:      cfg.Configs,
		importLogs:   cfg.ImportLogs,
		lock:         cfg.Lock,
		publisher:    cfg.Publisher,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		clock:        cfg.Clock,
		mergeTimeout: cfg.MergeTimeout,
	}
	if s.normalizer == nil {
		s.normalizer = ingest.NewNormalizer(time.UTC)
	}
	if s.publisher == nil {
		s.publisher = noopPublisher{}
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.mergeTimeout <= 0 {
		s.mergeTimeout = DefaultMergeTimeout
	}
	return s
}

// IsBackupFile reports whether filename names a database backup rather than a spreadsheet
func IsBackupFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".sqlite", ".db":
		return true
	}
	return false
}

// IsSupportedFile reports whether filename can be imported
func IsSupportedFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".sqlite", ".db":
		return true
	}
	return false
}

// UnsupportedFileError describes why filename cannot be imported. Binary .xls
// workbooks are named separately: only the OOXML formats can be decoded.
func UnsupportedFileError(filename string) *errors.AppError {
	ext := strings.ToLower(filepath.Ext(filename))
	message := "unsupported file type, want .xlsx, .xlsm, .sqlite or .db"
	if ext == ".xls" {
		message = "legacy .xls workbooks are not supported, save the file as .xlsx"
	}
	return errors.ErrValidation(message).WithDetail("extension", ext)
}

// Import decodes, normalizes and merges one file. Once the merge starts it
// runs to completion even if ctx is cancelled.
func (s *ImportService) Import(ctx context.Context, cmd ImportCommand) (*ImportResultDTO, error) {
	start := time.Now()

	if !IsSupportedFile(cmd.Filename) {
		return nil, UnsupportedFileError(cmd.Filename)
	}

	if s.lock != nil {
		release, err := s.lock.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	orders, headers, summary, err := s.read(cmd)
	if err != nil {
		s.recordImport("decode_failed", 0, 0, start)
		s.logger.WithError(err).Warn("Import decode failed", "filename", cmd.Filename, "user", cmd.User)
		return nil, err
	}
	if len(orders) == 0 {
		s.recordImport("empty", 0, 0, start)
		return nil, ErrEmptyImport
	}

	mergeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mergeTimeout)
	defer cancel()

	result, err := s.merge.Merge(mergeCtx, orders)
	if err != nil {
		s.recordImport("merge_failed", 0, 0, start)
		var partial *PartialMergeError
		if stderrors.As(err, &partial) {
			s.logger.WithError(err).Error("Import merge incomplete",
				"filename", cmd.Filename,
				"appliedBatches", partial.AppliedBatches,
				"totalBatches", partial.TotalBatches,
			)
		}
		return nil, err
	}

	now := s.clock()
	if len(headers) > 0 {
		if err := s.configs.SetConfig(mergeCtx, domain.ExcelHeadersConfigKey, headers); err != nil {
			s.logger.WithError(err).Warn("Failed to store spreadsheet headers")
		}
	}

	entry := domain.NewImportLog(cmd.Filename, cmd.User, len(orders), result.Added, result.Updated, len(summary.Warnings), now)
	if err := s.importLogs.Save(mergeCtx, entry); err != nil {
		s.logger.WithError(err).Warn("Failed to save import log", "importId", entry.ID)
	}

	s.recordImport("success", result.Added, result.Updated, start)
	s.logger.Audit(ctx, "import", "orders", entry.ID, cmd.User, map[string]any{
		"filename": cmd.Filename,
		"records":  len(orders),
		"added":    result.Added,
		"updated":  result.Updated,
		"batches":  result.Batches,
		"warnings": len(summary.Warnings),
	})

	if err := s.publisher.Publish(mergeCtx, domain.NewImportCompletedEvent(cmd.User, now, entry)); err != nil {
		s.logger.WithError(err).Warn("Failed to publish import event", "importId", entry.ID)
	}
	notification := domain.Notification{
		Type:      domain.NotificationImportCompleted,
		Message:   fmt.Sprintf("Ledger updated: %d new line(s), %d updated", result.Added, result.Updated),
		User:      cmd.User,
		Data:      map[string]any{"importId": entry.ID, "added": result.Added, "updated": result.Updated},
		Timestamp: now,
	}
	if err := s.notifier.Notify(mergeCtx, notification); err != nil {
		s.logger.WithError(err).Warn("Failed to broadcast import notification")
	}

	dto := &ImportResultDTO{
		ImportID: entry.ID,
		Filename: cmd.Filename,
		Records:  len(orders),
		Added:    result.Added,
		Updated:  result.Updated,
		Batches:  result.Batches,
		Skipped:  summary.Skipped,
		Warnings: len(summary.Warnings),
	}
	if len(summary.Warnings) > 0 {
		n := min(len(summary.Warnings), maxWarningSamples)
		dto.Samples = summary.Warnings[:n]
	}
	return dto, nil
}

// Preview decodes and normalizes a spreadsheet without touching the ledger
func (s *ImportService) Preview(cmd ImportCommand) (*ingest.NormalizeResult, error) {
	if IsBackupFile(cmd.Filename) {
		return nil, errors.ErrBadRequest("preview needs a spreadsheet")
	}
	table, err := s.decoder.Decode(cmd.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", cmd.Filename, err)
	}
	return s.normalizer.Normalize(table), nil
}

func (s *ImportService) read(cmd ImportCommand) ([]*domain.Order, map[string]string, *ingest.NormalizeResult, error) {
	if IsBackupFile(cmd.Filename) {
		if s.backups == nil {
			return nil, nil, nil, errors.ErrBadRequest("database backups cannot be imported here")
		}
		orders, headers, err := s.backups.ReadBackup(cmd.Content)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", ingest.ErrDecodeFailed, err)
		}
		return orders, headers, &ingest.NormalizeResult{Orders: orders, Headers: headers}, nil
	}

	table, err := s.decoder.Decode(cmd.Content)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode %s: %w", cmd.Filename, err)
	}
	result := s.normalizer.Normalize(table)
	return result.Orders, result.Headers, result, nil
}

func (s *ImportService) recordImport(result string, added, updated int, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordImport(result, added, updated, time.Since(start))
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.DomainEvent) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.Notification) error { return nil }

// LocalImportLock serialises imports within one process
type LocalImportLock struct {
	mu sync.Mutex
}

// Acquire takes the lock without waiting
func (l *LocalImportLock) Acquire(context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, domain.ErrImportInProgress
	}
	return l.mu.Unlock, nil
}
