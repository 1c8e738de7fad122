package application

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/internal/ingest"
	apperrors "github.com/artur-silva-empresa/Texdex/pkg/errors"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	pkgtesting "github.com/artur-silva-empresa/Texdex/pkg/testing"
)

type stubDecoder struct {
	table *ingest.Table
	err   error
}

func (d *stubDecoder) Decode(io.Reader) (*ingest.Table, error) {
	return d.table, d.err
}

type stubBackups struct {
	orders  []*domain.Order
	headers map[string]string
}

func (b *stubBackups) ReadBackup(io.Reader) ([]*domain.Order, map[string]string, error) {
	return b.orders, b.headers, nil
}

type importFixture struct {
	ledger    *memoryLedger
	configs   *memoryConfigs
	logs      *memoryImportLogs
	publisher *recordingPublisher
	notifier  *recordingNotifier
	lock      *stubLock
	decoder   *stubDecoder
	backups   *stubBackups
	service   *ImportService
}

func newImportFixture(existing ...*domain.Order) *importFixture {
	f := &importFixture{
		ledger:    newMemoryLedger(existing...),
		configs:   newMemoryConfigs(),
		logs:      &memoryImportLogs{},
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		lock:      &stubLock{},
		decoder:   &stubDecoder{},
		backups:   &stubBackups{},
	}
	f.service = NewImportService(ImportServiceConfig{
		Merge:      NewMergeEngine(f.ledger, logging.NewNop(), nil),
		Decoder:    f.decoder,
		Backups:    f.backups,
		Normalizer: ingest.NewNormalizer(time.UTC),
		Configs:    f.configs,
		ImportLogs: f.logs,
		Lock:       f.lock,
		Publisher:  f.publisher,
		Notifier:   f.notifier,
		Logger:     logging.NewNop(),
		Clock:      pkgtesting.FixedClock(refNow),
	})
	return f
}

func sheet(rows ...map[string]any) *ingest.Table {
	t := &ingest.Table{Header: map[string]string{"B": "Doc.", "F": "Item"}}
	for i, cells := range rows {
		t.Rows = append(t.Rows, ingest.Row{Line: i + 2, Cells: cells})
	}
	return t
}

func TestImportService_Import(t *testing.T) {
	f := newImportFixture(importedOrder("DOC1", 1, func(o *domain.Order) { o.Priority = domain.PriorityHigh }))
	f.decoder.table = sheet(
		map[string]any{"B": "DOC1", "F": 1.0, "P": 50.0, "AA": 50.0, "AC": 50.0},
		map[string]any{"B": "DOC1", "F": 2.0, "P": "12abc"},
		map[string]any{"B": "Doc."},
	)

	result, err := f.service.Import(context.Background(), ImportCommand{Filename: "erp.xlsx", Content: strings.NewReader(""), User: "plan"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Records)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Warnings)
	require.Len(t, result.Samples, 1)

	assert.Equal(t, domain.PriorityHigh, f.ledger.get("DOC1-1").Priority)

	require.Len(t, f.logs.logs, 1)
	entry := f.logs.logs[0]
	assert.Equal(t, result.ImportID, entry.ID)
	assert.Equal(t, "plan", entry.User)
	assert.Equal(t, "erp.xlsx", entry.Filename)
	assert.Equal(t, refNow, entry.Timestamp)

	assert.Equal(t, []string{"texflow.import.completed"}, f.publisher.types())
	assert.Equal(t, []string{domain.NotificationImportCompleted}, f.notifier.typesSeen())
	assert.Equal(t, map[string]string{"B": "Doc.", "F": "Item"}, f.configs.docs[domain.ExcelHeadersConfigKey])
	assert.False(t, f.lock.held)
	assert.Equal(t, 1, f.lock.released)
}

func TestImportService_ImportInProgress(t *testing.T) {
	f := newImportFixture()
	f.lock.held = true

	_, err := f.service.Import(context.Background(), ImportCommand{Filename: "erp.xlsx", Content: strings.NewReader("")})
	assert.ErrorIs(t, err, domain.ErrImportInProgress)
}

func TestImportService_DecodeFailure(t *testing.T) {
	f := newImportFixture()
	f.decoder.err = ingest.ErrDecodeFailed

	_, err := f.service.Import(context.Background(), ImportCommand{Filename: "erp.xlsx", Content: strings.NewReader("")})
	assert.ErrorIs(t, err, ingest.ErrDecodeFailed)
	assert.Empty(t, f.logs.logs)
	assert.Equal(t, 1, f.lock.released)
}

func TestImportService_EmptyFile(t *testing.T) {
	f := newImportFixture()
	f.decoder.table = sheet(map[string]any{"B": "Doc."})

	_, err := f.service.Import(context.Background(), ImportCommand{Filename: "erp.xlsx", Content: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrEmptyImport)
}

func TestImportService_UnsupportedFile(t *testing.T) {
	f := newImportFixture()

	_, err := f.service.Import(context.Background(), ImportCommand{Filename: "erp.csv", Content: strings.NewReader("")})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	assert.Equal(t, ".csv", appErr.Details["extension"])

	t.Run("legacy xls is rejected before decoding", func(t *testing.T) {
		f := newImportFixture()
		f.decoder.table = sheet(map[string]any{"B": "DOC1", "F": 1.0})

		_, err := f.service.Import(context.Background(), ImportCommand{Filename: "ERP.XLS", Content: strings.NewReader("")})
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
		assert.Contains(t, appErr.Message, "save the file as .xlsx")
		assert.Empty(t, f.logs.logs)
		assert.Zero(t, f.lock.released)
	})
}

func TestImportService_MergeFailureWritesNoLog(t *testing.T) {
	f := newImportFixture()
	f.ledger.failBatch = 1
	f.decoder.table = sheet(map[string]any{"B": "DOC1", "F": 1.0})

	_, err := f.service.Import(context.Background(), ImportCommand{Filename: "erp.xlsx", Content: strings.NewReader("")})

	var partial *PartialMergeError
	require.True(t, errors.As(err, &partial))
	assert.Empty(t, f.logs.logs)
	assert.Empty(t, f.publisher.types())
}

func TestImportService_MergeSurvivesCancelledRequest(t *testing.T) {
	f := newImportFixture()
	f.decoder.table = sheet(map[string]any{"B": "DOC1", "F": 1.0})

	ctx, cancel := context.WithCancel(context.Background())
	f.ledger.beforeBatch = func(int) { cancel() }

	result, err := f.service.Import(ctx, ImportCommand{Filename: "erp.xlsx", Content: strings.NewReader("")})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
}

func TestImportService_Backup(t *testing.T) {
	restored := importedOrder("DOC9", 1, func(o *domain.Order) { o.IsManual = true })
	f := newImportFixture()
	f.backups.orders = []*domain.Order{restored}
	f.backups.headers = map[string]string{"B": "Doc."}

	result, err := f.service.Import(context.Background(), ImportCommand{Filename: "TexFlow_DB_06-03-2024.sqlite", Content: strings.NewReader("")})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Added)
	assert.True(t, f.ledger.get("DOC9-1").IsManual)
}

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, IsSupportedFile("a.XLSX"))
	assert.True(t, IsSupportedFile("backup.db"))
	assert.False(t, IsSupportedFile("a.csv"))
	assert.False(t, IsSupportedFile("legacy.xls"))
	assert.True(t, IsBackupFile("b.sqlite"))
	assert.False(t, IsBackupFile("a.xlsx"))
}

func TestLocalImportLock(t *testing.T) {
	var lock LocalImportLock

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	_, err = lock.Acquire(context.Background())
	assert.ErrorIs(t, err, domain.ErrImportInProgress)

	release()
	release2, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}
