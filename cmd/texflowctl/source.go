package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/application"
	"github.com/artur-silva-empresa/Texdex/internal/infrastructure/export"
	"github.com/artur-silva-empresa/Texdex/internal/ingest"
)

// readSource loads the orders of an ERP spreadsheet or a ledger backup.
// Backups carry no parse warnings.
func readSource(path string, loc *time.Location) (*ingest.NormalizeResult, error) {
	name := filepath.Base(path)
	if !application.IsSupportedFile(name) {
		return nil, fmt.Errorf("%s: %s", name, application.UnsupportedFileError(name).Message)
	}

	if application.IsBackupFile(name) {
		orders, headers, err := export.ReadSQLite(path)
		if err != nil {
			return nil, err
		}
		return &ingest.NormalizeResult{Orders: orders, Headers: headers}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := ingest.NewExcelDecoder().Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ingest.NewNormalizer(loc).Normalize(table), nil
}
