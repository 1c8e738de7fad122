package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportLog records one spreadsheet import
type ImportLog struct {
	ID           string    `bson:"_id" json:"id"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
	Filename     string    `bson:"filename" json:"filename"`
	User         string    `bson:"user" json:"user"`
	RecordsCount int       `bson:"recordsCount" json:"recordsCount"`
	Added        int       `bson:"added" json:"added"`
	Updated      int       `bson:"updated" json:"updated"`
	Warnings     int       `bson:"warnings" json:"warnings"`
}

// NewImportLog creates a log entry with a fresh id
func NewImportLog(filename, user string, records, added, updated, warnings int, at time.Time) *ImportLog {
	return &ImportLog{
		ID:           uuid.New().String(),
		Timestamp:    at.UTC(),
		Filename:     filename,
		User:         user,
		RecordsCount: records,
		Added:        added,
		Updated:      updated,
		Warnings:     warnings,
	}
}

// ExcelHeadersConfigKey is the config document holding the column titles of
// the last imported spreadsheet, carried into database backups
const ExcelHeadersConfigKey = "excel_headers"
