package models

import "time"

type FileStatus string

const (
	FileProcessed FileStatus = "processed"
	FileSkipped   FileStatus = "skipped"
	FileFailed    FileStatus = "failed"
)

// FileResult reports what one batch did with one uploaded file. Records
// counts records staged for insertion; Duplicates counts records whose
// fingerprint was already known.
type FileResult struct {
	File       string     `json:"file"`
	Status     FileStatus `json:"status"`
	Encoding   string     `json:"encoding,omitempty"`
	Source     string     `json:"source,omitempty"`
	Dialect    string     `json:"dialect,omitempty"`
	Records    int        `json:"records"`
	Duplicates int        `json:"duplicates"`
	Error      string     `json:"error,omitempty"`
}

// BatchSummary is the user-visible outcome of one ingestion batch.
type BatchSummary struct {
	BatchID         string       `json:"batch_id"`
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      time.Time    `json:"finished_at"`
	FilesProcessed  int          `json:"files_processed"`
	FilesSkipped    int          `json:"files_skipped"`
	FilesFailed     int          `json:"files_failed"`
	RecordsIngested int          `json:"records_ingested"`
	Duplicates      int          `json:"duplicates"`
	Files           []FileResult `json:"files"`
}

type EventType string

const (
	EventBatchStarted  EventType = "batch.started"
	EventFileFinished  EventType = "file.finished"
	EventFileSkipped   EventType = "file.skipped"
	EventFileFailed    EventType = "file.failed"
	EventBatchFinished EventType = "batch.finished"
)

// BatchEvent is published while a batch runs.
type BatchEvent struct {
	Type    EventType     `json:"type"`
	BatchID string        `json:"batch_id"`
	Time    time.Time     `json:"time"`
	File    *FileResult   `json:"file,omitempty"`
	Summary *BatchSummary `json:"summary,omitempty"`
	Error   string        `json:"error,omitempty"`
}
