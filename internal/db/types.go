package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run stages
const (
	StageDownload = "download"
	StageExtract  = "extract"
	StageTitles   = "titles"
	StageTokenize = "tokenize"
	StageTrain    = "train"
	StagePipeline = "run"
)

// Run represents a corpus run record
type Run struct {
	ID          uuid.UUID       `json:"id"`
	Version     string          `json:"version"`
	Stage       string          `json:"stage"`
	Status      string          `json:"status"`
	Manifest    json.RawMessage `json:"manifest,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
