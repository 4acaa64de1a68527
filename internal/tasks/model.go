package tasks

import (
	"time"

	"jar-translator/internal/scheduler"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusReview     Status = "review"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task is one archive translation job. The credential and storage keys are
// never serialized.
type Task struct {
	ID               string           `json:"task_id"`
	Status           Status           `json:"status"`
	Filename         string           `json:"filename"`
	TargetLang       string           `json:"target_lang"`
	Model            string           `json:"ai_model"`
	TotalBatches     int              `json:"total_batches"`
	CompletedBatches int              `json:"completed_batches"`
	ProgressPct      int              `json:"progress_pct"`
	ETASeconds       int              `json:"eta_seconds"`
	TotalStrings     int              `json:"total_strings"`
	ChangedStrings   int              `json:"changed_strings"`
	FailedBatches    int              `json:"failed_batches"`
	TranslationPairs []scheduler.Pair `json:"translation_pairs,omitempty"`
	OutputFile       string           `json:"output_file,omitempty"`
	Error            string           `json:"error,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	StartTime        *time.Time       `json:"start_time,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`

	SourceKey  string `json:"-"`
	OutputKey  string `json:"-"`
	Credential string `json:"-"`
	ClientID   string `json:"-"`
}

// Preview lists the candidate strings of an archive without translating them.
type Preview struct {
	TaskID   string   `json:"task_id"`
	Filename string   `json:"filename"`
	Strings  []string `json:"strings"`
	Total    int      `json:"total"`
}
