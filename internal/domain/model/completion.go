package model

import (
	"encoding/json"
	"time"
)

// ChecklistResult records one checklist item outcome submitted with a completion.
type ChecklistResult struct {
	Item string `json:"item"`
	Done bool   `json:"done"`
	Note string `json:"note,omitempty"`
	// RequiresPhoto marks items whose evidence must include a photo.
	RequiresPhoto bool `json:"requires_photo,omitempty"`
}

// JobCompletion is the one-to-one completion record a worker submits for a job.
type JobCompletion struct {
	ID          string            `json:"id"           db:"id"`
	JobID       string            `json:"job_id"       db:"job_id"`
	WorkerID    string            `json:"worker_id"    db:"worker_id"`
	Checklist   []ChecklistResult `json:"checklist"    db:"checklist"`
	Notes       string            `json:"notes"        db:"notes"`
	SubmittedAt time.Time         `json:"submitted_at" db:"submitted_at"`
}

// RedactionType identifies the redaction applied to a piece of evidence.
type RedactionType string

const (
	// RedactionBlur indicates faces/identifying regions were blurred.
	RedactionBlur RedactionType = "blur"
	// RedactionCrop indicates identifying regions were cropped out.
	RedactionCrop RedactionType = "crop"
	// RedactionNone indicates no redaction was necessary or applied.
	RedactionNone RedactionType = "none"
)

// Evidence is the stored metadata for a photo/file proving completed work.
// Storage of the bytes themselves is an external concern; only the path is kept.
type Evidence struct {
	ID               string        `json:"id"                 db:"id"`
	CompletionID     string        `json:"completion_id"      db:"completion_id"`
	ChecklistItem    string        `json:"checklist_item"     db:"checklist_item"`
	StoragePath      string        `json:"storage_path"       db:"storage_path"`
	FileType         string        `json:"file_type"          db:"file_type"`
	RedactionApplied bool          `json:"redaction_applied"  db:"redaction_applied"`
	RedactionType    RedactionType `json:"redaction_type"     db:"redaction_type"`
	CreatedAt        time.Time     `json:"created_at"         db:"created_at"`
}

// CompletionSnapshot is the gate's synchronous view of a job's completion state.
// It is assembled from the persisted completion and its evidence set.
type CompletionSnapshot struct {
	Completion *JobCompletion
	Evidence   []Evidence
}

// SubmitCompletionRequest carries a worker's completion submission.
type SubmitCompletionRequest struct {
	JobID     string            `json:"job_id"`
	WorkerID  string            `json:"worker_id"`
	Checklist []ChecklistResult `json:"checklist"`
	Notes     string            `json:"notes,omitempty"`
	Evidence  []Evidence        `json:"evidence,omitempty"`
	Metadata  json.RawMessage   `json:"metadata,omitempty"`
}
