// Package testutil provides testing utilities and helpers for the fieldwork operations portal.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/tidyops/fieldwork/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			WorkOrderID:    "wo-test",
			SiteID:         "site-test",
			ScheduledStart: TestTime().Add(24 * time.Hour),
		},
	}
}

// WithWorkOrder sets the parent work order.
func (b *JobRequestBuilder) WithWorkOrder(workOrderID string) *JobRequestBuilder {
	b.req.WorkOrderID = workOrderID
	return b
}

// WithSite sets the site.
func (b *JobRequestBuilder) WithSite(siteID string) *JobRequestBuilder {
	b.req.SiteID = siteID
	return b
}

// WithWorker assigns a worker.
func (b *JobRequestBuilder) WithWorker(workerID string) *JobRequestBuilder {
	b.req.AssignedWorkerID = &workerID
	return b
}

// WithScheduledStart sets the scheduled start time.
func (b *JobRequestBuilder) WithScheduledStart(t time.Time) *JobRequestBuilder {
	b.req.ScheduledStart = t
	return b
}

// WithOrigin marks the request as a make-good derived from the given job.
func (b *JobRequestBuilder) WithOrigin(originJobID string) *JobRequestBuilder {
	b.req.OriginJobID = &originJobID
	return b
}

// WithMetadata sets the job metadata.
func (b *JobRequestBuilder) WithMetadata(metadata json.RawMessage) *JobRequestBuilder {
	b.req.Metadata = metadata
	return b
}

// WithMetadataString sets the job metadata from a string.
func (b *JobRequestBuilder) WithMetadataString(metadata string) *JobRequestBuilder {
	b.req.Metadata = json.RawMessage(metadata)
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// CompletionRequestBuilder provides a fluent interface for building SubmitCompletionRequest objects.
type CompletionRequestBuilder struct {
	req *model.SubmitCompletionRequest
}

// NewCompletionRequest creates a builder with a minimal passing checklist and
// one redacted photo covering it.
func NewCompletionRequest(jobID, workerID string) *CompletionRequestBuilder {
	return &CompletionRequestBuilder{
		req: &model.SubmitCompletionRequest{
			JobID:    jobID,
			WorkerID: workerID,
			Checklist: []model.ChecklistResult{
				{Item: "sweep floors", Done: true, RequiresPhoto: true},
			},
			Evidence: []model.Evidence{
				{
					ChecklistItem:    "sweep floors",
					StoragePath:      "evidence/sweep-floors.jpg",
					FileType:         "image/jpeg",
					RedactionApplied: true,
					RedactionType:    model.RedactionBlur,
				},
			},
		},
	}
}

// WithChecklist replaces the checklist.
func (b *CompletionRequestBuilder) WithChecklist(items ...model.ChecklistResult) *CompletionRequestBuilder {
	b.req.Checklist = items
	return b
}

// WithEvidence replaces the evidence set.
func (b *CompletionRequestBuilder) WithEvidence(evidence ...model.Evidence) *CompletionRequestBuilder {
	b.req.Evidence = evidence
	return b
}

// WithNotes sets the free-form notes.
func (b *CompletionRequestBuilder) WithNotes(notes string) *CompletionRequestBuilder {
	b.req.Notes = notes
	return b
}

// Build returns the constructed SubmitCompletionRequest.
func (b *CompletionRequestBuilder) Build() *model.SubmitCompletionRequest {
	return b.req
}

// Checklist item helpers for gate tests.

// DoneItem returns a completed checklist item without a photo requirement.
func DoneItem(name string) model.ChecklistResult {
	return model.ChecklistResult{Item: name, Done: true}
}

// DonePhotoItem returns a completed checklist item that requires photo evidence.
func DonePhotoItem(name string) model.ChecklistResult {
	return model.ChecklistResult{Item: name, Done: true, RequiresPhoto: true}
}

// SkippedItem returns an incomplete checklist item with an explanatory note.
func SkippedItem(name, note string) model.ChecklistResult {
	return model.ChecklistResult{Item: name, Done: false, Note: note}
}

// RedactedPhoto returns evidence metadata for a blurred photo of the given item.
func RedactedPhoto(item string) model.Evidence {
	return model.Evidence{
		ChecklistItem:    item,
		StoragePath:      "evidence/" + item + ".jpg",
		FileType:         "image/jpeg",
		RedactionApplied: true,
		RedactionType:    model.RedactionBlur,
	}
}

// UnredactedPhoto returns evidence metadata that has not been through redaction.
func UnredactedPhoto(item string) model.Evidence {
	return model.Evidence{
		ChecklistItem: item,
		StoragePath:   "evidence/" + item + ".jpg",
		FileType:      "image/jpeg",
		RedactionType: model.RedactionNone,
	}
}

// Common job request presets.

// ScheduledJobRequest creates a job request scheduled at the given time.
func ScheduledJobRequest(scheduledAt time.Time) *model.CreateJobRequest {
	return NewJobRequest().
		WithScheduledStart(scheduledAt).
		Build()
}

// MakeGoodJobRequest creates a request for a make-good visit derived from originJobID.
func MakeGoodJobRequest(originJobID string, scheduledAt time.Time) *model.CreateJobRequest {
	return NewJobRequest().
		WithOrigin(originJobID).
		WithScheduledStart(scheduledAt).
		WithMetadataString(`{"make_good": true}`).
		Build()
}

// WorkOrderFixture returns an in-progress work order with the given id.
func WorkOrderFixture(id, siteID string) *model.WorkOrder {
	return &model.WorkOrder{
		ID:        id,
		ClientID:  "client-test",
		SiteID:    siteID,
		Title:     "Weekly clean",
		Status:    model.WorkOrderInProgress,
		CreatedAt: TestTime(),
		UpdatedAt: TestTime(),
	}
}
