package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/acaslabs/mcp-server/constants"
)

// Job is the central record tracking a unit of work from file intake through
// transformation and optional downstream submission. Only the orchestrator
// mutates status, result, submission and error.
type Job struct {
	ID          uuid.UUID           `json:"id"`
	Status      constants.JobStatus `json:"status"`
	Files       []JobFile           `json:"files"`
	Metadata    JobMetadata         `json:"metadata"`
	CreatedBy   string              `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	Result      *JobResult          `json:"result,omitempty"`
	Submission  *SubmissionOutcome  `json:"submission,omitempty"`
	Error       *string             `json:"error,omitempty"`
}

// JobFile describes one uploaded input, set once at creation.
type JobFile struct {
	OriginalName string `json:"originalName"`
	StoredName   string `json:"storedName"`
	StoragePath  string `json:"storagePath"`
	SizeBytes    int64  `json:"sizeBytes"`
	MimeType     string `json:"mimeType"`
}

// JobMetadata is the free-form experimental context supplied at creation.
type JobMetadata struct {
	ExperimentID  string `json:"experimentId,omitempty"`
	ProtocolID    string `json:"protocolId,omitempty"`
	Description   string `json:"description,omitempty"`
	AutoSubmit    bool   `json:"autoSubmit,omitempty"`
	DryRunDefault *bool  `json:"dryRunDefault,omitempty"`
}

// DryRun resolves the metadata-declared submission mode preference (default true).
func (m JobMetadata) DryRun() bool {
	if m.DryRunDefault == nil {
		return true
	}
	return *m.DryRunDefault
}

// JobResult holds the transformation output: the persisted ISA-Tab artifacts
// and the raw transformer response kept for auditability.
type JobResult struct {
	Artifacts   []Artifact `json:"isaTabFiles"`
	RawResponse string     `json:"rawResponse,omitempty"`
}

// Artifact is one produced output document.
type Artifact struct {
	Filename    string `json:"filename"`
	StoragePath string `json:"path"`
}

// SubmissionMode selects between dry-run validation and a persisting commit.
type SubmissionMode string

const (
	ModeDryRun SubmissionMode = "dryRun"
	ModeCommit SubmissionMode = "commit"
)

// SubmissionOutcome records one finished submission attempt.
type SubmissionOutcome struct {
	Mode           SubmissionMode `json:"mode"`
	Success        bool           `json:"success"`
	ACASFile       *Artifact      `json:"acasFile,omitempty"`
	ExperimentCode string         `json:"experimentCode,omitempty"`
	HTMLSummary    string         `json:"htmlSummary,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// PrimaryArtifact returns the designated lead document of the result set,
// identified by the investigation-file naming convention.
func (r *JobResult) PrimaryArtifact() (Artifact, bool) {
	if r == nil {
		return Artifact{}, false
	}
	for _, a := range r.Artifacts {
		if constants.IsPrimaryArtifact(a.Filename) {
			return a, true
		}
	}
	return Artifact{}, false
}

// Clone returns a deep copy so registry readers can never observe a torn record.
func (j Job) Clone() Job {
	out := j
	out.Files = append([]JobFile(nil), j.Files...)
	if j.Metadata.DryRunDefault != nil {
		v := *j.Metadata.DryRunDefault
		out.Metadata.DryRunDefault = &v
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if j.Result != nil {
		res := *j.Result
		res.Artifacts = append([]Artifact(nil), j.Result.Artifacts...)
		out.Result = &res
	}
	if j.Submission != nil {
		sub := *j.Submission
		if j.Submission.ACASFile != nil {
			f := *j.Submission.ACASFile
			sub.ACASFile = &f
		}
		out.Submission = &sub
	}
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	return out
}
