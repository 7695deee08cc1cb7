package constants

// JobStatus is the canonical lifecycle status for a processing job.
type JobStatus string

// Stable values (returned verbatim to API callers).
const (
	JobStatusPending    JobStatus = "pending"    // accepted, transformation not started
	JobStatusProcessing JobStatus = "processing" // transformation in flight
	JobStatusCompleted  JobStatus = "completed"  // ISA-Tab artifacts produced
	JobStatusFailed     JobStatus = "failed"     // terminal failure (either phase)
	JobStatusValidating JobStatus = "validating" // dry-run submission in flight
	JobStatusValidated  JobStatus = "validated"  // dry-run submission accepted
	JobStatusSubmitting JobStatus = "submitting" // commit submission in flight
	JobStatusSubmitted  JobStatus = "submitted"  // commit submission accepted
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusFailed, JobStatusValidated, JobStatusSubmitted:
		return true
	}
	return false
}

// InFlight reports whether a stage task currently owns the job record.
func (s JobStatus) InFlight() bool {
	switch s {
	case JobStatusProcessing, JobStatusValidating, JobStatusSubmitting:
		return true
	}
	return false
}
