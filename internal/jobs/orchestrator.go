package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acaslabs/mcp-server/constants"
	"github.com/acaslabs/mcp-server/internal/acas"
	"github.com/acaslabs/mcp-server/internal/artifact"
	"github.com/acaslabs/mcp-server/internal/common"
	"github.com/acaslabs/mcp-server/internal/entity"
	"github.com/acaslabs/mcp-server/internal/llm"
)

// Upload is one inbound file, decoded and size-checked by the caller boundary.
type Upload struct {
	Filename string
	MimeType string
	Content  []byte
}

// Limits caps file intake at job creation.
type Limits struct {
	MaxFiles    int
	MaxFileSize int64
}

// Orchestrator drives jobs through the lifecycle state machine, invoking the
// transformation and submission gateways and translating their outcomes into
// state transitions. It is the only writer of status, result, submission and
// error fields.
type Orchestrator struct {
	registry  *Registry
	store     *artifact.Store
	generator llm.ISATabGenerator
	submitter acas.Submitter
	limits    Limits
	logger    *slog.Logger

	// baseCtx bounds gateway calls; stage tasks are cancellable only by
	// process shutdown.
	baseCtx context.Context

	// stageMu holds one mutex per job id so that at most one stage transition
	// is in flight per job at any time.
	stageMu sync.Map

	wg sync.WaitGroup
}

func NewOrchestrator(
	baseCtx context.Context,
	registry *Registry,
	store *artifact.Store,
	generator llm.ISATabGenerator,
	submitter acas.Submitter,
	limits Limits,
	logger *slog.Logger,
) *Orchestrator {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = 5
	}
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = 10 * 1024 * 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		baseCtx:   baseCtx,
		registry:  registry,
		store:     store,
		generator: generator,
		submitter: submitter,
		limits:    limits,
		logger:    logger,
	}
}

// Create validates the intake, persists the uploads under a fresh job
// namespace, registers the job in pending, and triggers the asynchronous
// advance to processing. Returns the initial snapshot synchronously.
func (o *Orchestrator) Create(createdBy string, uploads []Upload, meta entity.JobMetadata) (entity.Job, error) {
	if len(uploads) == 0 {
		return entity.Job{}, common.ValidationErrorf("at least one file is required")
	}
	if len(uploads) > o.limits.MaxFiles {
		return entity.Job{}, common.ValidationErrorf("too many files: %d (max %d)", len(uploads), o.limits.MaxFiles)
	}
	for _, u := range uploads {
		if u.Filename == "" {
			return entity.Job{}, common.ValidationErrorf("fileName is required for every file")
		}
		if len(u.Content) == 0 {
			return entity.Job{}, common.ValidationErrorf("fileContent is required for %q", u.Filename)
		}
		if int64(len(u.Content)) > o.limits.MaxFileSize {
			return entity.Job{}, common.ValidationErrorf("file %q exceeds size limit of %d bytes", u.Filename, o.limits.MaxFileSize)
		}
	}

	id := uuid.New()
	files := make([]entity.JobFile, 0, len(uploads))
	for _, u := range uploads {
		stored := filepath.Base(u.Filename)
		storedPath, err := o.store.Write(id, stored, u.Content)
		if err != nil {
			return entity.Job{}, err
		}
		files = append(files, entity.JobFile{
			OriginalName: u.Filename,
			StoredName:   stored,
			StoragePath:  storedPath,
			SizeBytes:    int64(len(u.Content)),
			MimeType:     u.MimeType,
		})
	}

	job := entity.Job{
		ID:        id,
		Status:    constants.JobStatusPending,
		Files:     files,
		Metadata:  meta,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	o.registry.Put(job)

	o.logger.Info("jobs.create",
		"job_id", id,
		"files", len(files),
		"experiment_id", meta.ExperimentID,
		"protocol_id", meta.ProtocolID,
		"auto_submit", meta.AutoSubmit,
		"created_by", createdBy,
	)

	o.spawn(func() { o.process(id) })
	return job, nil
}

// Get returns a snapshot of the job record.
func (o *Orchestrator) Get(id uuid.UUID) (entity.Job, bool) {
	return o.registry.Get(id)
}

// RequestSubmission marks a completed job validating (dry-run) or submitting
// (commit) and triggers the asynchronous submission stage. A job that has not
// reached completed is rejected without mutating the record.
func (o *Orchestrator) RequestSubmission(id uuid.UUID, mode entity.SubmissionMode) (entity.Job, error) {
	updated, err := o.registry.Update(id, func(j *entity.Job) error {
		if j.Status != constants.JobStatusCompleted {
			return common.NewAppError(common.CodeNotReady,
				fmt.Sprintf("job %s is %s, submission requires completed", id, j.Status), common.ErrNotReady)
		}
		j.Status = inFlightStatus(mode)
		return nil
	})
	if err != nil {
		return updated, err
	}

	o.logger.Info("jobs.submission_requested", "job_id", id, "mode", mode)
	o.spawn(func() { o.submit(id, mode) })
	return updated, nil
}

// Wait blocks until all in-flight stage tasks have settled. Used by shutdown
// and by tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) spawn(fn func()) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn()
	}()
}

// stageLock returns the per-job mutex guarding stage transitions.
func (o *Orchestrator) stageLock(id uuid.UUID) *sync.Mutex {
	mu, _ := o.stageMu.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// process runs the transformation stage: pending -> processing -> completed|failed.
// On completed with the auto-submit flag set, the submission stage chains
// immediately (always dry-run; commit requires an explicit request).
func (o *Orchestrator) process(id uuid.UUID) {
	mu := o.stageLock(id)
	mu.Lock()
	defer mu.Unlock()

	job, err := o.registry.Update(id, func(j *entity.Job) error {
		if j.Status != constants.JobStatusPending {
			return fmt.Errorf("unexpected status %s at transformation start", j.Status)
		}
		j.Status = constants.JobStatusProcessing
		return nil
	})
	if err != nil {
		o.logger.Error("jobs.process.skipped", "job_id", id, "error", err)
		return
	}

	req := llm.GenerateRequest{JobID: id, Metadata: job.Metadata}
	for _, f := range job.Files {
		content, rerr := o.store.Read(f.StoragePath)
		if rerr != nil {
			o.fail(id, rerr)
			return
		}
		req.Files = append(req.Files, llm.FileContent{
			Filename: f.OriginalName,
			MimeType: f.MimeType,
			Content:  string(content),
		})
	}

	result, err := o.generator.GenerateISATab(o.baseCtx, req)
	if err != nil {
		o.fail(id, err)
		return
	}

	job, err = o.registry.Update(id, func(j *entity.Job) error {
		j.Status = constants.JobStatusCompleted
		j.Result = &entity.JobResult{Artifacts: result.Artifacts, RawResponse: result.RawResponse}
		stampCompletion(j)
		return nil
	})
	if err != nil {
		o.logger.Error("jobs.process.record_update_failed", "job_id", id, "error", err)
		return
	}
	o.logger.Info("jobs.process.completed", "job_id", id, "artifacts", len(result.Artifacts))

	if job.Metadata.AutoSubmit {
		if _, err := o.registry.Update(id, func(j *entity.Job) error {
			// An explicit submission request may have claimed the job in the
			// window after the completed transition. First claim wins.
			if j.Status != constants.JobStatusCompleted {
				return fmt.Errorf("status %s, submission already claimed", j.Status)
			}
			j.Status = constants.JobStatusValidating
			return nil
		}); err != nil {
			o.logger.Info("jobs.autosubmit.skipped", "job_id", id, "reason", err)
			return
		}
		o.logger.Info("jobs.autosubmit", "job_id", id)
		o.runSubmission(id, entity.ModeDryRun)
	}
}

// submit runs the submission stage for an explicit request. The in-flight
// status was already set synchronously by RequestSubmission.
func (o *Orchestrator) submit(id uuid.UUID, mode entity.SubmissionMode) {
	mu := o.stageLock(id)
	mu.Lock()
	defer mu.Unlock()
	o.runSubmission(id, mode)
}

// runSubmission invokes the submission gateway and records the outcome.
// Caller must hold the stage lock and have set the in-flight status.
func (o *Orchestrator) runSubmission(id uuid.UUID, mode entity.SubmissionMode) {
	job, ok := o.registry.Get(id)
	if !ok {
		o.logger.Error("jobs.submit.missing_record", "job_id", id)
		return
	}
	// The claim may have been superseded while this task waited on the stage
	// lock; never invoke the gateway unless the record still carries the
	// matching in-flight status.
	if job.Status != inFlightStatus(mode) {
		o.logger.Error("jobs.submit.stale_claim", "job_id", id, "status", job.Status, "mode", mode)
		return
	}

	outcome, err := o.submitter.Submit(o.baseCtx, job, mode)
	if err != nil {
		outcome.Mode = mode
		outcome.Success = false
		outcome.Error = err.Error()
		msg := err.Error()
		if _, uerr := o.registry.Update(id, func(j *entity.Job) error {
			j.Status = constants.JobStatusFailed
			j.Submission = &outcome
			j.Error = &msg
			stampCompletion(j)
			return nil
		}); uerr != nil {
			o.logger.Error("jobs.submit.record_update_failed", "job_id", id, "error", uerr)
		}
		o.logger.Error("jobs.submit.failed", "job_id", id, "mode", mode, "error", err)
		return
	}

	if _, uerr := o.registry.Update(id, func(j *entity.Job) error {
		j.Status = settledStatus(mode)
		j.Submission = &outcome
		stampCompletion(j)
		return nil
	}); uerr != nil {
		o.logger.Error("jobs.submit.record_update_failed", "job_id", id, "error", uerr)
		return
	}
	o.logger.Info("jobs.submit.ok",
		"job_id", id,
		"mode", mode,
		"experiment_code", outcome.ExperimentCode,
	)
}

// fail records a terminal transformation failure.
func (o *Orchestrator) fail(id uuid.UUID, cause error) {
	msg := cause.Error()
	if _, err := o.registry.Update(id, func(j *entity.Job) error {
		j.Status = constants.JobStatusFailed
		j.Error = &msg
		stampCompletion(j)
		return nil
	}); err != nil {
		o.logger.Error("jobs.fail.record_update_failed", "job_id", id, "error", err)
	}
	o.logger.Error("jobs.process.failed", "job_id", id, "error", cause)
}

// stampCompletion sets completedAt exactly once.
func stampCompletion(j *entity.Job) {
	if j.CompletedAt == nil {
		now := time.Now().UTC()
		j.CompletedAt = &now
	}
}

func inFlightStatus(mode entity.SubmissionMode) constants.JobStatus {
	if mode == entity.ModeCommit {
		return constants.JobStatusSubmitting
	}
	return constants.JobStatusValidating
}

func settledStatus(mode entity.SubmissionMode) constants.JobStatus {
	if mode == entity.ModeCommit {
		return constants.JobStatusSubmitted
	}
	return constants.JobStatusValidated
}
