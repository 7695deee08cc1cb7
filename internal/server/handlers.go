package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/acaslabs/mcp-server/internal/common"
	"github.com/acaslabs/mcp-server/internal/entity"
	"github.com/acaslabs/mcp-server/internal/export"
	"github.com/acaslabs/mcp-server/internal/jobs"
)

// ProcessHandlers exposes the job lifecycle over HTTP.
type ProcessHandlers struct {
	orchestrator *jobs.Orchestrator
	exporter     *export.Service
	logger       *zap.Logger
}

func NewProcessHandlers(orch *jobs.Orchestrator, exporter *export.Service, logger *zap.Logger) *ProcessHandlers {
	return &ProcessHandlers{orchestrator: orch, exporter: exporter, logger: logger}
}

// rawDataFile is one uploaded file in the intake request, content base64-encoded.
type rawDataFile struct {
	FileName    string `json:"fileName"`
	FileContent string `json:"fileContent"`
	MimeType    string `json:"mimeType"`
}

// rawDataRequest is the intake payload. The single fileName/fileContent pair is
// the legacy shape the cron uploader sends; Files is the multi-file form.
type rawDataRequest struct {
	Files         []rawDataFile `json:"files"`
	FileName      string        `json:"fileName"`
	FileContent   string        `json:"fileContent"`
	MimeType      string        `json:"mimeType"`
	ExperimentID  string        `json:"experimentId"`
	ProtocolID    string        `json:"protocolId"`
	Description   string        `json:"description"`
	AutoSubmit    bool          `json:"autoSubmit"`
	DryRunDefault *bool         `json:"dryRunDefault"`
}

type rawDataResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreateRawData handles POST /api/v1/process/raw-data. Accepts 1-5 files plus
// metadata and answers 202 with the job id before processing finishes.
func (h *ProcessHandlers) CreateRawData(w http.ResponseWriter, r *http.Request) {
	var req rawDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	files := req.Files
	if len(files) == 0 && req.FileName != "" {
		files = []rawDataFile{{FileName: req.FileName, FileContent: req.FileContent, MimeType: req.MimeType}}
	}

	uploads := make([]jobs.Upload, 0, len(files))
	for _, f := range files {
		content, err := base64.StdEncoding.DecodeString(f.FileContent)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("fileContent for %q is not valid base64", f.FileName))
			return
		}
		mime := f.MimeType
		if mime == "" {
			mime = "application/octet-stream"
		}
		uploads = append(uploads, jobs.Upload{Filename: f.FileName, MimeType: mime, Content: content})
	}

	createdBy := "system"
	if id, ok := common.IdentityFromContext(r.Context()); ok {
		createdBy = id.DisplayName()
	}

	job, err := h.orchestrator.Create(createdBy, uploads, entity.JobMetadata{
		ExperimentID:  req.ExperimentID,
		ProtocolID:    req.ProtocolID,
		Description:   req.Description,
		AutoSubmit:    req.AutoSubmit,
		DryRunDefault: req.DryRunDefault,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("job accepted",
		zap.String("request_id", common.RequestIDFromContext(r.Context())),
		zap.String("job_id", job.ID.String()),
		zap.Int("files", len(uploads)),
		zap.String("created_by", createdBy),
	)
	writeJSON(w, http.StatusAccepted, rawDataResponse{
		JobID:   job.ID.String(),
		Status:  string(job.Status),
		Message: "File received and processing started",
	})
}

// GetJob handles GET /api/v1/process/jobs/{jobId}.
func (h *ProcessHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	job, found := h.orchestrator.Get(id)
	if !found {
		writeErrorMessage(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type submitRequest struct {
	DryRun *bool `json:"dryRun"`
}

// Submit handles POST /api/v1/process/jobs/{jobId}/submit. Mode defaults to
// dry-run; commit must be requested explicitly.
func (h *ProcessHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
	}

	job, found := h.orchestrator.Get(id)
	if !found {
		writeErrorMessage(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", id))
		return
	}

	dryRun := job.Metadata.DryRun()
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}
	mode := entity.ModeDryRun
	if !dryRun {
		mode = entity.ModeCommit
	}

	updated, err := h.orchestrator.RequestSubmission(id, mode)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("submission accepted",
		zap.String("job_id", id.String()),
		zap.String("mode", string(mode)),
	)
	writeJSON(w, http.StatusAccepted, updated)
}

// Export handles GET /api/v1/process/jobs/{jobId}/export with an XLSX workbook
// of the job's ISA-Tab artifacts.
func (h *ProcessHandlers) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	job, found := h.orchestrator.Get(id)
	if !found {
		writeErrorMessage(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", id))
		return
	}

	data, err := h.exporter.ExportJobXLSX(job)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id.String()+"_isatab.xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ProcessHandlers) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["jobId"]
	id, err := uuid.Parse(raw)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid job id %q", raw))
		return uuid.Nil, false
	}
	return id, true
}
