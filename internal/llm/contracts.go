package llm

import (
	"context"

	"github.com/google/uuid"

	"github.com/acaslabs/mcp-server/internal/entity"
)

// GenerateRequest carries one job's inputs to the transformation backend.
type GenerateRequest struct {
	JobID    uuid.UUID
	Files    []FileContent
	Metadata entity.JobMetadata
}

// FileContent is one uploaded input, decoded and ready for prompting.
type FileContent struct {
	Filename string
	MimeType string
	Content  string
}

// GenerateResult holds the persisted artifacts and the raw backend response.
type GenerateResult struct {
	Artifacts   []entity.Artifact
	RawResponse string
}

// ISATabGenerator is the transformation gateway the orchestrator depends on.
type ISATabGenerator interface {
	// GenerateISATab converts raw files plus metadata into one or more
	// persisted ISA-Tab artifacts. All-or-nothing per call.
	GenerateISATab(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// FormatConverter turns one ISA-Tab document into a target-system-native format
// using exemplar-pair retrieval. The submission gateway depends on it.
type FormatConverter interface {
	ConvertToACAS(ctx context.Context, isaTabContent, targetFormat string) (string, error)
}
