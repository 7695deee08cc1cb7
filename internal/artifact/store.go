// Package artifact implements the per-job file storage area. Every job gets an
// isolated namespace under the uploads root; ACAS reads converted files from the
// same tree via a shared volume, so paths must stay stable and literal.
package artifact

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/acaslabs/mcp-server/internal/common"
)

// Store manages job-scoped file namespaces under a single root directory.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir, creating it if necessary.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, common.StorageError("resolve uploads root", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, common.StorageError("create uploads root", err)
	}
	return &Store{root: abs, logger: logger}, nil
}

// Root returns the absolute uploads root.
func (s *Store) Root() string {
	return s.root
}

// Allocate ensures the job's namespace exists and returns its directory.
func (s *Store) Allocate(jobID uuid.UUID) (string, error) {
	dir := filepath.Join(s.root, jobID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", common.StorageError("allocate job namespace", err)
	}
	return dir, nil
}

// Write persists data under the job's namespace at relativeName, creating any
// intermediate directories. Writing the same (jobID, relativeName) pair again
// replaces the previous content (last write wins).
func (s *Store) Write(jobID uuid.UUID, relativeName string, data []byte) (string, error) {
	clean := filepath.Clean(relativeName)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", common.StorageError("artifact name escapes job namespace: "+relativeName, nil)
	}
	dir, err := s.Allocate(jobID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", common.StorageError("create artifact directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("artifact.write.failed", "job_id", jobID, "name", relativeName, "error", err)
		return "", common.StorageError("write artifact", err)
	}
	s.logger.Debug("artifact.write.ok", "job_id", jobID, "name", relativeName, "bytes", len(data))
	return path, nil
}

// Read returns the content of a previously stored artifact.
func (s *Store) Read(storedPath string) ([]byte, error) {
	data, err := os.ReadFile(storedPath)
	if err != nil {
		return nil, common.StorageError("read artifact", err)
	}
	return data, nil
}
