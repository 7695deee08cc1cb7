// Package export renders a job's ISA-Tab artifacts as an XLSX workbook, one
// sheet per artifact, for review outside ACAS.
package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/acaslabs/mcp-server/internal/artifact"
	"github.com/acaslabs/mcp-server/internal/common"
	"github.com/acaslabs/mcp-server/internal/entity"
)

// Service reads artifact content back from the store and produces XLSX bytes.
type Service struct {
	store  *artifact.Store
	logger *slog.Logger
}

func NewService(store *artifact.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportJobXLSX returns a workbook with one sheet per result artifact.
// ISA-Tab is tab-delimited; each line becomes a row, each field a cell.
func (s *Service) ExportJobXLSX(job entity.Job) ([]byte, error) {
	if job.Result == nil || len(job.Result.Artifacts) == 0 {
		return nil, common.NewAppError(common.CodeNotReady, "job has no result artifacts to export", common.ErrNotReady)
	}
	start := time.Now()

	f := excelize.NewFile()
	for i, art := range job.Result.Artifacts {
		sheet := sheetName(art.Filename, i)
		if i == 0 {
			// Rename the default sheet instead of leaving an empty "Sheet1".
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, fmt.Errorf("add sheet: %w", err)
			}
		}

		content, err := s.store.Read(art.StoragePath)
		if err != nil {
			return nil, err
		}

		row := 1
		for _, line := range strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n") {
			for col, field := range strings.Split(line, "\t") {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(sheet, cell, field)
			}
			row++
		}
		_ = f.SetColWidth(sheet, "A", "A", 32)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"job_id", job.ID.String(),
		"sheets", len(job.Result.Artifacts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// sheetName derives a workbook-safe sheet name from an artifact filename.
// Excel sheet names are capped at 31 chars and reject a handful of characters.
func sheetName(filename string, index int) string {
	name := strings.TrimSuffix(filename, ".txt")
	for _, r := range []string{"[", "]", "*", "?", "/", "\\", ":"} {
		name = strings.ReplaceAll(name, r, "_")
	}
	if name == "" {
		name = fmt.Sprintf("artifact_%d", index+1)
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
