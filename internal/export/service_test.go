package export

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/acaslabs/mcp-server/internal/artifact"
	"github.com/acaslabs/mcp-server/internal/common"
	"github.com/acaslabs/mcp-server/internal/entity"
)

func newFixture(t *testing.T) (*Service, *artifact.Store) {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir(), slog.Default())
	require.NoError(t, err)
	return NewService(store, slog.Default()), store
}

func storedJob(t *testing.T, store *artifact.Store, files map[string]string) entity.Job {
	t.Helper()
	job := entity.Job{ID: uuid.New(), Result: &entity.JobResult{}}
	for name, content := range files {
		path, err := store.Write(job.ID, "isatab/"+name, []byte(content))
		require.NoError(t, err)
		job.Result.Artifacts = append(job.Result.Artifacts, entity.Artifact{Filename: name, StoragePath: path})
	}
	return job
}

func TestExportJobXLSXOneSheetPerArtifact(t *testing.T) {
	svc, store := newFixture(t)
	job := entity.Job{ID: uuid.New(), Result: &entity.JobResult{}}
	for _, a := range []struct{ name, content string }{
		{"i_investigation.txt", "Investigation\tTitle\nValue\tMy experiment"},
		{"s_study.txt", "Source Name\tSample Name\nsrc1\ts1"},
	} {
		path, err := store.Write(job.ID, "isatab/"+a.name, []byte(a.content))
		require.NoError(t, err)
		job.Result.Artifacts = append(job.Result.Artifacts, entity.Artifact{Filename: a.name, StoragePath: path})
	}

	data, err := svc.ExportJobXLSX(job)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	assert.ElementsMatch(t, []string{"i_investigation", "s_study"}, wb.GetSheetList())

	// Tab-delimited fields land in separate cells.
	val, err := wb.GetCellValue("i_investigation", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Title", val)
	val, err = wb.GetCellValue("s_study", "A2")
	require.NoError(t, err)
	assert.Equal(t, "src1", val)
}

func TestExportJobXLSXNoResult(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.ExportJobXLSX(entity.Job{ID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, common.CodeNotReady, common.CodeOf(err))

	_, err = svc.ExportJobXLSX(entity.Job{ID: uuid.New(), Result: &entity.JobResult{}})
	require.Error(t, err)
	assert.Equal(t, common.CodeNotReady, common.CodeOf(err))
}

func TestExportJobXLSXMissingArtifactContent(t *testing.T) {
	svc, store := newFixture(t)
	job := storedJob(t, store, map[string]string{"i_investigation.txt": "x"})
	job.Result.Artifacts[0].StoragePath += ".gone"

	_, err := svc.ExportJobXLSX(job)
	require.Error(t, err)
	assert.Equal(t, common.CodeStorage, common.CodeOf(err))
}

func TestSheetNameSanitizing(t *testing.T) {
	assert.Equal(t, "i_investigation", sheetName("i_investigation.txt", 0))
	assert.Equal(t, "a_assay_v2_final", sheetName("a_assay/v2:final.txt", 1))
	assert.Equal(t, "artifact_3", sheetName(".txt", 2))
	long := sheetName("s_a_very_long_study_name_that_keeps_going.txt", 0)
	assert.Len(t, long, 31)
}
