package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadExemplarPairsMatchesByBaseName(t *testing.T) {
	isaDir := t.TempDir()
	acasDir := t.TempDir()
	writeFile(t, isaDir, "CustomExample_isa.csv", "isa-in")
	writeFile(t, acasDir, "CustomExample.sel", "acas-out")
	writeFile(t, isaDir, "DoseResponse_isa.csv", "dose-in")
	writeFile(t, acasDir, "DoseResponse.sel", "dose-out")

	pairs, err := LoadExemplarPairs(isaDir, acasDir, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	// Sorted by name.
	assert.Equal(t, "CustomExample", pairs[0].Name)
	assert.Equal(t, "isa-in", pairs[0].ISAContent)
	assert.Equal(t, "acas-out", pairs[0].ACASContent)
	assert.Equal(t, "DoseResponse", pairs[1].Name)
}

func TestLoadExemplarPairsKeepsOutputOnlyExamples(t *testing.T) {
	isaDir := t.TempDir()
	acasDir := t.TempDir()
	writeFile(t, acasDir, "Generic.sel", "format-only")

	pairs, err := LoadExemplarPairs(isaDir, acasDir, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Generic", pairs[0].Name)
	assert.Empty(t, pairs[0].ISAContent)
	assert.Equal(t, "format-only", pairs[0].ACASContent)
}

func TestLoadExemplarPairsIgnoresUnrelatedFiles(t *testing.T) {
	isaDir := t.TempDir()
	acasDir := t.TempDir()
	writeFile(t, isaDir, "README.md", "not an exemplar")
	writeFile(t, isaDir, "CustomExample_isa.csv", "isa-in")
	writeFile(t, acasDir, "notes.txt", "not an exemplar")
	require.NoError(t, os.Mkdir(filepath.Join(acasDir, "sub.sel"), 0o755))

	pairs, err := LoadExemplarPairs(isaDir, acasDir, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "CustomExample", pairs[0].Name)
}

func TestLoadExemplarPairsToleratesMissingDirs(t *testing.T) {
	pairs, err := LoadExemplarPairs(
		filepath.Join(t.TempDir(), "absent-isa"),
		filepath.Join(t.TempDir(), "absent-acas"),
		nil,
	)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestBuildConversionPromptMarksPrimaryTarget(t *testing.T) {
	pairs := []ExemplarPair{
		{Name: "CustomExample", ISAContent: "in", ACASContent: "out"},
		{Name: "Other", ACASContent: "other-out"},
	}

	prompt := BuildConversionPrompt(pairs, "isa,content", "CustomExample")
	assert.Contains(t, prompt, "Primary Target Format: CustomExample")
	assert.Contains(t, prompt, "Example Format: CustomExample")
	assert.Contains(t, prompt, "Example Format: Other")
	assert.Contains(t, prompt, "isa,content")

	noTarget := BuildConversionPrompt(pairs, "isa,content", "Unmatched")
	assert.NotContains(t, noTarget, "Primary Target Format")
}

func TestStripFencing(t *testing.T) {
	assert.Equal(t, "a,b\n1,2", StripFencing("```csv\na,b\n1,2\n```"))
	assert.Equal(t, "plain", StripFencing("plain"))
	assert.Equal(t, "x", StripFencing("```\nx\n```"))
}
