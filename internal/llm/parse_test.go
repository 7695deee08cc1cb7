package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISADocumentsExtractsFencedFiles(t *testing.T) {
	raw := "Here are your ISA-Tab files:\n\n" +
		"```file: i_investigation.txt\n" +
		"ONTOLOGY SOURCE REFERENCE\nTerm Source Name\tOBI\n" +
		"```\n\n" +
		"And the study:\n\n" +
		"```file: s_study.txt\n" +
		"Source Name\tSample Name\nsample1\ts1\n" +
		"```\n"

	parsed := ParseISADocuments(raw)
	assert.False(t, parsed.Fallback)
	require.Len(t, parsed.Documents, 2)
	assert.Equal(t, "i_investigation.txt", parsed.Documents[0].Filename)
	assert.Equal(t, "ONTOLOGY SOURCE REFERENCE\nTerm Source Name\tOBI", parsed.Documents[0].Content)
	assert.Equal(t, "s_study.txt", parsed.Documents[1].Filename)
	assert.Equal(t, raw, parsed.Raw)
}

func TestParseISADocumentsAcceptsLabelVariants(t *testing.T) {
	cases := map[string]string{
		"txt label":      "```txt: a_assay.txt\ndata\n```",
		"no colon":       "```file a_assay.txt\ndata\n```",
		"uppercase":      "```FILE: a_assay.txt\ndata\n```",
		"extra spacing":  "``` file:   a_assay.txt  \ndata\n```",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			parsed := ParseISADocuments(raw)
			require.Len(t, parsed.Documents, 1)
			assert.Equal(t, "a_assay.txt", parsed.Documents[0].Filename)
			assert.Equal(t, "data", parsed.Documents[0].Content)
		})
	}
}

func TestParseISADocumentsFallsBackOnUnstructuredResponse(t *testing.T) {
	raw := "Investigation\tValue\nTitle\tMy experiment\n"
	parsed := ParseISADocuments(raw)
	assert.True(t, parsed.Fallback)
	assert.Empty(t, parsed.Documents)
	assert.Equal(t, raw, parsed.Raw)
}

func TestParseISADocumentsIgnoresUnnamedFences(t *testing.T) {
	// A plain code fence without an ISA filename label is not a sub-document.
	raw := "```\njust some csv\n```"
	parsed := ParseISADocuments(raw)
	assert.True(t, parsed.Fallback)
}
