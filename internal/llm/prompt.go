package llm

import (
	"fmt"
	"strings"

	"github.com/acaslabs/mcp-server/internal/entity"
)

// BuildGenerationSystemPrompt composes the fixed ISA-Tab generation instruction
// with the job's experimental context.
func BuildGenerationSystemPrompt(meta entity.JobMetadata) string {
	experimentID := orUnknown(meta.ExperimentID)
	protocolID := orUnknown(meta.ProtocolID)
	description := meta.Description
	if strings.TrimSpace(description) == "" {
		description = "No description provided"
	}

	parts := []string{
		"You are an expert in scientific data processing and ISA-Tab format generation.",
		"Your task is to convert raw experimental data into properly formatted ISA-Tab files.",
		"Analyze the provided data files carefully.",
		"Extract relevant metadata like sample identifiers, measurements, and conditions.",
		"Create a properly formatted ISA-Tab file set that includes an Investigation file (i_*.txt), a Study file (s_*.txt), and an Assay file (a_*.txt) if applicable.",
		"Follow ISA-Tab specifications precisely.",
		"The experimental context is:",
		"- Experiment ID: " + experimentID,
		"- Protocol ID: " + protocolID,
		"- Description: " + description,
	}
	return strings.Join(parts, "\n")
}

// BuildGenerationUserPrompt packages the uploaded file contents with filenames
// and MIME types so the model can name its outputs sensibly.
func BuildGenerationUserPrompt(files []FileContent) string {
	var b strings.Builder
	b.WriteString("Please analyze the following experimental data and generate appropriate ISA-Tab files:\n\n")
	for i, f := range files {
		if i > 0 {
			b.WriteString("---\n\n")
		}
		fmt.Fprintf(&b, "File: %s (%s)\n\nContent:\n%s\n\n", f.Filename, f.MimeType, f.Content)
	}
	b.WriteString("Generate the following:\n")
	b.WriteString("1. Investigation file (i_*.txt)\n")
	b.WriteString("2. Study file (s_*.txt)\n")
	b.WriteString("3. Assay file (a_*.txt) if needed\n\n")
	b.WriteString("Return the content of each file separately in a fenced block labelled with its filename, e.g. ```file: i_investigation.txt```.")
	return b.String()
}

// ConversionSystemPrompt is the fixed instruction for ISA-Tab to ACAS conversion.
const ConversionSystemPrompt = "You are a data format conversion expert. Convert ISA-Tab format CSV files to ACAS format following the examples provided."

// BuildConversionPrompt assembles the retrieval-augmented conversion prompt:
// every exemplar pair as a reference section, an explicit primary-target section
// when the requested format has an exemplar, and the input document last.
func BuildConversionPrompt(pairs []ExemplarPair, isaTabContent, targetFormat string) string {
	var examples strings.Builder
	hasTarget := false
	for _, p := range pairs {
		if p.Name == targetFormat {
			hasTarget = true
		}
		fmt.Fprintf(&examples, "\n## Example Format: %s\n\n", p.Name)
		if p.ISAContent != "" {
			fmt.Fprintf(&examples, "### Input (ISA-Tab format):\n```csv\n%s\n```\n\n", p.ISAContent)
		}
		if p.ACASContent != "" {
			fmt.Fprintf(&examples, "### Output (ACAS format):\n```csv\n%s\n```\n\n", p.ACASContent)
		}
	}

	var primary string
	if hasTarget {
		primary = fmt.Sprintf("\n## Primary Target Format: %s\n\nPlease convert the input to match the %s format most closely.\n", targetFormat, targetFormat)
	}

	return fmt.Sprintf(`
# Task: Convert an ISA-Tab format CSV file to ACAS format

%s

# Reference Examples
The following examples show different ISA-Tab input formats and their corresponding ACAS output formats:
%s

## Conversion Rules:
1. Extract metadata from input columns and place in the Experiment Meta Data section
2. Convert data columns properly to the Raw Data section
3. Use appropriate datatypes (Number or Text) based on the content
4. Ensure all sections are properly formatted according to the ACAS examples
5. Choose the most appropriate ACAS format based on the input data structure

## Input to Convert:
`+"```csv\n%s\n```"+`

## Output the converted ACAS format:
Your output should match the structure of the %s format, but adapt as needed based on the input data.
`, primary, examples.String(), isaTabContent, targetFormat)
}

// StripFencing removes markdown code fences from a conversion result.
func StripFencing(s string) string {
	s = strings.ReplaceAll(s, "```csv\n", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
