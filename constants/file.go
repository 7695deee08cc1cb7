package constants

import "strings"

// InvestigationPrefix marks the ISA-Tab investigation file, which doubles as
// the submission's primary artifact.
const InvestigationPrefix = "i_"

// FallbackArtifactName is used when the transformer response contains no
// recognizable fenced sub-documents; the whole raw response is persisted under it.
const FallbackArtifactName = "isatab_output.txt"

// Artifact subdirectories inside a job's storage namespace.
const (
	ISATabSubdir = "isatab"
	ACASSubdir   = "acas"
)

// DefaultACASFormat is the GenericDataParser format used when the caller
// does not request a specific exemplar.
const DefaultACASFormat = "CustomExample"

// Exemplar file naming: <base>_isa.csv pairs with <base>.sel.
const (
	ExemplarISASuffix  = "_isa.csv"
	ExemplarACASSuffix = ".sel"
)

// IsPrimaryArtifact reports whether an artifact filename designates the lead
// document of an ISA-Tab set (the submission subject).
func IsPrimaryArtifact(filename string) bool {
	return strings.HasPrefix(filename, InvestigationPrefix) || filename == FallbackArtifactName
}
