package llm

import (
	"regexp"
	"strings"
)

// subDocPattern matches fenced sub-documents named with ISA-Tab prefixes, e.g.
//
//	```file: i_investigation.txt
//	...content...
//	```
//
// The label may be "file:" or "txt:", with or without the colon.
var subDocPattern = regexp.MustCompile("(?is)```\\s*(?:file|txt):?\\s*([isa]_[^.\\s`]*\\.txt)\\s*\\n(.*?)```")

// SubDocument is one named sub-document extracted from a transformer response.
type SubDocument struct {
	Filename string
	Content  string
}

// ParsedResponse is the strict parse outcome for a transformer response.
// Exactly one of Documents / Fallback is meaningful: when no recognizable
// sub-documents are present, Fallback carries the whole raw response.
type ParsedResponse struct {
	Documents []SubDocument
	Fallback  bool
	Raw       string
}

// ParseISADocuments parses a transformer response as an untrusted external
// format. It never assumes well-formed structure: anything that does not match
// the naming pattern degrades to a single fallback document.
func ParseISADocuments(raw string) ParsedResponse {
	matches := subDocPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return ParsedResponse{Fallback: true, Raw: raw}
	}
	docs := make([]SubDocument, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, SubDocument{
			Filename: m[1],
			Content:  strings.TrimSpace(m[2]),
		})
	}
	return ParsedResponse{Documents: docs, Raw: raw}
}
