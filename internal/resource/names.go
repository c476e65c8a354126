package resource

import (
	"path/filepath"
	"strings"
)

const (
	resultPrefix       = "translated_"
	fallbackResultName = "translated_document.pdf"
	requiredResultExt  = ".pdf"
)

// SuggestedName derives the save name of a result from the source name:
// translated_<source>, always ending in .pdf.
func SuggestedName(sourceName string) string {
	base := strings.TrimSpace(filepath.Base(strings.ReplaceAll(sourceName, `\`, "/")))
	if base == "" || base == "." || base == "/" {
		return fallbackResultName
	}
	if !strings.EqualFold(filepath.Ext(base), requiredResultExt) {
		base += requiredResultExt
	}
	return resultPrefix + base
}
