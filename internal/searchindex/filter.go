package searchindex

import "strings"

// SourceFilter builds an exact-match filter expression for one partition
// key, quoting embedded double quotes so names like `ADEME "v2"` stay a
// single facet value.
func SourceFilter(sourceName string) string {
	escaped := strings.ReplaceAll(sourceName, `"`, `\"`)
	return `Source:"` + escaped + `"`
}
