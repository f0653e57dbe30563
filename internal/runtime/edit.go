package runtime

import (
	"fmt"
	"strings"
)

// applyEdits applies edits to content in memory, returning the updated
// content or the first ambiguity/not-found error encountered. The caller
// only persists the result when err is nil, which is what makes EditFile
// all-or-nothing.
func applyEdits(content string, edits []Edit) (string, error) {
	for _, edit := range edits {
		count := strings.Count(content, edit.Search)
		switch {
		case count == 0:
			return "", fmt.Errorf(
				"could not find exact match for search block\n\n%s\n\nEnsure your SEARCH block is a literal copy of the file content. The file is left unmodified.",
				edit.Search,
			)
		case count > 1:
			return "", fmt.Errorf(
				"multiple occurrences (%d) of search block found. Please include more surrounding context to make it unique.",
				count,
			)
		default:
			content = strings.Replace(content, edit.Search, edit.Replace, 1)
		}
	}
	return content, nil
}
