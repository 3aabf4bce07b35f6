package pipeline

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// MalformedPageRangeError indicates a source object name does not encode a
// parsable "{start}-{end}" page range.
type MalformedPageRangeError struct {
	Name string
}

func (e *MalformedPageRangeError) Error() string {
	return fmt.Sprintf("object name %q does not encode a page range in the form {start}-{end}.suffix", e.Name)
}

// startPage parses the starting page number from a source object path whose
// base name follows the "{start}-{end}.suffix" convention.
func startPage(s3Path string) (int, error) {
	base := path.Base(s3Path)
	name := strings.TrimSuffix(base, path.Ext(base))
	first, _, found := strings.Cut(name, "-")
	if !found {
		return 0, &MalformedPageRangeError{Name: base}
	}
	start, err := strconv.Atoi(first)
	if err != nil {
		return 0, &MalformedPageRangeError{Name: base}
	}
	return start, nil
}

// baseNameNoExt returns the base name of an object path with the extension
// stripped
func baseNameNoExt(s3Path string) string {
	base := path.Base(s3Path)
	return strings.TrimSuffix(base, path.Ext(base))
}
