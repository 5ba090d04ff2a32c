package namespace

import (
	"fmt"
	"strings"
)

const (
	// Delimiter separates path segments in object keys.
	Delimiter = "/"

	// NotebookSuffix marks notebook documents.
	NotebookSuffix = ".ipynb"
)

// EntryType is the classification of a path. The set is closed: every
// switch over it handles all three values.
type EntryType int

const (
	EntryFile EntryType = iota
	EntryNotebook
	EntryDirectory
)

func (t EntryType) String() string {
	switch t {
	case EntryFile:
		return "file"
	case EntryNotebook:
		return "notebook"
	case EntryDirectory:
		return "directory"
	default:
		return fmt.Sprintf("EntryType(%d)", int(t))
	}
}

// ParseEntryType is the inverse of String.
func ParseEntryType(s string) (EntryType, error) {
	switch s {
	case "file":
		return EntryFile, nil
	case "notebook":
		return EntryNotebook, nil
	case "directory":
		return EntryDirectory, nil
	default:
		return 0, fmt.Errorf("unknown entry type %q", s)
	}
}

// MarshalText lets EntryType appear as its name in JSON and YAML.
func (t EntryType) MarshalText() ([]byte, error) {
	switch t {
	case EntryFile, EntryNotebook, EntryDirectory:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("invalid entry type %d", int(t))
	}
}

func (t *EntryType) UnmarshalText(text []byte) error {
	parsed, err := ParseEntryType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ============================================================================
// Path normalization
// ============================================================================

// Clean strips leading delimiters. A trailing delimiter is left alone since
// it carries meaning (directory form).
func Clean(path string) string {
	return strings.TrimLeft(path, Delimiter)
}

// IsRoot reports whether path denotes the namespace root.
func IsRoot(path string) bool {
	return Clean(path) == ""
}

// DirKey returns the directory form of path: cleaned and ending with the
// delimiter. The root maps to the empty string.
func DirKey(path string) string {
	c := Clean(path)
	if c == "" || strings.HasSuffix(c, Delimiter) {
		return c
	}
	return c + Delimiter
}

// FileKey returns the file form of path: cleaned, without a trailing
// delimiter.
func FileKey(path string) string {
	return strings.TrimRight(Clean(path), Delimiter)
}

// ParentOf drops the final non-empty segment and returns the parent in
// directory form, or "" when the parent is the root.
//
//	ParentOf("a/b/c.txt") == "a/b/"
//	ParentOf("a/b/")      == "a/"
//	ParentOf("a")         == ""
func ParentOf(path string) string {
	c := FileKey(path)
	idx := strings.LastIndex(c, Delimiter)
	if idx < 0 {
		return ""
	}
	return c[:idx+1]
}

// Name returns the final segment of path without any trailing delimiter.
func Name(path string) string {
	c := FileKey(path)
	return c[strings.LastIndex(c, Delimiter)+1:]
}

// Join appends name to a directory path.
func Join(dir, name string) string {
	return DirKey(dir) + strings.Trim(name, Delimiter)
}

// GuessType classifies path from its shape alone: Notebook for the notebook
// suffix, Directory for the root or a trailing delimiter (when
// allowDirectory), File otherwise. Engine.Classify adds the store lookup
// that recognises directories named without a trailing delimiter.
func GuessType(path string, allowDirectory bool) EntryType {
	c := Clean(path)
	switch {
	case strings.HasSuffix(c, NotebookSuffix):
		return EntryNotebook
	case allowDirectory && (c == "" || strings.HasSuffix(c, Delimiter)):
		return EntryDirectory
	default:
		return EntryFile
	}
}

// typeOfKey classifies a listed object key. Markers end with the delimiter.
func typeOfKey(key string) EntryType {
	switch {
	case strings.HasSuffix(key, Delimiter):
		return EntryDirectory
	case strings.HasSuffix(key, NotebookSuffix):
		return EntryNotebook
	default:
		return EntryFile
	}
}

// validatePath rejects empty inner segments and relative segments, which
// have no meaning in a flat key space and would otherwise produce keys
// that no listing can reach.
func validatePath(path string) error {
	c := strings.TrimRight(Clean(path), Delimiter)
	if c == "" {
		return nil
	}
	for _, seg := range strings.Split(c, Delimiter) {
		switch seg {
		case "":
			return fmt.Errorf("empty path segment")
		case ".", "..":
			return fmt.Errorf("relative segment %q", seg)
		}
	}
	return nil
}
