package contents

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// NotebookFormat is the major nbformat version written for new notebooks
	// and the minimum accepted by validation.
	NotebookFormat = 4

	notebookFormatMinor = 5
)

// newNotebook returns an empty notebook document.
func newNotebook() map[string]any {
	return map[string]any{
		"cells":          []any{},
		"metadata":       map[string]any{},
		"nbformat":       NotebookFormat,
		"nbformat_minor": notebookFormatMinor,
	}
}

// decodeNotebook parses stored notebook bytes. Invalid JSON is an error;
// structural problems are reported by validateNotebook.
func decodeNotebook(data []byte) (map[string]any, error) {
	var nb map[string]any
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("notebook is not valid JSON: %w", err)
	}
	return nb, nil
}

// encodeNotebook serializes a notebook document the way nbformat writes
// it: one-space indentation and a trailing newline.
func encodeNotebook(content any) ([]byte, error) {
	switch content.(type) {
	case map[string]any, json.RawMessage:
	default:
		return nil, fmt.Errorf("%w: notebook content must be a JSON object", ErrInvalidModel)
	}

	data, err := json.MarshalIndent(content, "", " ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return append(data, '\n'), nil
}

// validateNotebook checks the minimal notebook structure and returns a
// user-facing message, or "" when the document is acceptable.
func validateNotebook(nb map[string]any) string {
	if err := checkNotebook(nb); err != nil {
		return "Notebook validation failed: " + err.Error()
	}
	return ""
}

func checkNotebook(nb map[string]any) error {
	if nb == nil {
		return errors.New("document is empty")
	}

	major, ok := nb["nbformat"].(float64)
	if !ok {
		if i, isInt := nb["nbformat"].(int); isInt {
			major, ok = float64(i), true
		}
	}
	if !ok {
		return errors.New("missing nbformat")
	}
	if major < NotebookFormat {
		return fmt.Errorf("unsupported nbformat %v, need %d or later", major, NotebookFormat)
	}

	cells, ok := nb["cells"].([]any)
	if !ok {
		return errors.New("cells must be an array")
	}
	for i, c := range cells {
		cell, ok := c.(map[string]any)
		if !ok {
			return fmt.Errorf("cell %d is not an object", i)
		}
		if _, ok := cell["cell_type"].(string); !ok {
			return fmt.Errorf("cell %d has no cell_type", i)
		}
	}
	return nil
}
