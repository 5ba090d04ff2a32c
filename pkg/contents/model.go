package contents

import (
	"time"

	"github.com/marmos91/bucketfs/pkg/namespace"
)

// Format is the encoding of a model's content.
type Format string

const (
	FormatJSON   Format = "json"
	FormatText   Format = "text"
	FormatBase64 Format = "base64"
)

// Model is the document-server representation of a file, notebook or
// directory.
//
// Content depends on Type and is nil unless requested:
//   - Directory: []*Model of the immediate children, themselves without content
//   - Notebook:  map[string]any holding the decoded notebook document
//   - File:      string, UTF-8 text or base64 according to Format
type Model struct {
	Name         string              `json:"name"`
	Path         string              `json:"path"`
	Type         namespace.EntryType `json:"type"`
	Writable     bool                `json:"writable"`
	Created      time.Time           `json:"created"`
	LastModified time.Time           `json:"last_modified"`
	Size         *int64              `json:"size"`
	Hash         string              `json:"hash,omitempty"`
	Mimetype     string              `json:"mimetype,omitempty"`
	Format       Format              `json:"format,omitempty"`
	Content      any                 `json:"content"`

	// Message carries a notebook validation warning. The document is
	// still saved or returned when set.
	Message string `json:"message,omitempty"`
}

// modelFromEntry builds a content-less model from an engine entry. Model
// paths never carry leading or trailing delimiters.
func modelFromEntry(entry namespace.Entry) *Model {
	m := &Model{
		Name:         entry.Name,
		Path:         namespace.FileKey(entry.Path),
		Type:         entry.Type,
		Writable:     true,
		Created:      entry.LastModified,
		LastModified: entry.LastModified,
	}

	switch entry.Type {
	case namespace.EntryDirectory:
	case namespace.EntryFile, namespace.EntryNotebook:
		size := entry.Size
		m.Size = &size
		m.Hash = entry.Hash
	}
	return m
}
