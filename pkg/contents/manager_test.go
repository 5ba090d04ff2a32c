package contents_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/contents"
	"github.com/marmos91/bucketfs/pkg/namespace"
	"github.com/marmos91/bucketfs/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, cfg contents.Config) *contents.Manager {
	t.Helper()
	s, err := memory.NewMemoryObjectStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	engine := namespace.New(s, namespace.WithLogger(logger.Discard()))
	return contents.NewManager(engine, cfg, logger.Discard())
}

func typePtr(t namespace.EntryType) *namespace.EntryType {
	return &t
}

func names(models []*contents.Model) []string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.Name
	}
	return out
}

func requireCode(t *testing.T, err error, code namespace.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, namespace.IsCode(err, code), "want %v, got %v", code, err)
}

func TestSaveAndGetFile(t *testing.T) {
	m := newManager(t, contents.Config{})
	ctx := context.Background()

	saved, err := m.Save(ctx, "hello.txt", &contents.Model{Type: namespace.EntryFile, Format: contents.FormatText, Content: "Hello world"})
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", saved.Path)
	assert.Equal(t, "hello.txt", saved.Name)
	assert.Nil(t, saved.Content)
	require.NotNil(t, saved.Size)
	assert.Equal(t, int64(11), *saved.Size)

	got, err := m.Get(ctx, "/hello.txt", contents.GetOptions{Content: true})
	require.NoError(t, err)
	assert.Equal(t, namespace.EntryFile, got.Type)
	assert.Equal(t, contents.FormatText, got.Format)
	assert.Equal(t, "Hello world", got.Content)
	assert.Equal(t, "text/plain", got.Mimetype)
}

func TestBinaryFileUsesBase64(t *testing.T) {
	m := newManager(t, contents.Config{})
	ctx := context.Background()

	raw := []byte{0xff, 0xfe, 0x00, 0x01}
	_, err := m.Save(ctx, "blob.bin", &contents.Model{
		Type:    namespace.EntryFile,
		Format:  contents.FormatBase64,
		Content: base64.StdEncoding.EncodeToString(raw),
	})
	require.NoError(t, err)

	got, err := m.Get(ctx, "blob.bin", contents.GetOptions{Content: true})
	require.NoError(t, err)
	assert.Equal(t, contents.FormatBase64, got.Format)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), got.Content)

	_, err = m.Get(ctx, "blob.bin", contents.GetOptions{Content: true, Format: contents.FormatText})
	assert.ErrorIs(t, err, contents.ErrInvalidModel)
}

func TestSaveRejectsBadModels(t *testing.T) {
	m := newManager(t, contents.Config{})
	ctx := context.Background()

	tests := []struct {
		name  string
		model *contents.Model
	}{
		{"nil", nil},
		{"file without content", &contents.Model{Type: namespace.EntryFile}},
		{"file with object content", &contents.Model{Type: namespace.EntryFile, Content: map[string]any{}}},
		{"bad base64", &contents.Model{Type: namespace.EntryFile, Format: contents.FormatBase64, Content: "!!"}},
		{"unknown format", &contents.Model{Type: namespace.EntryFile, Format: "yaml", Content: "x"}},
		{"notebook without content", &contents.Model{Type: namespace.EntryNotebook}},
		{"notebook with string content", &contents.Model{Type: namespace.EntryNotebook, Content: "nb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Save(ctx, "x", tt.model)
			assert.ErrorIs(t, err, contents.ErrInvalidModel)
		})
	}
}

func TestNotebookRoundTripAndValidation(t *testing.T) {
	m := newManager(t, contents.Config{})
	ctx := context.Background()

	nb := map[string]any{
		"nbformat":       4,
		"nbformat_minor": 5,
		"metadata":       map[string]any{},
		"cells": []any{
			map[string]any{"cell_type": "markdown", "metadata": map[string]any{}, "source": "# title"},
		},
	}
	saved, err := m.Save(ctx, "a.ipynb", &contents.Model{Type: namespace.EntryNotebook, Content: nb})
	require.NoError(t, err)
	assert.Empty(t, saved.Message)
	assert.Equal(t, namespace.EntryNotebook, saved.Type)

	got, err := m.Get(ctx, "a.ipynb", contents.GetOptions{Content: true})
	require.NoError(t, err)
	assert.Equal(t, contents.FormatJSON, got.Format)
	doc, ok := got.Content.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), doc["nbformat"])
	assert.Len(t, doc["cells"], 1)

	old := map[string]any{"nbformat": 3, "cells": []any{}}
	saved, err = m.Save(ctx, "old.ipynb", &contents.Model{Type: namespace.EntryNotebook, Content: old})
	require.NoError(t, err)
	assert.Contains(t, saved.Message, "unsupported nbformat")

	got, err = m.Get(ctx, "old.ipynb", contents.GetOptions{Content: true})
	require.NoError(t, err)
	assert.NotEmpty(t, got.Message)
}

func TestDirectoryListing(t *testing.T) {
	m := newManager(t, contents.Config{HideDotfiles: true})
	ctx := context.Background()

	_, err := m.Save(ctx, "proj", &contents.Model{Type: namespace.EntryDirectory})
	require.NoError(t, err)
	_, err = m.Save(ctx, "proj/sub", &contents.Model{Type: namespace.EntryDirectory})
	require.NoError(t, err)
	_, err = m.Save(ctx, "proj/notes.md", &contents.Model{Type: namespace.EntryFile, Content: "notes"})
	require.NoError(t, err)
	_, err = m.Save(ctx, "proj/.secret", &contents.Model{Type: namespace.EntryFile, Content: "s"})
	require.NoError(t, err)
	_, err = m.Save(ctx, "proj/sub/deep.txt", &contents.Model{Type: namespace.EntryFile, Content: "d"})
	require.NoError(t, err)

	dir, err := m.Get(ctx, "proj", contents.GetOptions{Content: true})
	require.NoError(t, err)
	assert.Equal(t, namespace.EntryDirectory, dir.Type)
	assert.Equal(t, contents.FormatJSON, dir.Format)

	children, ok := dir.Content.([]*contents.Model)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"sub", "notes.md"}, names(children))
	for _, c := range children {
		assert.Nil(t, c.Content)
		if c.Name == "sub" {
			assert.Equal(t, "proj/sub", c.Path)
		}
	}

	root, err := m.Get(ctx, "", contents.GetOptions{Content: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"proj"}, names(root.Content.([]*contents.Model)))

	_, err = m.Get(ctx, "missing", contents.GetOptions{Content: true, Type: typePtr(namespace.EntryDirectory)})
	requireCode(t, err, namespace.ErrNoSuchEntity)
}

func TestDelete(t *testing.T) {
	m := newManager(t, contents.Config{})
	ctx := context.Background()

	_, err := m.Save(ctx, "d", &contents.Model{Type: namespace.EntryDirectory})
	require.NoError(t, err)
	_, err = m.Save(ctx, "d/f.txt", &contents.Model{Type: namespace.EntryFile, Content: "f"})
	require.NoError(t, err)

	requireCode(t, m.Delete(ctx, "d"), namespace.ErrDirectoryNotEmpty)
	require.NoError(t, m.Delete(ctx, "d/f.txt"))
	require.NoError(t, m.Delete(ctx, "d"))
	requireCode(t, m.Delete(ctx, "d"), namespace.ErrNoSuchEntity)

	always := newManager(t, contents.Config{AlwaysDeleteDir: true})
	_, err = always.Save(ctx, "d", &contents.Model{Type: namespace.EntryDirectory})
	require.NoError(t, err)
	_, err = always.Save(ctx, "d/f.txt", &contents.Model{Type: namespace.EntryFile, Content: "f"})
	require.NoError(t, err)
	require.NoError(t, always.Delete(ctx, "d"))
}

func TestRename(t *testing.T) {
	m := newManager(t, contents.Config{})
	ctx := context.Background()

	_, err := m.Save(ctx, "src", &contents.Model{Type: namespace.EntryDirectory})
	require.NoError(t, err)
	_, err = m.Save(ctx, "src/a.txt", &contents.Model{Type: namespace.EntryFile, Content: "a"})
	require.NoError(t, err)
	_, err = m.Save(ctx, "taken.txt", &contents.Model{Type: namespace.EntryFile, Content: "t"})
	require.NoError(t, err)

	requireCode(t, m.Rename(ctx, "src", "taken.txt"), namespace.ErrAlreadyExists)
	requireCode(t, m.Rename(ctx, "ghost", "new"), namespace.ErrNoSuchEntity)
	requireCode(t, m.Rename(ctx, "ghost", "ghost"), namespace.ErrNoSuchEntity)
	require.NoError(t, m.Rename(ctx, "taken.txt", "taken.txt"))

	require.NoError(t, m.Rename(ctx, "src", "dst"))

	ok, err := m.DirExists(ctx, "src")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.FileExists(ctx, "dst/a.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCopyNaming(t *testing.T) {
	m := newManager(t, contents.Config{})
	ctx := context.Background()

	_, err := m.Save(ctx, "dir", &contents.Model{Type: namespace.EntryDirectory})
	require.NoError(t, err)
	_, err = m.Save(ctx, "dir/report.txt", &contents.Model{Type: namespace.EntryFile, Content: "r"})
	require.NoError(t, err)

	first, err := m.Copy(ctx, "dir/report.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "dir/report-Copy1.txt", first.Path)

	second, err := m.Copy(ctx, "dir/report-Copy1.txt", "dir")
	require.NoError(t, err)
	assert.Equal(t, "dir/report-Copy2.txt", second.Path)

	third, err := m.Copy(ctx, "dir/report.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "dir/report-Copy3.txt", third.Path)

	_, err = m.Save(ctx, "other", &contents.Model{Type: namespace.EntryDirectory})
	require.NoError(t, err)
	other, err := m.Copy(ctx, "dir/report.txt", "other")
	require.NoError(t, err)
	assert.Equal(t, "other/report.txt", other.Path)

	_, err = m.Copy(ctx, "dir", "")
	requireCode(t, err, namespace.ErrInvalidTarget)

	_, err = m.Copy(ctx, "ghost.txt", "")
	requireCode(t, err, namespace.ErrNoSuchEntity)
}

func TestNewUntitled(t *testing.T) {
	m := newManager(t, contents.Config{})
	ctx := context.Background()

	nb, err := m.NewUntitled(ctx, "", nil, ".ipynb")
	require.NoError(t, err)
	assert.Equal(t, "Untitled.ipynb", nb.Path)
	assert.Equal(t, namespace.EntryNotebook, nb.Type)
	assert.Empty(t, nb.Message)

	nb2, err := m.NewUntitled(ctx, "", nil, ".ipynb")
	require.NoError(t, err)
	assert.Equal(t, "Untitled1.ipynb", nb2.Path)

	f, err := m.NewUntitled(ctx, "", nil, ".txt")
	require.NoError(t, err)
	assert.Equal(t, "untitled.txt", f.Path)

	d, err := m.NewUntitled(ctx, "", typePtr(namespace.EntryDirectory), "")
	require.NoError(t, err)
	assert.Equal(t, "Untitled Folder", d.Path)

	inner, err := m.NewUntitled(ctx, "Untitled Folder", typePtr(namespace.EntryFile), "")
	require.NoError(t, err)
	assert.Equal(t, "Untitled Folder/untitled", inner.Path)

	_, err = m.NewUntitled(ctx, "missing", nil, "")
	requireCode(t, err, namespace.ErrNoSuchEntity)
}

func TestIsHidden(t *testing.T) {
	m := newManager(t, contents.Config{})

	assert.True(t, m.IsHidden(".git"))
	assert.True(t, m.IsHidden("a/.cache/b"))
	assert.False(t, m.IsHidden("a/b.txt"))
	assert.False(t, m.IsHidden(""))
}

func TestErrorsAreNamespaceErrors(t *testing.T) {
	m := newManager(t, contents.Config{})

	_, err := m.Get(context.Background(), "nothing.txt", contents.GetOptions{Content: true})
	var nsErr *namespace.Error
	require.True(t, errors.As(err, &nsErr))
	assert.Equal(t, namespace.ErrNoSuchEntity, nsErr.Code)
}
