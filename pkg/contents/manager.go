package contents

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/namespace"
)

// ErrInvalidModel is returned for requests the manager cannot interpret:
// a missing type or content, an unknown format, or undecodable content.
var ErrInvalidModel = errors.New("invalid model")

// Config controls naming and visibility.
type Config struct {
	// UntitledFile, UntitledNotebook and UntitledDirectory are the base
	// names used by NewUntitled.
	UntitledFile      string
	UntitledNotebook  string
	UntitledDirectory string

	// HideDotfiles drops entries whose name starts with a dot from
	// directory listings.
	HideDotfiles bool

	// AlwaysDeleteDir makes Delete remove populated directories
	// recursively instead of failing with DirectoryNotEmpty.
	AlwaysDeleteDir bool
}

// DefaultConfig returns the naming used by the notebook server.
func DefaultConfig() Config {
	return Config{
		UntitledFile:      "untitled",
		UntitledNotebook:  "Untitled",
		UntitledDirectory: "Untitled Folder",
	}
}

// GetOptions selects what Get returns.
type GetOptions struct {
	// Content includes the content in the model.
	Content bool

	// Type forces the model type instead of classifying the path.
	Type *namespace.EntryType

	// Format forces text or base64 for files. Empty picks text when the
	// bytes are valid UTF-8.
	Format Format
}

// Manager maps document-server content models onto a namespace.Engine.
//
// Paths are API paths: relative, delimiter separated, without a trailing
// delimiter. Errors are namespace errors or wrap ErrInvalidModel.
type Manager struct {
	engine *namespace.Engine
	cfg    Config
	log    *logger.Logger
}

// NewManager creates a Manager. Empty untitled names fall back to
// DefaultConfig.
func NewManager(engine *namespace.Engine, cfg Config, log *logger.Logger) *Manager {
	defaults := DefaultConfig()
	if cfg.UntitledFile == "" {
		cfg.UntitledFile = defaults.UntitledFile
	}
	if cfg.UntitledNotebook == "" {
		cfg.UntitledNotebook = defaults.UntitledNotebook
	}
	if cfg.UntitledDirectory == "" {
		cfg.UntitledDirectory = defaults.UntitledDirectory
	}
	if log == nil {
		log = logger.Default()
	}
	return &Manager{engine: engine, cfg: cfg, log: log.With("component", "contents")}
}

// Engine returns the engine backing the manager.
func (m *Manager) Engine() *namespace.Engine {
	return m.engine
}

func apiPath(p string) string {
	return strings.Trim(p, namespace.Delimiter)
}

// ============================================================================
// Queries
// ============================================================================

// FileExists reports whether a file or notebook exists at p.
func (m *Manager) FileExists(ctx context.Context, p string) (bool, error) {
	p = apiPath(p)
	if p == "" {
		return false, nil
	}
	return m.engine.IsFile(ctx, p)
}

// DirExists reports whether a directory exists at p. The root always does.
func (m *Manager) DirExists(ctx context.Context, p string) (bool, error) {
	return m.engine.IsDirectory(ctx, apiPath(p))
}

func (m *Manager) exists(ctx context.Context, p string) (bool, error) {
	ok, err := m.FileExists(ctx, p)
	if err != nil || ok {
		return ok, err
	}
	return m.DirExists(ctx, p)
}

// IsHidden reports whether any segment of p starts with a dot.
func (m *Manager) IsHidden(p string) bool {
	for _, seg := range strings.Split(apiPath(p), namespace.Delimiter) {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// Get returns the model at p.
func (m *Manager) Get(ctx context.Context, p string, opts GetOptions) (*Model, error) {
	p = apiPath(p)
	m.log.Debug("get %q content=%v format=%q", p, opts.Content, opts.Format)

	var t namespace.EntryType
	if opts.Type != nil {
		t = *opts.Type
	} else {
		guessed, err := m.engine.Classify(ctx, p, true)
		if err != nil {
			return nil, err
		}
		t = guessed
	}

	switch t {
	case namespace.EntryDirectory:
		return m.getDirectory(ctx, p, opts.Content)
	case namespace.EntryNotebook:
		return m.getNotebook(ctx, p, opts.Content)
	case namespace.EntryFile:
		return m.getFile(ctx, p, opts.Content, opts.Format)
	default:
		return nil, fmt.Errorf("%w: unknown type %v", ErrInvalidModel, t)
	}
}

func (m *Manager) getDirectory(ctx context.Context, p string, content bool) (*Model, error) {
	entry, err := m.engine.Stat(ctx, namespace.DirKey(p))
	if err != nil {
		return nil, err
	}
	model := modelFromEntry(entry)
	model.Type = namespace.EntryDirectory
	if !content {
		return model, nil
	}

	children, err := m.engine.ListChildren(ctx, p, true)
	if err != nil {
		return nil, err
	}

	models := make([]*Model, 0, len(children))
	for _, child := range children {
		if m.cfg.HideDotfiles && strings.HasPrefix(child.Name, ".") {
			continue
		}
		cm := modelFromEntry(child)
		if cm.Type != namespace.EntryDirectory {
			cm.Mimetype = guessMimetype(cm.Path, nil)
		}
		models = append(models, cm)
	}

	model.Format = FormatJSON
	model.Content = models
	return model, nil
}

func (m *Manager) getNotebook(ctx context.Context, p string, content bool) (*Model, error) {
	entry, err := m.engine.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	model := modelFromEntry(entry)
	model.Type = namespace.EntryNotebook
	if !content {
		return model, nil
	}

	data, err := m.engine.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	nb, err := decodeNotebook(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}

	model.Format = FormatJSON
	model.Content = nb
	model.Message = validateNotebook(nb)
	return model, nil
}

func (m *Manager) getFile(ctx context.Context, p string, content bool, format Format) (*Model, error) {
	entry, err := m.engine.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if entry.Type == namespace.EntryDirectory {
		return nil, &namespace.Error{Code: namespace.ErrInvalidTarget, Op: "get", Path: p, Message: "is a directory"}
	}

	model := modelFromEntry(entry)
	model.Type = namespace.EntryFile
	if !content {
		model.Mimetype = guessMimetype(p, nil)
		return model, nil
	}

	data, err := m.engine.Read(ctx, p)
	if err != nil {
		return nil, err
	}

	switch format {
	case "":
		if utf8.Valid(data) {
			format = FormatText
		} else {
			format = FormatBase64
		}
	case FormatText:
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: %s is not UTF-8 text", ErrInvalidModel, p)
		}
	case FormatBase64:
	case FormatJSON:
		return nil, fmt.Errorf("%w: format %q does not apply to files", ErrInvalidModel, format)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidModel, format)
	}

	switch format {
	case FormatText:
		model.Content = string(data)
	case FormatBase64:
		model.Content = base64.StdEncoding.EncodeToString(data)
	}
	model.Format = format
	model.Mimetype = guessMimetype(p, data)
	return model, nil
}

// guessMimetype uses the extension first and sniffs the content when the
// extension is unknown and content is available.
func guessMimetype(p string, data []byte) string {
	t := mime.TypeByExtension(path.Ext(p))
	if t == "" && data != nil {
		t = mimetype.Detect(data).String()
	}
	if t == "" {
		return "text/plain"
	}
	if idx := strings.IndexByte(t, ';'); idx >= 0 {
		t = t[:idx]
	}
	return t
}

// ============================================================================
// Mutations
// ============================================================================

// Save writes model at p and returns the saved model without content.
// Notebooks that fail validation are saved anyway; the returned model
// carries the validation message.
func (m *Manager) Save(ctx context.Context, p string, model *Model) (*Model, error) {
	p = apiPath(p)
	if model == nil {
		return nil, fmt.Errorf("%w: no model provided", ErrInvalidModel)
	}
	m.log.Debug("save %q type=%v format=%q", p, model.Type, model.Format)

	var message string
	switch model.Type {
	case namespace.EntryDirectory:
		if err := m.engine.MakeDirectory(ctx, p); err != nil {
			return nil, err
		}

	case namespace.EntryNotebook:
		if model.Content == nil {
			return nil, fmt.Errorf("%w: no notebook content provided", ErrInvalidModel)
		}
		data, err := encodeNotebook(model.Content)
		if err != nil {
			return nil, err
		}
		if nb, err := decodeNotebook(data); err == nil {
			message = validateNotebook(nb)
		}
		if err := m.engine.Write(ctx, p, data); err != nil {
			return nil, err
		}

	case namespace.EntryFile:
		data, err := fileContent(model)
		if err != nil {
			return nil, err
		}
		if err := m.engine.Write(ctx, p, data); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: unhandled type %v", ErrInvalidModel, model.Type)
	}

	t := model.Type
	saved, err := m.Get(ctx, p, GetOptions{Type: &t})
	if err != nil {
		return nil, err
	}
	saved.Message = message
	return saved, nil
}

func fileContent(model *Model) ([]byte, error) {
	text, ok := model.Content.(string)
	if !ok {
		return nil, fmt.Errorf("%w: file content must be a string", ErrInvalidModel)
	}

	switch model.Format {
	case FormatText, "":
		return []byte(text), nil
	case FormatBase64:
		data, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("%w: bad base64 content: %v", ErrInvalidModel, err)
		}
		return data, nil
	case FormatJSON:
		return nil, fmt.Errorf("%w: format %q does not apply to files", ErrInvalidModel, model.Format)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidModel, model.Format)
	}
}

// Delete removes the file or directory at p. Directories must be empty
// unless AlwaysDeleteDir is set.
func (m *Manager) Delete(ctx context.Context, p string) error {
	p = apiPath(p)
	m.log.Debug("delete %q", p)
	return m.engine.Remove(ctx, p, m.cfg.AlwaysDeleteDir)
}

// Rename moves the file or directory at oldPath to newPath, which must not
// exist.
func (m *Manager) Rename(ctx context.Context, oldPath, newPath string) error {
	oldPath, newPath = apiPath(oldPath), apiPath(newPath)
	m.log.Debug("rename %q to %q", oldPath, newPath)

	if oldPath == newPath {
		found, err := m.exists(ctx, oldPath)
		if err != nil {
			return err
		}
		if !found {
			return &namespace.Error{Code: namespace.ErrNoSuchEntity, Op: "rename", Path: oldPath, Message: "no such file or directory"}
		}
		return nil
	}

	taken, err := m.exists(ctx, newPath)
	if err != nil {
		return err
	}
	if taken {
		return &namespace.Error{Code: namespace.ErrAlreadyExists, Op: "rename", Path: newPath, Message: "destination already exists"}
	}

	found, err := m.exists(ctx, oldPath)
	if err != nil {
		return err
	}
	if !found {
		return &namespace.Error{Code: namespace.ErrNoSuchEntity, Op: "rename", Path: oldPath, Message: "no such file or directory"}
	}

	return m.engine.Move(ctx, oldPath, newPath)
}

// Copy copies the file at from into the directory toDir (the source's
// directory when empty) under a free "-CopyN" name, and returns the new
// model. A toDir that is not an existing directory is used as the exact
// destination path.
func (m *Manager) Copy(ctx context.Context, from, toDir string) (*Model, error) {
	from, toDir = apiPath(from), apiPath(toDir)
	m.log.Debug("copy %q to %q", from, toDir)

	isFile, err := m.FileExists(ctx, from)
	if err != nil {
		return nil, err
	}
	if !isFile {
		isDir, err := m.DirExists(ctx, from)
		if err != nil {
			return nil, err
		}
		if isDir {
			return nil, &namespace.Error{Code: namespace.ErrInvalidTarget, Op: "copy", Path: from, Message: "cannot copy a directory"}
		}
		return nil, &namespace.Error{Code: namespace.ErrNoSuchEntity, Op: "copy", Path: from, Message: "no such file"}
	}

	if toDir == "" && strings.Contains(from, namespace.Delimiter) {
		toDir = strings.TrimSuffix(namespace.ParentOf(from), namespace.Delimiter)
	}

	dest := toDir
	isDir, err := m.DirExists(ctx, toDir)
	if err != nil {
		return nil, err
	}
	if isDir {
		base, ext := splitName(copySuffix.ReplaceAllString(namespace.Name(from), "."))
		name, err := m.incrementName(ctx, toDir, base, ext, "-Copy")
		if err != nil {
			return nil, err
		}
		dest = joinAPI(toDir, name)
	}

	if err := m.engine.Copy(ctx, from, dest); err != nil {
		return nil, err
	}
	return m.Get(ctx, dest, GetOptions{})
}

// NewUntitled creates a new file, notebook or directory under dir with the
// first free untitled name. A nil kind is a notebook when ext is the
// notebook suffix and a file otherwise.
func (m *Manager) NewUntitled(ctx context.Context, dir string, kind *namespace.EntryType, ext string) (*Model, error) {
	dir = apiPath(dir)

	isDir, err := m.DirExists(ctx, dir)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, &namespace.Error{Code: namespace.ErrNoSuchEntity, Op: "new", Path: dir, Message: "no such directory"}
	}

	var t namespace.EntryType
	switch {
	case kind != nil:
		t = *kind
	case ext == namespace.NotebookSuffix:
		t = namespace.EntryNotebook
	default:
		t = namespace.EntryFile
	}

	model := &Model{Type: t}
	var base string
	switch t {
	case namespace.EntryDirectory:
		base, ext = m.cfg.UntitledDirectory, ""
	case namespace.EntryNotebook:
		base, ext = m.cfg.UntitledNotebook, namespace.NotebookSuffix
		model.Format, model.Content = FormatJSON, newNotebook()
	case namespace.EntryFile:
		base = m.cfg.UntitledFile
		model.Format, model.Content = FormatText, ""
	default:
		return nil, fmt.Errorf("%w: unknown type %v", ErrInvalidModel, t)
	}

	name, err := m.incrementName(ctx, dir, base, ext, "")
	if err != nil {
		return nil, err
	}
	return m.Save(ctx, joinAPI(dir, name), model)
}
