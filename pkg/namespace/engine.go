package namespace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Engine presents a flat object store as a hierarchical filesystem.
//
// Directories exist either as zero-length marker objects whose key ends
// with the delimiter, or implicitly because some key lives beneath them.
// Every filesystem guarantee (parent existence, non-empty directory
// protection, subtree copy and move) is synthesized from single-object
// store calls; nothing spans more than one call atomically.
//
// Invariant checks run before the first mutating store call, so a rejected
// operation leaves the store untouched. A store failure in the middle of a
// recursive operation is returned as ErrStoreUnavailable and the
// sub-operations already applied stay applied.
//
// Thread Safety:
// Engine holds no mutable state and is safe for concurrent use. It does not
// isolate concurrent callers from each other: overlapping recursive
// operations interleave at the granularity of single store calls.
type Engine struct {
	store   store.ObjectStore
	walker  *TreeWalker
	log     *logger.Logger
	tracer  trace.Tracer
	metrics Metrics
}

// New creates an Engine over s.
func New(s store.ObjectStore, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		walker:  NewTreeWalker(s),
		log:     logger.Default(),
		tracer:  defaultTracer(),
		metrics: NoopMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "namespace")
	return e
}

// Store returns the object store the engine operates on.
func (e *Engine) Store() store.ObjectStore {
	return e.store
}

// ============================================================================
// Instrumentation
// ============================================================================

// begin opens a span for op, logs the call and returns the function that
// closes both. Callers defer end(&err) with a named error result.
func (e *Engine) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := e.tracer.Start(ctx, "namespace."+op, trace.WithAttributes(attrs...))
	if e.log.Enabled(logger.LevelDebug) {
		e.log.Debug("%s(%s)", op, formatAttrs(attrs))
	}
	start := time.Now()

	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		e.metrics.ObserveOperation(op, time.Since(start), err)

		if err != nil {
			code, _ := CodeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, code.String())
			if code == ErrStoreUnavailable {
				e.log.Warn("%s failed: %v", op, err)
			} else {
				e.log.Debug("%s rejected: %v", op, err)
			}
		}
		span.End()
	}
}

func formatAttrs(attrs []attribute.KeyValue) string {
	parts := make([]string, 0, len(attrs))
	for _, kv := range attrs {
		parts = append(parts, fmt.Sprintf("%s=%q", kv.Key, kv.Value.Emit()))
	}
	return strings.Join(parts, ", ")
}

func pathAttr(path string) attribute.KeyValue {
	return attribute.String("path", path)
}

func validate(op, path string) error {
	if err := validatePath(path); err != nil {
		return newError(ErrInvalidTarget, op, path, "invalid path: %v", err)
	}
	return nil
}

func checkContext(ctx context.Context, op, path string) error {
	if err := ctx.Err(); err != nil {
		return storeError(op, path, err)
	}
	return nil
}

// ============================================================================
// Lookups
// ============================================================================

func (e *Engine) dirExists(ctx context.Context, dirKey string) (bool, error) {
	if dirKey == "" {
		return true, nil
	}
	return store.HasPrefix(ctx, e.store, dirKey)
}

func (e *Engine) fileExists(ctx context.Context, key string) (bool, error) {
	if key == "" || strings.HasSuffix(key, Delimiter) {
		return false, nil
	}
	_, err := e.store.Stat(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case store.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (e *Engine) markerExists(ctx context.Context, dirKey string) (bool, error) {
	_, err := e.store.Stat(ctx, dirKey)
	switch {
	case err == nil:
		return true, nil
	case store.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// IsDirectory reports whether path is a directory: the root, a marker, or a
// prefix with at least one key beneath it.
func (e *Engine) IsDirectory(ctx context.Context, path string) (ok bool, err error) {
	ctx, end := e.begin(ctx, "is_directory", pathAttr(path))
	defer end(&err)

	if err := checkContext(ctx, "is_directory", path); err != nil {
		return false, err
	}
	if err := validate("is_directory", path); err != nil {
		return false, err
	}

	ok, err = e.dirExists(ctx, DirKey(path))
	if err != nil {
		return false, storeError("is_directory", path, err)
	}
	return ok, nil
}

// IsFile reports whether an object exists at path. Paths in directory form
// are never files.
func (e *Engine) IsFile(ctx context.Context, path string) (ok bool, err error) {
	ctx, end := e.begin(ctx, "is_file", pathAttr(path))
	defer end(&err)

	if err := checkContext(ctx, "is_file", path); err != nil {
		return false, err
	}
	if err := validate("is_file", path); err != nil {
		return false, err
	}

	ok, err = e.fileExists(ctx, Clean(path))
	if err != nil {
		return false, storeError("is_file", path, err)
	}
	return ok, nil
}

// Classify returns the type of path. The notebook suffix wins. Otherwise,
// when allowDirectory is set, a directory-form path or one with keys
// beneath it is a Directory. Everything else is a File, whether or not it
// exists.
func (e *Engine) Classify(ctx context.Context, path string, allowDirectory bool) (t EntryType, err error) {
	ctx, end := e.begin(ctx, "classify", pathAttr(path), attribute.Bool("allow_directory", allowDirectory))
	defer end(&err)

	if err := checkContext(ctx, "classify", path); err != nil {
		return EntryFile, err
	}
	return e.classify(ctx, "classify", path, allowDirectory)
}

func (e *Engine) classify(ctx context.Context, op, path string, allowDirectory bool) (EntryType, error) {
	t := GuessType(path, allowDirectory)
	if t != EntryFile || !allowDirectory {
		return t, nil
	}

	isDir, err := e.dirExists(ctx, DirKey(path))
	if err != nil {
		return EntryFile, storeError(op, path, err)
	}
	if isDir {
		return EntryDirectory, nil
	}
	return EntryFile, nil
}

// Stat returns the entry at path. A file object takes precedence over a
// directory of the same name; a directory without a marker is returned
// with Inferred set.
func (e *Engine) Stat(ctx context.Context, path string) (entry Entry, err error) {
	ctx, end := e.begin(ctx, "stat", pathAttr(path))
	defer end(&err)

	if err := checkContext(ctx, "stat", path); err != nil {
		return Entry{}, err
	}
	if err := validate("stat", path); err != nil {
		return Entry{}, err
	}
	return e.stat(ctx, "stat", path)
}

func (e *Engine) stat(ctx context.Context, op, path string) (Entry, error) {
	if IsRoot(path) {
		return Entry{Type: EntryDirectory, Inferred: true}, nil
	}

	if !strings.HasSuffix(path, Delimiter) {
		obj, err := e.store.Stat(ctx, FileKey(path))
		switch {
		case err == nil:
			return entryFromObject(obj), nil
		case !store.IsNotFound(err):
			return Entry{}, storeError(op, path, err)
		}
	}

	dirKey := DirKey(path)
	obj, err := e.store.Stat(ctx, dirKey)
	switch {
	case err == nil:
		return entryFromObject(obj), nil
	case !store.IsNotFound(err):
		return Entry{}, storeError(op, path, err)
	}

	isDir, err := e.dirExists(ctx, dirKey)
	if err != nil {
		return Entry{}, storeError(op, path, err)
	}
	if isDir {
		return inferredDirectory(dirKey), nil
	}
	return Entry{}, newError(ErrNoSuchEntity, op, path, "no such file or directory")
}

// ListChildren lists the contents of the directory at path.
//
// With thisDirOnly, only immediate children are returned: files and
// markers exactly one segment below path, plus inferred entries for
// sub-directories that have no marker. Without it, every object in the
// subtree except path's own marker is returned.
//
// Returns ErrNoSuchEntity when nothing exists under path, and
// ErrInvalidTarget when path names a file.
func (e *Engine) ListChildren(ctx context.Context, path string, thisDirOnly bool) (children []Entry, err error) {
	ctx, end := e.begin(ctx, "list", pathAttr(path), attribute.Bool("this_dir_only", thisDirOnly))
	defer end(&err)

	if err := checkContext(ctx, "list", path); err != nil {
		return nil, err
	}
	if err := validate("list", path); err != nil {
		return nil, err
	}

	dirKey := DirKey(path)
	objects, err := e.store.List(ctx, dirKey)
	if err != nil {
		return nil, storeError("list", path, err)
	}

	if len(objects) == 0 && dirKey != "" {
		isFile, err := e.fileExists(ctx, FileKey(path))
		if err != nil {
			return nil, storeError("list", path, err)
		}
		if isFile {
			return nil, newError(ErrInvalidTarget, "list", path, "not a directory")
		}
		return nil, newError(ErrNoSuchEntity, "list", path, "no such directory")
	}

	if thisDirOnly {
		return immediateChildren(dirKey, objects), nil
	}

	children = make([]Entry, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == dirKey {
			continue
		}
		children = append(children, entryFromObject(obj))
	}
	return children, nil
}

// Walk returns every entry under path, path itself included, in the given
// order. See TreeWalker.
func (e *Engine) Walk(ctx context.Context, path string, order Order) (entries []Entry, err error) {
	ctx, end := e.begin(ctx, "walk", pathAttr(path), attribute.String("order", order.String()))
	defer end(&err)

	if err := checkContext(ctx, "walk", path); err != nil {
		return nil, err
	}
	if err := validate("walk", path); err != nil {
		return nil, err
	}

	entries, err = e.walker.Walk(ctx, DirKey(path), order)
	if err != nil {
		return nil, storeError("walk", path, err)
	}
	if len(entries) == 0 {
		return nil, newError(ErrNoSuchEntity, "walk", path, "no such directory")
	}
	return entries, nil
}

// ============================================================================
// Mutations
// ============================================================================

// requireParent fails with ErrParentMissing unless path's parent is a
// directory. An inferred parent gets its missing markers written so the
// new entry keeps it alive on its own.
func (e *Engine) requireParent(ctx context.Context, op, path string) error {
	parent := ParentOf(path)
	if parent == "" {
		return nil
	}

	hasMarker, err := e.markerExists(ctx, parent)
	if err != nil {
		return storeError(op, path, err)
	}
	if hasMarker {
		return nil
	}

	isDir, err := e.dirExists(ctx, parent)
	if err != nil {
		return storeError(op, path, err)
	}
	if !isDir {
		return newError(ErrParentMissing, op, path, "parent directory %q does not exist", parent)
	}
	return e.ensureMarkers(ctx, op, path, parent)
}

// ensureMarkers writes the marker for dirKey, known to be missing, and for
// every ancestor up to the first one that already has a marker. Markers
// are written top-down.
func (e *Engine) ensureMarkers(ctx context.Context, op, path, dirKey string) error {
	missing := []string{dirKey}
	for dir := ParentOf(dirKey); dir != ""; dir = ParentOf(dir) {
		found, err := e.markerExists(ctx, dir)
		if err != nil {
			return storeError(op, path, err)
		}
		if found {
			break
		}
		missing = append(missing, dir)
	}

	for i := len(missing) - 1; i >= 0; i-- {
		if err := checkContext(ctx, op, path); err != nil {
			return err
		}
		if err := e.store.Put(ctx, missing[i], nil); err != nil {
			return storeError(op, path, err)
		}
		e.log.Debug("%s: created marker %q", op, missing[i])
	}
	return nil
}

// MakeDirectory creates the directory at path by writing its marker.
//
// Idempotent: an existing directory, including the root and inferred
// directories, is left alone. Fails with ErrAlreadyExists when a file
// occupies the path and ErrParentMissing when the parent is not a
// directory.
func (e *Engine) MakeDirectory(ctx context.Context, path string) (err error) {
	ctx, end := e.begin(ctx, "mkdir", pathAttr(path))
	defer end(&err)

	if err := checkContext(ctx, "mkdir", path); err != nil {
		return err
	}
	if err := validate("mkdir", path); err != nil {
		return err
	}
	if IsRoot(path) {
		return nil
	}

	dirKey := DirKey(path)
	exists, err := e.dirExists(ctx, dirKey)
	if err != nil {
		return storeError("mkdir", path, err)
	}
	if exists {
		return nil
	}

	isFile, err := e.fileExists(ctx, FileKey(path))
	if err != nil {
		return storeError("mkdir", path, err)
	}
	if isFile {
		return newError(ErrAlreadyExists, "mkdir", path, "a file exists at this path")
	}

	if err := e.requireParent(ctx, "mkdir", dirKey); err != nil {
		return err
	}
	if err := e.store.Put(ctx, dirKey, nil); err != nil {
		return storeError("mkdir", path, err)
	}
	return nil
}

// Read returns the content of the file at path.
func (e *Engine) Read(ctx context.Context, path string) (data []byte, err error) {
	ctx, end := e.begin(ctx, "read", pathAttr(path))
	defer end(&err)

	if err := checkContext(ctx, "read", path); err != nil {
		return nil, err
	}
	if err := validate("read", path); err != nil {
		return nil, err
	}

	t, err := e.classify(ctx, "read", path, true)
	if err != nil {
		return nil, err
	}
	switch t {
	case EntryDirectory:
		return nil, newError(ErrInvalidTarget, "read", path, "is a directory")
	case EntryFile, EntryNotebook:
	}

	data, err = e.store.Get(ctx, FileKey(path))
	if store.IsNotFound(err) {
		return nil, newError(ErrNoSuchEntity, "read", path, "no such file")
	}
	if err != nil {
		return nil, storeError("read", path, err)
	}
	return data, nil
}

// Write stores content at path, replacing any previous content.
//
// Fails with ErrInvalidTarget when path is the root, is in directory form
// or names an existing directory, and with ErrParentMissing when the
// parent is not a directory.
func (e *Engine) Write(ctx context.Context, path string, content []byte) (err error) {
	ctx, end := e.begin(ctx, "write", pathAttr(path), attribute.Int("size", len(content)))
	defer end(&err)

	if err := checkContext(ctx, "write", path); err != nil {
		return err
	}
	if err := validate("write", path); err != nil {
		return err
	}
	if IsRoot(path) || strings.HasSuffix(path, Delimiter) {
		return newError(ErrInvalidTarget, "write", path, "cannot write a directory")
	}

	key := FileKey(path)
	isDir, err := e.dirExists(ctx, DirKey(key))
	if err != nil {
		return storeError("write", path, err)
	}
	if isDir {
		return newError(ErrInvalidTarget, "write", path, "is a directory")
	}

	if err := e.requireParent(ctx, "write", key); err != nil {
		return err
	}
	if err := e.store.Put(ctx, key, content); err != nil {
		return storeError("write", path, err)
	}
	return nil
}

// Copy duplicates src at dst.
//
// A file is copied to the file path dst. A directory is copied with its
// whole subtree: every descendant key has the src prefix replaced by the
// dst prefix, once, at the start of the key. Markers are written before
// the objects beneath them. Copying into an existing directory merges into
// it and overwrites files with the same relative path.
//
// Objects are copied with the store's server-side copy when available and
// read and rewritten otherwise.
func (e *Engine) Copy(ctx context.Context, src, dst string) (err error) {
	ctx, end := e.begin(ctx, "copy", attribute.String("src", src), attribute.String("dst", dst))
	defer end(&err)
	return e.copy(ctx, "copy", src, dst)
}

func (e *Engine) copy(ctx context.Context, op, src, dst string) error {
	if err := checkContext(ctx, op, src); err != nil {
		return err
	}
	if err := validate(op, src); err != nil {
		return err
	}
	if err := validate(op, dst); err != nil {
		return err
	}
	if IsRoot(src) {
		return newError(ErrInvalidTarget, op, src, "cannot copy the root directory")
	}
	if IsRoot(dst) {
		return newError(ErrInvalidTarget, op, dst, "cannot replace the root directory")
	}

	if !strings.HasSuffix(src, Delimiter) {
		isFile, err := e.fileExists(ctx, FileKey(src))
		if err != nil {
			return storeError(op, src, err)
		}
		if isFile {
			return e.copyFile(ctx, op, FileKey(src), dst)
		}
	}

	srcDir := DirKey(src)
	isDir, err := e.dirExists(ctx, srcDir)
	if err != nil {
		return storeError(op, src, err)
	}
	if !isDir {
		return newError(ErrNoSuchEntity, op, src, "no such file or directory")
	}
	return e.copyTree(ctx, op, srcDir, dst)
}

func (e *Engine) copyFile(ctx context.Context, op, srcKey, dst string) error {
	if strings.HasSuffix(dst, Delimiter) {
		return newError(ErrInvalidTarget, op, dst, "destination of a file copy must be a file path")
	}
	dstKey := FileKey(dst)
	if dstKey == srcKey {
		return newError(ErrInvalidTarget, op, dst, "source and destination are the same")
	}

	isDir, err := e.dirExists(ctx, DirKey(dstKey))
	if err != nil {
		return storeError(op, dst, err)
	}
	if isDir {
		return newError(ErrAlreadyExists, op, dst, "a directory exists at the destination")
	}

	if err := e.requireParent(ctx, op, dstKey); err != nil {
		return err
	}
	if err := store.CopyObject(ctx, e.store, srcKey, dstKey); err != nil {
		if store.IsNotFound(err) {
			return newError(ErrNoSuchEntity, op, srcKey, "source vanished during copy")
		}
		return storeError(op, srcKey, err)
	}
	e.metrics.RecordObjects(op, 1)
	return nil
}

func (e *Engine) copyTree(ctx context.Context, op, srcDir, dst string) error {
	dstDir := DirKey(dst)
	if dstDir == srcDir {
		return newError(ErrInvalidTarget, op, dst, "source and destination are the same")
	}
	if strings.HasPrefix(dstDir, srcDir) {
		return newError(ErrInvalidTarget, op, dst, "cannot copy a directory into itself")
	}
	if strings.HasPrefix(srcDir, dstDir) {
		return newError(ErrInvalidTarget, op, dst, "cannot copy a directory into one of its ancestors")
	}

	isFile, err := e.fileExists(ctx, FileKey(dstDir))
	if err != nil {
		return storeError(op, dst, err)
	}
	if isFile {
		return newError(ErrAlreadyExists, op, dst, "a file exists at the destination")
	}
	if err := e.requireParent(ctx, op, dstDir); err != nil {
		return err
	}

	entries, err := e.walker.Walk(ctx, srcDir, SelfFirst)
	if err != nil {
		return storeError(op, srcDir, err)
	}
	if len(entries) == 0 {
		return newError(ErrNoSuchEntity, op, srcDir, "no such directory")
	}

	copied := 0
	defer func() { e.metrics.RecordObjects(op, copied) }()

	for _, entry := range entries {
		if err := checkContext(ctx, op, entry.Path); err != nil {
			return err
		}

		dstKey := dstDir + entry.Path[len(srcDir):]
		switch entry.Type {
		case EntryDirectory:
			if err := e.store.Put(ctx, dstKey, nil); err != nil {
				return storeError(op, dstKey, err)
			}
		case EntryFile, EntryNotebook:
			if err := store.CopyObject(ctx, e.store, entry.Path, dstKey); err != nil {
				return storeError(op, entry.Path, err)
			}
		}
		copied++
	}

	e.log.Debug("%s: %d objects from %q to %q", op, copied, srcDir, dstDir)
	return nil
}

// Move relocates src to dst as a Copy followed by a recursive Remove of
// src. The two steps are not atomic: a failure during the remove leaves
// both trees populated.
func (e *Engine) Move(ctx context.Context, src, dst string) (err error) {
	ctx, end := e.begin(ctx, "move", attribute.String("src", src), attribute.String("dst", dst))
	defer end(&err)

	if err := e.copy(ctx, "move", src, dst); err != nil {
		return err
	}
	return e.remove(ctx, "move", src, true)
}

// Remove deletes the file or directory at path.
//
// The root cannot be removed (ErrInvalidTarget) and a missing path is
// ErrNoSuchEntity. Without recursive, a directory is removed only when
// nothing but its own marker exists beneath it (otherwise
// ErrDirectoryNotEmpty). With recursive, the subtree is deleted children
// first, the directory's marker last.
func (e *Engine) Remove(ctx context.Context, path string, recursive bool) (err error) {
	ctx, end := e.begin(ctx, "remove", pathAttr(path), attribute.Bool("recursive", recursive))
	defer end(&err)
	return e.remove(ctx, "remove", path, recursive)
}

func (e *Engine) remove(ctx context.Context, op, path string, recursive bool) error {
	if err := checkContext(ctx, op, path); err != nil {
		return err
	}
	if err := validate(op, path); err != nil {
		return err
	}
	if IsRoot(path) {
		return newError(ErrInvalidTarget, op, path, "cannot remove the root directory")
	}

	if !strings.HasSuffix(path, Delimiter) {
		key := FileKey(path)
		isFile, err := e.fileExists(ctx, key)
		if err != nil {
			return storeError(op, path, err)
		}
		if isFile {
			if err := e.store.Delete(ctx, key); err != nil {
				return storeError(op, path, err)
			}
			return nil
		}
	}

	dirKey := DirKey(path)
	if !recursive {
		objects, err := e.store.List(ctx, dirKey)
		if err != nil {
			return storeError(op, path, err)
		}
		if len(objects) == 0 {
			return newError(ErrNoSuchEntity, op, path, "no such file or directory")
		}
		for _, obj := range objects {
			if obj.Key != dirKey {
				return newError(ErrDirectoryNotEmpty, op, path, "directory not empty")
			}
		}
		if err := e.store.Delete(ctx, dirKey); err != nil {
			return storeError(op, path, err)
		}
		return nil
	}

	entries, err := e.walker.Walk(ctx, dirKey, ChildrenFirst)
	if err != nil {
		return storeError(op, path, err)
	}
	if len(entries) == 0 {
		return newError(ErrNoSuchEntity, op, path, "no such file or directory")
	}

	deleted := 0
	defer func() { e.metrics.RecordObjects(op, deleted) }()

	for _, entry := range entries {
		if err := checkContext(ctx, op, entry.Path); err != nil {
			return err
		}
		if entry.Inferred {
			continue
		}
		if err := e.store.Delete(ctx, entry.Path); err != nil {
			return storeError(op, entry.Path, err)
		}
		deleted++
	}

	e.log.Debug("%s: deleted %d objects under %q", op, deleted, dirKey)
	return nil
}
