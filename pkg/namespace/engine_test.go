package namespace_test

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/namespace"
	"github.com/marmos91/bucketfs/pkg/store"
	"github.com/marmos91/bucketfs/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

// ============================================================================
// Fixtures
// ============================================================================

func newStore(t *testing.T) *memory.MemoryObjectStore {
	t.Helper()
	s, err := memory.NewMemoryObjectStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newEngine(t *testing.T, opts ...namespace.Option) (*namespace.Engine, *memory.MemoryObjectStore) {
	t.Helper()
	s := newStore(t)
	opts = append([]namespace.Option{namespace.WithLogger(logger.Discard())}, opts...)
	return namespace.New(s, opts...), s
}

// plainStore exposes only the base ObjectStore methods, so the engine has
// to fall back to listing and read+write copies.
type plainStore struct {
	store.ObjectStore
}

// faultyStore fails Delete once failAfter deletes have succeeded.
type faultyStore struct {
	store.ObjectStore
	failAfter int
	deletes   int
}

var errInjected = errors.New("injected failure")

func (f *faultyStore) Delete(ctx context.Context, key string) error {
	if f.deletes >= f.failAfter {
		return errInjected
	}
	f.deletes++
	return f.ObjectStore.Delete(ctx, key)
}

type recordingMetrics struct {
	mu      sync.Mutex
	ops     map[string]int
	errs    map[string]int
	objects map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ops: map[string]int{}, errs: map[string]int{}, objects: map[string]int{}}
}

func (m *recordingMetrics) ObserveOperation(op string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op]++
	if err != nil {
		m.errs[op]++
	}
}

func (m *recordingMetrics) RecordObjects(op string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[op] += n
}

func requireCode(t *testing.T, err error, code namespace.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	got, ok := namespace.CodeOf(err)
	require.True(t, ok, "not a namespace error: %v", err)
	require.Equal(t, code, got, "unexpected error: %v", err)
}

func keys(t *testing.T, s store.ObjectStore, prefix string) []string {
	t.Helper()
	objs, err := s.List(context.Background(), prefix)
	require.NoError(t, err)
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Key
	}
	sort.Strings(out)
	return out
}

func childPaths(entries []namespace.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

// ============================================================================
// Properties
// ============================================================================

func TestWriteReadRoundTrip(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "docs"))

	cases := map[string][]byte{
		"top.txt":          []byte("top"),
		"docs/readme.md":   []byte("# readme"),
		"docs/empty.bin":   {},
		"docs/nb.ipynb":    []byte(`{"nbformat":4,"cells":[]}`),
		"/docs/binary.dat": {0x00, 0xff, 0x10},
	}
	for path, content := range cases {
		require.NoError(t, e.Write(ctx, path, content), path)
		got, err := e.Read(ctx, path)
		require.NoError(t, err, path)
		assert.True(t, bytes.Equal(content, got), path)
	}

	// Overwrite keeps a single object.
	require.NoError(t, e.Write(ctx, "top.txt", []byte("v2")))
	got, err := e.Read(ctx, "top.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestMakeDirectoryIdempotent(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "d/"))
	require.NoError(t, e.MakeDirectory(ctx, "d"))

	ok, err := e.IsDirectory(ctx, "d")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.Remove(ctx, "d/", false))
	ok, err = e.IsDirectory(ctx, "d")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.MakeDirectory(ctx, "d"))
	ok, err = e.IsDirectory(ctx, "d/")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.MakeDirectory(ctx, ""), "root always exists")
}

func TestRemoveNonEmptyGuard(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "p"))
	require.NoError(t, e.MakeDirectory(ctx, "p/sub"))
	require.NoError(t, e.Write(ctx, "p/sub/f.txt", []byte("x")))

	requireCode(t, e.Remove(ctx, "p", false), namespace.ErrDirectoryNotEmpty)
	assert.Len(t, keys(t, s, "p/"), 3, "rejected remove must not mutate")

	require.NoError(t, e.Remove(ctx, "p", true))

	ok, err := e.IsDirectory(ctx, "p")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, keys(t, s, ""))
}

func TestListChildrenExact(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "a/"))
	require.NoError(t, e.MakeDirectory(ctx, "a/b/"))
	require.NoError(t, e.Write(ctx, "a/b/c.txt", []byte("c")))

	children, err := e.ListChildren(ctx, "a/", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/"}, childPaths(children))
	assert.Equal(t, namespace.EntryDirectory, children[0].Type)

	all, err := e.ListChildren(ctx, "a/", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/", "a/b/c.txt"}, childPaths(all))

	root, err := e.ListChildren(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/"}, childPaths(root))
}

func TestCopySubtree(t *testing.T) {
	for name, wrap := range map[string]func(store.ObjectStore) store.ObjectStore{
		"native":   func(s store.ObjectStore) store.ObjectStore { return s },
		"fallback": func(s store.ObjectStore) store.ObjectStore { return plainStore{s} },
	} {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			e := namespace.New(wrap(s), namespace.WithLogger(logger.Discard()))
			ctx := context.Background()

			require.NoError(t, e.MakeDirectory(ctx, "src"))
			require.NoError(t, e.Write(ctx, "src/x.txt", []byte("x")))
			require.NoError(t, e.MakeDirectory(ctx, "src/d"))
			require.NoError(t, e.Write(ctx, "src/d/y.txt", []byte("y")))
			before := keys(t, s, "src/")

			require.NoError(t, e.Copy(ctx, "src/", "dst/"))

			assert.Equal(t, []string{"dst/", "dst/d/", "dst/d/y.txt", "dst/x.txt"}, keys(t, s, "dst/"))
			assert.Equal(t, before, keys(t, s, "src/"))

			got, err := e.Read(ctx, "dst/d/y.txt")
			require.NoError(t, err)
			assert.Equal(t, []byte("y"), got)
		})
	}
}

func TestCopySubstitutesPrefixOnce(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "a"))
	require.NoError(t, e.MakeDirectory(ctx, "a/a"))
	require.NoError(t, e.Write(ctx, "a/a/a.txt", []byte("deep")))

	require.NoError(t, e.Copy(ctx, "a", "b"))
	assert.Equal(t, []string{"b/", "b/a/", "b/a/a.txt"}, keys(t, s, "b/"))
}

func TestMoveIsCopyThenRemove(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "src"))
	require.NoError(t, e.Write(ctx, "src/x.txt", []byte("x")))
	require.NoError(t, e.MakeDirectory(ctx, "src/d"))
	require.NoError(t, e.Write(ctx, "src/d/y.txt", []byte("y")))

	var leaves []string
	for _, k := range keys(t, s, "src/") {
		if !strings.HasSuffix(k, "/") {
			leaves = append(leaves, "dst/"+k[len("src/"):])
		}
	}

	require.NoError(t, e.Move(ctx, "src/", "dst/"))

	ok, err := e.IsDirectory(ctx, "src/")
	require.NoError(t, err)
	assert.False(t, ok)

	var moved []string
	for _, k := range keys(t, s, "dst/") {
		if !strings.HasSuffix(k, "/") {
			moved = append(moved, k)
		}
	}
	assert.Equal(t, leaves, moved)
}

func TestMoveIntoAncestorRejected(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "a"))
	require.NoError(t, e.MakeDirectory(ctx, "a/b"))
	require.NoError(t, e.MakeDirectory(ctx, "a/b/b"))
	require.NoError(t, e.Write(ctx, "a/b/b/x.txt", []byte("x")))
	before := keys(t, s, "")

	err := e.Move(ctx, "a/b/", "a/")
	assert.True(t, namespace.IsCode(err, namespace.ErrInvalidTarget), "got %v", err)
	assert.Equal(t, before, keys(t, s, ""))

	data, err := e.Read(ctx, "a/b/b/x.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	err = e.Copy(ctx, "a/b/b", "a/b")
	assert.True(t, namespace.IsCode(err, namespace.ErrInvalidTarget), "got %v", err)
}

func TestWriteRequiresParent(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "a"))
	requireCode(t, e.Write(ctx, "a/b/c.txt", []byte("data")), namespace.ErrParentMissing)
	requireCode(t, e.MakeDirectory(ctx, "a/b/c"), namespace.ErrParentMissing)
	assert.Equal(t, []string{"a/"}, keys(t, s, ""))
}

func TestScenario(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "temp/"))
	require.NoError(t, e.MakeDirectory(ctx, "temp/bar/"))
	require.NoError(t, e.Write(ctx, "temp/bar/hello.txt", []byte("Hello world")))

	children, err := e.ListChildren(ctx, "temp/", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"temp/bar/"}, childPaths(children))

	data, err := e.Read(ctx, "temp/bar/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", string(data))

	requireCode(t, e.Remove(ctx, "temp/", false), namespace.ErrDirectoryNotEmpty)
	require.NoError(t, e.Remove(ctx, "temp/", true))

	ok, err := e.IsDirectory(ctx, "temp/")
	require.NoError(t, err)
	assert.False(t, ok)
}

// ============================================================================
// Edge cases
// ============================================================================

func TestClassifyAndLookups(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "dir"))
	require.NoError(t, e.Write(ctx, "dir/f.txt", []byte("f")))
	require.NoError(t, e.Write(ctx, "dir/n.ipynb", []byte("{}")))

	tests := []struct {
		path     string
		allowDir bool
		want     namespace.EntryType
	}{
		{"", true, namespace.EntryDirectory},
		{"dir", true, namespace.EntryDirectory},
		{"dir", false, namespace.EntryFile},
		{"dir/f.txt", true, namespace.EntryFile},
		{"dir/n.ipynb", true, namespace.EntryNotebook},
		{"missing.txt", true, namespace.EntryFile},
	}
	for _, tt := range tests {
		got, err := e.Classify(ctx, tt.path, tt.allowDir)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q allowDir=%v", tt.path, tt.allowDir)
	}

	isFile, err := e.IsFile(ctx, "dir/f.txt")
	require.NoError(t, err)
	assert.True(t, isFile)

	isFile, err = e.IsFile(ctx, "dir/")
	require.NoError(t, err)
	assert.False(t, isFile)

	isFile, err = e.IsFile(ctx, "")
	require.NoError(t, err)
	assert.False(t, isFile)

	isDir, err := e.IsDirectory(ctx, "/")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestStat(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "d"))
	require.NoError(t, e.Write(ctx, "d/f.txt", []byte("12345")))
	require.NoError(t, s.Put(ctx, "implicit/x.txt", []byte("x")))

	entry, err := e.Stat(ctx, "d/f.txt")
	require.NoError(t, err)
	assert.Equal(t, namespace.EntryFile, entry.Type)
	assert.Equal(t, int64(5), entry.Size)
	assert.Equal(t, "f.txt", entry.Name)
	assert.NotEmpty(t, entry.Hash)

	entry, err = e.Stat(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, namespace.EntryDirectory, entry.Type)
	assert.False(t, entry.Inferred)

	entry, err = e.Stat(ctx, "implicit")
	require.NoError(t, err)
	assert.Equal(t, "implicit/", entry.Path)
	assert.True(t, entry.Inferred)

	entry, err = e.Stat(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, namespace.EntryDirectory, entry.Type)

	_, err = e.Stat(ctx, "nope")
	requireCode(t, err, namespace.ErrNoSuchEntity)
}

func TestReadErrors(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "d"))

	_, err := e.Read(ctx, "d")
	requireCode(t, err, namespace.ErrInvalidTarget)

	_, err = e.Read(ctx, "missing.txt")
	requireCode(t, err, namespace.ErrNoSuchEntity)

	_, err = e.Read(ctx, "a//b")
	requireCode(t, err, namespace.ErrInvalidTarget)
}

func TestWriteErrors(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "d"))

	requireCode(t, e.Write(ctx, "", []byte("x")), namespace.ErrInvalidTarget)
	requireCode(t, e.Write(ctx, "d/", []byte("x")), namespace.ErrInvalidTarget)
	requireCode(t, e.Write(ctx, "d", []byte("x")), namespace.ErrInvalidTarget)
	requireCode(t, e.Write(ctx, "../escape", []byte("x")), namespace.ErrInvalidTarget)
}

func TestMakeDirectoryOverFile(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Write(ctx, "f", []byte("x")))
	requireCode(t, e.MakeDirectory(ctx, "f"), namespace.ErrAlreadyExists)
}

func TestWriteUnderInferredDirectoryCreatesMarkers(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "x/y/z/seed.txt", []byte("seed")))
	require.NoError(t, e.Write(ctx, "x/y/z/new.txt", []byte("new")))

	assert.Equal(t,
		[]string{"x/", "x/y/", "x/y/z/", "x/y/z/new.txt", "x/y/z/seed.txt"},
		keys(t, s, ""))

	// Removing the seed no longer makes the directory disappear.
	require.NoError(t, e.Remove(ctx, "x/y/z/seed.txt", false))
	ok, err := e.IsDirectory(ctx, "x/y/z")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListInferredDirectories(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "logs/2024/01.txt", []byte("jan")))
	require.NoError(t, s.Put(ctx, "logs/index.txt", []byte("i")))

	children, err := e.ListChildren(ctx, "logs", true)
	require.NoError(t, err)
	require.Equal(t, []string{"logs/2024/", "logs/index.txt"}, childPaths(children))
	assert.True(t, children[0].Inferred)

	_, err = e.ListChildren(ctx, "nothing", true)
	requireCode(t, err, namespace.ErrNoSuchEntity)

	_, err = e.ListChildren(ctx, "logs/index.txt", true)
	requireCode(t, err, namespace.ErrInvalidTarget)
}

func TestRemoveErrors(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	requireCode(t, e.Remove(ctx, "", true), namespace.ErrInvalidTarget)
	requireCode(t, e.Remove(ctx, "/", false), namespace.ErrInvalidTarget)
	requireCode(t, e.Remove(ctx, "ghost", false), namespace.ErrNoSuchEntity)
	requireCode(t, e.Remove(ctx, "ghost/", true), namespace.ErrNoSuchEntity)
}

func TestRemoveRecursiveSkipsInferred(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "r/a/b/c.txt", []byte("c")))
	require.NoError(t, s.Put(ctx, "r/d.txt", []byte("d")))
	require.NoError(t, s.Put(ctx, "keep.txt", []byte("k")))

	require.NoError(t, e.Remove(ctx, "r", true))
	assert.Equal(t, []string{"keep.txt"}, keys(t, s, ""))
}

func TestCopyErrors(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "d"))
	require.NoError(t, e.Write(ctx, "d/f.txt", []byte("f")))
	require.NoError(t, e.Write(ctx, "file.txt", []byte("x")))
	before := keys(t, s, "")

	requireCode(t, e.Copy(ctx, "", "x"), namespace.ErrInvalidTarget)
	requireCode(t, e.Copy(ctx, "d", ""), namespace.ErrInvalidTarget)
	requireCode(t, e.Copy(ctx, "d", "d"), namespace.ErrInvalidTarget)
	requireCode(t, e.Copy(ctx, "d", "d/inner"), namespace.ErrInvalidTarget)
	requireCode(t, e.Copy(ctx, "file.txt", "file.txt"), namespace.ErrInvalidTarget)
	requireCode(t, e.Copy(ctx, "ghost", "x"), namespace.ErrNoSuchEntity)
	requireCode(t, e.Copy(ctx, "file.txt", "d"), namespace.ErrAlreadyExists)
	requireCode(t, e.Copy(ctx, "d", "file.txt"), namespace.ErrAlreadyExists)
	requireCode(t, e.Copy(ctx, "file.txt", "no/parent.txt"), namespace.ErrParentMissing)
	requireCode(t, e.Copy(ctx, "d", "no/parent"), namespace.ErrParentMissing)

	assert.Equal(t, before, keys(t, s, ""), "rejected copies must not mutate")
}

func TestCopyFile(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "d"))
	require.NoError(t, e.Write(ctx, "f.txt", []byte("payload")))
	require.NoError(t, e.Copy(ctx, "f.txt", "d/g.txt"))

	got, err := e.Read(ctx, "d/g.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, e.Move(ctx, "d/g.txt", "h.txt"))
	isFile, err := e.IsFile(ctx, "d/g.txt")
	require.NoError(t, err)
	assert.False(t, isFile)
}

func TestRemoveStoreFailureIsNotRolledBack(t *testing.T) {
	s := newStore(t)
	fs := &faultyStore{ObjectStore: s, failAfter: 1}
	e := namespace.New(fs, namespace.WithLogger(logger.Discard()))
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "t"))
	require.NoError(t, e.Write(ctx, "t/1.txt", []byte("1")))
	require.NoError(t, e.Write(ctx, "t/2.txt", []byte("2")))

	err := e.Remove(ctx, "t", true)
	requireCode(t, err, namespace.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errInjected)

	// One delete went through and stays applied.
	assert.Len(t, keys(t, s, "t/"), 2)
}

func TestCancelledContext(t *testing.T) {
	e, _ := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.MakeDirectory(ctx, "d")
	requireCode(t, err, namespace.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = e.ListChildren(ctx, "", true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalk(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "w"))
	require.NoError(t, e.Write(ctx, "w/a.txt", []byte("a")))

	entries, err := e.Walk(ctx, "w", namespace.ChildrenFirst)
	require.NoError(t, err)
	assert.Equal(t, []string{"w/a.txt", "w/"}, childPaths(entries))

	_, err = e.Walk(ctx, "missing", namespace.SelfFirst)
	requireCode(t, err, namespace.ErrNoSuchEntity)
}

func TestPrefixedStore(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put(context.Background(), "elsewhere/x.txt", []byte("x")))

	e := namespace.New(store.Prefixed(s, "/users/alice"), namespace.WithLogger(logger.Discard()))
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "notes"))
	require.NoError(t, e.Write(ctx, "notes/todo.txt", []byte("buy milk")))

	root, err := e.ListChildren(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes/"}, childPaths(root))
	assert.Contains(t, keys(t, s, ""), "users/alice/notes/todo.txt")
}

// ============================================================================
// Instrumentation
// ============================================================================

func TestInstrumentation(t *testing.T) {
	var buf bytes.Buffer
	m := newRecordingMetrics()
	e, _ := newEngine(t,
		namespace.WithLogger(logger.New(&buf, logger.LevelDebug, "text")),
		namespace.WithMetrics(m),
		namespace.WithTracer(noop.NewTracerProvider().Tracer("test")),
	)
	ctx := context.Background()

	require.NoError(t, e.MakeDirectory(ctx, "src"))
	require.NoError(t, e.Write(ctx, "src/a.txt", []byte("a")))
	require.NoError(t, e.Write(ctx, "src/b.txt", []byte("b")))
	require.NoError(t, e.Copy(ctx, "src", "dst"))
	_, err := e.Read(ctx, "missing")
	require.Error(t, err)

	assert.Equal(t, 1, m.ops["mkdir"])
	assert.Equal(t, 2, m.ops["write"])
	assert.Equal(t, 1, m.errs["read"])
	assert.Equal(t, 3, m.objects["copy"])

	out := buf.String()
	assert.Contains(t, out, `mkdir(path=\"src\")`)
	assert.Contains(t, out, "component=namespace")
}
